// DAO CLI - command line client for the DAO daemon
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	version     = "0.1.0"
	defaultNode = "http://127.0.0.1:26657"
)

// options are the global flags shared by every command
type options struct {
	node    string
	timeout time.Duration
	output  string
	envFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "dao-cli",
		Short:         "Command line client for the DAO daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.envFile, err)
			}
			if !cmd.Flags().Changed("node") {
				if node := os.Getenv("DAO_NODE"); node != "" {
					opts.node = node
				}
			}
			switch opts.output {
			case "table", "json":
				return nil
			}
			return fmt.Errorf("unknown output %q", opts.output)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.node, "node", defaultNode, "daemon API address (env DAO_NODE)")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	pf.StringVarP(&opts.output, "output", "o", "table", "output format (table, json)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file")

	root.AddCommand(
		newStatusCmd(opts),
		newBlocksCmd(opts),
		newTxCmd(opts),
		newTxPoolCmd(opts),
		newContractsCmd(opts),
		newContractCmd(opts),
		newQueryCmd(opts),
		newBalanceCmd(opts),
		newMintCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the client version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "dao-cli v%s\n", version)
			},
		},
	)
	return root
}

func (o *options) client() *client {
	return newClient(o.node, o.timeout)
}
