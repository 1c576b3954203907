package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/daodao/core/pkg/types"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show chain id, height and mempool size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := opts.client().status(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, opts, st, func() string { return renderStatus(st) })
		},
	}
}

func newBlocksCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "blocks",
		Short: "List recent blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			blocks, err := opts.client().blocks(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, opts, blocks, func() string { return renderBlocks(blocks) })
		},
	}
}

func newTxPoolCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "txpool",
		Short: "List transactions waiting for a block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txs, err := opts.client().txPool(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, opts, txs, func() string { return renderTxPool(txs) })
		},
	}
}

// txFlags are shared by the submitting tx subcommands
type txFlags struct {
	from  string
	funds string
	wait  bool
	poll  time.Duration
}

func (f *txFlags) register(cmd *cobra.Command, withFunds bool) {
	cmd.Flags().StringVar(&f.from, "from", "", "sender address")
	_ = cmd.MarkFlagRequired("from")
	if withFunds {
		cmd.Flags().StringVar(&f.funds, "funds", "", "coins sent along, e.g. 100ujuno,5uatom")
	}
	cmd.Flags().BoolVar(&f.wait, "wait", true, "wait for the transaction to be included")
	cmd.Flags().DurationVar(&f.poll, "poll", time.Second, "result polling interval")
}

// broadcast submits msg and, when asked, waits for and prints its result
func (f *txFlags) broadcast(cmd *cobra.Command, opts *options, msg types.CosmosMsg) error {
	c := opts.client()
	id, err := c.submit(cmd.Context(), types.Address(f.from), msg)
	if err != nil {
		return err
	}
	if !f.wait {
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " waiting for block " + id
	s.Start()
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	res, err := c.wait(ctx, id, f.poll)
	s.Stop()
	if err != nil {
		return err
	}
	return printResult(cmd, opts, res)
}

func printResult(cmd *cobra.Command, opts *options, res types.TxResult) error {
	if err := render(cmd, opts, res, func() string { return renderTxResult(res) }); err != nil {
		return err
	}
	if res.Error != "" {
		return fmt.Errorf("transaction %s failed", res.TxID)
	}
	return nil
}

func newTxCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Submit and inspect transactions",
	}

	var send txFlags
	sendCmd := &cobra.Command{
		Use:   "send <to> <coins>",
		Short: "Send native coins",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coins, err := types.ParseCoins(args[1])
			if err != nil {
				return err
			}
			return send.broadcast(cmd, opts, types.NewBankSend(types.Address(args[0]), coins...))
		},
	}
	send.register(sendCmd, false)

	var exec txFlags
	execCmd := &cobra.Command{
		Use:   "execute <contract> <json>",
		Short: "Execute a contract message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			funds, err := types.ParseCoins(exec.funds)
			if err != nil {
				return err
			}
			msg, err := jsonArg(args[1])
			if err != nil {
				return err
			}
			wasm, err := types.NewWasmExecute(types.Address(args[0]), msg, funds...)
			if err != nil {
				return err
			}
			return exec.broadcast(cmd, opts, wasm)
		},
	}
	exec.register(execCmd, true)

	var inst txFlags
	var label, admin string
	instCmd := &cobra.Command{
		Use:   "instantiate <code-id> <json>",
		Short: "Instantiate a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			funds, err := types.ParseCoins(inst.funds)
			if err != nil {
				return err
			}
			msg, err := jsonArg(args[1])
			if err != nil {
				return err
			}
			if funds == nil {
				funds = []types.Coin{}
			}
			wi := &types.WasmInstantiate{CodeID: args[0], Msg: msg, Funds: funds, Label: label}
			if admin != "" {
				a := types.Address(admin)
				wi.Admin = &a
			}
			return inst.broadcast(cmd, opts, types.CosmosMsg{Wasm: &types.WasmMsg{Instantiate: wi}})
		},
	}
	inst.register(instCmd, true)
	instCmd.Flags().StringVar(&label, "label", "", "contract label")
	instCmd.Flags().StringVar(&admin, "admin", "", "address allowed to migrate the contract")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a transaction result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().tx(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, opts, res)
		},
	}

	cmd.AddCommand(sendCmd, execCmd, instCmd, getCmd)
	return cmd
}

func newContractsCmd(opts *options) *cobra.Command {
	var codeID string
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "List instantiated contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := opts.client().contracts(cmd.Context(), codeID)
			if err != nil {
				return err
			}
			return render(cmd, opts, list, func() string { return renderContracts(list) })
		},
	}
	cmd.Flags().StringVar(&codeID, "code", "", "only contracts of this code id")
	return cmd
}

func newContractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "contract <address>",
		Short: "Show a contract's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := opts.client().contract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, opts, info, func() string { return renderContract(info) })
		},
	}
}

func newQueryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "query <contract> <json>",
		Short: "Run a smart query and print the JSON reply",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := jsonArg(args[1])
			if err != nil {
				return err
			}
			out, err := opts.client().query(cmd.Context(), args[0], msg)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func newBalanceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address>",
		Short: "Show native balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coins, err := opts.client().balances(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, opts, coins, func() string { return renderCoins(coins) })
		},
	}
}

func newMintCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <address> <coins>",
		Short: "Mint coins on a development node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coins, err := types.ParseCoins(args[1])
			if err != nil {
				return err
			}
			if err := opts.client().mint(cmd.Context(), types.Address(args[0]), coins); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "minted %d coin(s) to %s\n", len(coins), args[0])
			return nil
		},
	}
}

// jsonArg accepts inline JSON or @file
func jsonArg(s string) (json.RawMessage, error) {
	raw := []byte(s)
	if len(s) > 0 && s[0] == '@' {
		var err error
		if raw, err = os.ReadFile(s[1:]); err != nil {
			return nil, err
		}
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", types.ErrInvalidMessage)
	}
	return raw, nil
}
