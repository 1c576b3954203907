// DAO Daemon - single node runtime for DAO governance contracts
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/daodao/core/internal/api"
	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/internal/config"
	"github.com/daodao/core/internal/contracts"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/logging"
	"github.com/daodao/core/internal/mempool"
	"github.com/daodao/core/internal/metrics"
	"github.com/daodao/core/pkg/types"
)

const (
	version = "0.1.0"
	banner  = `
  ____    _    ___    ____    _    ___
 |  _ \  / \  / _ \  |  _ \  / \  / _ \
 | | | |/ _ \| | | | | | | |/ _ \| | | |
 | |_| / ___ \ |_| | | |_| / ___ \ |_| |
 |____/_/   \_\___/  |____/_/   \_\___/

  DAO Daemon v%s
`
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:           "daod",
		Short:         "Single node runtime for DAO governance contracts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./daod.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newStartCmd(&configPath),
		newInitCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print the daemon version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "daod v%s\n", version)
			},
		},
	)
	return root
}

func newStartCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start producing blocks and serving the API",
	}
	flags := cmd.Flags()
	flags.String("listen", "", "API listen address")
	flags.Duration("block-time", 0, "interval between blocks")
	flags.String("backend", "", "state backend (memory, badger, postgres)")
	flags.String("data-dir", "", "badger data directory")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("enable-mint", false, "expose the development faucet")

	bindings := map[string]string{
		"listen":      "api.listen_addr",
		"block-time":  "chain.block_time",
		"backend":     "storage.backend",
		"data-dir":    "storage.badger.dir",
		"log-level":   "log.level",
		"enable-mint": "api.enable_mint",
	}

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v := config.NewViper(*configPath)
		for flag, key := range bindings {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return err
			}
		}
		cfg, err := config.Unmarshal(v)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), banner, version)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg)
	}
	return cmd
}

func newInitCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := *configPath
			if path == "" {
				path = "daod.yaml"
			}
			v := config.NewViper(path)
			if err := v.SafeWriteConfigAs(path); err != nil {
				var exists viper.ConfigFileAlreadyExistsError
				if errors.As(err, &exists) {
					return fmt.Errorf("%s already exists", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(&cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, gatherer = metrics.New(reg), reg
	}

	backend, err := cfg.OpenBackend(ctx)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Storage.Backend, err)
	}
	defer backend.Close()
	logger.Info("state backend opened", zap.String("backend", cfg.Storage.Backend))

	h := host.New(&cfg.Host, backend, logging.Module(logger, "host"), m)
	if err := contracts.Register(h); err != nil {
		return fmt.Errorf("register contracts: %w", err)
	}

	resumed, err := h.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if resumed {
		logger.Info("resumed", zap.Uint64("height", h.Block().Height))
	} else if err := mintGenesis(ctx, h, cfg.Genesis, logger); err != nil {
		return err
	}

	pool := mempool.NewMempool(&cfg.Mempool, m)
	c := chain.New(&cfg.Chain, h, pool, logging.Module(logger, "chain"), m)
	server := api.New(&cfg.API, c, h, pool, logging.Module(logger, "api"), m, gatherer)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- c.Run(ctx) }()
	go func() { errCh <- server.Run(ctx) }()

	logger.Info("node started",
		zap.String("chain_id", cfg.Host.ChainID),
		zap.String("api", cfg.API.ListenAddr),
		zap.Duration("block_time", cfg.Chain.BlockTime))

	// the first exit stops the other component
	err = <-errCh
	cancel()
	if err2 := <-errCh; err == nil {
		err = err2
	}
	logger.Info("node stopped")
	return err
}

func mintGenesis(ctx context.Context, h *host.Host, accounts []config.GenesisCoins, logger *zap.Logger) error {
	for _, g := range accounts {
		if err := h.Mint(ctx, types.Address(g.Address), g.Coin()); err != nil {
			return fmt.Errorf("genesis %s: %w", g.Address, err)
		}
		logger.Info("genesis balance", zap.String("address", g.Address), zap.Stringer("coin", g.Coin()))
	}
	return nil
}
