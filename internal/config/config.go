// Package config loads daemon configuration from daod.yaml, DAOD_
// environment variables and command line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/daodao/core/internal/api"
	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/logging"
	"github.com/daodao/core/internal/mempool"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/types"
)

// EnvPrefix prefixes every environment override, e.g. DAOD_API_LISTEN_ADDR
const EnvPrefix = "DAOD"

// Storage backends
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Config is the full daemon configuration
type Config struct {
	Host    host.Config    `mapstructure:"host"`
	Chain   chain.Config   `mapstructure:"chain"`
	Mempool mempool.Config `mapstructure:"mempool"`
	Storage StorageConfig  `mapstructure:"storage"`
	API     api.Config     `mapstructure:"api"`
	Log     logging.Config `mapstructure:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Genesis []GenesisCoins `mapstructure:"genesis"`
}

// StorageConfig selects and configures the state backend
type StorageConfig struct {
	Backend  string               `mapstructure:"backend"`
	Badger   storage.BadgerConfig `mapstructure:"badger"`
	Postgres storage.Config       `mapstructure:"postgres"`
}

// MetricsConfig toggles prometheus collection
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// GenesisCoins is a balance minted when the state is empty
type GenesisCoins struct {
	Address string `mapstructure:"address"`
	Denom   string `mapstructure:"denom"`
	Amount  uint64 `mapstructure:"amount"`
}

// Coin returns the balance as a coin
func (g GenesisCoins) Coin() types.Coin {
	return types.NewCoin(g.Amount, g.Denom)
}

// DefaultConfig returns the defaults of every component
func DefaultConfig() *Config {
	return &Config{
		Host:    *host.DefaultConfig(),
		Chain:   *chain.DefaultConfig(),
		Mempool: *mempool.DefaultConfig(),
		Storage: StorageConfig{
			Backend:  BackendBadger,
			Badger:   *storage.DefaultBadgerConfig(),
			Postgres: *storage.DefaultConfig(),
		},
		API:     *api.DefaultConfig(),
		Log:     *logging.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true},
	}
}

// NewViper returns a viper instance seeded with the defaults and reading
// path, or daod.yaml in the working directory and $HOME/.daod when path is
// empty. Flags may be bound to it before calling Unmarshal.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("daod")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.daod")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("host.chain_id", d.Host.ChainID)
	v.SetDefault("host.address_prefix", d.Host.AddressPrefix)
	v.SetDefault("host.max_call_depth", d.Host.MaxCallDepth)

	v.SetDefault("chain.block_time", d.Chain.BlockTime)
	v.SetDefault("chain.max_results", d.Chain.MaxResults)
	v.SetDefault("chain.max_blocks", d.Chain.MaxBlocks)

	v.SetDefault("mempool.max_size", d.Mempool.MaxSize)
	v.SetDefault("mempool.max_tx_per_block", d.Mempool.MaxTxPerBlock)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.badger.dir", d.Storage.Badger.Dir)
	v.SetDefault("storage.badger.in_memory", d.Storage.Badger.InMemory)
	v.SetDefault("storage.badger.sync_writes", d.Storage.Badger.SyncWrites)
	v.SetDefault("storage.postgres.host", d.Storage.Postgres.Host)
	v.SetDefault("storage.postgres.port", d.Storage.Postgres.Port)
	v.SetDefault("storage.postgres.user", d.Storage.Postgres.User)
	v.SetDefault("storage.postgres.password", d.Storage.Postgres.Password)
	v.SetDefault("storage.postgres.database", d.Storage.Postgres.Database)
	v.SetDefault("storage.postgres.ssl_mode", d.Storage.Postgres.SSLMode)
	v.SetDefault("storage.postgres.max_conns", d.Storage.Postgres.MaxConns)

	v.SetDefault("api.listen_addr", d.API.ListenAddr)
	v.SetDefault("api.enable_mint", d.API.EnableMint)
	v.SetDefault("api.metrics_path", d.API.MetricsPath)
	v.SetDefault("api.shutdown_timeout", d.API.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// Unmarshal reads the config file, if any, and decodes the merged settings.
// A missing default config file is not an error.
func Unmarshal(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path (or the default locations) with env overrides applied
func Load(path string) (*Config, error) {
	return Unmarshal(NewViper(path))
}

// Validate checks values no component can work with
func (c *Config) Validate() error {
	switch {
	case c.Host.ChainID == "":
		return fmt.Errorf("%w: host.chain_id is required", ErrInvalidConfig)
	case c.Host.MaxCallDepth <= 0:
		return fmt.Errorf("%w: host.max_call_depth must be positive", ErrInvalidConfig)
	case c.Chain.BlockTime <= 0:
		return fmt.Errorf("%w: chain.block_time must be positive", ErrInvalidConfig)
	case c.Mempool.MaxSize <= 0 || c.Mempool.MaxTxPerBlock <= 0:
		return fmt.Errorf("%w: mempool limits must be positive", ErrInvalidConfig)
	case c.API.ListenAddr == "":
		return fmt.Errorf("%w: api.listen_addr is required", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendBadger, BackendPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
	for i, g := range c.Genesis {
		if err := types.Address(g.Address).Validate(); err != nil {
			return fmt.Errorf("%w: genesis[%d]: %v", ErrInvalidConfig, i, err)
		}
		if g.Denom == "" || g.Amount == 0 {
			return fmt.Errorf("%w: genesis[%d]: denom and amount are required", ErrInvalidConfig, i)
		}
	}
	return nil
}

// OpenBackend opens the configured state backend
func (c *Config) OpenBackend(ctx context.Context) (storage.Backend, error) {
	switch c.Storage.Backend {
	case BackendMemory:
		return storage.NewMemStore(), nil
	case BackendBadger:
		s, err := storage.OpenBadger(&c.Storage.Badger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := storage.NewPostgresStore(ctx, &c.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
}
