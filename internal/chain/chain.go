// Package chain produces blocks on a single node: it drains the mempool on
// a fixed interval and executes each batch on the host at the next height.
package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/mempool"
	"github.com/daodao/core/internal/metrics"
	"github.com/daodao/core/pkg/types"
)

// Chain errors
var (
	ErrTxPending  = errors.New("transaction is pending")
	ErrTxNotFound = errors.New("transaction not found")
)

// Config holds block production parameters
type Config struct {
	// BlockTime is the interval between blocks
	BlockTime time.Duration `mapstructure:"block_time"`

	// MaxResults caps the transaction results kept for lookup
	MaxResults int `mapstructure:"max_results"`

	// MaxBlocks caps the produced block headers kept for lookup
	MaxBlocks int `mapstructure:"max_blocks"`
}

// DefaultConfig returns default block production parameters
func DefaultConfig() *Config {
	return &Config{
		BlockTime:  5 * time.Second,
		MaxResults: 100000,
		MaxBlocks:  1000,
	}
}

// Block is a produced block
type Block struct {
	Height uint64          `json:"height"`
	Time   types.Timestamp `json:"time"`
	TxIDs  []string        `json:"tx_ids"`
}

// Option customises a Chain
type Option func(*Chain)

// WithClock replaces the wall clock blocks are stamped with
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// Chain drives the host's block clock
type Chain struct {
	mu sync.RWMutex

	config  *Config
	host    *host.Host
	pool    *mempool.Mempool
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	results     map[string]types.TxResult
	resultOrder []string
	blocks      []Block
}

// New creates a block producer over h and pool
func New(cfg *Config, h *host.Host, pool *mempool.Mempool, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Chain {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{
		config:  cfg,
		host:    h,
		pool:    pool,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		results: make(map[string]types.TxResult),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Submit queues tx for the next block and returns its id
func (c *Chain) Submit(tx types.Tx) (string, error) {
	return c.pool.Add(tx)
}

// Result returns the outcome of an executed transaction
func (c *Chain) Result(id string) (types.TxResult, error) {
	c.mu.RLock()
	res, ok := c.results[id]
	c.mu.RUnlock()
	if ok {
		return res, nil
	}
	if c.pool.Has(id) {
		return types.TxResult{}, ErrTxPending
	}
	return types.TxResult{}, ErrTxNotFound
}

// LatestBlock returns the last produced block, or false before the first
func (c *Chain) LatestBlock() (Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return Block{}, false
	}
	return c.blocks[len(c.blocks)-1], true
}

// Blocks returns the retained blocks, oldest first
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Block(nil), c.blocks...)
}

// ProduceBlock executes the pending transactions at the next height. Block
// time follows the clock but never goes backwards.
func (c *Chain) ProduceBlock(ctx context.Context) Block {
	prev := c.host.Block()
	t := types.Timestamp(c.now().UnixNano())
	if t <= prev.Time {
		t = prev.Time + 1
	}
	info := types.BlockInfo{Height: prev.Height + 1, Time: t, ChainID: prev.ChainID}

	txs := c.pool.Take()
	results := c.host.ExecuteBlock(ctx, info, txs)

	block := Block{Height: info.Height, Time: info.Time, TxIDs: make([]string, 0, len(results))}
	failed := 0
	c.mu.Lock()
	for _, r := range results {
		block.TxIDs = append(block.TxIDs, r.TxID)
		c.results[r.TxID] = r
		c.resultOrder = append(c.resultOrder, r.TxID)
		if r.Error != "" {
			failed++
		}
	}
	if over := len(c.resultOrder) - c.config.MaxResults; over > 0 {
		for _, id := range c.resultOrder[:over] {
			delete(c.results, id)
		}
		c.resultOrder = append([]string(nil), c.resultOrder[over:]...)
	}
	c.blocks = append(c.blocks, block)
	if over := len(c.blocks) - c.config.MaxBlocks; over > 0 {
		c.blocks = append([]Block(nil), c.blocks[over:]...)
	}
	c.mu.Unlock()

	c.metrics.SetHeight(block.Height)
	if len(results) > 0 {
		c.logger.Info("block produced",
			zap.Uint64("height", block.Height),
			zap.Int("txs", len(results)),
			zap.Int("failed", failed))
	}
	return block
}

// Run produces a block every BlockTime until ctx is cancelled
func (c *Chain) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.config.BlockTime)
	defer ticker.Stop()

	c.logger.Info("block production started", zap.Duration("block_time", c.config.BlockTime))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("block production stopped")
			return nil
		case <-ticker.C:
			c.ProduceBlock(ctx)
		}
	}
}
