// Package host runs contracts: it routes messages, executes sub-messages in
// branch stores, delivers replies and serves cross-contract queries. One
// transaction executes at a time and either commits whole or not at all.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daodao/core/internal/metrics"
	"github.com/daodao/core/internal/storage"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

// Host errors
var (
	ErrUnknownCode         = errors.New("unknown code id")
	ErrContractNotFound    = errors.New("contract not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrCallDepthExceeded   = errors.New("maximum call depth exceeded")
	ErrNoReplyHandler      = errors.New("contract does not handle replies")
	ErrNotMigratable       = errors.New("contract does not support migration")
	ErrMigrateUnauthorized = errors.New("only the contract admin can migrate")
	ErrDuplicateCode       = errors.New("code id already registered")
)

// Config holds host parameters
type Config struct {
	ChainID       string `mapstructure:"chain_id"`
	AddressPrefix string `mapstructure:"address_prefix"`
	MaxCallDepth  int    `mapstructure:"max_call_depth"`
}

// DefaultConfig returns default host parameters
func DefaultConfig() *Config {
	return &Config{
		ChainID:       "daod-1",
		AddressPrefix: "dao1",
		MaxCallDepth:  10,
	}
}

// Host executes transactions against a storage backend
type Host struct {
	mu sync.Mutex

	config  *Config
	backend storage.Backend
	logger  *zap.Logger
	metrics *metrics.Metrics

	codesMu sync.RWMutex
	codes   map[string]Contract

	block types.BlockInfo
}

// New creates a host over backend. The block starts at height 1.
func New(cfg *Config, backend storage.Backend, logger *zap.Logger, m *metrics.Metrics) *Host {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		config:  cfg,
		backend: backend,
		logger:  logger,
		metrics: m,
		codes:   make(map[string]Contract),
		block: types.BlockInfo{
			Height:  1,
			Time:    types.Timestamp(common.NowNano()),
			ChainID: cfg.ChainID,
		},
	}
}

// RegisterCode makes a contract implementation instantiable under codeID
func (h *Host) RegisterCode(codeID string, c Contract) error {
	h.codesMu.Lock()
	defer h.codesMu.Unlock()
	if _, ok := h.codes[codeID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCode, codeID)
	}
	h.codes[codeID] = c
	return nil
}

func (h *Host) code(codeID string) (Contract, error) {
	h.codesMu.RLock()
	defer h.codesMu.RUnlock()
	c, ok := h.codes[codeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCode, codeID)
	}
	return c, nil
}

// Block returns the block transactions currently execute in
func (h *Host) Block() types.BlockInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.block
}

// SetBlock moves the host to a new block
func (h *Host) SetBlock(b types.BlockInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b.ChainID == "" {
		b.ChainID = h.config.ChainID
	}
	h.block = b
}

// NextBlock advances height by one and time by the given seconds
func (h *Host) NextBlock(seconds uint64) types.BlockInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.block.Height++
	h.block.Time = h.block.Time.PlusSeconds(seconds)
	return h.block
}

// Execute runs one transaction at the current block
func (h *Host) Execute(ctx context.Context, tx types.Tx) types.TxResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.execute(ctx, h.block, tx)
}

// ExecuteBlock moves to block and runs txs in order
func (h *Host) ExecuteBlock(ctx context.Context, block types.BlockInfo, txs []types.Tx) []types.TxResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if block.ChainID == "" {
		block.ChainID = h.config.ChainID
	}
	h.block = block

	results := make([]types.TxResult, 0, len(txs))
	for _, tx := range txs {
		results = append(results, h.execute(ctx, block, tx))
	}
	if err := h.saveBlock(ctx, block); err != nil {
		h.logger.Error("persist block", zap.Uint64("height", block.Height), zap.Error(err))
	}
	return results
}

func (h *Host) saveBlock(ctx context.Context, block types.BlockInfo) error {
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return err
	}
	if err := lastBlock.Save(tx, block); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

// Resume moves the host to the last block persisted by ExecuteBlock. It
// reports false on fresh state.
func (h *Host) Resume(ctx context.Context) (bool, error) {
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Discard()
	block, ok, err := lastBlock.MayLoad(tx)
	if err != nil || !ok {
		return false, err
	}
	h.SetBlock(block)
	return true, nil
}

func (h *Host) execute(ctx context.Context, block types.BlockInfo, tx types.Tx) types.TxResult {
	start := time.Now()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	result := types.TxResult{TxID: tx.ID, Height: block.Height}

	err := func() error {
		if err := tx.Sender.Validate(); err != nil {
			return fmt.Errorf("sender: %w", err)
		}
		if err := tx.Msg.Validate(); err != nil {
			return err
		}
		store, err := h.backend.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		out, err := h.dispatch(store, block, tx.Sender, tx.Msg, 0)
		if err != nil {
			store.Discard()
			return err
		}
		if err := store.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		result.Events = out.events
		result.Data = out.data
		return nil
	}()

	if err != nil {
		result.Error = err.Error()
		h.logger.Debug("transaction failed",
			zap.String("tx", tx.ID),
			zap.String("sender", tx.Sender.String()),
			zap.Uint64("height", block.Height),
			zap.Error(err))
	} else {
		h.logger.Debug("transaction executed",
			zap.String("tx", tx.ID),
			zap.Uint64("height", block.Height),
			zap.Int("events", len(result.Events)))
	}
	h.metrics.ObserveTx(err == nil, time.Since(start).Seconds())
	return result
}

// Query runs a smart query against the committed state
func (h *Host) Query(ctx context.Context, contract types.Address, msg json.RawMessage) ([]byte, error) {
	h.mu.Lock()
	block := h.block
	h.mu.Unlock()

	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Discard()
	return h.newQuerier(tx, block).raw(contract, msg)
}

// Balance returns the committed balance of addr in denom
func (h *Host) Balance(ctx context.Context, addr types.Address, denom string) (types.Uint128, error) {
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return types.Uint128{}, err
	}
	defer tx.Discard()
	return getBalance(tx, addr, denom)
}

// Balances returns every non-zero committed balance of addr
func (h *Host) Balances(ctx context.Context, addr types.Address) ([]types.Coin, error) {
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Discard()
	return allBalances(tx, addr)
}

// Mint credits coins to addr outside of any transaction, for genesis
// accounts and tests
func (h *Host) Mint(ctx context.Context, addr types.Address, coins ...types.Coin) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return err
	}
	for _, c := range coins {
		if err := addBalance(tx, addr, c); err != nil {
			tx.Discard()
			return err
		}
	}
	return tx.Commit()
}

// Contracts returns every instantiated contract
func (h *Host) Contracts(ctx context.Context) (map[types.Address]ContractInfo, error) {
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Discard()
	return listContracts(tx)
}

// ContractInfo returns the record of one contract
func (h *Host) ContractInfo(ctx context.Context, addr types.Address) (ContractInfo, error) {
	tx, err := h.backend.Begin(ctx)
	if err != nil {
		return ContractInfo{}, err
	}
	defer tx.Discard()
	return loadContract(tx, addr)
}
