// Package mempool holds submitted transactions until the next block.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/daodao/core/internal/metrics"
	"github.com/daodao/core/pkg/common"
	"github.com/daodao/core/pkg/types"
)

// Mempool errors
var (
	ErrPoolFull        = errors.New("mempool is full")
	ErrTxAlreadyExists = errors.New("transaction already in mempool")
	ErrInvalidTx       = errors.New("invalid transaction")
)

// Mempool is a FIFO queue of pending transactions. Transactions from one
// sender keep their submission order.
type Mempool struct {
	mu sync.RWMutex

	// Transactions indexed by id
	txs map[string]*types.Tx

	// Submission order
	queue []string

	maxSize       int
	maxTxPerBlock int
	metrics       *metrics.Metrics
}

// Config holds mempool configuration
type Config struct {
	MaxSize       int `mapstructure:"max_size"`
	MaxTxPerBlock int `mapstructure:"max_tx_per_block"`
}

// DefaultConfig returns default mempool configuration
func DefaultConfig() *Config {
	return &Config{
		MaxSize:       10000,
		MaxTxPerBlock: 1000,
	}
}

// NewMempool creates a new transaction mempool
func NewMempool(cfg *Config, m *metrics.Metrics) *Mempool {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Mempool{
		txs:           make(map[string]*types.Tx),
		queue:         make([]string, 0),
		maxSize:       cfg.MaxSize,
		maxTxPerBlock: cfg.MaxTxPerBlock,
		metrics:       m,
	}
}

// Add validates tx, assigns it an id when it has none and queues it
func (m *Mempool) Add(tx types.Tx) (string, error) {
	if err := tx.Sender.Validate(); err != nil {
		return "", fmt.Errorf("%w: sender: %v", ErrInvalidTx, err)
	}
	if err := tx.Msg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.SubmittedAt == 0 {
		tx.SubmittedAt = types.Timestamp(common.NowNano())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.txs[tx.ID]; exists {
		return "", ErrTxAlreadyExists
	}
	if len(m.txs) >= m.maxSize {
		return "", ErrPoolFull
	}

	m.txs[tx.ID] = &tx
	m.queue = append(m.queue, tx.ID)
	m.metrics.SetMempoolSize(len(m.txs))
	return tx.ID, nil
}

// Remove drops a transaction from the mempool
func (m *Mempool) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.txs[id]; !exists {
		return
	}
	delete(m.txs, id)
	m.queue = lo.Without(m.queue, id)
	m.metrics.SetMempoolSize(len(m.txs))
}

// Get retrieves a pending transaction
func (m *Mempool) Get(id string) (types.Tx, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if tx, exists := m.txs[id]; exists {
		return *tx, true
	}
	return types.Tx{}, false
}

// Has checks if a transaction is pending
func (m *Mempool) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.txs[id]
	return exists
}

// Take removes and returns up to the per-block limit of the oldest
// transactions
func (m *Mempool) Take() []types.Tx {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := min(len(m.queue), m.maxTxPerBlock)
	taken := lo.Map(m.queue[:n], func(id string, _ int) types.Tx {
		tx := *m.txs[id]
		delete(m.txs, id)
		return tx
	})
	m.queue = append([]string(nil), m.queue[n:]...)
	m.metrics.SetMempoolSize(len(m.txs))
	return taken
}

// Size returns the number of pending transactions
func (m *Mempool) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}

// Pending returns all pending transactions in submission order
func (m *Mempool) Pending() []types.Tx {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Map(m.queue, func(id string, _ int) types.Tx {
		return *m.txs[id]
	})
}
