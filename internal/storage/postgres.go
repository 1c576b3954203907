package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the state backend on a PostgreSQL key-value table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "daod",
		Password: "",
		Database: "daod",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

const createKVTable = `
	CREATE TABLE IF NOT EXISTS contract_state (
		key   BYTEA PRIMARY KEY,
		value BYTEA NOT NULL
	)
`

// NewPostgresStore creates a new PostgreSQL store and ensures the schema
func NewPostgresStore(ctx context.Context, cfg *Config) (*PostgresStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}

	if _, err := pool.Exec(ctx, createKVTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Begin opens a serializable SQL transaction
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}
	return &pgTx{ctx: ctx, tx: tx}, nil
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgTx struct {
	ctx    context.Context
	tx     pgx.Tx
	closed bool
}

func (t *pgTx) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	var value []byte
	err := t.tx.QueryRow(t.ctx, `SELECT value FROM contract_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (t *pgTx) Has(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

func (t *pgTx) Set(key, value []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO contract_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (t *pgTx) Delete(key []byte) error {
	if t.closed {
		return ErrTxClosed
	}
	if _, err := t.tx.Exec(t.ctx, `DELETE FROM contract_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// Iterate reads the whole range before calling fn, since the connection
// cannot serve other queries while rows are open.
func (t *pgTx) Iterate(start, end []byte, order Order, fn IterFunc) error {
	if t.closed {
		return ErrTxClosed
	}

	query := `SELECT key, value FROM contract_state WHERE ($1::bytea IS NULL OR key >= $1) AND ($2::bytea IS NULL OR key < $2) ORDER BY key`
	if order == Descending {
		query += ` DESC`
	}

	rows, err := t.tx.Query(t.ctx, query, start, end)
	if err != nil {
		return fmt.Errorf("range state: %w", err)
	}

	type pair struct{ key, value []byte }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			rows.Close()
			return fmt.Errorf("scan state: %w", err)
		}
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("range state: %w", err)
	}

	for _, p := range pairs {
		stop, err := fn(p.key, p.value)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (t *pgTx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	if err := t.tx.Commit(t.ctx); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

func (t *pgTx) Discard() {
	if t.closed {
		return
	}
	t.closed = true
	_ = t.tx.Rollback(t.ctx)
}
