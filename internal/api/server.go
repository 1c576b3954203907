// Package api serves the node over HTTP: transaction submission, contract
// queries, block and mempool inspection, and prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/daodao/core/internal/chain"
	"github.com/daodao/core/internal/host"
	"github.com/daodao/core/internal/mempool"
	"github.com/daodao/core/internal/metrics"
)

// Config holds HTTP server configuration
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	// EnableMint exposes the faucet endpoint; development networks only
	EnableMint bool `mapstructure:"enable_mint"`

	// MetricsPath serves prometheus metrics when non-empty
	MetricsPath string `mapstructure:"metrics_path"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      "127.0.0.1:26657",
		MetricsPath:     "/metrics",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is the HTTP front of a node
type Server struct {
	config   *Config
	chain    *chain.Chain
	host     *host.Host
	pool     *mempool.Mempool
	logger   *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	engine   *gin.Engine
}

// New builds the server and its routes. gatherer may be nil when metrics
// are not exported.
func New(cfg *Config, c *chain.Chain, h *host.Host, pool *mempool.Mempool, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:   cfg,
		chain:    c,
		host:     h,
		pool:     pool,
		logger:   logger,
		metrics:  m,
		gatherer: gatherer,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestID(), s.accessLog())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	if s.gatherer != nil && s.config.MetricsPath != "" {
		s.engine.GET(s.config.MetricsPath, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/status", s.status)
		v1.GET("/blocks", s.listBlocks)
		v1.GET("/blocks/latest", s.latestBlock)

		v1.POST("/txs", s.submitTx)
		v1.GET("/txs/:id", s.getTx)
		v1.GET("/txpool", s.txPool)

		v1.GET("/contracts", s.listContracts)
		v1.GET("/contracts/:addr", s.contractInfo)
		v1.POST("/contracts/:addr/query", s.queryContract)

		v1.GET("/bank/:addr", s.balances)
		if s.config.EnableMint {
			v1.POST("/bank/mint", s.mint)
		}
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", s.config.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
