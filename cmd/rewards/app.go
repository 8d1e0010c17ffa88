package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/suaiden-dev/matriculausa-rewards/internal/db"
	"github.com/suaiden-dev/matriculausa-rewards/internal/handlers"
	"github.com/suaiden-dev/matriculausa-rewards/internal/logger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/metrics"
	"github.com/suaiden-dev/matriculausa-rewards/internal/repository/postgres"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/auth"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/ledger"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/moderation"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/payout"
	"github.com/suaiden-dev/matriculausa-rewards/internal/service/redemption"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	pool   *pgxpool.Pool
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Token manager first: no reason to touch the db with misconfigured auth
	tokenManager, err := auth.New(auth.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	services := handlers.Services{Auth: tokenManager}

	var m *metrics.Metrics
	if c.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		m, err = metrics.New(reg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("error while registering metrics. Err: %w", err)
		}

		services.Metrics = m
		services.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	services.Ledger = ledger.NewService(storage, logger, m)
	services.Redemption = redemption.NewService(storage, logger, m)
	services.Payout = payout.NewService(storage, logger, m)
	services.Moderation = moderation.NewService(storage, logger, m)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(services, logger),
		logger:     logger,
		pool:       pool,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
