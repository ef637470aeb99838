package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/apimonitor/internal/config"
	"github.com/hamed0406/apimonitor/internal/httpapi"
	"github.com/hamed0406/apimonitor/internal/logging"
	"github.com/hamed0406/apimonitor/internal/monitor"
	"github.com/hamed0406/apimonitor/internal/probe"
	"github.com/hamed0406/apimonitor/internal/repo"
	"github.com/hamed0406/apimonitor/internal/repo/memory"
	"github.com/hamed0406/apimonitor/internal/repo/postgres"
	"github.com/hamed0406/apimonitor/internal/repo/sqlite"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		// stderr sync fails with EINVAL on some terminals
		if serr := logger.Sync(); serr != nil && !errors.Is(serr, syscall.EINVAL) && !errors.Is(serr, syscall.ENOTTY) {
			err = multierr.Append(err, serr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", zap.String("store", cfg.Store), zap.Error(err))
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	svc := monitor.NewService(logger, store, probe.NewHTTPChecker(cfg.ProbeTimeout))
	api := httpapi.NewServer(logger, svc, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("api_shutdown", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.ResultStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	case config.StoreMemory:
		logger.Warn("store_memory", zap.String("note", "results are lost on restart"))
		return memory.New(), nil
	default:
		return sqlite.Open(ctx, sqlite.WithPath(cfg.SQLitePath), sqlite.WithLogger(logger))
	}
}
