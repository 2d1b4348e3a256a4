// Command sentimentd serves the sentiment HTTP API from the current model
// bundle.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/tsawler/sentiment"
	"github.com/tsawler/sentiment/internal/config"
	"github.com/tsawler/sentiment/internal/server"
	"github.com/tsawler/sentiment/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	if cfg.LogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("sentimentd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	analyzer, err := sentiment.LoadAnalyzer(cfg.Model.Dir, cfg.AnalyzerConfig(logger))
	if err != nil {
		if errors.Is(err, sentiment.ErrAssetMissing) {
			return fmt.Errorf("model assets not found, run the train command first: %w", err)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := server.Options{
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
		MaxBatch:  cfg.Server.MaxBatch,
		Version:   Version,
	}
	if cfg.Postgres.DSN != "" {
		st, err := store.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Stats = st
	}

	handler := server.NewHandler(analyzer, opts, logger)
	srv := handler.NewHTTPServer(cfg.Server.Addr,
		config.Duration(cfg.Server.ReadTimeout),
		config.Duration(cfg.Server.WriteTimeout),
		config.Duration(cfg.Server.IdleTimeout),
	)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "version", Version)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
