// Command sentiment-worker analyzes texts queued in Redis and, when feeds
// are configured, polls them to fill the queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tsawler/sentiment"
	"github.com/tsawler/sentiment/internal/config"
	"github.com/tsawler/sentiment/internal/feed"
	"github.com/tsawler/sentiment/internal/queue"
	"github.com/tsawler/sentiment/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	workers := flag.Int("workers", 4, "number of concurrent workers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, *workers, logger); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, workers int, logger *slog.Logger) error {
	analyzer, err := sentiment.LoadAnalyzer(cfg.Model.Dir, cfg.AnalyzerConfig(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := queue.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer client.Close()
	q := queue.New(client, cfg.Redis.Queue, config.Duration(cfg.Redis.PopTimeout))

	var sink queue.Sink = queue.LogSink{Logger: logger}
	if cfg.Postgres.DSN != "" {
		st, err := store.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		sink = st
	}

	var wg sync.WaitGroup
	if len(cfg.Feeds.URLs) > 0 {
		poller := &feed.Poller{
			Fetcher:  feed.NewFetcher(nil),
			Pusher:   q,
			URLs:     cfg.Feeds.URLs,
			Interval: config.Duration(cfg.Feeds.Interval),
			Logger:   logger.With("component", "feed"),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
	}

	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		w := &queue.Worker{
			Source:   q,
			Analyzer: analyzer,
			Sink:     sink,
			Logger:   logger.With("worker", i),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	logger.Info("worker started", "workers", workers, "queue", cfg.Redis.Queue, "feeds", len(cfg.Feeds.URLs))
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	wg.Wait()
	return nil
}
