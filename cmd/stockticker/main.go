package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stockticker/config"
	"stockticker/internal/pipeline"
	"stockticker/logger"
	"stockticker/pkg/quote"
	"stockticker/pkg/storage/postgres"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("stockticker failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	from, err := cfg.Ticker.FromTime()
	if err != nil {
		return err
	}

	provider := quote.NewClient(
		cfg.Quote.BaseURL,
		cfg.Quote.Timeout,
		cfg.Quote.RateLimit,
		cfg.Quote.Burst,
		log,
	)

	// Optional database mirror for the computed rows.
	var store *postgres.Client
	if cfg.Postgres.Enabled {
		store, err = postgres.InitializeAndMigrateStatRecord(cfg.Postgres, true)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	p, err := pipeline.New(pipeline.Config{
		Symbols:         cfg.Ticker.Symbols,
		From:            from,
		Interval:        cfg.Ticker.Interval,
		ChunkSize:       cfg.Ticker.ChunkSize,
		Window:          cfg.Ticker.Window,
		MaxFetchers:     cfg.Ticker.MaxFetchers,
		MailboxCapacity: cfg.Ticker.MailboxCapacity,
		FetchTimeout:    cfg.Quote.Timeout,
		OutputFile:      cfg.Ticker.OutputFile,
		TailBatches:     cfg.Ticker.TailBatches,
		Grace:           cfg.Ticker.Grace,
	}, provider, store, os.Stdout, log)
	if err != nil {
		return err
	}

	p.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutdown signal received, draining")
	p.RequestShutdown()
	p.AwaitStopped()
	log.Info("pipeline stopped")

	return nil
}
