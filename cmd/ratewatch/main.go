package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remesitas-go/internal/common"
	"remesitas-go/internal/config"
	"remesitas-go/internal/rates"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting rate watcher",
		zap.Duration("interval", cfg.Ratewatch.Interval),
		zap.String("source", cfg.Ratewatch.SourceURL))

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	currencies, err := common.LoadCurrencyConfig(cfg.Ratewatch.CurrenciesFile)
	if err != nil {
		zap.L().Fatal("Failed to load currency configuration",
			zap.String("file", cfg.Ratewatch.CurrenciesFile),
			zap.Error(err))
	}

	provider := rates.NewProvider(dbService, currencies)
	fetcher := rates.NewExternalFetcher(cfg.Ratewatch.SourceURL, cfg.Ratewatch.FetchTimeout, currencies)

	refresher := rates.NewRefresher(provider, fetcher, cfg.Ratewatch.Interval)
	refresher.Start(ctx)

	zap.L().Info("Rate watcher running")
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping rate watcher...")

	done := make(chan struct{})
	go func() {
		refresher.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Rate watcher stopped")
	case <-time.After(30 * time.Second):
		zap.L().Warn("Shutdown timeout exceeded, forcing exit")
	}
}
