package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"remesitas-go/internal/api"
	"remesitas-go/internal/common"
	"remesitas-go/internal/config"
	"remesitas-go/internal/fees"
	"remesitas-go/internal/rates"
	"remesitas-go/internal/remesa"

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

	zap.L().Info("Starting remittance API server")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	currencies, err := common.LoadCurrencyConfig(cfg.Ratewatch.CurrenciesFile)
	if err != nil {
		zap.L().Fatal("Failed to load currency configuration",
			zap.String("file", cfg.Ratewatch.CurrenciesFile),
			zap.Error(err))
	}

	provider := rates.NewProvider(services.DbService, currencies)
	fetcher := rates.NewExternalFetcher(cfg.Ratewatch.SourceURL, cfg.Ratewatch.FetchTimeout, currencies)
	calculator := fees.NewCalculator(services.DbService)
	remesas := remesa.NewService(services.DbService, calculator, provider, services.Notifier)

	handlers := api.NewHandlers(services.DbService, remesas, provider, fetcher)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		zap.L().Info("Listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, draining connections...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown", zap.Error(err))
	}
	zap.L().Info("Server stopped")
}
