package rates

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Refresher periodically fetches market rates and stores the ones that
// changed. A failed fetch keeps the last active rates.
type Refresher struct {
	provider *Provider
	fetcher  *ExternalFetcher
	interval time.Duration

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewRefresher(provider *Provider, fetcher *ExternalFetcher, interval time.Duration) *Refresher {
	return &Refresher{
		provider: provider,
		fetcher:  fetcher,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the refresh loop. The first refresh runs immediately.
func (r *Refresher) Start(ctx context.Context) {
	zap.L().Info("Starting rate refresher", zap.Duration("interval", r.interval))
	go r.refreshLoop(ctx)
}

// Stop gracefully stops the refresher.
func (r *Refresher) Stop() {
	zap.L().Info("Stopping rate refresher")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Rate refresher stopped")
}

func (r *Refresher) refreshLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	fmt.Printf("\n%s[%s] Fetching market rates from %s%s\n",
		colorCyan, time.Now().Format("15:04:05"), r.fetcher.url, colorReset)

	result, err := r.fetcher.Fetch(ctx)
	if err != nil {
		fmt.Printf("  %s✗ fetch failed: %s%s\n", colorRed, err, colorReset)
		zap.L().Warn("Rate fetch failed, keeping last active rates", zap.Error(err))
		return
	}

	for symbol, rate := range result.Rates {
		current, err := r.provider.Current(ctx, symbol)
		if err == nil && current.Equal(rate) {
			fmt.Printf("  %s~ %s unchanged at %s%s\n", colorYellow, symbol, rate.String(), colorReset)
			continue
		}

		if _, err := r.provider.Set(ctx, symbol, rate); err != nil {
			fmt.Printf("  %s✗ %s: %s%s\n", colorRed, symbol, err, colorReset)
			zap.L().Error("Failed to store rate",
				zap.String("symbol", symbol),
				zap.String("rate", rate.String()),
				zap.Error(err))
			continue
		}

		fmt.Printf("  %s✓ %s → %s CUP%s\n", colorGreen, symbol, rate.String(), colorReset)
		zap.L().Info("Rate updated",
			zap.String("symbol", symbol),
			zap.String("rate", rate.String()),
			zap.String("source", result.Source))
	}
}
