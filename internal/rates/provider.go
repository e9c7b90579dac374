// Package rates manages CUP exchange rates: stored active rates, configured
// fallbacks, and the external market fetcher that feeds the ratewatch daemon.
package rates

import (
	"context"
	"errors"
	"fmt"

	"remesitas-go/internal/common"
	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateStore is the slice of store.Store the provider needs.
type RateStore interface {
	CurrentRate(ctx context.Context, source string) (decimal.Decimal, error)
	SetRate(ctx context.Context, source string, rate decimal.Decimal) (*models.ExchangeRate, error)
	ListRates(ctx context.Context, limit int) ([]models.ExchangeRate, error)
}

// Provider resolves the current CUP rate for a source currency, falling
// back to the configured default when no stored rate is active.
type Provider struct {
	store     RateStore
	fallbacks map[string]decimal.Decimal
}

func NewProvider(st RateStore, currencies []common.Currency) *Provider {
	fallbacks := make(map[string]decimal.Decimal, len(currencies))
	for _, c := range currencies {
		fallbacks[c.Symbol] = c.Fallback
	}
	return &Provider{store: st, fallbacks: fallbacks}
}

// Current returns the active rate for source, or its configured fallback.
func (p *Provider) Current(ctx context.Context, source string) (decimal.Decimal, error) {
	rate, err := p.store.CurrentRate(ctx, source)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, err
	}

	fallback, ok := p.fallbacks[source]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate or fallback for %s", store.ErrNotFound, source)
	}

	zap.L().Warn("No stored rate, using configured fallback",
		zap.String("source", source),
		zap.String("fallback", fallback.String()))
	return fallback, nil
}

// Set stores a new active rate for source, deactivating the previous one.
func (p *Provider) Set(ctx context.Context, source string, rate decimal.Decimal) (*models.ExchangeRate, error) {
	return p.store.SetRate(ctx, source, rate)
}

// History returns recent rate rows, newest first.
func (p *Provider) History(ctx context.Context, limit int) ([]models.ExchangeRate, error) {
	return p.store.ListRates(ctx, limit)
}
