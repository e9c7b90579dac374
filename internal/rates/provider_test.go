package rates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"remesitas-go/internal/common"
	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
)

type fakeRateStore struct {
	rates map[string]decimal.Decimal
}

func (f *fakeRateStore) CurrentRate(ctx context.Context, source string) (decimal.Decimal, error) {
	rate, ok := f.rates[source]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no active rate for %s", store.ErrNotFound, source)
	}
	return rate, nil
}

func (f *fakeRateStore) SetRate(ctx context.Context, source string, rate decimal.Decimal) (*models.ExchangeRate, error) {
	if f.rates == nil {
		f.rates = make(map[string]decimal.Decimal)
	}
	f.rates[source] = rate
	return &models.ExchangeRate{Source: source, Dest: models.CurrencyCUP, Rate: rate, Active: true}, nil
}

func (f *fakeRateStore) ListRates(ctx context.Context, limit int) ([]models.ExchangeRate, error) {
	out := make([]models.ExchangeRate, 0, len(f.rates))
	for source, rate := range f.rates {
		out = append(out, models.ExchangeRate{Source: source, Rate: rate, Active: true})
	}
	return out, nil
}

func testCurrencies() []common.Currency {
	return []common.Currency{
		{
			Symbol:   "USD",
			Fallback: decimal.RequireFromString("435"),
			MinRate:  decimal.RequireFromString("300"),
			MaxRate:  decimal.RequireFromString("600"),
		},
		{
			Symbol:   "EUR",
			Fallback: decimal.RequireFromString("455"),
			MinRate:  decimal.RequireFromString("300"),
			MaxRate:  decimal.RequireFromString("700"),
		},
	}
}

func TestProvider_PrefersStoredRate(t *testing.T) {
	st := &fakeRateStore{rates: map[string]decimal.Decimal{"USD": decimal.RequireFromString("450")}}
	provider := NewProvider(st, testCurrencies())

	rate, err := provider.Current(context.Background(), "USD")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("450")) {
		t.Errorf("Expected stored rate 450, got %s", rate)
	}
}

func TestProvider_FallsBackToConfigured(t *testing.T) {
	provider := NewProvider(&fakeRateStore{}, testCurrencies())

	rate, err := provider.Current(context.Background(), "USD")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("435")) {
		t.Errorf("Expected fallback 435, got %s", rate)
	}
}

func TestProvider_UnknownCurrency(t *testing.T) {
	provider := NewProvider(&fakeRateStore{}, testCurrencies())

	_, err := provider.Current(context.Background(), "GBP")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unknown currency, got %v", err)
	}
}

func TestExtract_FindsPlausibleRate(t *testing.T) {
	fetcher := NewExternalFetcher("http://example.test", 0, testCurrencies())

	page := `<tr><td>1 USD</td><td class="rate">438,50 CUP</td></tr>`
	rate, ok := fetcher.extract(page, "USD")
	if !ok {
		t.Fatal("Expected a rate to be extracted")
	}
	if !rate.Equal(decimal.RequireFromString("438.50")) {
		t.Errorf("Expected 438.50, got %s", rate)
	}
}

func TestExtract_SkipsImplausibleValues(t *testing.T) {
	fetcher := NewExternalFetcher("http://example.test", 0, testCurrencies())

	// 2025 is a year, not a rate; the next candidate is within bounds.
	page := `USD historic data 2025 ... hoy USD se cotiza a 442 CUP`
	rate, ok := fetcher.extract(page, "USD")
	if !ok {
		t.Fatal("Expected a rate to be extracted")
	}
	if !rate.Equal(decimal.RequireFromString("442")) {
		t.Errorf("Expected 442, got %s", rate)
	}
}

func TestExtract_NoMatch(t *testing.T) {
	fetcher := NewExternalFetcher("http://example.test", 0, testCurrencies())

	if _, ok := fetcher.extract("no currencies mentioned here", "USD"); ok {
		t.Error("Expected no rate from unrelated text")
	}
	if _, ok := fetcher.extract("USD something", "MLC"); ok {
		t.Error("Expected no rate for untracked symbol")
	}
}
