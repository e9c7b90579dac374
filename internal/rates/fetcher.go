package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"remesitas-go/internal/common"
	"remesitas-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Symbols tracked by the external fetcher. EUR and MLC derive from the
// USD rate when the source page does not list them.
const (
	SymbolUSD = models.CurrencyUSD
	SymbolEUR = "EUR"
	SymbolMLC = "MLC"
)

var derivedRatios = map[string]decimal.Decimal{
	SymbolEUR: decimal.RequireFromString("1.05"),
	SymbolMLC: decimal.RequireFromString("0.70"),
}

// FetchResult is one snapshot of scraped market rates.
type FetchResult struct {
	Rates     map[string]decimal.Decimal
	Source    string
	FetchedAt time.Time
}

// ExternalFetcher scrapes the informal market page for CUP rates. Values
// outside the configured plausibility bounds are discarded.
type ExternalFetcher struct {
	url        string
	client     *http.Client
	currencies map[string]common.Currency
}

func NewExternalFetcher(url string, timeout time.Duration, currencies []common.Currency) *ExternalFetcher {
	bySymbol := make(map[string]common.Currency, len(currencies))
	for _, c := range currencies {
		bySymbol[strings.ToUpper(c.Symbol)] = c
	}
	return &ExternalFetcher{
		url:        url,
		client:     &http.Client{Timeout: timeout},
		currencies: bySymbol,
	}
}

// Fetch downloads the source page and extracts one rate per tracked
// currency. Missing EUR/MLC values derive from USD. Returns an error when
// not even a USD rate could be extracted.
func (f *ExternalFetcher) Fetch(ctx context.Context) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; remesitas-ratewatch)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate source unreachable: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("unable to read rate source body: %w", err)
	}

	page := string(body)
	result := &FetchResult{
		Rates:     make(map[string]decimal.Decimal),
		Source:    f.url,
		FetchedAt: time.Now().UTC(),
	}

	for symbol := range f.currencies {
		rate, ok := f.extract(page, symbol)
		if ok {
			result.Rates[symbol] = rate
		}
	}

	usd, haveUSD := result.Rates[SymbolUSD]
	if !haveUSD {
		return nil, fmt.Errorf("no USD rate found at %s", f.url)
	}

	// Derive missing currencies from USD
	for symbol, ratio := range derivedRatios {
		if _, ok := result.Rates[symbol]; ok {
			continue
		}
		if _, tracked := f.currencies[symbol]; !tracked {
			continue
		}
		derived := usd.Mul(ratio).Round(2)
		result.Rates[symbol] = derived
		zap.L().Info("Derived rate from USD",
			zap.String("symbol", symbol),
			zap.String("rate", derived.String()))
	}

	return result, nil
}

// extract finds the first plausible rate for symbol in the page text.
func (f *ExternalFetcher) extract(page, symbol string) (decimal.Decimal, bool) {
	cfg, ok := f.currencies[symbol]
	if !ok {
		return decimal.Zero, false
	}

	// Matches e.g. "USD: 435", "1 USD = 440.50 CUP", "USD</td><td>438,00"
	pattern := regexp.MustCompile(`(?is)` + regexp.QuoteMeta(symbol) + `[^0-9]{0,60}(\d{3,4}(?:[.,]\d{1,2})?)`)

	for _, match := range pattern.FindAllStringSubmatch(page, 10) {
		raw := strings.ReplaceAll(match[1], ",", ".")
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		if rate.LessThan(cfg.MinRate) || rate.GreaterThan(cfg.MaxRate) {
			zap.L().Debug("Discarding implausible rate",
				zap.String("symbol", symbol),
				zap.String("rate", rate.String()))
			continue
		}
		return rate, true
	}
	return decimal.Zero, false
}
