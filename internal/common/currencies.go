package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// CurrencyConfig describes one tracked currency: its fallback rate when no
// stored or fetched rate is available, and the plausibility bounds applied
// to scraped values.
type CurrencyConfig struct {
	Symbol   string `yaml:"symbol"`
	Fallback string `yaml:"fallback"`
	MinRate  string `yaml:"min_rate"`
	MaxRate  string `yaml:"max_rate"`
}

type currenciesFile struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

// Currency is a parsed CurrencyConfig with decimal bounds.
type Currency struct {
	Symbol   string
	Fallback decimal.Decimal
	MinRate  decimal.Decimal
	MaxRate  decimal.Decimal
}

func LoadCurrencyConfig(currenciesPath string) ([]Currency, error) {
	var path string
	if filepath.IsAbs(currenciesPath) {
		path = currenciesPath
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, currenciesPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", currenciesPath, err)
	}

	var config currenciesFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", currenciesPath, err)
	}

	currencies := make([]Currency, 0, len(config.Currencies))
	for i, c := range config.Currencies {
		if c.Symbol == "" {
			return nil, fmt.Errorf("currency at index %d missing symbol", i)
		}
		parsed := Currency{Symbol: c.Symbol}
		var err error
		if parsed.Fallback, err = decimal.NewFromString(c.Fallback); err != nil {
			return nil, fmt.Errorf("currency %s: invalid fallback %q: %w", c.Symbol, c.Fallback, err)
		}
		if parsed.MinRate, err = decimal.NewFromString(c.MinRate); err != nil {
			return nil, fmt.Errorf("currency %s: invalid min_rate %q: %w", c.Symbol, c.MinRate, err)
		}
		if parsed.MaxRate, err = decimal.NewFromString(c.MaxRate); err != nil {
			return nil, fmt.Errorf("currency %s: invalid max_rate %q: %w", c.Symbol, c.MaxRate, err)
		}
		if parsed.MaxRate.LessThan(parsed.MinRate) {
			return nil, fmt.Errorf("currency %s: max_rate below min_rate", c.Symbol)
		}
		currencies = append(currencies, parsed)
	}

	return currencies, nil
}
