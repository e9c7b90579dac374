package database

import (
	"context"
	"errors"
	"testing"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestCurrentRate_NoRate(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	_, err := service.CurrentRate(context.Background(), models.CurrencyUSD)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetRate_KeepsHistory(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.SetRate(ctx, models.CurrencyUSD, decimal.RequireFromString("430")); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	if _, err := service.SetRate(ctx, models.CurrencyUSD, decimal.RequireFromString("440")); err != nil {
		t.Fatalf("Second SetRate failed: %v", err)
	}

	current, err := service.CurrentRate(ctx, models.CurrencyUSD)
	if err != nil {
		t.Fatalf("CurrentRate failed: %v", err)
	}
	if !current.Equal(decimal.RequireFromString("440")) {
		t.Errorf("Expected current rate 440, got %s", current)
	}

	history, err := service.ListRates(ctx, 10)
	if err != nil {
		t.Fatalf("ListRates failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 history rows, got %d", len(history))
	}

	active := 0
	for _, r := range history {
		if r.Active {
			active++
		}
	}
	if active != 1 {
		t.Errorf("Expected exactly 1 active row, got %d", active)
	}
}

func TestSetRate_PerSourceCurrency(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.SetRate(ctx, models.CurrencyUSD, decimal.RequireFromString("435")); err != nil {
		t.Fatalf("SetRate USD failed: %v", err)
	}
	if _, err := service.SetRate(ctx, "EUR", decimal.RequireFromString("455")); err != nil {
		t.Fatalf("SetRate EUR failed: %v", err)
	}

	usd, err := service.CurrentRate(ctx, models.CurrencyUSD)
	if err != nil {
		t.Fatalf("CurrentRate USD failed: %v", err)
	}
	if !usd.Equal(decimal.RequireFromString("435")) {
		t.Errorf("Expected USD 435, got %s", usd)
	}

	eur, err := service.CurrentRate(ctx, "EUR")
	if err != nil {
		t.Fatalf("CurrentRate EUR failed: %v", err)
	}
	if !eur.Equal(decimal.RequireFromString("455")) {
		t.Errorf("Expected EUR 455, got %s", eur)
	}
}

func TestFeeRules_CRUD(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	max := decimal.RequireFromString("100")
	created, err := service.CreateFeeRule(ctx, models.FeeRule{
		Name:    "small",
		Min:     decimal.Zero,
		Max:     &max,
		Percent: decimal.RequireFromString("7"),
		Active:  true,
	})
	if err != nil {
		t.Fatalf("CreateFeeRule failed: %v", err)
	}

	created.Percent = decimal.RequireFromString("6")
	if err := service.UpdateFeeRule(ctx, *created); err != nil {
		t.Fatalf("UpdateFeeRule failed: %v", err)
	}

	rules, err := service.ActiveFeeRules(ctx)
	if err != nil {
		t.Fatalf("ActiveFeeRules failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("Expected 1 active rule, got %d", len(rules))
	}
	if !rules[0].Percent.Equal(decimal.RequireFromString("6")) {
		t.Errorf("Expected percent 6 after update, got %s", rules[0].Percent)
	}
	if rules[0].Max == nil || !rules[0].Max.Equal(max) {
		t.Errorf("Expected range_max 100, got %v", rules[0].Max)
	}

	if err := service.DeleteFeeRule(ctx, created.Id); err != nil {
		t.Fatalf("DeleteFeeRule failed: %v", err)
	}
	rules, err = service.ActiveFeeRules(ctx)
	if err != nil {
		t.Fatalf("ActiveFeeRules failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("Expected no rules after delete, got %d", len(rules))
	}
}

func TestFeeRules_UnboundedMax(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	created, err := service.CreateFeeRule(ctx, models.FeeRule{
		Name:    "large",
		Min:     decimal.RequireFromString("1000"),
		Percent: decimal.RequireFromString("3"),
		Active:  true,
	})
	if err != nil {
		t.Fatalf("CreateFeeRule failed: %v", err)
	}

	rules, err := service.ListFeeRules(ctx)
	if err != nil {
		t.Fatalf("ListFeeRules failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(rules))
	}
	if rules[0].Max != nil {
		t.Errorf("Expected nil range_max, got %s", rules[0].Max)
	}
	if rules[0].Id != created.Id {
		t.Errorf("Expected id %s, got %s", created.Id, rules[0].Id)
	}
}
