package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// One connection so every statement sees the same in-memory database.
	db.SetMaxOpenConns(1)

	service := &Service{db: db, ledger: NewCashLedger(db)}
	if err := service.initSchema(false); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func createTestCourier(t *testing.T, service *Service, username string) *models.User {
	user, err := service.CreateUser(context.Background(), store.CreateUserParams{
		Username: username,
		Name:     "Courier " + username,
		Phone:    "+5355500001",
		Role:     models.RoleCourier,
	})
	if err != nil {
		t.Fatalf("Failed to create courier: %v", err)
	}
	return user
}

func TestAssignCash_ChainsBalanceSnapshots(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	first, err := service.AssignCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("500"),
	})
	if err != nil {
		t.Fatalf("AssignCash failed: %v", err)
	}
	if !first.BalanceBefore.Equal(decimal.Zero) {
		t.Errorf("Expected balance_before 0, got %s", first.BalanceBefore)
	}
	if !first.BalanceAfter.Equal(decimal.RequireFromString("500")) {
		t.Errorf("Expected balance_after 500, got %s", first.BalanceAfter)
	}

	second, err := service.AssignCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("250"),
	})
	if err != nil {
		t.Fatalf("Second AssignCash failed: %v", err)
	}
	if !second.BalanceBefore.Equal(decimal.RequireFromString("500")) {
		t.Errorf("Expected balance_before 500, got %s", second.BalanceBefore)
	}
	if !second.BalanceAfter.Equal(decimal.RequireFromString("750")) {
		t.Errorf("Expected balance_after 750, got %s", second.BalanceAfter)
	}

	balance, err := service.CashBalance(ctx, courier.Id, models.CurrencyUSD)
	if err != nil {
		t.Fatalf("CashBalance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("750")) {
		t.Errorf("Expected balance 750, got %s", balance)
	}
}

func TestWithdrawCash_InsufficientFunds(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	_, err := service.AssignCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("AssignCash failed: %v", err)
	}

	_, err = service.WithdrawCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("150"),
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	// Balance must be untouched after the failed withdrawal.
	balance, err := service.CashBalance(ctx, courier.Id, models.CurrencyUSD)
	if err != nil {
		t.Fatalf("CashBalance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected balance 100 after failed withdraw, got %s", balance)
	}
}

func TestWithdrawCash_ExactBalance(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	if _, err := service.AssignCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyCUP,
		Amount:    decimal.RequireFromString("10000"),
	}); err != nil {
		t.Fatalf("AssignCash failed: %v", err)
	}

	movement, err := service.WithdrawCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyCUP,
		Amount:    decimal.RequireFromString("10000"),
	})
	if err != nil {
		t.Fatalf("WithdrawCash failed: %v", err)
	}
	if !movement.BalanceAfter.Equal(decimal.Zero) {
		t.Errorf("Expected balance_after 0, got %s", movement.BalanceAfter)
	}
}

func TestCashOp_Validation(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()

	cases := []struct {
		name   string
		params store.CashOpParams
	}{
		{"missing courier", store.CashOpParams{Currency: models.CurrencyUSD, Amount: decimal.RequireFromString("10")}},
		{"unknown currency", store.CashOpParams{CourierId: "c1", Currency: "EUR", Amount: decimal.RequireFromString("10")}},
		{"zero amount", store.CashOpParams{CourierId: "c1", Currency: models.CurrencyUSD, Amount: decimal.Zero}},
		{"negative amount", store.CashOpParams{CourierId: "c1", Currency: models.CurrencyUSD, Amount: decimal.RequireFromString("-5")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.AssignCash(ctx, tc.params); !errors.Is(err, store.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestConvertCash_WritesBothLegs(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	if _, err := service.AssignCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("200"),
	}); err != nil {
		t.Fatalf("AssignCash failed: %v", err)
	}

	movements, err := service.ConvertCash(ctx, store.ConvertParams{
		CourierId: courier.Id,
		AmountUSD: decimal.RequireFromString("100"),
		Rate:      decimal.RequireFromString("440"),
	})
	if err != nil {
		t.Fatalf("ConvertCash failed: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("Expected 2 movements, got %d", len(movements))
	}

	usd, err := service.CashBalance(ctx, courier.Id, models.CurrencyUSD)
	if err != nil {
		t.Fatalf("CashBalance USD failed: %v", err)
	}
	if !usd.Equal(decimal.RequireFromString("100")) {
		t.Errorf("Expected USD balance 100, got %s", usd)
	}

	cup, err := service.CashBalance(ctx, courier.Id, models.CurrencyCUP)
	if err != nil {
		t.Fatalf("CashBalance CUP failed: %v", err)
	}
	if !cup.Equal(decimal.RequireFromString("44000")) {
		t.Errorf("Expected CUP balance 44000, got %s", cup)
	}

	for _, m := range movements {
		if m.Kind != models.MovementConversion {
			t.Errorf("Expected kind %s, got %s", models.MovementConversion, m.Kind)
		}
		if m.Rate == nil || !m.Rate.Equal(decimal.RequireFromString("440")) {
			t.Errorf("Expected rate 440 on movement, got %v", m.Rate)
		}
	}
}

func TestConvertCash_InsufficientUSD(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	_, err := service.ConvertCash(ctx, store.ConvertParams{
		CourierId: courier.Id,
		AmountUSD: decimal.RequireFromString("50"),
		Rate:      decimal.RequireFromString("440"),
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	// The failed conversion must leave no CUP leg behind.
	movements, err := service.CashMovements(ctx, courier.Id, 10, 0)
	if err != nil {
		t.Fatalf("CashMovements failed: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("Expected no movements after rolled-back conversion, got %d", len(movements))
	}
}

func TestReconcileBalance_MatchesMovementSum(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	courier := createTestCourier(t, service, "carlos")

	amounts := []string{"100", "250.50", "19.25"}
	for _, a := range amounts {
		if _, err := service.AssignCash(ctx, store.CashOpParams{
			CourierId: courier.Id,
			Currency:  models.CurrencyUSD,
			Amount:    decimal.RequireFromString(a),
		}); err != nil {
			t.Fatalf("AssignCash failed: %v", err)
		}
	}
	if _, err := service.WithdrawCash(ctx, store.CashOpParams{
		CourierId: courier.Id,
		Currency:  models.CurrencyUSD,
		Amount:    decimal.RequireFromString("69.75"),
	}); err != nil {
		t.Fatalf("WithdrawCash failed: %v", err)
	}

	if err := service.ReconcileCashBalance(ctx, courier.Id, models.CurrencyUSD); err != nil {
		t.Fatalf("ReconcileCashBalance failed: %v", err)
	}

	balance, err := service.CashBalance(ctx, courier.Id, models.CurrencyUSD)
	if err != nil {
		t.Fatalf("CashBalance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("300")) {
		t.Errorf("Expected reconciled balance 300, got %s", balance)
	}
}

func TestCashTotals_SumsAcrossCouriers(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()
	ctx := context.Background()
	carlos := createTestCourier(t, service, "carlos")
	maria := createTestCourier(t, service, "maria")

	for _, op := range []store.CashOpParams{
		{CourierId: carlos.Id, Currency: models.CurrencyUSD, Amount: decimal.RequireFromString("100")},
		{CourierId: maria.Id, Currency: models.CurrencyUSD, Amount: decimal.RequireFromString("40")},
		{CourierId: maria.Id, Currency: models.CurrencyCUP, Amount: decimal.RequireFromString("5000")},
	} {
		if _, err := service.AssignCash(ctx, op); err != nil {
			t.Fatalf("AssignCash failed: %v", err)
		}
	}

	totals, err := service.CashTotals(ctx)
	if err != nil {
		t.Fatalf("CashTotals failed: %v", err)
	}
	if !totals[models.CurrencyUSD].Equal(decimal.RequireFromString("140")) {
		t.Errorf("Expected USD total 140, got %s", totals[models.CurrencyUSD])
	}
	if !totals[models.CurrencyCUP].Equal(decimal.RequireFromString("5000")) {
		t.Errorf("Expected CUP total 5000, got %s", totals[models.CurrencyCUP])
	}
}
