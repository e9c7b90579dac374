package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CashLedger handles courier cash ledger operations. Every movement writes
// an immutable cash_movements row with before/after balance snapshots and
// bumps the cash_balances hot row under optimistic locking.
type CashLedger struct {
	db *sql.DB
}

func NewCashLedger(db *sql.DB) *CashLedger {
	return &CashLedger{db: db}
}

// movementParams describes one signed balance change. Amount is positive
// for credits and negative for debits.
type movementParams struct {
	CourierId     string
	Currency      string
	Kind          models.MovementKind
	Amount        decimal.Decimal
	Rate          *decimal.Decimal
	RemittanceId  string
	Notes         string
	RecordedBy    string
	AllowNegative bool
}

// applyMovement runs the balance update and movement insert inside the
// caller's transaction.
func (l *CashLedger) applyMovement(ctx context.Context, tx *sql.Tx, params movementParams) (*models.CashMovement, error) {
	if !models.ValidCurrency(params.Currency) {
		return nil, fmt.Errorf("%w: unknown currency %q", store.ErrValidation, params.Currency)
	}

	// Get current balance (creating the row on first use)
	var balanceId, currentBalanceStr string
	var version int64

	err := tx.QueryRowContext(ctx, queryGetCashBalanceForUpdate, params.CourierId, params.Currency).
		Scan(&balanceId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		balanceId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		if _, err := tx.ExecContext(ctx, queryInsertCashBalance, balanceId, params.CourierId, params.Currency, "0", 1); err != nil {
			return nil, fmt.Errorf("failed to create cash balance: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current balance %q: %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(params.Amount)
	if newBalance.IsNegative() && !params.AllowNegative {
		return nil, fmt.Errorf("%w: balance %s, requested %s %s",
			store.ErrInsufficientFunds, currentBalance.String(), params.Amount.Abs().String(), params.Currency)
	}

	movementId := uuid.New().String()
	now := time.Now().UTC()

	var rateStr any
	if params.Rate != nil {
		rateStr = params.Rate.String()
	}

	_, err = tx.ExecContext(ctx, queryInsertCashMovement,
		movementId, params.CourierId, params.Currency, string(params.Kind),
		params.Amount.String(), currentBalance.String(), newBalance.String(),
		rateStr, params.RemittanceId, params.Notes, params.RecordedBy, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert cash movement: %w", err)
	}

	// Update balance with optimistic locking
	result, err := tx.ExecContext(ctx, queryUpdateCashBalance,
		newBalance.String(), movementId, params.CourierId, params.Currency, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return &models.CashMovement{
		Id:            movementId,
		CourierId:     params.CourierId,
		Currency:      params.Currency,
		Kind:          params.Kind,
		Amount:        params.Amount,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		Rate:          params.Rate,
		RemittanceId:  params.RemittanceId,
		Notes:         params.Notes,
		RecordedBy:    params.RecordedBy,
		CreatedAt:     now,
	}, nil
}

// ProcessMovement applies a single movement in its own transaction.
func (l *CashLedger) ProcessMovement(ctx context.Context, params movementParams) (*models.CashMovement, error) {
	zap.L().Info("Processing cash movement",
		zap.String("courier_id", params.CourierId),
		zap.String("currency", params.Currency),
		zap.String("kind", string(params.Kind)),
		zap.String("amount", params.Amount.String()))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	movement, err := l.applyMovement(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Cash movement processed successfully",
		zap.String("movement_id", movement.Id),
		zap.String("courier_id", params.CourierId),
		zap.String("old_balance", movement.BalanceBefore.String()),
		zap.String("new_balance", movement.BalanceAfter.String()))

	return movement, nil
}

// GetBalance returns the current balance for courier/currency (O(1) lookup)
func (l *CashLedger) GetBalance(ctx context.Context, courierId, currency string) (decimal.Decimal, error) {
	var balanceStr string
	err := l.db.QueryRowContext(ctx, queryGetCashBalance, courierId, currency).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get cash balance",
			zap.String("courier_id", courierId), zap.String("currency", currency), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get cash balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	return balance, nil
}

// GetAllBalances returns the courier's balance rows for every currency.
func (l *CashLedger) GetAllBalances(ctx context.Context, courierId string) ([]models.CashBalance, error) {
	rows, err := l.db.QueryContext(ctx, queryGetAllCashBalances, courierId)
	if err != nil {
		return nil, fmt.Errorf("failed to get cash balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.CashBalance
	for rows.Next() {
		var balance models.CashBalance
		var balanceStr string
		err := rows.Scan(&balance.Id, &balance.CourierId, &balance.Currency, &balanceStr,
			&balance.LastMovementId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cash balance: %w", err)
		}

		balance.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
		}

		balances = append(balances, balance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return balances, nil
}

// GetMovements returns paginated movement history for a courier.
func (l *CashLedger) GetMovements(ctx context.Context, courierId string, limit, offset int) ([]models.CashMovement, error) {
	rows, err := l.db.QueryContext(ctx, queryGetCashMovements, courierId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get cash movements: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var movements []models.CashMovement
	for rows.Next() {
		var m models.CashMovement
		var kind, amountStr, beforeStr, afterStr string
		var rateStr sql.NullString
		err := rows.Scan(&m.Id, &m.CourierId, &m.Currency, &kind,
			&amountStr, &beforeStr, &afterStr,
			&rateStr, &m.RemittanceId, &m.Notes, &m.RecordedBy, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cash movement: %w", err)
		}

		m.Kind = models.MovementKind(kind)
		if m.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		if m.BalanceBefore, err = decimal.NewFromString(beforeStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance_before %q: %w", beforeStr, err)
		}
		if m.BalanceAfter, err = decimal.NewFromString(afterStr); err != nil {
			return nil, fmt.Errorf("failed to parse balance_after %q: %w", afterStr, err)
		}
		if rateStr.Valid {
			rate, err := decimal.NewFromString(rateStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse rate %q: %w", rateStr.String, err)
			}
			m.Rate = &rate
		}

		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movement rows: %w", err)
	}
	return movements, nil
}

// GetTotals sums current balances across all couriers, per currency.
func (l *CashLedger) GetTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := l.db.QueryContext(ctx, queryGetCashTotals)
	if err != nil {
		return nil, fmt.Errorf("failed to get cash totals: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	totals := map[string]decimal.Decimal{
		models.CurrencyUSD: decimal.Zero,
		models.CurrencyCUP: decimal.Zero,
	}
	for rows.Next() {
		var currency string
		var total float64
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, fmt.Errorf("failed to scan cash total: %w", err)
		}
		totals[currency] = decimal.NewFromFloat(total)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating total rows: %w", err)
	}
	return totals, nil
}

// ReconcileBalance verifies that the hot balance matches the movement sum.
func (l *CashLedger) ReconcileBalance(ctx context.Context, courierId, currency string) error {
	zap.L().Info("Reconciling cash balance",
		zap.String("courier_id", courierId), zap.String("currency", currency))

	currentBalance, err := l.GetBalance(ctx, courierId, currency)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	var calculated float64
	err = l.db.QueryRowContext(ctx, queryReconcileCashBalance, courierId, currency).Scan(&calculated)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from movements: %w", err)
	}

	calculatedBalance := decimal.NewFromFloat(calculated)
	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Cash balance reconciliation failed",
			zap.String("courier_id", courierId),
			zap.String("currency", currency),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s",
			currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Cash balance reconciliation successful",
		zap.String("courier_id", courierId),
		zap.String("currency", currency),
		zap.String("balance", currentBalance.String()))
	return nil
}

// Service-level cash operations

// AssignCash credits cash handed to a courier by an admin.
func (s *Service) AssignCash(ctx context.Context, params store.CashOpParams) (*models.CashMovement, error) {
	if err := validateCashOp(params); err != nil {
		return nil, err
	}
	return s.ledger.ProcessMovement(ctx, movementParams{
		CourierId:  params.CourierId,
		Currency:   params.Currency,
		Kind:       models.MovementAssignment,
		Amount:     params.Amount,
		Notes:      params.Notes,
		RecordedBy: params.RecordedBy,
	})
}

// WithdrawCash debits cash taken back from a courier. Fails with
// ErrInsufficientFunds when the courier holds less than the amount.
func (s *Service) WithdrawCash(ctx context.Context, params store.CashOpParams) (*models.CashMovement, error) {
	if err := validateCashOp(params); err != nil {
		return nil, err
	}
	return s.ledger.ProcessMovement(ctx, movementParams{
		CourierId:  params.CourierId,
		Currency:   params.Currency,
		Kind:       models.MovementWithdrawal,
		Amount:     params.Amount.Neg(),
		Notes:      params.Notes,
		RecordedBy: params.RecordedBy,
	})
}

// PickupCash credits cash a courier collected in the field.
func (s *Service) PickupCash(ctx context.Context, params store.CashOpParams) (*models.CashMovement, error) {
	if err := validateCashOp(params); err != nil {
		return nil, err
	}
	return s.ledger.ProcessMovement(ctx, movementParams{
		CourierId:  params.CourierId,
		Currency:   params.Currency,
		Kind:       models.MovementPickup,
		Amount:     params.Amount,
		Notes:      params.Notes,
		RecordedBy: params.RecordedBy,
	})
}

// ConvertCash sells courier USD for CUP at the given rate. Both movements
// commit atomically and share the rate snapshot.
func (s *Service) ConvertCash(ctx context.Context, params store.ConvertParams) ([]models.CashMovement, error) {
	if !params.AmountUSD.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if !params.Rate.IsPositive() {
		return nil, fmt.Errorf("%w: rate must be positive", store.ErrValidation)
	}

	cupAmount := params.AmountUSD.Mul(params.Rate)

	zap.L().Info("Converting courier USD to CUP",
		zap.String("courier_id", params.CourierId),
		zap.String("amount_usd", params.AmountUSD.String()),
		zap.String("rate", params.Rate.String()),
		zap.String("amount_cup", cupAmount.String()))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rate := params.Rate

	debit, err := s.ledger.applyMovement(ctx, tx, movementParams{
		CourierId:  params.CourierId,
		Currency:   models.CurrencyUSD,
		Kind:       models.MovementConversion,
		Amount:     params.AmountUSD.Neg(),
		Rate:       &rate,
		Notes:      params.Notes,
		RecordedBy: params.RecordedBy,
	})
	if err != nil {
		return nil, err
	}

	credit, err := s.ledger.applyMovement(ctx, tx, movementParams{
		CourierId:  params.CourierId,
		Currency:   models.CurrencyCUP,
		Kind:       models.MovementConversion,
		Amount:     cupAmount,
		Rate:       &rate,
		Notes:      params.Notes,
		RecordedBy: params.RecordedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return []models.CashMovement{*debit, *credit}, nil
}

func validateCashOp(params store.CashOpParams) error {
	if params.CourierId == "" {
		return fmt.Errorf("%w: courier id is required", store.ErrValidation)
	}
	if !models.ValidCurrency(params.Currency) {
		return fmt.Errorf("%w: unknown currency %q", store.ErrValidation, params.Currency)
	}
	if !params.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	return nil
}
