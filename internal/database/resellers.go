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

// RecordResellerPayment applies a payment against the reseller's owed
// balance. The balance floors at zero; overpayment is accepted and the
// excess recorded only in the payment history.
func (s *Service) RecordResellerPayment(ctx context.Context, params store.ResellerPaymentParams) (*models.ResellerPayment, error) {
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owedStr string
	err = tx.QueryRowContext(ctx, queryGetResellerOwed, params.ResellerId).Scan(&owedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reseller %s", store.ErrNotFound, params.ResellerId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reseller owed balance: %w", err)
	}

	owed, err := decimal.NewFromString(owedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance_owed %q: %w", owedStr, err)
	}

	newOwed := owed.Sub(params.Amount)
	if newOwed.IsNegative() {
		newOwed = decimal.Zero
	}

	if _, err := tx.ExecContext(ctx, querySetResellerOwed, newOwed.String(), params.ResellerId); err != nil {
		return nil, fmt.Errorf("failed to update reseller owed balance: %w", err)
	}

	payment := &models.ResellerPayment{
		Id:         uuid.New().String(),
		ResellerId: params.ResellerId,
		Amount:     params.Amount,
		Method:     params.Method,
		Reference:  params.Reference,
		Notes:      params.Notes,
		RecordedBy: params.RecordedBy,
		CreatedAt:  time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, queryInsertResellerPayment,
		payment.Id, payment.ResellerId, payment.Amount.String(),
		payment.Method, payment.Reference, payment.Notes, payment.RecordedBy, payment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reseller payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Reseller payment recorded",
		zap.String("reseller_id", params.ResellerId),
		zap.String("amount", params.Amount.String()),
		zap.String("old_owed", owed.String()),
		zap.String("new_owed", newOwed.String()))
	return payment, nil
}

func (s *Service) ListResellerPayments(ctx context.Context, resellerId string) ([]models.ResellerPayment, error) {
	rows, err := s.db.QueryContext(ctx, queryListResellerPayments, resellerId)
	if err != nil {
		return nil, fmt.Errorf("unable to query reseller payments: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var payments []models.ResellerPayment
	for rows.Next() {
		var p models.ResellerPayment
		var amountStr string
		err := rows.Scan(&p.Id, &p.ResellerId, &amountStr, &p.Method, &p.Reference,
			&p.Notes, &p.RecordedBy, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan payment row: %w", err)
		}
		if p.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment rows: %w", err)
	}
	return payments, nil
}

// GetResellerBalance summarizes the reseller's position: current owed
// balance plus lifetime payment and remittance totals.
func (s *Service) GetResellerBalance(ctx context.Context, resellerId string) (*store.ResellerBalance, error) {
	var owedStr string
	err := s.db.QueryRowContext(ctx, queryGetResellerOwed, resellerId).Scan(&owedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reseller %s", store.ErrNotFound, resellerId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reseller owed balance: %w", err)
	}

	owed, err := decimal.NewFromString(owedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance_owed %q: %w", owedStr, err)
	}

	var totalPaid float64
	if err := s.db.QueryRowContext(ctx, queryResellerPaymentTotal, resellerId).Scan(&totalPaid); err != nil {
		return nil, fmt.Errorf("failed to sum reseller payments: %w", err)
	}

	var count int
	var totalSent, totalCommission float64
	err = s.db.QueryRowContext(ctx, queryResellerRemittanceTotals, resellerId).Scan(&count, &totalSent, &totalCommission)
	if err != nil {
		return nil, fmt.Errorf("failed to sum reseller remittances: %w", err)
	}

	return &store.ResellerBalance{
		Owed:            owed,
		TotalPaid:       decimal.NewFromFloat(totalPaid),
		TotalCommission: decimal.NewFromFloat(totalCommission),
		RemittanceCount: count,
		TotalSent:       decimal.NewFromFloat(totalSent),
	}, nil
}
