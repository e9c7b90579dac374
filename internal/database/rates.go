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

// CurrentRate returns the active CUP rate for a source currency. Callers
// fall back to configured defaults on ErrNotFound.
func (s *Service) CurrentRate(ctx context.Context, source string) (decimal.Decimal, error) {
	var rateStr string
	err := s.db.QueryRowContext(ctx, queryGetActiveRate, source).Scan(&rateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: no active rate for %s", store.ErrNotFound, source)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get rate: %w", err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse rate %q: %w", rateStr, err)
	}
	return rate, nil
}

// SetRate deactivates the previous rate for the source currency and
// inserts the new active row, atomically. History is never rewritten.
func (s *Service) SetRate(ctx context.Context, source string, rate decimal.Decimal) (*models.ExchangeRate, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: source currency is required", store.ErrValidation)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: rate must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeactivateRates, source); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous rates: %w", err)
	}

	row := &models.ExchangeRate{
		Id:        uuid.New().String(),
		Source:    source,
		Dest:      models.CurrencyCUP,
		Rate:      rate,
		Active:    true,
		UpdatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, queryInsertRate,
		row.Id, row.Source, row.Dest, row.Rate.String(), row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Exchange rate updated",
		zap.String("source", source),
		zap.String("rate", rate.String()))
	return row, nil
}

func (s *Service) ListRates(ctx context.Context, limit int) ([]models.ExchangeRate, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, queryListRates, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query rates: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var rates []models.ExchangeRate
	for rows.Next() {
		var r models.ExchangeRate
		var rateStr string
		err := rows.Scan(&r.Id, &r.Source, &r.Dest, &rateStr, &r.Active, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan rate row: %w", err)
		}
		if r.Rate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, fmt.Errorf("failed to parse rate %q: %w", rateStr, err)
		}
		rates = append(rates, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate rows: %w", err)
	}
	return rates, nil
}
