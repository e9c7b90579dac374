package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddJournalEntry records a standalone income or expense entry.
func (s *Service) AddJournalEntry(ctx context.Context, entry models.JournalEntry) (*models.JournalEntry, error) {
	if entry.Kind != models.JournalIncome && entry.Kind != models.JournalExpense {
		return nil, fmt.Errorf("%w: unknown journal kind %q", store.ErrValidation, entry.Kind)
	}
	if !entry.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if entry.Concept == "" {
		return nil, fmt.Errorf("%w: concept is required", store.ErrValidation)
	}

	if entry.Id == "" {
		entry.Id = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, queryInsertJournalEntry,
		entry.Id, string(entry.Kind), entry.Concept, entry.Amount.String(),
		entry.RemittanceId, entry.UserId, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	zap.L().Info("Journal entry added",
		zap.String("id", entry.Id),
		zap.String("kind", string(entry.Kind)),
		zap.String("concept", entry.Concept),
		zap.String("amount", entry.Amount.String()))
	return &entry, nil
}

func (s *Service) ListJournal(ctx context.Context, from, to time.Time) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryListJournal, from, to)
	if err != nil {
		return nil, fmt.Errorf("unable to query journal entries: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var kind, amountStr string
		err := rows.Scan(&e.Id, &kind, &e.Concept, &amountStr, &e.RemittanceId, &e.UserId, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unable to scan journal row: %w", err)
		}
		e.Kind = models.JournalKind(kind)
		if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}

// GetJournalTotals sums income and expense entries over [from, to).
func (s *Service) GetJournalTotals(ctx context.Context, from, to time.Time) (*store.JournalTotals, error) {
	rows, err := s.db.QueryContext(ctx, queryJournalTotals, from, to)
	if err != nil {
		return nil, fmt.Errorf("unable to query journal totals: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	totals := &store.JournalTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for rows.Next() {
		var kind string
		var total float64
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, fmt.Errorf("unable to scan journal total: %w", err)
		}
		switch models.JournalKind(kind) {
		case models.JournalIncome:
			totals.Income = decimal.NewFromFloat(total)
		case models.JournalExpense:
			totals.Expense = decimal.NewFromFloat(total)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal totals: %w", err)
	}
	return totals, nil
}
