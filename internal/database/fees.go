package database

import (
	"context"
	"database/sql"
	"fmt"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ActiveFeeRules returns active rules ordered by range minimum.
func (s *Service) ActiveFeeRules(ctx context.Context) ([]models.FeeRule, error) {
	return s.queryFeeRules(ctx, queryListActiveFeeRules)
}

func (s *Service) ListFeeRules(ctx context.Context) ([]models.FeeRule, error) {
	return s.queryFeeRules(ctx, queryListFeeRules)
}

func (s *Service) CreateFeeRule(ctx context.Context, rule models.FeeRule) (*models.FeeRule, error) {
	if err := validateFeeRule(rule); err != nil {
		return nil, err
	}
	if rule.Id == "" {
		rule.Id = uuid.New().String()
	}

	var maxStr any
	if rule.Max != nil {
		maxStr = rule.Max.String()
	}

	_, err := s.db.ExecContext(ctx, queryInsertFeeRule,
		rule.Id, rule.Name, rule.Min.String(), maxStr,
		rule.Percent.String(), rule.Fixed.String(), rule.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to insert fee rule: %w", err)
	}

	zap.L().Info("Fee rule created",
		zap.String("id", rule.Id),
		zap.String("name", rule.Name),
		zap.String("min", rule.Min.String()))
	return &rule, nil
}

func (s *Service) UpdateFeeRule(ctx context.Context, rule models.FeeRule) error {
	if err := validateFeeRule(rule); err != nil {
		return err
	}

	var maxStr any
	if rule.Max != nil {
		maxStr = rule.Max.String()
	}

	result, err := s.db.ExecContext(ctx, queryUpdateFeeRule,
		rule.Name, rule.Min.String(), maxStr,
		rule.Percent.String(), rule.Fixed.String(), rule.Active, rule.Id)
	if err != nil {
		return fmt.Errorf("failed to update fee rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: fee rule %s", store.ErrNotFound, rule.Id)
	}
	return nil
}

func (s *Service) DeleteFeeRule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteFeeRule, id)
	if err != nil {
		return fmt.Errorf("failed to delete fee rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: fee rule %s", store.ErrNotFound, id)
	}

	zap.L().Info("Fee rule deleted", zap.String("id", id))
	return nil
}

func (s *Service) queryFeeRules(ctx context.Context, query string) ([]models.FeeRule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unable to query fee rules: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var rules []models.FeeRule
	for rows.Next() {
		var r models.FeeRule
		var minStr, percentStr, fixedStr string
		var maxStr sql.NullString
		err := rows.Scan(&r.Id, &r.Name, &minStr, &maxStr, &percentStr, &fixedStr, &r.Active)
		if err != nil {
			return nil, fmt.Errorf("unable to scan fee rule row: %w", err)
		}

		if r.Min, err = decimal.NewFromString(minStr); err != nil {
			return nil, fmt.Errorf("failed to parse range_min %q: %w", minStr, err)
		}
		if maxStr.Valid {
			max, err := decimal.NewFromString(maxStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse range_max %q: %w", maxStr.String, err)
			}
			r.Max = &max
		}
		if r.Percent, err = decimal.NewFromString(percentStr); err != nil {
			return nil, fmt.Errorf("failed to parse percent %q: %w", percentStr, err)
		}
		if r.Fixed, err = decimal.NewFromString(fixedStr); err != nil {
			return nil, fmt.Errorf("failed to parse fixed_amount %q: %w", fixedStr, err)
		}
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fee rule rows: %w", err)
	}
	return rules, nil
}

func validateFeeRule(rule models.FeeRule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: fee rule name is required", store.ErrValidation)
	}
	if rule.Min.IsNegative() {
		return fmt.Errorf("%w: range minimum cannot be negative", store.ErrValidation)
	}
	if rule.Max != nil && rule.Max.LessThan(rule.Min) {
		return fmt.Errorf("%w: range maximum below minimum", store.ErrValidation)
	}
	if rule.Percent.IsNegative() || rule.Fixed.IsNegative() {
		return fmt.Errorf("%w: fee components cannot be negative", store.ErrValidation)
	}
	return nil
}
