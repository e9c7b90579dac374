package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetPeriodReport aggregates remittance activity over [from, to).
// Cancelled remittances count toward the status breakdown but are
// excluded from the monetary totals.
func (s *Service) GetPeriodReport(ctx context.Context, from, to time.Time) (*store.PeriodReport, error) {
	report := &store.PeriodReport{
		TotalSent:    decimal.Zero,
		TotalFees:    decimal.Zero,
		TotalCharged: decimal.Zero,
		ByStatus:     make(map[models.Status]int),
	}

	var sent, fees, charged float64
	err := s.db.QueryRowContext(ctx, queryPeriodTotals, from, to).
		Scan(&report.Count, &sent, &fees, &charged)
	if err != nil {
		return nil, fmt.Errorf("failed to query period totals: %w", err)
	}
	report.TotalSent = decimal.NewFromFloat(sent)
	report.TotalFees = decimal.NewFromFloat(fees)
	report.TotalCharged = decimal.NewFromFloat(charged)

	rows, err := s.db.QueryContext(ctx, queryPeriodByStatus, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query status breakdown: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		report.ByStatus[models.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status rows: %w", err)
	}

	dayRows, err := s.db.QueryContext(ctx, queryPeriodByDay, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily breakdown: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(dayRows)

	for dayRows.Next() {
		var day store.DayTotals
		var daySent, dayFees float64
		if err := dayRows.Scan(&day.Day, &day.Count, &daySent, &dayFees); err != nil {
			return nil, fmt.Errorf("failed to scan day row: %w", err)
		}
		day.Sent = decimal.NewFromFloat(daySent)
		day.Fees = decimal.NewFromFloat(dayFees)
		report.ByDay = append(report.ByDay, day)
	}
	if err := dayRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day rows: %w", err)
	}

	return report, nil
}

// GetCourierStats aggregates delivery counts and amounts per courier.
func (s *Service) GetCourierStats(ctx context.Context, from, to time.Time) ([]store.CourierStats, error) {
	rows, err := s.db.QueryContext(ctx, queryCourierStats, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query courier stats: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var stats []store.CourierStats
	for rows.Next() {
		var cs store.CourierStats
		var amountDelivered float64
		err := rows.Scan(&cs.CourierId, &cs.CourierName, &cs.Total,
			&cs.Delivered, &cs.Outstanding, &amountDelivered)
		if err != nil {
			return nil, fmt.Errorf("failed to scan courier stat row: %w", err)
		}
		cs.AmountDelivered = decimal.NewFromFloat(amountDelivered)
		stats = append(stats, cs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating courier stat rows: %w", err)
	}
	return stats, nil
}

// GetDashboardStats backs the admin landing page counters.
func (s *Service) GetDashboardStats(ctx context.Context, now time.Time) (*store.DashboardStats, error) {
	stats := &store.DashboardStats{
		MonthFees:       decimal.Zero,
		MovedToday:      decimal.Zero,
		UninvoicedTotal: decimal.Zero,
	}

	var pending, today, requests sql.NullInt64
	err := s.db.QueryRowContext(ctx, queryDashboardCounts, now).
		Scan(&stats.TotalRemittances, &pending, &today, &requests)
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboard counts: %w", err)
	}
	stats.Pending = int(pending.Int64)
	stats.CreatedToday = int(today.Int64)
	stats.OpenRequests = int(requests.Int64)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var monthFees float64
	if err := s.db.QueryRowContext(ctx, queryDashboardMonthFees, monthStart).Scan(&monthFees); err != nil {
		return nil, fmt.Errorf("failed to query month fees: %w", err)
	}
	stats.MonthFees = decimal.NewFromFloat(monthFees)

	var movedToday float64
	if err := s.db.QueryRowContext(ctx, queryDashboardMovedToday, now).Scan(&movedToday); err != nil {
		return nil, fmt.Errorf("failed to query moved today: %w", err)
	}
	stats.MovedToday = decimal.NewFromFloat(movedToday)

	var uninvoicedTotal float64
	if err := s.db.QueryRowContext(ctx, queryDashboardUninvoiced).Scan(&stats.Uninvoiced, &uninvoicedTotal); err != nil {
		return nil, fmt.Errorf("failed to query uninvoiced totals: %w", err)
	}
	stats.UninvoicedTotal = decimal.NewFromFloat(uninvoicedTotal)

	cutoff := now.Add(-24 * time.Hour)
	if err := s.db.QueryRowContext(ctx, queryDashboardOverdue, cutoff).Scan(&stats.Overdue24h); err != nil {
		return nil, fmt.Errorf("failed to query overdue count: %w", err)
	}

	return stats, nil
}
