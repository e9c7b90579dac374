package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"remesitas-go/internal/models"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateRemittance inserts the remittance and, in the same transaction,
// any fee journal entry and reseller owed accrual the creation path needs.
func (s *Service) CreateRemittance(ctx context.Context, params store.CreateRemittanceParams) (*models.Remittance, error) {
	rem := params.Remittance
	if rem.Id == "" {
		rem.Id = uuid.New().String()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = time.Now().UTC()
	}

	zap.L().Info("Creating remittance",
		zap.String("id", rem.Id),
		zap.String("code", rem.Code),
		zap.String("delivery_type", string(rem.DeliveryType)),
		zap.String("amount_sent", rem.AmountSent.String()),
		zap.String("status", string(rem.Status)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queryInsertRemittance,
		rem.Id, rem.Code, rem.SenderName, rem.SenderPhone,
		rem.BeneficiaryName, rem.BeneficiaryPhone, rem.BeneficiaryAddress,
		string(rem.DeliveryType), rem.AmountSent.String(), rem.Rate.String(),
		rem.AmountDelivery.String(), rem.DeliveryCurrency,
		rem.FeePercent.String(), rem.FeeFixed.String(), rem.FeeTotal.String(),
		rem.TotalCharged.String(), rem.PlatformFee.String(),
		string(rem.Status), rem.CourierId, rem.CreatedBy, rem.ResellerId,
		rem.IsRequest, rem.Notes, rem.DeliveryPhoto, rem.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateCode, rem.Code)
		}
		return nil, fmt.Errorf("failed to insert remittance: %w", err)
	}

	if params.RecordFeeIncome && rem.FeeTotal.IsPositive() {
		_, err = tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), string(models.JournalIncome),
			fmt.Sprintf("Comisión remesa %s", rem.Code),
			rem.FeeTotal.String(), rem.Id, rem.CreatedBy, rem.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert fee journal entry: %w", err)
		}
	}

	if params.AccrueOwed.IsPositive() {
		if err := accrueResellerOwed(ctx, tx, rem.ResellerId, params.AccrueOwed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Remittance created successfully",
		zap.String("id", rem.Id), zap.String("code", rem.Code))
	return s.GetRemittanceById(ctx, rem.Id)
}

// accrueResellerOwed increases the reseller's balance owed inside the
// caller's transaction.
func accrueResellerOwed(ctx context.Context, tx *sql.Tx, resellerId string, amount decimal.Decimal) error {
	var owedStr string
	err := tx.QueryRowContext(ctx, queryGetResellerOwed, resellerId).Scan(&owedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: reseller %s", store.ErrNotFound, resellerId)
	}
	if err != nil {
		return fmt.Errorf("failed to get reseller owed balance: %w", err)
	}

	owed, err := decimal.NewFromString(owedStr)
	if err != nil {
		return fmt.Errorf("failed to parse balance_owed %q: %w", owedStr, err)
	}

	newOwed := owed.Add(amount)
	if _, err := tx.ExecContext(ctx, querySetResellerOwed, newOwed.String(), resellerId); err != nil {
		return fmt.Errorf("failed to accrue reseller owed balance: %w", err)
	}

	zap.L().Info("Reseller owed balance accrued",
		zap.String("reseller_id", resellerId),
		zap.String("accrued", amount.String()),
		zap.String("new_owed", newOwed.String()))
	return nil
}

func (s *Service) GetRemittanceById(ctx context.Context, id string) (*models.Remittance, error) {
	rem, err := scanRemittance(s.db.QueryRowContext(ctx, queryGetRemittanceById, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: remittance %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query remittance by id: %w", err)
	}
	return rem, nil
}

func (s *Service) GetRemittanceByCode(ctx context.Context, code string) (*models.Remittance, error) {
	rem, err := scanRemittance(s.db.QueryRowContext(ctx, queryGetRemittanceByCode, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: remittance %s", store.ErrNotFound, code)
		}
		return nil, fmt.Errorf("unable to query remittance by code: %w", err)
	}
	return rem, nil
}

// ListRemittances applies the optional status, search and invoiced filters.
func (s *Service) ListRemittances(ctx context.Context, filter store.RemittanceFilter) ([]models.Remittance, error) {
	query := "SELECT " + remittanceColumns + " FROM remittances WHERE 1=1"
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		query += " AND (code LIKE ? OR sender_name LIKE ? OR beneficiary_name LIKE ?)"
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}
	if filter.Invoiced != nil {
		query += " AND invoiced = ?"
		args = append(args, *filter.Invoiced)
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	return s.queryRemittances(ctx, query, args...)
}

func (s *Service) ListCourierRemittances(ctx context.Context, courierId string, statuses []models.Status, limit int) ([]models.Remittance, error) {
	if len(statuses) == 0 {
		statuses = []models.Status{models.StatusPending, models.StatusInTransit}
	}
	if limit <= 0 {
		limit = 100
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	query := fmt.Sprintf(queryListCourierRemittances, placeholders)

	args := []any{courierId}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	args = append(args, limit)

	return s.queryRemittances(ctx, query, args...)
}

func (s *Service) ListResellerRemittances(ctx context.Context, resellerId string, status models.Status) ([]models.Remittance, error) {
	if status == "" {
		return s.queryRemittances(ctx, queryListResellerRemittances, resellerId)
	}
	return s.queryRemittances(ctx, queryListResellerRemittancesByStatus, resellerId, string(status))
}

func (s *Service) ListRemittancesBySenderPhone(ctx context.Context, phone string, limit int) ([]models.Remittance, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryRemittances(ctx, queryListRemittancesBySenderPhone, phone, limit)
}

func (s *Service) ListOpenRequests(ctx context.Context) ([]models.Remittance, error) {
	return s.queryRemittances(ctx, queryListOpenRequests)
}

// UpdateRemittanceFields edits non-status fields. In terminal states only
// the notes field may change.
func (s *Service) UpdateRemittanceFields(ctx context.Context, id string, edits store.RemittanceEdits) error {
	rem, err := s.GetRemittanceById(ctx, id)
	if err != nil {
		return err
	}

	set := []string{}
	args := []any{}
	add := func(column string, value *string) {
		if value != nil {
			set = append(set, column+" = ?")
			args = append(args, *value)
		}
	}

	if rem.Status.Terminal() {
		if edits.SenderName != nil || edits.SenderPhone != nil || edits.BeneficiaryName != nil ||
			edits.BeneficiaryPhone != nil || edits.BeneficiaryAddress != nil {
			return fmt.Errorf("%w: only notes may change after %s", store.ErrInvalidTransition, rem.Status)
		}
	} else {
		add("sender_name", edits.SenderName)
		add("sender_phone", edits.SenderPhone)
		add("beneficiary_name", edits.BeneficiaryName)
		add("beneficiary_phone", edits.BeneficiaryPhone)
		add("beneficiary_address", edits.BeneficiaryAddress)
	}
	add("notes", edits.Notes)

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := "UPDATE remittances SET " + strings.Join(set, ", ") + " WHERE id = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update remittance: %w", err)
	}
	return nil
}

// ApproveRequest moves a public request from solicitud to pendiente (or
// straight to en_proceso when a courier is supplied). Amount rewrites
// recompute the fee from the percent/fixed snapshot taken at creation.
func (s *Service) ApproveRequest(ctx context.Context, params store.ApproveRequestParams) (*models.Remittance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := scanRemittance(tx.QueryRowContext(ctx, queryGetRemittanceById, params.RemittanceId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: remittance %s", store.ErrNotFound, params.RemittanceId)
		}
		return nil, fmt.Errorf("unable to query remittance: %w", err)
	}

	if !rem.IsRequest || rem.Status != models.StatusRequested {
		return nil, fmt.Errorf("%w: cannot approve %s remittance", store.ErrInvalidTransition, rem.Status)
	}

	amountSent := rem.AmountSent
	feeTotal := rem.FeeTotal
	amountDelivery := rem.AmountDelivery

	if params.AmountSent != nil {
		if !params.AmountSent.IsPositive() {
			return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
		}
		amountSent = *params.AmountSent
		feeTotal = amountSent.Mul(rem.FeePercent).Div(decimal.NewFromInt(100)).Add(rem.FeeFixed)
		if rem.DeliveryType == models.DeliveryUSD {
			amountDelivery = amountSent.Sub(feeTotal)
		} else {
			amountDelivery = amountSent.Mul(rem.Rate)
		}
	}
	if params.AmountDelivery != nil {
		amountDelivery = *params.AmountDelivery
	}
	totalCharged := amountSent.Add(feeTotal)

	address := rem.BeneficiaryAddress
	if params.BeneficiaryAddress != nil {
		address = *params.BeneficiaryAddress
	}

	status := models.StatusPending
	if params.CourierId != "" {
		status = models.StatusInTransit
	}
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, queryApproveRemittance,
		string(status), amountSent.String(), amountDelivery.String(),
		feeTotal.String(), totalCharged.String(),
		address, params.CourierId, now, params.RemittanceId)
	if err != nil {
		return nil, fmt.Errorf("failed to approve remittance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Request approved",
		zap.String("id", params.RemittanceId),
		zap.String("code", rem.Code),
		zap.String("status", string(status)),
		zap.String("approved_by", params.ApprovedBy))
	return s.GetRemittanceById(ctx, params.RemittanceId)
}

// RejectRequest cancels a public request and records the reason in notes.
func (s *Service) RejectRequest(ctx context.Context, id, reason string) (*models.Remittance, error) {
	return s.transition(ctx, id, models.StatusCancelled,
		func(rem *models.Remittance) error {
			if !rem.IsRequest || rem.Status != models.StatusRequested {
				return fmt.Errorf("%w: cannot reject %s remittance", store.ErrInvalidTransition, rem.Status)
			}
			return nil
		},
		func(ctx context.Context, tx *sql.Tx, rem *models.Remittance) error {
			_, err := tx.ExecContext(ctx, queryCancelRemittance, appendNote(rem.Notes, "Rechazada: "+reason), id)
			return err
		})
}

// AssignCourier moves a pending remittance to en_proceso under the courier.
func (s *Service) AssignCourier(ctx context.Context, id, courierId string) (*models.Remittance, error) {
	if courierId == "" {
		return nil, fmt.Errorf("%w: courier id is required", store.ErrValidation)
	}
	return s.transition(ctx, id, models.StatusInTransit,
		func(rem *models.Remittance) error {
			if rem.Status != models.StatusPending {
				return fmt.Errorf("%w: cannot assign courier in %s", store.ErrInvalidTransition, rem.Status)
			}
			return nil
		},
		func(ctx context.Context, tx *sql.Tx, rem *models.Remittance) error {
			_, err := tx.ExecContext(ctx, queryAssignRemittanceCourier, courierId, id)
			return err
		})
}

// MarkInTransit flags a pending remittance as en route. The courier must
// already be assigned.
func (s *Service) MarkInTransit(ctx context.Context, id string) (*models.Remittance, error) {
	return s.transition(ctx, id, models.StatusInTransit,
		func(rem *models.Remittance) error {
			if rem.Status != models.StatusPending {
				return fmt.Errorf("%w: cannot mark in transit from %s", store.ErrInvalidTransition, rem.Status)
			}
			if rem.CourierId == "" {
				return fmt.Errorf("%w: no courier assigned", store.ErrValidation)
			}
			return nil
		},
		func(ctx context.Context, tx *sql.Tx, rem *models.Remittance) error {
			_, err := tx.ExecContext(ctx, queryUpdateRemittanceStatus, string(models.StatusInTransit), id)
			return err
		})
}

// MarkDelivered completes a remittance. The status flip, delivered_at
// timestamp and the courier's delivery-currency debit commit atomically.
// The debit may push the courier negative; the courier settles later.
// Without an assigned courier there is no cash to account for and the
// status flips alone.
func (s *Service) MarkDelivered(ctx context.Context, params store.MarkDeliveredParams) (*models.Remittance, *models.CashMovement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := scanRemittance(tx.QueryRowContext(ctx, queryGetRemittanceById, params.RemittanceId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: remittance %s", store.ErrNotFound, params.RemittanceId)
		}
		return nil, nil, fmt.Errorf("unable to query remittance: %w", err)
	}

	if !rem.Status.CanTransition(models.StatusDelivered) {
		return nil, nil, fmt.Errorf("%w: cannot deliver from %s", store.ErrInvalidTransition, rem.Status)
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, queryMarkRemittanceDelivered, now, params.Photo, params.RemittanceId)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to mark remittance delivered: %w", err)
	}

	var movement *models.CashMovement
	if rem.CourierId != "" {
		movement, err = s.ledger.applyMovement(ctx, tx, movementParams{
			CourierId:     rem.CourierId,
			Currency:      rem.DeliveryCurrency,
			Kind:          models.MovementDelivery,
			Amount:        rem.AmountDelivery.Neg(),
			RemittanceId:  rem.Id,
			Notes:         "Entrega " + rem.Code,
			RecordedBy:    params.RecordedBy,
			AllowNegative: true,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	fields := []zap.Field{
		zap.String("id", rem.Id),
		zap.String("code", rem.Code),
		zap.String("courier_id", rem.CourierId),
		zap.String("amount_delivery", rem.AmountDelivery.String()),
	}
	if movement != nil {
		fields = append(fields, zap.String("courier_balance", movement.BalanceAfter.String()))
	}
	zap.L().Info("Remittance delivered", fields...)

	delivered, err := s.GetRemittanceById(ctx, params.RemittanceId)
	if err != nil {
		return nil, nil, err
	}
	return delivered, movement, nil
}

// CancelRemittance cancels any non-terminal remittance.
func (s *Service) CancelRemittance(ctx context.Context, id, reason string) (*models.Remittance, error) {
	return s.transition(ctx, id, models.StatusCancelled,
		func(rem *models.Remittance) error {
			if !rem.Status.CanTransition(models.StatusCancelled) {
				return fmt.Errorf("%w: cannot cancel from %s", store.ErrInvalidTransition, rem.Status)
			}
			return nil
		},
		func(ctx context.Context, tx *sql.Tx, rem *models.Remittance) error {
			notes := rem.Notes
			if reason != "" {
				notes = appendNote(notes, "Cancelada: "+reason)
			}
			_, err := tx.ExecContext(ctx, queryCancelRemittance, notes, id)
			return err
		})
}

// SetInvoiced flips the invoiced flag, independent of lifecycle status.
func (s *Service) SetInvoiced(ctx context.Context, id string, invoiced bool) error {
	var invoicedAt any
	if invoiced {
		invoicedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, querySetRemittanceInvoiced, invoiced, invoicedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update invoiced flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: remittance %s", store.ErrNotFound, id)
	}
	return nil
}

// PurgeRemittance hard-deletes a remittance together with its journal
// entries and ledger movements.
func (s *Service) PurgeRemittance(ctx context.Context, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := scanRemittance(tx.QueryRowContext(ctx, queryGetRemittanceByCode, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: remittance %s", store.ErrNotFound, code)
		}
		return fmt.Errorf("unable to query remittance: %w", err)
	}

	if _, err := tx.ExecContext(ctx, queryPurgeRemittanceJournal, rem.Id); err != nil {
		return fmt.Errorf("failed to purge journal entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryPurgeRemittanceMovements, rem.Id); err != nil {
		return fmt.Errorf("failed to purge cash movements: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryPurgeRemittance, rem.Id); err != nil {
		return fmt.Errorf("failed to purge remittance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Warn("Remittance purged", zap.String("code", code), zap.String("id", rem.Id))
	return nil
}

// transition loads the row in a transaction, validates, applies, commits.
func (s *Service) transition(ctx context.Context, id string, target models.Status,
	validate func(*models.Remittance) error,
	apply func(context.Context, *sql.Tx, *models.Remittance) error) (*models.Remittance, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := scanRemittance(tx.QueryRowContext(ctx, queryGetRemittanceById, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: remittance %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("unable to query remittance: %w", err)
	}

	if err := validate(rem); err != nil {
		return nil, err
	}
	if err := apply(ctx, tx, rem); err != nil {
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Remittance transitioned",
		zap.String("id", id),
		zap.String("from", string(rem.Status)),
		zap.String("to", string(target)))
	return s.GetRemittanceById(ctx, id)
}

func (s *Service) queryRemittances(ctx context.Context, query string, args ...any) ([]models.Remittance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query remittances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var remittances []models.Remittance
	for rows.Next() {
		rem, err := scanRemittance(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan remittance row: %w", err)
		}
		remittances = append(remittances, *rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remittance rows: %w", err)
	}
	return remittances, nil
}

func scanRemittance(row scanner) (*models.Remittance, error) {
	var rem models.Remittance
	var deliveryType, status string
	var amountSent, rate, amountDelivery, feePercent, feeFixed, feeTotal, totalCharged, platformFee string
	var invoicedAt, deliveredAt, approvedAt sql.NullTime

	err := row.Scan(&rem.Id, &rem.Code, &rem.SenderName, &rem.SenderPhone,
		&rem.BeneficiaryName, &rem.BeneficiaryPhone, &rem.BeneficiaryAddress,
		&deliveryType, &amountSent, &rate, &amountDelivery, &rem.DeliveryCurrency,
		&feePercent, &feeFixed, &feeTotal, &totalCharged, &platformFee,
		&status, &rem.CourierId, &rem.CreatedBy, &rem.ResellerId, &rem.IsRequest,
		&rem.Notes, &rem.DeliveryPhoto, &rem.Invoiced,
		&invoicedAt, &rem.CreatedAt, &deliveredAt, &approvedAt)
	if err != nil {
		return nil, err
	}

	rem.DeliveryType = models.DeliveryType(deliveryType)
	rem.Status = models.Status(status)

	fields := []struct {
		dst *decimal.Decimal
		src string
		col string
	}{
		{&rem.AmountSent, amountSent, "amount_sent"},
		{&rem.Rate, rate, "rate"},
		{&rem.AmountDelivery, amountDelivery, "amount_delivery"},
		{&rem.FeePercent, feePercent, "fee_percent"},
		{&rem.FeeFixed, feeFixed, "fee_fixed"},
		{&rem.FeeTotal, feeTotal, "fee_total"},
		{&rem.TotalCharged, totalCharged, "total_charged"},
		{&rem.PlatformFee, platformFee, "platform_fee"},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("failed to parse %s %q: %w", f.col, f.src, err)
		}
	}

	if invoicedAt.Valid {
		rem.InvoicedAt = &invoicedAt.Time
	}
	if deliveredAt.Valid {
		rem.DeliveredAt = &deliveredAt.Time
	}
	if approvedAt.Valid {
		rem.ApprovedAt = &approvedAt.Time
	}
	return &rem, nil
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}
