// Package remesa implements the remittance lifecycle: creation paths,
// fee and rate snapshots, status transitions and post-commit notifications.
package remesa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"remesitas-go/internal/fees"
	"remesitas-go/internal/models"
	"remesitas-go/internal/notify"
	"remesitas-go/internal/rates"
	"remesitas-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrForbidden marks an operation the acting user's role does not allow.
var ErrForbidden = errors.New("operation not permitted for role")

// notifyTimeout bounds each post-commit notification attempt.
const notifyTimeout = 15 * time.Second

// Policy constants for the public request channel. The street discount is
// the margin kept on MN requests: beneficiaries receive at market − 15.
var (
	publicFeePercent = decimal.RequireFromString("5")
	streetDiscount   = decimal.RequireFromString("15")
	oneHundred       = decimal.NewFromInt(100)
)

type Service struct {
	store    store.Store
	fees     *fees.Calculator
	rates    *rates.Provider
	notifier notify.Notifier
}

func NewService(st store.Store, calculator *fees.Calculator, provider *rates.Provider, notifier notify.Notifier) *Service {
	return &Service{
		store:    st,
		fees:     calculator,
		rates:    provider,
		notifier: notifier,
	}
}

// NewCode generates a public tracking code like REM-3FA2B91C.
func NewCode() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "REM-" + strings.ToUpper(hex[:8])
}

const maxCodeAttempts = 3

// createWithRetry persists a remittance, regenerating the tracking code
// when it collides with an existing one.
func (s *Service) createWithRetry(ctx context.Context, params store.CreateRemittanceParams) (*models.Remittance, error) {
	var lastErr error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		created, err := s.store.CreateRemittance(ctx, params)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, store.ErrDuplicateCode) {
			return nil, err
		}
		lastErr = err
		zap.L().Warn("Tracking code collision, regenerating",
			zap.String("code", params.Remittance.Code),
			zap.Int("attempt", attempt+1))
		params.Remittance.Code = NewCode()
	}
	return nil, lastErr
}

// PartyDetails are the sender and beneficiary fields shared by every
// creation path.
type PartyDetails struct {
	SenderName         string
	SenderPhone        string
	BeneficiaryName    string
	BeneficiaryPhone   string
	BeneficiaryAddress string
}

func (p PartyDetails) validate(requireSenderPhone bool) error {
	if p.SenderName == "" {
		return fmt.Errorf("%w: sender name is required", store.ErrValidation)
	}
	if requireSenderPhone && p.SenderPhone == "" {
		return fmt.Errorf("%w: sender phone is required", store.ErrValidation)
	}
	if p.BeneficiaryName == "" {
		return fmt.Errorf("%w: beneficiary name is required", store.ErrValidation)
	}
	return nil
}

// Quote is a priced remittance before anything is persisted.
type Quote struct {
	Rate           decimal.Decimal
	AmountDelivery decimal.Decimal
	FeePercent     decimal.Decimal
	FeeTotal       decimal.Decimal
	TotalCharged   decimal.Decimal
}

// QuoteFor prices an amount under either the public policy or the tiered
// admin policy, without persisting anything.
func (s *Service) QuoteFor(ctx context.Context, amount decimal.Decimal, deliveryType models.DeliveryType, public bool) (Quote, error) {
	if !amount.IsPositive() {
		return Quote{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if !deliveryType.Valid() {
		return Quote{}, fmt.Errorf("%w: unknown delivery type %q", store.ErrValidation, deliveryType)
	}

	if public {
		if deliveryType == models.DeliveryUSD {
			fee := amount.Mul(publicFeePercent).Div(oneHundred)
			return Quote{
				Rate:           decimal.NewFromInt(1),
				AmountDelivery: amount.Sub(fee),
				FeePercent:     publicFeePercent,
				FeeTotal:       fee,
				TotalCharged:   amount.Add(fee),
			}, nil
		}
		market, err := s.rates.Current(ctx, models.CurrencyUSD)
		if err != nil {
			return Quote{}, err
		}
		rate := market.Sub(streetDiscount)
		if !rate.IsPositive() {
			return Quote{}, fmt.Errorf("%w: market rate too low for street discount", store.ErrValidation)
		}
		return Quote{
			Rate:           rate,
			AmountDelivery: amount.Mul(rate),
			TotalCharged:   amount,
		}, nil
	}

	feeQuote, err := s.fees.Compute(ctx, amount)
	if err != nil {
		return Quote{}, err
	}
	rate := decimal.NewFromInt(1)
	amountDelivery := amount
	if deliveryType == models.DeliveryLocal {
		rate, err = s.rates.Current(ctx, models.CurrencyUSD)
		if err != nil {
			return Quote{}, err
		}
		amountDelivery = amount.Mul(rate)
	}
	return Quote{
		Rate:           rate,
		AmountDelivery: amountDelivery,
		FeePercent:     feeQuote.Percent,
		FeeTotal:       feeQuote.Total,
		TotalCharged:   amount.Add(feeQuote.Total),
	}, nil
}

// AdminCreateParams creates a confirmed remittance on behalf of a walk-in
// or phone customer.
type AdminCreateParams struct {
	PartyDetails
	DeliveryType models.DeliveryType
	Amount       decimal.Decimal // USD
	RateOverride *decimal.Decimal
	CourierId    string
	Notes        string
	ActorId      string
}

// CreateByAdmin snapshots the rate and tiered fee, records the fee as
// journal income, and optionally assigns a courier straight away.
func (s *Service) CreateByAdmin(ctx context.Context, params AdminCreateParams) (*models.Remittance, error) {
	actor, err := s.requireRole(ctx, params.ActorId, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := params.validate(false); err != nil {
		return nil, err
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if !params.DeliveryType.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery type %q", store.ErrValidation, params.DeliveryType)
	}

	quote, err := s.fees.Compute(ctx, params.Amount)
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromInt(1)
	amountDelivery := params.Amount
	if params.DeliveryType == models.DeliveryLocal {
		if params.RateOverride != nil {
			if !params.RateOverride.IsPositive() {
				return nil, fmt.Errorf("%w: rate must be positive", store.ErrValidation)
			}
			rate = *params.RateOverride
		} else {
			rate, err = s.rates.Current(ctx, models.CurrencyUSD)
			if err != nil {
				return nil, err
			}
		}
		amountDelivery = params.Amount.Mul(rate)
	}

	status := models.StatusPending
	if params.CourierId != "" {
		status = models.StatusInTransit
	}

	rem := models.Remittance{
		Code:               NewCode(),
		SenderName:         params.SenderName,
		SenderPhone:        params.SenderPhone,
		BeneficiaryName:    params.BeneficiaryName,
		BeneficiaryPhone:   params.BeneficiaryPhone,
		BeneficiaryAddress: params.BeneficiaryAddress,
		DeliveryType:       params.DeliveryType,
		AmountSent:         params.Amount,
		Rate:               rate,
		AmountDelivery:     amountDelivery,
		DeliveryCurrency:   params.DeliveryType.Currency(),
		FeePercent:         quote.Percent,
		FeeFixed:           quote.Fixed,
		FeeTotal:           quote.Total,
		TotalCharged:       params.Amount.Add(quote.Total),
		PlatformFee:        decimal.Zero,
		Status:             status,
		CourierId:          params.CourierId,
		CreatedBy:          actor.Id,
		Notes:              params.Notes,
	}

	created, err := s.createWithRetry(ctx, store.CreateRemittanceParams{
		Remittance:      rem,
		RecordFeeIncome: true,
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(created.SenderPhone, notify.RemittanceCreatedMessage(created))
	if created.CourierId != "" {
		s.notifyCourier(ctx, created)
	}
	return created, nil
}

// RequestParams is a public (unauthenticated) remittance request.
type RequestParams struct {
	PartyDetails
	DeliveryType models.DeliveryType
	Amount       decimal.Decimal // USD
	Notes        string
}

// CreateRequest records a solicitud with the public fee policy: USD pays
// a flat 5% and the beneficiary receives amount minus fee; MN delivers at
// market minus the street discount with the margin kept in the rate.
func (s *Service) CreateRequest(ctx context.Context, params RequestParams) (*models.Remittance, error) {
	if err := params.validate(true); err != nil {
		return nil, err
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if !params.DeliveryType.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery type %q", store.ErrValidation, params.DeliveryType)
	}

	rem := models.Remittance{
		Code:               NewCode(),
		SenderName:         params.SenderName,
		SenderPhone:        params.SenderPhone,
		BeneficiaryName:    params.BeneficiaryName,
		BeneficiaryPhone:   params.BeneficiaryPhone,
		BeneficiaryAddress: params.BeneficiaryAddress,
		DeliveryType:       params.DeliveryType,
		AmountSent:         params.Amount,
		DeliveryCurrency:   params.DeliveryType.Currency(),
		PlatformFee:        decimal.Zero,
		Status:             models.StatusRequested,
		IsRequest:          true,
		Notes:              params.Notes,
	}

	if params.DeliveryType == models.DeliveryUSD {
		fee := params.Amount.Mul(publicFeePercent).Div(oneHundred)
		rem.Rate = decimal.NewFromInt(1)
		rem.AmountDelivery = params.Amount.Sub(fee)
		rem.FeePercent = publicFeePercent
		rem.FeeFixed = decimal.Zero
		rem.FeeTotal = fee
		rem.TotalCharged = params.Amount.Add(fee)
	} else {
		market, err := s.rates.Current(ctx, models.CurrencyUSD)
		if err != nil {
			return nil, err
		}
		rate := market.Sub(streetDiscount)
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: market rate too low for street discount", store.ErrValidation)
		}
		// The margin lives in the discounted rate; the fee fields record
		// the discount per USD and the fee total stays zero so
		// total_charged equals amount_sent.
		rem.Rate = rate
		rem.AmountDelivery = params.Amount.Mul(rate)
		rem.FeePercent = decimal.Zero
		rem.FeeFixed = streetDiscount
		rem.FeeTotal = decimal.Zero
		rem.TotalCharged = params.Amount
	}

	created, err := s.createWithRetry(ctx, store.CreateRemittanceParams{Remittance: rem})
	if err != nil {
		return nil, err
	}

	s.notifyAdmins(ctx, notify.RequestReceivedMessage(created))
	return created, nil
}

// ResellerCreateParams creates a confirmed remittance on a reseller's
// account.
type ResellerCreateParams struct {
	PartyDetails
	DeliveryType models.DeliveryType
	Amount       decimal.Decimal // USD
	Notes        string
	ActorId      string
}

// CreateByReseller uses the live market rate with no discount and accrues
// the platform commission (plus the principal when the reseller uses our
// logistics) onto the reseller's owed balance in the same transaction.
func (s *Service) CreateByReseller(ctx context.Context, params ResellerCreateParams) (*models.Remittance, error) {
	reseller, err := s.requireRole(ctx, params.ActorId, models.RoleReseller)
	if err != nil {
		return nil, err
	}
	if err := params.validate(false); err != nil {
		return nil, err
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if !params.DeliveryType.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery type %q", store.ErrValidation, params.DeliveryType)
	}

	rate := decimal.NewFromInt(1)
	amountDelivery := params.Amount
	if params.DeliveryType == models.DeliveryLocal {
		rate, err = s.rates.Current(ctx, models.CurrencyUSD)
		if err != nil {
			return nil, err
		}
		amountDelivery = params.Amount.Mul(rate)
	}

	commission := params.Amount.Mul(reseller.CommissionPercent).Div(oneHundred)
	accrue := commission
	if reseller.UsesLogistics {
		accrue = accrue.Add(params.Amount)
	}

	rem := models.Remittance{
		Code:               NewCode(),
		SenderName:         params.SenderName,
		SenderPhone:        params.SenderPhone,
		BeneficiaryName:    params.BeneficiaryName,
		BeneficiaryPhone:   params.BeneficiaryPhone,
		BeneficiaryAddress: params.BeneficiaryAddress,
		DeliveryType:       params.DeliveryType,
		AmountSent:         params.Amount,
		Rate:               rate,
		AmountDelivery:     amountDelivery,
		DeliveryCurrency:   params.DeliveryType.Currency(),
		FeePercent:         decimal.Zero,
		FeeFixed:           decimal.Zero,
		FeeTotal:           decimal.Zero,
		TotalCharged:       params.Amount,
		PlatformFee:        commission,
		Status:             models.StatusPending,
		CreatedBy:          reseller.Id,
		ResellerId:         reseller.Id,
		Notes:              params.Notes,
	}

	return s.createWithRetry(ctx, store.CreateRemittanceParams{
		Remittance: rem,
		AccrueOwed: accrue,
	})
}

// Approve confirms a public request, optionally renegotiating amounts or
// assigning a courier directly.
func (s *Service) Approve(ctx context.Context, params store.ApproveRequestParams) (*models.Remittance, error) {
	actor, err := s.requireRole(ctx, params.ApprovedBy, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	params.ApprovedBy = actor.Id

	approved, err := s.store.ApproveRequest(ctx, params)
	if err != nil {
		return nil, err
	}

	s.dispatch(approved.SenderPhone, notify.RequestApprovedMessage(approved))
	if approved.CourierId != "" {
		s.notifyCourier(ctx, approved)
	}
	return approved, nil
}

// Reject cancels a public request with a reason.
func (s *Service) Reject(ctx context.Context, actorId, remittanceId, reason string) (*models.Remittance, error) {
	if _, err := s.requireRole(ctx, actorId, models.RoleAdmin); err != nil {
		return nil, err
	}

	rejected, err := s.store.RejectRequest(ctx, remittanceId, reason)
	if err != nil {
		return nil, err
	}

	s.dispatch(rejected.SenderPhone, notify.RequestRejectedMessage(rejected, reason))
	return rejected, nil
}

// AssignCourier puts a pending remittance in a courier's hands.
func (s *Service) AssignCourier(ctx context.Context, actorId, remittanceId, courierId string) (*models.Remittance, error) {
	if _, err := s.requireRole(ctx, actorId, models.RoleAdmin); err != nil {
		return nil, err
	}

	courier, err := s.store.GetUserById(ctx, courierId)
	if err != nil {
		return nil, err
	}
	if !courier.Role.IsCourier() {
		return nil, fmt.Errorf("%w: user %s is not a courier", store.ErrValidation, courierId)
	}

	assigned, err := s.store.AssignCourier(ctx, remittanceId, courierId)
	if err != nil {
		return nil, err
	}

	s.dispatch(courier.Phone, notify.CourierAssignedMessage(assigned))
	return assigned, nil
}

// MarkInTransit is the assigned courier reporting "en camino".
func (s *Service) MarkInTransit(ctx context.Context, actorId, remittanceId string) (*models.Remittance, error) {
	actor, err := s.store.GetUserById(ctx, actorId)
	if err != nil {
		return nil, err
	}

	rem, err := s.store.GetRemittanceById(ctx, remittanceId)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsAdmin() && rem.CourierId != actor.Id {
		return nil, fmt.Errorf("%w: remittance belongs to another courier", ErrForbidden)
	}

	inTransit, err := s.store.MarkInTransit(ctx, remittanceId)
	if err != nil {
		return nil, err
	}

	s.dispatch(inTransit.BeneficiaryPhone, notify.InTransitMessage(inTransit))
	return inTransit, nil
}

// MarkDelivered completes the remittance and debits the courier's cash in
// one transaction. Notifications go out only after the commit.
func (s *Service) MarkDelivered(ctx context.Context, params store.MarkDeliveredParams) (*models.Remittance, *models.CashMovement, error) {
	actor, err := s.store.GetUserById(ctx, params.RecordedBy)
	if err != nil {
		return nil, nil, err
	}

	rem, err := s.store.GetRemittanceById(ctx, params.RemittanceId)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Role.IsAdmin() && rem.CourierId != actor.Id {
		return nil, nil, fmt.Errorf("%w: remittance belongs to another courier", ErrForbidden)
	}

	delivered, movement, err := s.store.MarkDelivered(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	s.dispatch(delivered.SenderPhone, notify.DeliveredMessage(delivered))
	s.notifyAdmins(ctx, notify.DeliveredMessage(delivered))
	return delivered, movement, nil
}

// Cancel voids any non-terminal remittance.
func (s *Service) Cancel(ctx context.Context, actorId, remittanceId, reason string) (*models.Remittance, error) {
	if _, err := s.requireRole(ctx, actorId, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.CancelRemittance(ctx, remittanceId, reason)
}

// Update edits contact fields; terminal remittances accept notes only.
func (s *Service) Update(ctx context.Context, actorId, remittanceId string, edits store.RemittanceEdits) error {
	if _, err := s.requireRole(ctx, actorId, models.RoleAdmin); err != nil {
		return err
	}
	return s.store.UpdateRemittanceFields(ctx, remittanceId, edits)
}

// SetInvoiced flips the invoiced flag.
func (s *Service) SetInvoiced(ctx context.Context, actorId, remittanceId string, invoiced bool) error {
	if _, err := s.requireRole(ctx, actorId, models.RoleAdmin); err != nil {
		return err
	}
	return s.store.SetInvoiced(ctx, remittanceId, invoiced)
}

// Purge hard-deletes remittances by code, including their journal entries
// and ledger movements.
func (s *Service) Purge(ctx context.Context, actorId string, codes []string) error {
	if _, err := s.requireRole(ctx, actorId, models.RoleAdmin); err != nil {
		return err
	}
	for _, code := range codes {
		if err := s.store.PurgeRemittance(ctx, code); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) requireRole(ctx context.Context, actorId string, role models.Role) (*models.User, error) {
	if actorId == "" {
		return nil, fmt.Errorf("%w: missing actor", ErrForbidden)
	}
	actor, err := s.store.GetUserById(ctx, actorId)
	if err != nil {
		return nil, err
	}
	if !actor.Active {
		return nil, fmt.Errorf("%w: user is inactive", ErrForbidden)
	}
	if actor.Role != role {
		return nil, fmt.Errorf("%w: requires %s role", ErrForbidden, role)
	}
	return actor, nil
}

// dispatch fires one post-commit notification. Failures are logged, never
// returned; the business operation has already committed.
func (s *Service) dispatch(phone, message string) {
	if s.notifier == nil || phone == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		result := s.notifier.Notify(ctx, phone, message)
		if result.Err != nil {
			zap.L().Warn("Notification failed",
				zap.String("phone", phone),
				zap.String("channel", result.Channel),
				zap.Error(result.Err))
			return
		}
		if !result.Sent && result.ManualLink != "" {
			zap.L().Info("Notification requires manual send",
				zap.String("phone", phone),
				zap.String("link", result.ManualLink))
		}
	}()
}

// notifyCourier looks up the assigned courier's phone and dispatches.
func (s *Service) notifyCourier(ctx context.Context, rem *models.Remittance) {
	courier, err := s.store.GetUserById(ctx, rem.CourierId)
	if err != nil {
		zap.L().Warn("Cannot notify unknown courier",
			zap.String("courier_id", rem.CourierId), zap.Error(err))
		return
	}
	s.dispatch(courier.Phone, notify.CourierAssignedMessage(rem))
}

// notifyAdmins dispatches to every active admin with a phone on file.
func (s *Service) notifyAdmins(ctx context.Context, message string) {
	admins, err := s.store.ListUsers(ctx, models.RoleAdmin)
	if err != nil {
		zap.L().Warn("Cannot list admins for notification", zap.Error(err))
		return
	}
	for _, admin := range admins {
		s.dispatch(admin.Phone, message)
	}
}
