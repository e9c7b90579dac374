package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is a remittance lifecycle state. The wire values are the original
// Spanish operational terms and are stored as-is.
type Status string

const (
	StatusRequested Status = "solicitud"  // public request awaiting approval
	StatusPending   Status = "pendiente"  // confirmed, awaiting courier
	StatusInTransit Status = "en_proceso" // courier assigned / en route
	StatusDelivered Status = "entregada"  // terminal
	StatusCancelled Status = "cancelada"  // terminal
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusPending, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether the state machine allows moving from s to
// next. Edits that do not change status are handled separately.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusPending:
		return s == StatusRequested
	case StatusInTransit:
		return s == StatusPending
	case StatusDelivered:
		return s == StatusPending || s == StatusInTransit
	case StatusCancelled:
		return true // any non-terminal state may be cancelled
	}
	return false
}

// DeliveryType selects the currency mode of a remittance.
type DeliveryType string

const (
	DeliveryLocal DeliveryType = "MN"  // delivered in CUP at an exchange rate
	DeliveryUSD   DeliveryType = "USD" // delivered in USD cash
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryLocal || d == DeliveryUSD
}

// Currency returns the currency the beneficiary receives.
func (d DeliveryType) Currency() string {
	if d == DeliveryUSD {
		return CurrencyUSD
	}
	return CurrencyCUP
}

// Remittance is a single money-transfer order. Monetary fields and the
// exchange rate are snapshots taken at creation and never recomputed.
type Remittance struct {
	Id     string `db:"id"`
	Code   string `db:"code"`

	SenderName         string `db:"sender_name"`
	SenderPhone        string `db:"sender_phone"`
	BeneficiaryName    string `db:"beneficiary_name"`
	BeneficiaryPhone   string `db:"beneficiary_phone"`
	BeneficiaryAddress string `db:"beneficiary_address"`

	DeliveryType     DeliveryType    `db:"delivery_type"`
	AmountSent       decimal.Decimal `db:"amount_sent"` // USD
	Rate             decimal.Decimal `db:"rate"`
	AmountDelivery   decimal.Decimal `db:"amount_delivery"`
	DeliveryCurrency string          `db:"delivery_currency"`

	FeePercent   decimal.Decimal `db:"fee_percent"`
	FeeFixed     decimal.Decimal `db:"fee_fixed"`
	FeeTotal     decimal.Decimal `db:"fee_total"`
	TotalCharged decimal.Decimal `db:"total_charged"` // amount_sent + fee_total
	PlatformFee  decimal.Decimal `db:"platform_fee"`  // reseller path only

	Status     Status `db:"status"`
	CourierId  string `db:"courier_id"`  // empty when unassigned
	CreatedBy  string `db:"created_by"`
	ResellerId string `db:"reseller_id"` // empty unless reseller-created

	IsRequest     bool   `db:"is_request"`
	Notes         string `db:"notes"`
	DeliveryPhoto string `db:"delivery_photo"`

	Invoiced    bool       `db:"invoiced"`
	InvoicedAt  *time.Time `db:"invoiced_at"`
	CreatedAt   time.Time  `db:"created_at"`
	DeliveredAt *time.Time `db:"delivered_at"`
	ApprovedAt  *time.Time `db:"approved_at"`
}
