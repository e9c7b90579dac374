package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cash currencies handled by the courier ledger.
const (
	CurrencyUSD = "USD"
	CurrencyCUP = "CUP"
)

// ValidCurrency reports whether c is a ledger currency.
func ValidCurrency(c string) bool {
	return c == CurrencyUSD || c == CurrencyCUP
}

// MovementKind classifies a cash movement. Wire values keep the original
// operational terms.
type MovementKind string

const (
	MovementAssignment MovementKind = "asignacion" // admin hands cash to courier
	MovementWithdrawal MovementKind = "retiro"     // admin takes cash back
	MovementDelivery   MovementKind = "entrega"    // implicit debit on delivery
	MovementPickup     MovementKind = "recogida"   // courier collected cash
	MovementConversion MovementKind = "venta_usd"  // USD sold for CUP
)

// CashBalance is the current cash position of a courier in one currency
// (hot row). The movement history remains the source of truth.
type CashBalance struct {
	Id             string          `db:"id"`
	CourierId      string          `db:"courier_id"`
	Currency       string          `db:"currency"`
	Balance        decimal.Decimal `db:"balance"`
	LastMovementId string          `db:"last_movement_id"`
	Version        int64           `db:"version"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// CashMovement is an immutable courier ledger row. BalanceBefore and
// BalanceAfter are captured atomically with the balance mutation.
type CashMovement struct {
	Id            string           `db:"id"`
	CourierId     string           `db:"courier_id"`
	Kind          MovementKind     `db:"kind"`
	Currency      string           `db:"currency"`
	Amount        decimal.Decimal  `db:"amount"`
	BalanceBefore decimal.Decimal  `db:"balance_before"`
	BalanceAfter  decimal.Decimal  `db:"balance_after"`
	Rate          *decimal.Decimal `db:"rate"` // conversions only
	RemittanceId  string           `db:"remittance_id"`
	Notes         string           `db:"notes"`
	RecordedBy    string           `db:"recorded_by"`
	CreatedAt     time.Time        `db:"created_at"`
}

// ResellerPayment is an immutable record of a payment made by a reseller
// against the balance owed to the platform.
type ResellerPayment struct {
	Id         string          `db:"id"`
	ResellerId string          `db:"reseller_id"`
	Amount     decimal.Decimal `db:"amount"`
	Method     string          `db:"method"`
	Reference  string          `db:"reference"`
	Notes      string          `db:"notes"`
	RecordedBy string          `db:"recorded_by"`
	CreatedAt  time.Time       `db:"created_at"`
}

// JournalKind classifies an accounting journal entry.
type JournalKind string

const (
	JournalIncome  JournalKind = "ingreso"
	JournalExpense JournalKind = "egreso"
)

// JournalEntry is an immutable income/expense record for reporting.
type JournalEntry struct {
	Id           string          `db:"id"`
	Kind         JournalKind     `db:"kind"`
	Concept      string          `db:"concept"`
	Amount       decimal.Decimal `db:"amount"`
	RemittanceId string          `db:"remittance_id"`
	UserId       string          `db:"user_id"`
	CreatedAt    time.Time       `db:"created_at"`
}

// FeeRule is a tiered fee bracket. A nil Max means the bracket is
// unbounded above.
type FeeRule struct {
	Id      string           `db:"id"`
	Name    string           `db:"name"`
	Min     decimal.Decimal  `db:"range_min"`
	Max     *decimal.Decimal `db:"range_max"`
	Percent decimal.Decimal  `db:"percent"`
	Fixed   decimal.Decimal  `db:"fixed_amount"`
	Active  bool             `db:"active"`
}

// Matches reports whether amount falls inside the rule's range.
func (r FeeRule) Matches(amount decimal.Decimal) bool {
	if amount.LessThan(r.Min) {
		return false
	}
	return r.Max == nil || amount.LessThanOrEqual(*r.Max)
}

// ExchangeRate is one versioned rate row. At most one row per source
// currency is active at a time.
type ExchangeRate struct {
	Id        string          `db:"id"`
	Source    string          `db:"source_currency"` // USD, EUR, MLC
	Dest      string          `db:"dest_currency"`   // CUP
	Rate      decimal.Decimal `db:"rate"`
	Active    bool            `db:"active"`
	UpdatedAt time.Time       `db:"updated_at"`
}
