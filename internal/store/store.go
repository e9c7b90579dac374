package store

import (
	"context"
	"errors"
	"time"

	"remesitas-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across the persistence layer and its callers.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("record not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrDuplicateCode          = errors.New("duplicate remittance code")
	ErrDuplicateUsername      = errors.New("duplicate username")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// CreateUserParams contains the fields for creating a user.
type CreateUserParams struct {
	Username          string
	Password          string
	Name              string
	Phone             string
	Role              models.Role
	CommissionPercent decimal.Decimal // resellers only
	UsesLogistics     bool            // resellers only
}

// CreateRemittanceParams carries a fully computed remittance plus the side
// records that must commit atomically with it.
type CreateRemittanceParams struct {
	Remittance models.Remittance

	// RecordFeeIncome appends an income journal entry for the fee in the
	// same transaction (admin creation path).
	RecordFeeIncome bool

	// AccrueOwed increases the creating reseller's balance owed in the
	// same transaction (reseller creation path). Zero means no accrual.
	AccrueOwed decimal.Decimal
}

// ApproveRequestParams carries the optional rewrites an admin may apply
// when approving a public request.
type ApproveRequestParams struct {
	RemittanceId       string
	AmountSent         *decimal.Decimal
	AmountDelivery     *decimal.Decimal
	BeneficiaryAddress *string
	CourierId          string // optional; moves straight to en_proceso
	ApprovedBy         string
}

// MarkDeliveredParams identifies the remittance being delivered and who
// recorded the delivery.
type MarkDeliveredParams struct {
	RemittanceId string
	RecordedBy   string
	Photo        string // optional delivery photo filename
}

// RemittanceEdits are the non-status fields editable outside a transition.
// Nil pointers leave the stored value untouched.
type RemittanceEdits struct {
	SenderName         *string
	SenderPhone        *string
	BeneficiaryName    *string
	BeneficiaryPhone   *string
	BeneficiaryAddress *string
	Notes              *string
}

// RemittanceFilter narrows remittance listings.
type RemittanceFilter struct {
	Status   models.Status
	Search   string // matches code, sender name, beneficiary name
	Invoiced *bool
	Limit    int
	Offset   int
}

// CashOpParams is a courier cash credit or debit.
type CashOpParams struct {
	CourierId  string
	Currency   string
	Amount     decimal.Decimal
	Notes      string
	RecordedBy string
}

// ConvertParams is a USD-to-CUP conversion of courier cash.
type ConvertParams struct {
	CourierId  string
	AmountUSD  decimal.Decimal
	Rate       decimal.Decimal
	Notes      string
	RecordedBy string
}

// ResellerPaymentParams records a payment against a reseller's owed balance.
type ResellerPaymentParams struct {
	ResellerId string
	Amount     decimal.Decimal
	Method     string
	Reference  string
	Notes      string
	RecordedBy string
}

// ResellerBalance summarizes a reseller's position.
type ResellerBalance struct {
	Owed            decimal.Decimal
	TotalPaid       decimal.Decimal
	TotalCommission decimal.Decimal
	RemittanceCount int
	TotalSent       decimal.Decimal
}

// PeriodReport aggregates remittance activity over a date range,
// excluding cancelled remittances from the monetary totals.
type PeriodReport struct {
	Count        int                   `json:"count"`
	TotalSent    decimal.Decimal       `json:"total_sent"`
	TotalFees    decimal.Decimal       `json:"total_fees"`
	TotalCharged decimal.Decimal       `json:"total_charged"`
	ByStatus     map[models.Status]int `json:"by_status"`
	ByDay        []DayTotals           `json:"by_day"`
}

// DayTotals is one day's slice of a PeriodReport.
type DayTotals struct {
	Day   string          `json:"day"` // YYYY-MM-DD
	Count int             `json:"count"`
	Sent  decimal.Decimal `json:"sent"`
	Fees  decimal.Decimal `json:"fees"`
}

// CourierStats aggregates one courier's delivery activity.
type CourierStats struct {
	CourierId       string          `json:"courier_id"`
	CourierName     string          `json:"courier_name"`
	Total           int             `json:"total"`
	Delivered       int             `json:"delivered"`
	Outstanding     int             `json:"outstanding"`
	AmountDelivered decimal.Decimal `json:"amount_delivered"`
}

// JournalTotals aggregates journal entries over a date range.
type JournalTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// DashboardStats backs the admin dashboard.
type DashboardStats struct {
	TotalRemittances int             `json:"total_remittances"`
	Pending          int             `json:"pending"`
	CreatedToday     int             `json:"created_today"`
	MonthFees        decimal.Decimal `json:"month_fees"`
	MovedToday       decimal.Decimal `json:"moved_today"`
	OpenRequests     int             `json:"open_requests"`
	Uninvoiced       int             `json:"uninvoiced"`
	UninvoicedTotal  decimal.Decimal `json:"uninvoiced_total"`
	Overdue24h       int             `json:"overdue_24h"`
}

// Store defines the persistence contract the services depend on.
// *database.Service is the SQLite implementation.
type Store interface {
	// Users
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUserById(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]models.User, error)
	SetUserActive(ctx context.Context, id string, active bool) error
	SetUserPassword(ctx context.Context, id, password string, mustChange bool) error

	// Remittances
	CreateRemittance(ctx context.Context, params CreateRemittanceParams) (*models.Remittance, error)
	GetRemittanceById(ctx context.Context, id string) (*models.Remittance, error)
	GetRemittanceByCode(ctx context.Context, code string) (*models.Remittance, error)
	ListRemittances(ctx context.Context, filter RemittanceFilter) ([]models.Remittance, error)
	ListCourierRemittances(ctx context.Context, courierId string, statuses []models.Status, limit int) ([]models.Remittance, error)
	ListResellerRemittances(ctx context.Context, resellerId string, status models.Status) ([]models.Remittance, error)
	ListRemittancesBySenderPhone(ctx context.Context, phone string, limit int) ([]models.Remittance, error)
	ListOpenRequests(ctx context.Context) ([]models.Remittance, error)
	UpdateRemittanceFields(ctx context.Context, id string, edits RemittanceEdits) error
	ApproveRequest(ctx context.Context, params ApproveRequestParams) (*models.Remittance, error)
	RejectRequest(ctx context.Context, id, reason string) (*models.Remittance, error)
	AssignCourier(ctx context.Context, id, courierId string) (*models.Remittance, error)
	MarkInTransit(ctx context.Context, id string) (*models.Remittance, error)
	MarkDelivered(ctx context.Context, params MarkDeliveredParams) (*models.Remittance, *models.CashMovement, error)
	CancelRemittance(ctx context.Context, id, reason string) (*models.Remittance, error)
	SetInvoiced(ctx context.Context, id string, invoiced bool) error
	PurgeRemittance(ctx context.Context, code string) error

	// Courier cash ledger
	AssignCash(ctx context.Context, params CashOpParams) (*models.CashMovement, error)
	WithdrawCash(ctx context.Context, params CashOpParams) (*models.CashMovement, error)
	PickupCash(ctx context.Context, params CashOpParams) (*models.CashMovement, error)
	ConvertCash(ctx context.Context, params ConvertParams) ([]models.CashMovement, error)
	CashBalance(ctx context.Context, courierId, currency string) (decimal.Decimal, error)
	CashBalances(ctx context.Context, courierId string) ([]models.CashBalance, error)
	CashMovements(ctx context.Context, courierId string, limit, offset int) ([]models.CashMovement, error)
	CashTotals(ctx context.Context) (map[string]decimal.Decimal, error)
	ReconcileCashBalance(ctx context.Context, courierId, currency string) error

	// Reseller ledger
	RecordResellerPayment(ctx context.Context, params ResellerPaymentParams) (*models.ResellerPayment, error)
	ListResellerPayments(ctx context.Context, resellerId string) ([]models.ResellerPayment, error)
	GetResellerBalance(ctx context.Context, resellerId string) (*ResellerBalance, error)

	// Accounting journal
	AddJournalEntry(ctx context.Context, entry models.JournalEntry) (*models.JournalEntry, error)
	ListJournal(ctx context.Context, from, to time.Time) ([]models.JournalEntry, error)
	GetJournalTotals(ctx context.Context, from, to time.Time) (*JournalTotals, error)

	// Exchange rates
	CurrentRate(ctx context.Context, source string) (decimal.Decimal, error)
	SetRate(ctx context.Context, source string, rate decimal.Decimal) (*models.ExchangeRate, error)
	ListRates(ctx context.Context, limit int) ([]models.ExchangeRate, error)

	// Fee rules
	ActiveFeeRules(ctx context.Context) ([]models.FeeRule, error)
	ListFeeRules(ctx context.Context) ([]models.FeeRule, error)
	CreateFeeRule(ctx context.Context, rule models.FeeRule) (*models.FeeRule, error)
	UpdateFeeRule(ctx context.Context, rule models.FeeRule) error
	DeleteFeeRule(ctx context.Context, id string) error

	// Reports
	GetPeriodReport(ctx context.Context, from, to time.Time) (*PeriodReport, error)
	GetCourierStats(ctx context.Context, from, to time.Time) ([]CourierStats, error)
	GetDashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error)

	Close()
}
