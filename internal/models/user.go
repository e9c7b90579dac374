package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the closed set of user roles. Role strings are validated at the
// edges so an invalid role can never reach business logic.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCourier  Role = "repartidor"
	RoleReseller Role = "revendedor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCourier, RoleReseller:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool    { return r == RoleAdmin }
func (r Role) IsCourier() bool  { return r == RoleCourier }
func (r Role) IsReseller() bool { return r == RoleReseller }

// User represents a platform user. Courier cash balances live in the
// cash_balances table, not on the user row; the ledger is authoritative.
type User struct {
	Id                 string    `db:"id"`
	Username           string    `db:"username"`
	PasswordHash       string    `db:"password_hash"`
	Name               string    `db:"name"`
	Phone              string    `db:"phone"`
	Role               Role      `db:"role"`
	Active             bool      `db:"active"`
	MustChangePassword bool      `db:"must_change_password"`
	CreatedAt          time.Time `db:"created_at"`

	// Reseller-only fields.
	CommissionPercent decimal.Decimal `db:"commission_percent"`
	BalanceOwed       decimal.Decimal `db:"balance_owed"`
	UsesLogistics     bool            `db:"uses_logistics"`
}
