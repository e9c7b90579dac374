package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire records returned by the HTTP API. Kept separate from the storage
// structs so the wire shape can evolve without touching persistence.

type UserRecord struct {
	Id                string          `json:"id"`
	Username          string          `json:"username"`
	Name              string          `json:"name"`
	Phone             string          `json:"phone,omitempty"`
	Role              Role            `json:"role"`
	Active            bool            `json:"active"`
	CommissionPercent decimal.Decimal `json:"commission_percent,omitempty"`
	BalanceOwed       decimal.Decimal `json:"balance_owed,omitempty"`
	UsesLogistics     bool            `json:"uses_logistics,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func NewUserRecord(u *User) UserRecord {
	return UserRecord{
		Id:                u.Id,
		Username:          u.Username,
		Name:              u.Name,
		Phone:             u.Phone,
		Role:              u.Role,
		Active:            u.Active,
		CommissionPercent: u.CommissionPercent,
		BalanceOwed:       u.BalanceOwed,
		UsesLogistics:     u.UsesLogistics,
		CreatedAt:         u.CreatedAt,
	}
}

type RemittanceRecord struct {
	Id                 string          `json:"id"`
	Code               string          `json:"code"`
	SenderName         string          `json:"sender_name"`
	SenderPhone        string          `json:"sender_phone,omitempty"`
	BeneficiaryName    string          `json:"beneficiary_name"`
	BeneficiaryPhone   string          `json:"beneficiary_phone,omitempty"`
	BeneficiaryAddress string          `json:"beneficiary_address,omitempty"`
	DeliveryType       DeliveryType    `json:"delivery_type"`
	AmountSent         decimal.Decimal `json:"amount_sent"`
	Rate               decimal.Decimal `json:"rate"`
	AmountDelivery     decimal.Decimal `json:"amount_delivery"`
	DeliveryCurrency   string          `json:"delivery_currency"`
	FeePercent         decimal.Decimal `json:"fee_percent"`
	FeeFixed           decimal.Decimal `json:"fee_fixed"`
	FeeTotal           decimal.Decimal `json:"fee_total"`
	TotalCharged       decimal.Decimal `json:"total_charged"`
	PlatformFee        decimal.Decimal `json:"platform_fee,omitempty"`
	Status             Status          `json:"status"`
	CourierId          string          `json:"courier_id,omitempty"`
	CreatedBy          string          `json:"created_by,omitempty"`
	ResellerId         string          `json:"reseller_id,omitempty"`
	IsRequest          bool            `json:"is_request"`
	Notes              string          `json:"notes,omitempty"`
	DeliveryPhoto      string          `json:"delivery_photo,omitempty"`
	Invoiced           bool            `json:"invoiced"`
	InvoicedAt         *time.Time      `json:"invoiced_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	DeliveredAt        *time.Time      `json:"delivered_at,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
}

func NewRemittanceRecord(r *Remittance) RemittanceRecord {
	return RemittanceRecord{
		Id:                 r.Id,
		Code:               r.Code,
		SenderName:         r.SenderName,
		SenderPhone:        r.SenderPhone,
		BeneficiaryName:    r.BeneficiaryName,
		BeneficiaryPhone:   r.BeneficiaryPhone,
		BeneficiaryAddress: r.BeneficiaryAddress,
		DeliveryType:       r.DeliveryType,
		AmountSent:         r.AmountSent,
		Rate:               r.Rate,
		AmountDelivery:     r.AmountDelivery,
		DeliveryCurrency:   r.DeliveryCurrency,
		FeePercent:         r.FeePercent,
		FeeFixed:           r.FeeFixed,
		FeeTotal:           r.FeeTotal,
		TotalCharged:       r.TotalCharged,
		PlatformFee:        r.PlatformFee,
		Status:             r.Status,
		CourierId:          r.CourierId,
		CreatedBy:          r.CreatedBy,
		ResellerId:         r.ResellerId,
		IsRequest:          r.IsRequest,
		Notes:              r.Notes,
		DeliveryPhoto:      r.DeliveryPhoto,
		Invoiced:           r.Invoiced,
		InvoicedAt:         r.InvoicedAt,
		CreatedAt:          r.CreatedAt,
		DeliveredAt:        r.DeliveredAt,
		ApprovedAt:         r.ApprovedAt,
	}
}

// TrackingRecord is the reduced public view for code-based tracking.
type TrackingRecord struct {
	Code             string          `json:"code"`
	Status           Status          `json:"status"`
	BeneficiaryName  string          `json:"beneficiary_name"`
	AmountDelivery   decimal.Decimal `json:"amount_delivery"`
	DeliveryCurrency string          `json:"delivery_currency"`
	CreatedAt        time.Time       `json:"created_at"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
}

func NewTrackingRecord(r *Remittance) TrackingRecord {
	return TrackingRecord{
		Code:             r.Code,
		Status:           r.Status,
		BeneficiaryName:  r.BeneficiaryName,
		AmountDelivery:   r.AmountDelivery,
		DeliveryCurrency: r.DeliveryCurrency,
		CreatedAt:        r.CreatedAt,
		DeliveredAt:      r.DeliveredAt,
	}
}

type MovementRecord struct {
	Id            string           `json:"id"`
	CourierId     string           `json:"courier_id"`
	Currency      string           `json:"currency"`
	Kind          MovementKind     `json:"kind"`
	Amount        decimal.Decimal  `json:"amount"`
	BalanceBefore decimal.Decimal  `json:"balance_before"`
	BalanceAfter  decimal.Decimal  `json:"balance_after"`
	Rate          *decimal.Decimal `json:"rate,omitempty"`
	RemittanceId  string           `json:"remittance_id,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	RecordedBy    string           `json:"recorded_by,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func NewMovementRecord(m *CashMovement) MovementRecord {
	return MovementRecord{
		Id:            m.Id,
		CourierId:     m.CourierId,
		Currency:      m.Currency,
		Kind:          m.Kind,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Rate:          m.Rate,
		RemittanceId:  m.RemittanceId,
		Notes:         m.Notes,
		RecordedBy:    m.RecordedBy,
		CreatedAt:     m.CreatedAt,
	}
}

type BalanceRecord struct {
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewBalanceRecord(b *CashBalance) BalanceRecord {
	return BalanceRecord{
		Currency:  b.Currency,
		Balance:   b.Balance,
		UpdatedAt: b.UpdatedAt,
	}
}

type PaymentRecord struct {
	Id         string          `json:"id"`
	ResellerId string          `json:"reseller_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	RecordedBy string          `json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func NewPaymentRecord(p *ResellerPayment) PaymentRecord {
	return PaymentRecord{
		Id:         p.Id,
		ResellerId: p.ResellerId,
		Amount:     p.Amount,
		Method:     p.Method,
		Reference:  p.Reference,
		Notes:      p.Notes,
		RecordedBy: p.RecordedBy,
		CreatedAt:  p.CreatedAt,
	}
}

type JournalRecord struct {
	Id           string          `json:"id"`
	Kind         JournalKind     `json:"kind"`
	Concept      string          `json:"concept"`
	Amount       decimal.Decimal `json:"amount"`
	RemittanceId string          `json:"remittance_id,omitempty"`
	UserId       string          `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func NewJournalRecord(e *JournalEntry) JournalRecord {
	return JournalRecord{
		Id:           e.Id,
		Kind:         e.Kind,
		Concept:      e.Concept,
		Amount:       e.Amount,
		RemittanceId: e.RemittanceId,
		UserId:       e.UserId,
		CreatedAt:    e.CreatedAt,
	}
}

type RateRecord struct {
	Source    string          `json:"source"`
	Dest      string          `json:"dest"`
	Rate      decimal.Decimal `json:"rate"`
	Active    bool            `json:"active"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewRateRecord(r *ExchangeRate) RateRecord {
	return RateRecord{
		Source:    r.Source,
		Dest:      r.Dest,
		Rate:      r.Rate,
		Active:    r.Active,
		UpdatedAt: r.UpdatedAt,
	}
}

type FeeRuleRecord struct {
	Id      string           `json:"id"`
	Name    string           `json:"name"`
	Min     decimal.Decimal  `json:"min"`
	Max     *decimal.Decimal `json:"max,omitempty"`
	Percent decimal.Decimal  `json:"percent"`
	Fixed   decimal.Decimal  `json:"fixed"`
	Active  bool             `json:"active"`
}

func NewFeeRuleRecord(r *FeeRule) FeeRuleRecord {
	return FeeRuleRecord{
		Id:      r.Id,
		Name:    r.Name,
		Min:     r.Min,
		Max:     r.Max,
		Percent: r.Percent,
		Fixed:   r.Fixed,
		Active:  r.Active,
	}
}
