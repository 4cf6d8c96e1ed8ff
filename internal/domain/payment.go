package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the channel a payment arrived through.
type PaymentMethod string

const (
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodOnlinePayment PaymentMethod = "online_payment"
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCheck         PaymentMethod = "check"
	PaymentMethodWeChat        PaymentMethod = "wechat"
	PaymentMethodAlipay        PaymentMethod = "alipay"
	PaymentMethodOther         PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodOnlinePayment, PaymentMethodCash,
		PaymentMethodCheck, PaymentMethodWeChat, PaymentMethodAlipay, PaymentMethodOther:
		return true
	}
	return false
}

// Settlement tells whether a payment closed the period or left a balance.
type Settlement string

const (
	SettlementFull    Settlement = "full"
	SettlementPartial Settlement = "partial"
)

// PaymentMetadata describes where a payment came from.
type PaymentMetadata struct {
	Method        PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	RecordedBy    string        `json:"recorded_by,omitempty"`
	PaidDate      *time.Time    `json:"paid_date,omitempty"`
}

// Payment is the immutable record of one payment applied to a period.
type Payment struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	LoanID         uuid.UUID       `json:"loan_id" db:"loan_id"`
	ScheduleID     uuid.UUID       `json:"schedule_id" db:"schedule_id"`
	PeriodNumber   int             `json:"period_number" db:"period_number"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Settlement     Settlement      `json:"settlement" db:"settlement"`
	PaymentMethod  PaymentMethod   `json:"payment_method" db:"payment_method"`
	TransactionID  string          `json:"transaction_id" db:"transaction_id"`
	Notes          string          `json:"notes" db:"notes"`
	RecordedBy     string          `json:"recorded_by" db:"recorded_by"`
	PaidAt         time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// NewPayment builds the record for amount applied to entry.
func NewPayment(entry *ScheduleEntry, amount decimal.Decimal, settlement Settlement, meta PaymentMetadata, now time.Time) *Payment {
	paidAt := now
	if entry.PaidDate != nil {
		paidAt = *entry.PaidDate
	}
	return &Payment{
		ID:            uuid.New(),
		LoanID:        entry.LoanID,
		ScheduleID:    entry.ID,
		PeriodNumber:  entry.PeriodNumber,
		Amount:        amount,
		Settlement:    settlement,
		PaymentMethod: meta.Method,
		TransactionID: meta.TransactionID,
		Notes:         meta.Notes,
		RecordedBy:    meta.RecordedBy,
		PaidAt:        paidAt,
		CreatedAt:     now,
	}
}

// RecordPaymentRequest pays one period. A nil amount pays the full amount due, late fee included.
type RecordPaymentRequest struct {
	PeriodNumber  int              `json:"period_number" validate:"required,gt=0"`
	Amount        *decimal.Decimal `json:"amount" validate:"omitempty,gt=0"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,oneof=bank_transfer online_payment cash check wechat alipay other"`
	TransactionID string           `json:"transaction_id" validate:"max=100"`
	Notes         string           `json:"notes" validate:"max=500"`
	PaidDate      *time.Time       `json:"paid_date"`
}

// Metadata converts the request into payment metadata, defaulting the method to bank transfer.
func (r *RecordPaymentRequest) Metadata(recordedBy string) PaymentMetadata {
	method := PaymentMethod(r.PaymentMethod)
	if method == "" {
		method = PaymentMethodBankTransfer
	}
	return PaymentMetadata{
		Method:        method,
		TransactionID: r.TransactionID,
		Notes:         r.Notes,
		RecordedBy:    recordedBy,
		PaidDate:      r.PaidDate,
	}
}

type RecordPaymentResponse struct {
	Payment   *Payment       `json:"payment"`
	Entry     *ScheduleEntry `json:"schedule"`
	Aggregate LoanAggregate  `json:"aggregate"`
}

// PaymentStats summarizes a loan's schedule for progress reporting.
type PaymentStats struct {
	TotalPeriods    int             `json:"total_periods"`
	PaidPeriods     int             `json:"paid_periods"`
	PendingPeriods  int             `json:"pending_periods"`
	OverduePeriods  int             `json:"overdue_periods"`
	PartialPeriods  int             `json:"partial_periods"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
}
