package domain

import (
	"time"

	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleStatus is the lifecycle state of one period.
//
//	pending -> paid | partial | overdue
//	overdue -> paid | partial
//	partial -> paid
type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "pending"
	ScheduleStatusPaid    ScheduleStatus = "paid"
	ScheduleStatusOverdue ScheduleStatus = "overdue"
	ScheduleStatusPartial ScheduleStatus = "partial"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusPending, ScheduleStatusPaid, ScheduleStatusOverdue, ScheduleStatusPartial:
		return true
	}
	return false
}

// ScheduleEntry is one period of a loan's repayment schedule.
type ScheduleEntry struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	LoanID             uuid.UUID       `json:"loan_id" db:"loan_id"`
	PeriodNumber       int             `json:"period_number" db:"period_number"`
	DueDate            time.Time       `json:"due_date" db:"due_date"`
	TotalAmount        decimal.Decimal `json:"total_amount" db:"total_amount"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	InterestAmount     decimal.Decimal `json:"interest_amount" db:"interest_amount"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal" db:"remaining_principal"`
	Status             ScheduleStatus  `json:"status" db:"status"`
	PaidAmount         decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	PaidPrincipal      decimal.Decimal `json:"paid_principal" db:"paid_principal"`
	PaidInterest       decimal.Decimal `json:"paid_interest" db:"paid_interest"`
	PaidDate           *time.Time      `json:"paid_date" db:"paid_date"`
	PaymentMethod      PaymentMethod   `json:"payment_method" db:"payment_method"`
	TransactionID      string          `json:"transaction_id" db:"transaction_id"`
	Notes              string          `json:"notes" db:"notes"`
	UpdatedBy          string          `json:"updated_by" db:"updated_by"`
	LateFee            decimal.Decimal `json:"late_fee" db:"late_fee"`
	PaidLateFee        decimal.Decimal `json:"paid_late_fee" db:"paid_late_fee"`
	Version            int             `json:"version" db:"version"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Outstanding is the scheduled amount not yet paid, late fees excluded.
func (e *ScheduleEntry) Outstanding() decimal.Decimal {
	remaining := e.TotalAmount.Sub(e.PaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (e *ScheduleEntry) UnpaidLateFee() decimal.Decimal {
	fee := e.LateFee.Sub(e.PaidLateFee)
	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}

// AmountDue is what settles the period in full: the outstanding amount plus the unpaid late fee.
func (e *ScheduleEntry) AmountDue() decimal.Decimal {
	return e.Outstanding().Add(e.UnpaidLateFee())
}

func (e *ScheduleEntry) IsSettled() bool {
	return e.Status == ScheduleStatusPaid
}

// SamePlan reports whether o describes this period exactly as e does, ignoring
// timestamps.
func (e *ScheduleEntry) SamePlan(o *ScheduleEntry) bool {
	return e.ID == o.ID &&
		e.PeriodNumber == o.PeriodNumber &&
		e.DueDate.Equal(o.DueDate) &&
		e.TotalAmount.Equal(o.TotalAmount) &&
		e.PrincipalAmount.Equal(o.PrincipalAmount) &&
		e.InterestAmount.Equal(o.InterestAmount) &&
		e.RemainingPrincipal.Equal(o.RemainingPrincipal) &&
		e.Status == o.Status &&
		e.PaidAmount.Equal(o.PaidAmount) &&
		e.LateFee.Equal(o.LateFee) &&
		e.PaidLateFee.Equal(o.PaidLateFee) &&
		e.Notes == o.Notes &&
		e.Version == o.Version
}

// Progress is the paid share of the period in whole percent.
func (e *ScheduleEntry) Progress() int {
	if !e.TotalAmount.IsPositive() {
		return 0
	}
	return int(e.PaidAmount.Mul(decimal.NewFromInt(100)).DivRound(e.TotalAmount, 0).IntPart())
}

// RefreshOverdue flips a pending entry past its due date to overdue.
// It reports whether the status changed.
func (e *ScheduleEntry) RefreshOverdue(now time.Time) bool {
	if e.Status != ScheduleStatusPending {
		return false
	}
	if utils.IsDateOverdue(e.DueDate, now) && e.PaidAmount.LessThan(e.TotalAmount) {
		e.Status = ScheduleStatusOverdue
		return true
	}
	return false
}

// OverdueDays is the number of whole days past the due date, 0 for settled entries.
func (e *ScheduleEntry) OverdueDays(now time.Time) int {
	if e.IsSettled() {
		return 0
	}
	days := utils.DaysBetween(e.DueDate, now)
	if days < 0 {
		return 0
	}
	return days
}

// CalculateLateFee charges ratePercent of the outstanding amount per overdue day.
func (e *ScheduleEntry) CalculateLateFee(ratePercent decimal.Decimal, now time.Time) decimal.Decimal {
	days := e.OverdueDays(now)
	if days <= 0 {
		return decimal.Zero
	}
	fee := e.Outstanding().
		Mul(utils.Div(ratePercent, decimal.NewFromInt(100))).
		Mul(decimal.NewFromInt(int64(days)))
	return utils.RoundCurrency(fee)
}

// Apply settles amount against the entry. Anything below the outstanding amount is a
// partial payment. Covering the outstanding amount settles the period, and whatever
// exceeds it up to AmountDue goes to the late fee.
func (e *ScheduleEntry) Apply(amount decimal.Decimal, meta PaymentMetadata, at time.Time) (Settlement, error) {
	if e.IsSettled() {
		return "", customError.WrapAlreadySettled(e.PeriodNumber)
	}
	due := e.AmountDue()
	if !amount.IsPositive() || amount.GreaterThan(due) {
		return "", customError.WrapInvalidAmount(amount.StringFixed(2), due.StringFixed(2))
	}
	if amount.LessThan(e.Outstanding()) {
		return SettlementPartial, e.MakePartialPayment(amount, meta, at)
	}

	towardFee := amount.Sub(e.Outstanding())
	e.settle()
	e.PaidLateFee = e.PaidLateFee.Add(towardFee)
	e.attach(meta, at)
	return SettlementFull, nil
}

// MarkAsPaid settles the whole period, including any accrued late fee.
func (e *ScheduleEntry) MarkAsPaid(meta PaymentMetadata, at time.Time) error {
	if e.IsSettled() {
		return customError.WrapAlreadySettled(e.PeriodNumber)
	}
	e.settle()
	e.PaidLateFee = e.LateFee
	e.attach(meta, at)
	return nil
}

// MakePartialPayment adds amount to the period and allocates the cumulative paid
// share pro-rata across principal and interest.
func (e *ScheduleEntry) MakePartialPayment(amount decimal.Decimal, meta PaymentMetadata, at time.Time) error {
	if e.IsSettled() {
		return customError.WrapAlreadySettled(e.PeriodNumber)
	}
	if !amount.IsPositive() || amount.GreaterThan(e.Outstanding()) {
		return customError.WrapInvalidAmount(amount.StringFixed(2), e.Outstanding().StringFixed(2))
	}

	e.PaidAmount = e.PaidAmount.Add(amount)
	e.attach(meta, at)

	if e.PaidAmount.GreaterThanOrEqual(e.TotalAmount) {
		e.settle()
		return nil
	}

	e.allocate(e.TotalAmount.Add(e.LateFee))
	e.Status = ScheduleStatusPartial
	return nil
}

func (e *ScheduleEntry) settle() {
	e.Status = ScheduleStatusPaid
	e.PaidAmount = e.TotalAmount
	e.PaidPrincipal = e.PrincipalAmount
	e.PaidInterest = e.InterestAmount
}

// allocate splits PaidAmount over principal and interest by PaidAmount/totalDue.
func (e *ScheduleEntry) allocate(totalDue decimal.Decimal) {
	if !totalDue.IsPositive() {
		return
	}
	ratio := utils.Div(e.PaidAmount, totalDue)
	e.PaidPrincipal = utils.MinDecimal(e.PrincipalAmount, utils.RoundCurrency(e.PrincipalAmount.Mul(ratio)))
	e.PaidInterest = utils.MinDecimal(e.InterestAmount, utils.RoundCurrency(e.InterestAmount.Mul(ratio)))
}

func (e *ScheduleEntry) attach(meta PaymentMetadata, at time.Time) {
	paidAt := at
	if meta.PaidDate != nil && !meta.PaidDate.IsZero() {
		paidAt = *meta.PaidDate
	}
	e.PaidDate = &paidAt
	e.PaymentMethod = meta.Method
	e.TransactionID = meta.TransactionID
	e.Notes = meta.Notes
	e.UpdatedBy = meta.RecordedBy
}

// PeriodEdit is a manual correction of one period. Nil fields are left unchanged.
type PeriodEdit struct {
	PeriodNumber    int              `json:"period_number" validate:"required,gt=0"`
	DueDate         *time.Time       `json:"due_date"`
	TotalAmount     *decimal.Decimal `json:"total_amount" validate:"omitempty,gte=0"`
	PrincipalAmount *decimal.Decimal `json:"principal_amount" validate:"omitempty,gte=0"`
	InterestAmount  *decimal.Decimal `json:"interest_amount" validate:"omitempty,gte=0"`
	LateFee         *decimal.Decimal `json:"late_fee" validate:"omitempty,gte=0"`
	Notes           *string          `json:"notes" validate:"omitempty,max=500"`
}

type BatchEditRequest struct {
	Schedules []PeriodEdit `json:"schedules" validate:"required,min=1,dive"`
}

// ApplyEdit validates edit against the entry and applies it. On error the entry is untouched.
func (e *ScheduleEntry) ApplyEdit(edit PeriodEdit, editor string) error {
	if e.IsSettled() {
		return customError.WrapAlreadySettled(e.PeriodNumber)
	}

	next := *e
	if edit.DueDate != nil {
		next.DueDate = *edit.DueDate
	}
	if edit.LateFee != nil {
		if edit.LateFee.IsNegative() {
			return customError.WrapConsistencyViolation(e.PeriodNumber, "late fee cannot be negative")
		}
		next.LateFee = utils.RoundCurrency(*edit.LateFee)
	}
	if edit.Notes != nil {
		next.Notes = *edit.Notes
	}

	amounts := edit.TotalAmount != nil || edit.PrincipalAmount != nil || edit.InterestAmount != nil
	if amounts {
		if edit.TotalAmount != nil {
			next.TotalAmount = utils.RoundCurrency(*edit.TotalAmount)
		}
		if edit.PrincipalAmount != nil {
			next.PrincipalAmount = utils.RoundCurrency(*edit.PrincipalAmount)
		}
		if edit.InterestAmount != nil {
			next.InterestAmount = utils.RoundCurrency(*edit.InterestAmount)
		}

		if next.TotalAmount.IsNegative() || next.PrincipalAmount.IsNegative() || next.InterestAmount.IsNegative() {
			return customError.WrapConsistencyViolation(e.PeriodNumber, "amounts cannot be negative")
		}
		if !utils.WithinTolerance(next.PrincipalAmount.Add(next.InterestAmount), next.TotalAmount, utils.CurrencyTolerance) {
			return customError.WrapConsistencyViolation(e.PeriodNumber, "principal plus interest must equal the total amount")
		}
		if e.PaidAmount.GreaterThan(next.TotalAmount) {
			return customError.WrapConsistencyViolation(e.PeriodNumber, "total amount cannot be less than the amount already paid")
		}
	}

	// the paid share is re-split on the same base partial payments use
	if (amounts || edit.LateFee != nil) && next.PaidAmount.IsPositive() {
		if next.PaidAmount.GreaterThanOrEqual(next.TotalAmount) {
			next.settle()
		} else {
			next.allocate(next.TotalAmount.Add(next.LateFee))
		}
	}

	next.UpdatedBy = editor
	*e = next
	return nil
}
