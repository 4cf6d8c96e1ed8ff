package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
)

const (
	MaxTermMonths = 360
)

// RepaymentMethod selects the amortization convention.
type RepaymentMethod string

const (
	MethodEqualInstallment RepaymentMethod = "equal_payment"
	MethodEqualPrincipal   RepaymentMethod = "equal_principal"
)

// ParseRepaymentMethod accepts the canonical names plus the aliases older clients send.
func ParseRepaymentMethod(s string) (RepaymentMethod, bool) {
	switch s {
	case "equal_payment", "equal_installment", "equalInstallment", "等额本息":
		return MethodEqualInstallment, true
	case "equal_principal", "equalPrincipal", "等额本金":
		return MethodEqualPrincipal, true
	default:
		return "", false
	}
}

func (m RepaymentMethod) Valid() bool {
	return m == MethodEqualInstallment || m == MethodEqualPrincipal
}

// LoanTerms are the immutable inputs of one schedule calculation.
type LoanTerms struct {
	Principal         decimal.Decimal `json:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate"`
	TermMonths        int             `json:"term_months"`
	Method            RepaymentMethod `json:"method"`
}

// Loan represents a loan entity
type Loan struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	LoanName           string          `json:"loan_name" db:"loan_name"`
	ApplicantID        string          `json:"applicant_id" db:"applicant_id"`
	ApplicantName      string          `json:"applicant_name" db:"applicant_name"`
	Bank               string          `json:"bank" db:"bank"`
	Purpose            string          `json:"purpose" db:"purpose"`
	Collateral         string          `json:"collateral" db:"collateral"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	InterestRate       decimal.Decimal `json:"interest_rate" db:"interest_rate"` // annual, percent
	Term               int             `json:"term" db:"term"`                   // months
	RepaymentMethod    RepaymentMethod `json:"repayment_method" db:"repayment_method"`
	Status             string          `json:"status" db:"status"`
	MonthlyPayment     decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	TotalPayment       decimal.Decimal `json:"total_payment" db:"total_payment"`
	TotalInterest      decimal.Decimal `json:"total_interest" db:"total_interest"`
	RepaymentStartDate *time.Time      `json:"repayment_start_date" db:"repayment_start_date"`
	LoanAggregate
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (l *Loan) Terms() LoanTerms {
	return LoanTerms{
		Principal:         l.Amount,
		AnnualRatePercent: l.InterestRate,
		TermMonths:        l.Term,
		Method:            l.RepaymentMethod,
	}
}

// ApplyAggregate replaces the denormalized roll-up and keeps the loan status in step with it.
func (l *Loan) ApplyAggregate(agg LoanAggregate) {
	l.LoanAggregate = agg
	if agg.RepaymentStatus == RepaymentStatusCompleted {
		l.Status = LoanStatusCompleted
	} else {
		l.Status = LoanStatusActive
	}
}

// RemainingAmount is what is left to repay against the scheduled total.
func (l *Loan) RemainingAmount() decimal.Decimal {
	remaining := l.TotalPayment.Sub(l.TotalPaidAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanName           string          `json:"loan_name" validate:"required,max=100"`
	ApplicantID        string          `json:"applicant_id" validate:"required"`
	ApplicantName      string          `json:"applicant_name" validate:"required"`
	Bank               string          `json:"bank" validate:"required,max=100"`
	Purpose            string          `json:"purpose" validate:"max=500"`
	Collateral         string          `json:"collateral" validate:"max=500"`
	Amount             decimal.Decimal `json:"amount" validate:"required,gt=0"`
	InterestRate       decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=100"`
	Term               int             `json:"term" validate:"required,gte=1,lte=360"`
	RepaymentMethod    string          `json:"repayment_method" validate:"required"`
	RepaymentStartDate *time.Time      `json:"repayment_start_date"`
}

// UpdateLoanRequest carries only the fields being changed.
type UpdateLoanRequest struct {
	LoanName        *string          `json:"loan_name" validate:"omitempty,max=100"`
	Bank            *string          `json:"bank" validate:"omitempty,max=100"`
	Purpose         *string          `json:"purpose" validate:"omitempty,max=500"`
	Collateral      *string          `json:"collateral" validate:"omitempty,max=500"`
	Amount          *decimal.Decimal `json:"amount" validate:"omitempty,gt=0"`
	InterestRate    *decimal.Decimal `json:"interest_rate" validate:"omitempty,gte=0,lte=100"`
	Term            *int             `json:"term" validate:"omitempty,gte=1,lte=360"`
	RepaymentMethod *string          `json:"repayment_method"`
}

// ChangesTerms reports whether applying the request alters the schedule inputs.
func (r *UpdateLoanRequest) ChangesTerms(current LoanTerms) bool {
	if r.Amount != nil && !r.Amount.Equal(current.Principal) {
		return true
	}
	if r.InterestRate != nil && !r.InterestRate.Equal(current.AnnualRatePercent) {
		return true
	}
	if r.Term != nil && *r.Term != current.TermMonths {
		return true
	}
	if r.RepaymentMethod != nil {
		method, _ := ParseRepaymentMethod(*r.RepaymentMethod)
		return method != current.Method
	}
	return false
}

type LoanListQuery struct {
	Page            int    `json:"page"`
	PerPage         int    `json:"per_page"`
	Status          string `json:"status"`
	RepaymentStatus string `json:"repayment_status"`
	ApplicantID     string `json:"applicant_id"`
}

type LoanListResponse struct {
	Items      []*Loan    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

type CreateLoanResponse struct {
	Loan     *Loan            `json:"loan"`
	Schedule []*ScheduleEntry `json:"schedule"`
}

// LoanScheduleResponse is a loan with its (optionally filtered) schedule and stats.
type LoanScheduleResponse struct {
	Loan     *Loan            `json:"loan"`
	Schedule []*ScheduleEntry `json:"schedule"`
	Stats    PaymentStats     `json:"stats"`
}
