// Package amortization computes repayment schedules. Everything here is pure:
// the same inputs always produce the same output and nothing touches I/O.
package amortization

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

var maxRatePercent = decimal.NewFromInt(100)

// Period is one presented row of a calculated schedule, amounts at 2 places.
type Period struct {
	Period             int             `json:"period"`
	Payment            decimal.Decimal `json:"payment"`
	Principal          decimal.Decimal `json:"principal"`
	Interest           decimal.Decimal `json:"interest"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
}

// Result is a full calculated schedule with its totals.
type Result struct {
	Method            domain.RepaymentMethod `json:"method"`
	Principal         decimal.Decimal        `json:"principal"`
	AnnualRatePercent decimal.Decimal        `json:"annual_rate"`
	Months            int                    `json:"months"`
	MonthlyPayment    decimal.Decimal        `json:"monthly_payment"`
	MonthlyPrincipal  decimal.Decimal        `json:"monthly_principal"`
	FirstMonthPayment decimal.Decimal        `json:"first_month_payment"`
	LastMonthPayment  decimal.Decimal        `json:"last_month_payment"`
	TotalPayment      decimal.Decimal        `json:"total_payment"`
	TotalInterest     decimal.Decimal        `json:"total_interest"`
	Periods           []Period               `json:"schedule"`
}

// Validate rejects terms no calculator accepts.
func Validate(principal, annualRatePercent decimal.Decimal, months int) error {
	if !principal.IsPositive() {
		return customError.WrapInvalidParameters(fmt.Sprintf("principal must be greater than 0, got %s", principal))
	}
	if annualRatePercent.IsNegative() || annualRatePercent.GreaterThan(maxRatePercent) {
		return customError.WrapInvalidParameters(fmt.Sprintf("annual rate must be between 0 and 100 percent, got %s", annualRatePercent))
	}
	if months < 1 || months > domain.MaxTermMonths {
		return customError.WrapInvalidParameters(fmt.Sprintf("term must be between 1 and %d months, got %d", domain.MaxTermMonths, months))
	}
	return nil
}

// Calculate dispatches to the calculator of terms.Method.
func Calculate(terms domain.LoanTerms) (*Result, error) {
	switch terms.Method {
	case domain.MethodEqualInstallment:
		return CalculateEqualInstallment(terms.Principal, terms.AnnualRatePercent, terms.TermMonths)
	case domain.MethodEqualPrincipal:
		return CalculateEqualPrincipal(terms.Principal, terms.AnnualRatePercent, terms.TermMonths)
	default:
		return nil, customError.WrapInvalidParameters(fmt.Sprintf("unknown repayment method %q", terms.Method))
	}
}

// CalculateEqualInstallment computes a schedule where every period pays the same amount,
// A = P·i·(1+i)^n / ((1+i)^n − 1), or P/n when the rate is zero.
//
// The balance walk runs on the unrounded installment. Each row presents the walked
// balance and interest rounded to cents, so a row's payment may differ from the
// presented installment by a cent but rounding never accumulates across periods.
func CalculateEqualInstallment(principal, annualRatePercent decimal.Decimal, months int) (*Result, error) {
	principal = utils.RoundCurrency(principal)
	if err := Validate(principal, annualRatePercent, months); err != nil {
		return nil, err
	}
	rate := utils.MonthlyRate(annualRatePercent)
	n := decimal.NewFromInt(int64(months))

	var installment decimal.Decimal
	if rate.IsZero() {
		installment = utils.Div(principal, n)
	} else {
		factor := utils.Pow(decimal.NewFromInt(1).Add(rate), months)
		installment = utils.Div(principal.Mul(rate).Mul(factor), factor.Sub(decimal.NewFromInt(1)))
	}
	presented := utils.RoundCurrency(installment)

	w := newWalk(principal, months)
	balance := principal
	for k := 1; k <= months; k++ {
		interest := balance.Mul(rate).Round(utils.InternalScale)
		balance = balance.Sub(installment.Sub(interest))
		w.step(k, balance, interest, k == months)
	}

	res := w.result(domain.MethodEqualInstallment, annualRatePercent)
	res.MonthlyPayment = presented
	return res, nil
}

// CalculateEqualPrincipal computes a schedule repaying P/n of principal every period
// plus interest on the remaining balance. The final period repays whatever balance is left.
func CalculateEqualPrincipal(principal, annualRatePercent decimal.Decimal, months int) (*Result, error) {
	principal = utils.RoundCurrency(principal)
	if err := Validate(principal, annualRatePercent, months); err != nil {
		return nil, err
	}
	rate := utils.MonthlyRate(annualRatePercent)
	perPeriod := utils.Div(principal, decimal.NewFromInt(int64(months)))
	presented := utils.RoundCurrency(perPeriod)

	w := newWalk(principal, months)
	balance := principal
	for k := 1; k <= months; k++ {
		interest := balance.Mul(rate).Round(utils.InternalScale)
		balance = balance.Sub(perPeriod)
		w.step(k, balance, interest, k == months)
	}

	res := w.result(domain.MethodEqualPrincipal, annualRatePercent)
	res.MonthlyPrincipal = presented
	res.MonthlyPayment = res.FirstMonthPayment
	return res, nil
}

// walk accumulates presented rows and their running totals.
type walk struct {
	principal     decimal.Decimal
	repaid        decimal.Decimal
	totalInterest decimal.Decimal
	periods       []Period
}

func newWalk(principal decimal.Decimal, months int) *walk {
	return &walk{
		principal:     principal,
		repaid:        decimal.Zero,
		totalInterest: decimal.Zero,
		periods:       make([]Period, 0, months),
	}
}

func (w *walk) remaining() decimal.Decimal {
	return w.principal.Sub(w.repaid)
}

// step presents period k from the unrounded balance after it and the unrounded
// interest charged in it. The row's principal is the drop in the presented balance,
// and the final period closes the balance to zero.
func (w *walk) step(k int, balance, interest decimal.Decimal, final bool) {
	rowRemaining := utils.RoundCurrency(balance)
	if final || rowRemaining.IsNegative() {
		rowRemaining = decimal.Zero
	}
	w.add(k, w.remaining().Sub(rowRemaining), utils.RoundCurrency(interest))
}

func (w *walk) add(k int, principal, interest decimal.Decimal) {
	w.repaid = w.repaid.Add(principal)
	w.totalInterest = w.totalInterest.Add(interest)
	w.periods = append(w.periods, Period{
		Period:             k,
		Payment:            principal.Add(interest),
		Principal:          principal,
		Interest:           interest,
		RemainingPrincipal: w.remaining(),
	})
}

func (w *walk) result(method domain.RepaymentMethod, annualRatePercent decimal.Decimal) *Result {
	return &Result{
		Method:            method,
		Principal:         w.principal,
		AnnualRatePercent: annualRatePercent,
		Months:            len(w.periods),
		FirstMonthPayment: w.periods[0].Payment,
		LastMonthPayment:  w.periods[len(w.periods)-1].Payment,
		TotalPayment:      w.principal.Add(w.totalInterest),
		TotalInterest:     w.totalInterest,
		Periods:           w.periods,
	}
}

// RemainingAfter is the balance left once the first paid periods are repaid.
func (r *Result) RemainingAfter(paid int) decimal.Decimal {
	if paid <= 0 {
		return r.Principal
	}
	if paid >= len(r.Periods) {
		return decimal.Zero
	}
	return r.Periods[paid-1].RemainingPrincipal
}

// InterestFrom sums the interest of every period after the first paid ones.
func (r *Result) InterestFrom(paid int) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range r.Periods {
		if p.Period > paid {
			sum = sum.Add(p.Interest)
		}
	}
	return sum
}

// CalculationRequest carries the terms of a what-if calculation.
type CalculationRequest struct {
	Principal         decimal.Decimal `json:"principal" validate:"required,gt=0"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate" validate:"gte=0,lte=100"`
	Months            int             `json:"months" validate:"required,gte=1,lte=360"`
}
