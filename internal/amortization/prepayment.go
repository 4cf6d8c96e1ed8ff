package amortization

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

type PrepaymentOutcome string

const (
	PrepaymentPartial    PrepaymentOutcome = "partial_prepayment"
	PrepaymentPaidInFull PrepaymentOutcome = "paid_in_full"
)

type PrepaymentRequest struct {
	Principal         decimal.Decimal        `json:"principal" validate:"required,gt=0"`
	AnnualRatePercent decimal.Decimal        `json:"annual_rate" validate:"gte=0,lte=100"`
	OriginalMonths    int                    `json:"original_months" validate:"required,gte=1,lte=360"`
	PaidMonths        int                    `json:"paid_months" validate:"gte=0"`
	PrepaymentAmount  decimal.Decimal        `json:"prepayment_amount" validate:"required,gt=0"`
	Method            domain.RepaymentMethod `json:"method"`
}

type PrepaymentResult struct {
	Outcome           PrepaymentOutcome `json:"outcome"`
	PrepaymentAmount  decimal.Decimal   `json:"prepayment_amount"`
	RemainingBefore   decimal.Decimal   `json:"remaining_before"`
	NewPrincipal      decimal.Decimal   `json:"new_principal"`
	RemainingMonths   int               `json:"remaining_months"`
	NewMonthlyPayment decimal.Decimal   `json:"new_monthly_payment"`
	NewTotalInterest  decimal.Decimal   `json:"new_total_interest"`
	SavedInterest     decimal.Decimal   `json:"saved_interest"`
	NewSchedule       []Period          `json:"new_schedule"`
}

// CalculatePrepayment applies a lump sum after PaidMonths periods and recomputes the
// rest of the loan over the remaining months with the same method. The saving is the
// original schedule's unpaid interest minus the new schedule's interest.
func CalculatePrepayment(req PrepaymentRequest) (*PrepaymentResult, error) {
	if req.Method == "" {
		req.Method = domain.MethodEqualInstallment
	}
	if req.PaidMonths < 0 || req.PaidMonths >= req.OriginalMonths {
		return nil, customError.WrapInvalidParameters(
			fmt.Sprintf("paid months must be between 0 and %d, got %d", req.OriginalMonths-1, req.PaidMonths))
	}

	original, err := Calculate(domain.LoanTerms{
		Principal:         req.Principal,
		AnnualRatePercent: req.AnnualRatePercent,
		TermMonths:        req.OriginalMonths,
		Method:            req.Method,
	})
	if err != nil {
		return nil, err
	}

	amount := utils.RoundCurrency(req.PrepaymentAmount)
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidParameters("prepayment amount must be greater than 0")
	}
	remaining := original.RemainingAfter(req.PaidMonths)
	if amount.GreaterThan(remaining) {
		return nil, customError.WrapInvalidParameters(
			fmt.Sprintf("prepayment %s exceeds the remaining balance %s", amount.StringFixed(2), remaining.StringFixed(2)))
	}

	remainingInterest := original.InterestFrom(req.PaidMonths)
	remainingMonths := req.OriginalMonths - req.PaidMonths
	newPrincipal := remaining.Sub(amount)

	if !newPrincipal.IsPositive() {
		return &PrepaymentResult{
			Outcome:           PrepaymentPaidInFull,
			PrepaymentAmount:  amount,
			RemainingBefore:   remaining,
			NewPrincipal:      decimal.Zero,
			RemainingMonths:   0,
			NewMonthlyPayment: decimal.Zero,
			NewTotalInterest:  decimal.Zero,
			SavedInterest:     remainingInterest,
			NewSchedule:       []Period{},
		}, nil
	}

	next, err := Calculate(domain.LoanTerms{
		Principal:         newPrincipal,
		AnnualRatePercent: req.AnnualRatePercent,
		TermMonths:        remainingMonths,
		Method:            req.Method,
	})
	if err != nil {
		return nil, err
	}

	return &PrepaymentResult{
		Outcome:           PrepaymentPartial,
		PrepaymentAmount:  amount,
		RemainingBefore:   remaining,
		NewPrincipal:      newPrincipal,
		RemainingMonths:   remainingMonths,
		NewMonthlyPayment: next.MonthlyPayment,
		NewTotalInterest:  next.TotalInterest,
		SavedInterest:     remainingInterest.Sub(next.TotalInterest),
		NewSchedule:       next.Periods,
	}, nil
}
