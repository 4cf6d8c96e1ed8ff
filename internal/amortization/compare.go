package amortization

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-engine/pkg/utils"
)

type Recommendation string

const (
	RecommendEqualPrincipal   Recommendation = "equal_principal"
	RecommendEqualInstallment Recommendation = "equal_installment"
	RecommendEquivalent       Recommendation = "equivalent"
)

// MethodSummary is the headline figures of one method.
type MethodSummary struct {
	MonthlyPayment    decimal.Decimal `json:"monthly_payment"`
	FirstMonthPayment decimal.Decimal `json:"first_month_payment"`
	LastMonthPayment  decimal.Decimal `json:"last_month_payment"`
	TotalPayment      decimal.Decimal `json:"total_payment"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
	Description       string          `json:"description"`
}

type Comparison struct {
	Principal          decimal.Decimal `json:"principal"`
	AnnualRatePercent  decimal.Decimal `json:"annual_rate"`
	Months             int             `json:"months"`
	EqualInstallment   MethodSummary   `json:"equal_installment"`
	EqualPrincipal     MethodSummary   `json:"equal_principal"`
	InterestDifference decimal.Decimal `json:"interest_difference"`
	PaymentDifference  decimal.Decimal `json:"payment_difference"`
	Recommendation     Recommendation  `json:"recommendation"`
	Advice             string          `json:"advice"`
}

// CompareRepaymentMethods runs both calculators on the same terms. Differences are
// equal installment minus equal principal, so a positive difference means equal
// principal is cheaper.
func CompareRepaymentMethods(principal, annualRatePercent decimal.Decimal, months int) (*Comparison, error) {
	ei, err := CalculateEqualInstallment(principal, annualRatePercent, months)
	if err != nil {
		return nil, err
	}
	ep, err := CalculateEqualPrincipal(principal, annualRatePercent, months)
	if err != nil {
		return nil, err
	}

	interestDiff := utils.RoundCurrency(ei.TotalInterest.Sub(ep.TotalInterest))
	c := &Comparison{
		Principal:         ei.Principal,
		AnnualRatePercent: annualRatePercent,
		Months:            months,
		EqualInstallment: MethodSummary{
			MonthlyPayment:    ei.MonthlyPayment,
			FirstMonthPayment: ei.FirstMonthPayment,
			LastMonthPayment:  ei.LastMonthPayment,
			TotalPayment:      ei.TotalPayment,
			TotalInterest:     ei.TotalInterest,
			Description:       "Fixed monthly payment; suits borrowers with a stable income",
		},
		EqualPrincipal: MethodSummary{
			MonthlyPayment:    ep.MonthlyPayment,
			FirstMonthPayment: ep.FirstMonthPayment,
			LastMonthPayment:  ep.LastMonthPayment,
			TotalPayment:      ep.TotalPayment,
			TotalInterest:     ep.TotalInterest,
			Description:       "Higher payments early on and less total interest; suits borrowers with spare repayment capacity",
		},
		InterestDifference: interestDiff,
		PaymentDifference:  utils.RoundCurrency(ei.TotalPayment.Sub(ep.TotalPayment)),
	}

	switch interestDiff.Sign() {
	case 1:
		c.Recommendation = RecommendEqualPrincipal
		c.Advice = fmt.Sprintf("Equal principal pays %s less interest than equal installment", interestDiff.StringFixed(2))
	case -1:
		c.Recommendation = RecommendEqualInstallment
		c.Advice = fmt.Sprintf("Equal installment pays %s less interest than equal principal", interestDiff.Abs().StringFixed(2))
	default:
		c.Recommendation = RecommendEquivalent
		c.Advice = "Both methods pay the same total interest"
	}
	return c, nil
}
