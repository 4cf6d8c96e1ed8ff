package amortization

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateEqualInstallment_StandardLoan(t *testing.T) {
	res, err := CalculateEqualInstallment(dec("120000"), dec("5"), 12)
	require.NoError(t, err)

	assert.Equal(t, domain.MethodEqualInstallment, res.Method)
	assert.Equal(t, "10272.90", res.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "3274.79", res.TotalInterest.StringFixed(2))
	assert.Equal(t, "123274.79", res.TotalPayment.StringFixed(2))
	require.Len(t, res.Periods, 12)

	first := res.Periods[0]
	assert.Equal(t, "10272.90", first.Payment.StringFixed(2))
	assert.Equal(t, "9772.90", first.Principal.StringFixed(2))
	assert.Equal(t, "500.00", first.Interest.StringFixed(2))
	assert.Equal(t, "110227.10", first.RemainingPrincipal.StringFixed(2))

	last := res.Periods[11]
	assert.Equal(t, "10272.90", last.Payment.StringFixed(2))
	assert.Equal(t, "10230.27", last.Principal.StringFixed(2))
	assert.Equal(t, "42.63", last.Interest.StringFixed(2))
	assert.True(t, last.RemainingPrincipal.IsZero())
}

func TestCalculateEqualInstallment_MatchesClosedForm(t *testing.T) {
	// A = P·i·(1+i)^n / ((1+i)^n − 1) = 10272.8978...
	res, err := CalculateEqualInstallment(dec("120000"), dec("5"), 12)
	require.NoError(t, err)

	assert.True(t, utils.WithinTolerance(res.MonthlyPayment, dec("10272.8978"), utils.CurrencyTolerance))
	assert.True(t, utils.WithinTolerance(res.TotalInterest, dec("3274.77"), utils.CurrencyTolerance.Mul(decimal.NewFromInt(50))))
}

func TestCalculateEqualPrincipal_StandardLoan(t *testing.T) {
	res, err := CalculateEqualPrincipal(dec("120000"), dec("5"), 12)
	require.NoError(t, err)

	assert.Equal(t, domain.MethodEqualPrincipal, res.Method)
	assert.Equal(t, "10000.00", res.MonthlyPrincipal.StringFixed(2))
	assert.Equal(t, "3250.00", res.TotalInterest.StringFixed(2))
	assert.Equal(t, "123250.00", res.TotalPayment.StringFixed(2))
	assert.Equal(t, "10500.00", res.FirstMonthPayment.StringFixed(2))
	assert.Equal(t, "10041.67", res.LastMonthPayment.StringFixed(2))
	assert.Equal(t, res.FirstMonthPayment, res.MonthlyPayment)
	assert.Equal(t, "41.67", res.Periods[11].Interest.StringFixed(2))

	for i := 1; i < len(res.Periods); i++ {
		assert.True(t, res.Periods[i].Payment.LessThanOrEqual(res.Periods[i-1].Payment), "period %d", i+1)
	}
}

func TestCalculate_ZeroRate(t *testing.T) {
	for _, method := range []domain.RepaymentMethod{domain.MethodEqualInstallment, domain.MethodEqualPrincipal} {
		t.Run(string(method), func(t *testing.T) {
			res, err := Calculate(domain.LoanTerms{Principal: dec("120000"), AnnualRatePercent: decimal.Zero, TermMonths: 12, Method: method})
			require.NoError(t, err)

			assert.Equal(t, "10000.00", res.MonthlyPayment.StringFixed(2))
			assert.True(t, res.TotalInterest.IsZero())
			for _, p := range res.Periods {
				assert.Equal(t, "10000.00", p.Payment.StringFixed(2))
				assert.True(t, p.Interest.IsZero())
			}
		})
	}
}

func TestCalculate_RoundingResidueSpreadsByTheCent(t *testing.T) {
	tests := []struct {
		name     string
		method   domain.RepaymentMethod
		rate     string
		payments []string
	}{
		{"installment zero rate", domain.MethodEqualInstallment, "0", []string{"33.33", "33.34", "33.33"}},
		{"principal zero rate", domain.MethodEqualPrincipal, "0", []string{"33.33", "33.34", "33.33"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(domain.LoanTerms{Principal: dec("100"), AnnualRatePercent: dec(tt.rate), TermMonths: 3, Method: tt.method})
			require.NoError(t, err)

			for i, want := range tt.payments {
				assert.Equal(t, want, res.Periods[i].Payment.StringFixed(2))
			}
		})
	}
}

func TestCalculate_ShortHighRateLoan(t *testing.T) {
	ei, err := CalculateEqualInstallment(dec("1000"), dec("12"), 3)
	require.NoError(t, err)
	assert.Equal(t, "340.02", ei.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "20.07", ei.TotalInterest.StringFixed(2))
	assert.Equal(t, "340.03", ei.LastMonthPayment.StringFixed(2))
	assert.Equal(t, "336.66", ei.Periods[2].Principal.StringFixed(2))
	assert.Equal(t, "3.37", ei.Periods[2].Interest.StringFixed(2))

	ep, err := CalculateEqualPrincipal(dec("1000"), dec("12"), 3)
	require.NoError(t, err)
	assert.Equal(t, "20.00", ep.TotalInterest.StringFixed(2))
	assert.Equal(t, "343.33", ep.FirstMonthPayment.StringFixed(2))
	assert.Equal(t, "336.66", ep.LastMonthPayment.StringFixed(2))
	assert.Equal(t, "333.33", ep.Periods[2].Principal.StringFixed(2))
}

func TestCalculate_Invariants(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		months    int
	}{
		{"120000", "5", 12},
		{"300000", "4.9", 360},
		{"999999.99", "3.65", 240},
		{"5000", "7.5", 1},
		{"1", "100", 360},
		{"0.01", "100", 1},
		{"250000", "0", 360},
		{"87654.32", "18", 37},
		{"100", "0", 360},
		{"100", "5", 360},
	}

	for _, c := range cases {
		principal := dec(c.principal)
		for _, method := range []domain.RepaymentMethod{domain.MethodEqualInstallment, domain.MethodEqualPrincipal} {
			res, err := Calculate(domain.LoanTerms{Principal: principal, AnnualRatePercent: dec(c.rate), TermMonths: c.months, Method: method})
			require.NoError(t, err)
			require.Len(t, res.Periods, c.months)

			sumPrincipal := decimal.Zero
			sumInterest := decimal.Zero
			for i, p := range res.Periods {
				assert.Equal(t, i+1, p.Period)
				assert.True(t, p.Payment.Equal(p.Principal.Add(p.Interest)))
				assert.False(t, p.Principal.IsNegative(), "%s %s/%d period %d", method, c.principal, c.months, p.Period)
				assert.False(t, p.RemainingPrincipal.IsNegative(), "%s %s/%d period %d", method, c.principal, c.months, p.Period)
				assert.True(t, p.Payment.Equal(p.Payment.Round(2)))
				sumPrincipal = sumPrincipal.Add(p.Principal)
				sumInterest = sumInterest.Add(p.Interest)
			}

			label := string(method) + " " + c.principal
			assert.True(t, sumPrincipal.Equal(principal), label)
			assert.True(t, res.Periods[c.months-1].RemainingPrincipal.IsZero(), label)
			assert.True(t, sumInterest.Equal(res.TotalInterest), label)
			assert.True(t, res.TotalPayment.Equal(principal.Add(res.TotalInterest)), label)
		}
	}
}

func TestCalculate_SmallLongLoanEndsCleanly(t *testing.T) {
	tests := []struct {
		method domain.RepaymentMethod
		rate   string
		last   string
	}{
		{domain.MethodEqualInstallment, "0", "0.28"},
		{domain.MethodEqualInstallment, "5", "0.53"},
		{domain.MethodEqualPrincipal, "0", "0.28"},
		{domain.MethodEqualPrincipal, "5", "0.28"},
	}

	for _, tt := range tests {
		t.Run(string(tt.method)+" "+tt.rate, func(t *testing.T) {
			res, err := Calculate(domain.LoanTerms{Principal: dec("100"), AnnualRatePercent: dec(tt.rate), TermMonths: 360, Method: tt.method})
			require.NoError(t, err)

			prev := dec("100")
			for _, p := range res.Periods {
				assert.True(t, p.RemainingPrincipal.LessThanOrEqual(prev), "period %d", p.Period)
				assert.True(t, p.Principal.IsPositive(), "period %d", p.Period)
				prev = p.RemainingPrincipal
			}
			assert.Equal(t, tt.last, res.LastMonthPayment.StringFixed(2))
		})
	}
}

func TestCalculate_EqualPrincipalNeverCostsMore(t *testing.T) {
	cases := []struct {
		rate   string
		months int
	}{
		{"0", 12}, {"1.5", 24}, {"5", 12}, {"4.9", 360}, {"36", 60}, {"7", 1},
	}

	for _, c := range cases {
		ei, err := CalculateEqualInstallment(dec("200000"), dec(c.rate), c.months)
		require.NoError(t, err)
		ep, err := CalculateEqualPrincipal(dec("200000"), dec(c.rate), c.months)
		require.NoError(t, err)

		assert.True(t, ep.TotalInterest.LessThanOrEqual(ei.TotalInterest), "rate %s months %d", c.rate, c.months)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	a, err := CalculateEqualInstallment(dec("350000"), dec("4.35"), 240)
	require.NoError(t, err)
	b, err := CalculateEqualInstallment(dec("350000"), dec("4.35"), 240)
	require.NoError(t, err)

	require.Equal(t, len(a.Periods), len(b.Periods))
	for i := range a.Periods {
		assert.Equal(t, a.Periods[i].Payment.String(), b.Periods[i].Payment.String())
		assert.Equal(t, a.Periods[i].RemainingPrincipal.String(), b.Periods[i].RemainingPrincipal.String())
	}
}

func TestCalculate_InvalidParameters(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		months    int
		method    domain.RepaymentMethod
	}{
		{"zero principal", "0", "5", 12, domain.MethodEqualInstallment},
		{"negative principal", "-100", "5", 12, domain.MethodEqualPrincipal},
		{"sub-cent principal", "0.004", "5", 12, domain.MethodEqualInstallment},
		{"negative rate", "1000", "-1", 12, domain.MethodEqualInstallment},
		{"rate above 100", "1000", "100.01", 12, domain.MethodEqualPrincipal},
		{"zero months", "1000", "5", 0, domain.MethodEqualInstallment},
		{"too many months", "1000", "5", 361, domain.MethodEqualPrincipal},
		{"unknown method", "1000", "5", 12, "balloon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Calculate(domain.LoanTerms{Principal: dec(tt.principal), AnnualRatePercent: dec(tt.rate), TermMonths: tt.months, Method: tt.method})

			assert.Nil(t, res)
			assert.True(t, errors.Is(err, customError.ErrInvalidParameters))
		})
	}
}
