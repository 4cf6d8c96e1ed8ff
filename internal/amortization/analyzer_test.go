package amortization

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

func TestCompareRepaymentMethods(t *testing.T) {
	c, err := CompareRepaymentMethods(dec("120000"), dec("5"), 12)
	require.NoError(t, err)

	assert.Equal(t, "10272.90", c.EqualInstallment.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "3274.79", c.EqualInstallment.TotalInterest.StringFixed(2))
	assert.Equal(t, "10500.00", c.EqualPrincipal.FirstMonthPayment.StringFixed(2))
	assert.Equal(t, "10041.67", c.EqualPrincipal.LastMonthPayment.StringFixed(2))
	assert.Equal(t, "3250.00", c.EqualPrincipal.TotalInterest.StringFixed(2))
	assert.Equal(t, "24.79", c.InterestDifference.StringFixed(2))
	assert.Equal(t, "24.79", c.PaymentDifference.StringFixed(2))
	assert.Equal(t, RecommendEqualPrincipal, c.Recommendation)
	assert.Contains(t, c.Advice, "24.79")
}

func TestCompareRepaymentMethods_ZeroRateIsEquivalent(t *testing.T) {
	c, err := CompareRepaymentMethods(dec("120000"), dec("0"), 12)
	require.NoError(t, err)

	assert.True(t, c.InterestDifference.IsZero())
	assert.Equal(t, RecommendEquivalent, c.Recommendation)
}

func TestCompareRepaymentMethods_InvalidParameters(t *testing.T) {
	_, err := CompareRepaymentMethods(dec("120000"), dec("5"), 0)
	assert.True(t, errors.Is(err, customError.ErrInvalidParameters))
}

func TestCalculatePrepayment_Partial(t *testing.T) {
	res, err := CalculatePrepayment(PrepaymentRequest{
		Principal:         dec("120000"),
		AnnualRatePercent: dec("5"),
		OriginalMonths:    12,
		PaidMonths:        6,
		PrepaymentAmount:  dec("20000"),
		Method:            domain.MethodEqualInstallment,
	})
	require.NoError(t, err)

	assert.Equal(t, PrepaymentPartial, res.Outcome)
	assert.Equal(t, "60748.40", res.RemainingBefore.StringFixed(2))
	assert.Equal(t, "40748.40", res.NewPrincipal.StringFixed(2))
	assert.Equal(t, 6, res.RemainingMonths)
	assert.Equal(t, "6890.78", res.NewMonthlyPayment.StringFixed(2))
	assert.Equal(t, "596.31", res.NewTotalInterest.StringFixed(2))
	assert.Equal(t, "292.69", res.SavedInterest.StringFixed(2))
	assert.Len(t, res.NewSchedule, 6)
}

func TestCalculatePrepayment_EqualPrincipal(t *testing.T) {
	res, err := CalculatePrepayment(PrepaymentRequest{
		Principal:         dec("120000"),
		AnnualRatePercent: dec("5"),
		OriginalMonths:    12,
		PaidMonths:        6,
		PrepaymentAmount:  dec("20000"),
		Method:            domain.MethodEqualPrincipal,
	})
	require.NoError(t, err)

	assert.Equal(t, "60000.00", res.RemainingBefore.StringFixed(2))
	assert.Equal(t, "6833.34", res.NewMonthlyPayment.StringFixed(2))
	assert.Equal(t, "583.34", res.NewTotalInterest.StringFixed(2))
	assert.Equal(t, "291.66", res.SavedInterest.StringFixed(2))
}

func TestCalculatePrepayment_PaidInFull(t *testing.T) {
	original, err := CalculateEqualInstallment(dec("120000"), dec("5"), 12)
	require.NoError(t, err)

	res, err := CalculatePrepayment(PrepaymentRequest{
		Principal:         dec("120000"),
		AnnualRatePercent: dec("5"),
		OriginalMonths:    12,
		PaidMonths:        6,
		PrepaymentAmount:  original.RemainingAfter(6),
	})
	require.NoError(t, err)

	assert.Equal(t, PrepaymentPaidInFull, res.Outcome)
	assert.Equal(t, "889.00", res.SavedInterest.StringFixed(2))
	assert.True(t, res.SavedInterest.Equal(original.InterestFrom(6)))
	assert.Empty(t, res.NewSchedule)
	assert.True(t, res.NewPrincipal.IsZero())
}

func TestCalculatePrepayment_NothingPaidYet(t *testing.T) {
	res, err := CalculatePrepayment(PrepaymentRequest{
		Principal:         dec("120000"),
		AnnualRatePercent: dec("5"),
		OriginalMonths:    12,
		PaidMonths:        0,
		PrepaymentAmount:  dec("120000"),
	})
	require.NoError(t, err)

	assert.Equal(t, PrepaymentPaidInFull, res.Outcome)
	assert.Equal(t, "3274.79", res.SavedInterest.StringFixed(2))
}

func TestCalculatePrepayment_Rejects(t *testing.T) {
	base := PrepaymentRequest{
		Principal:         dec("120000"),
		AnnualRatePercent: dec("5"),
		OriginalMonths:    12,
		PaidMonths:        6,
		PrepaymentAmount:  dec("1000"),
	}

	tests := []struct {
		name   string
		mutate func(*PrepaymentRequest)
	}{
		{"paid months equal term", func(r *PrepaymentRequest) { r.PaidMonths = 12 }},
		{"negative paid months", func(r *PrepaymentRequest) { r.PaidMonths = -1 }},
		{"amount above balance", func(r *PrepaymentRequest) { r.PrepaymentAmount = dec("60748.41") }},
		{"zero amount", func(r *PrepaymentRequest) { r.PrepaymentAmount = dec("0") }},
		{"bad principal", func(r *PrepaymentRequest) { r.Principal = dec("0") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)

			res, err := CalculatePrepayment(req)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, customError.ErrInvalidParameters))
		})
	}
}

func TestBuildSchedule(t *testing.T) {
	loanID := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	res, err := CalculateEqualInstallment(dec("120000"), dec("5"), 12)
	require.NoError(t, err)

	entries := BuildSchedule(loanID, res, start)
	require.Len(t, entries, 12)

	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), entries[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), entries[1].DueDate)
	assert.Equal(t, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), entries[2].DueDate)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), entries[11].DueDate)

	for i, e := range entries {
		assert.Equal(t, i+1, e.PeriodNumber)
		assert.Equal(t, loanID, e.LoanID)
		assert.Equal(t, domain.ScheduleStatusPending, e.Status)
		assert.True(t, e.PaidAmount.IsZero())
		assert.Equal(t, 1, e.Version)
		assert.True(t, e.TotalAmount.Equal(e.PrincipalAmount.Add(e.InterestAmount)))
	}
	assert.True(t, entries[11].RemainingPrincipal.IsZero())
}

func TestBuildSchedule_Idempotent(t *testing.T) {
	loanID := uuid.New()
	start := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	res, err := CalculateEqualPrincipal(dec("50000"), dec("6.5"), 24)
	require.NoError(t, err)

	first := BuildSchedule(loanID, res, start)
	second := BuildSchedule(loanID, res, start)

	assert.Equal(t, first, second)
	assert.NotEqual(t, EntryID(loanID, 1), EntryID(loanID, 2))
	assert.NotEqual(t, EntryID(loanID, 1), EntryID(uuid.New(), 1))
}
