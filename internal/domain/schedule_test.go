package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// firstPeriod is period 1 of 120000 @ 5% over 12 months, equal installment.
func firstPeriod() *ScheduleEntry {
	return &ScheduleEntry{
		PeriodNumber:       1,
		DueDate:            time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:        dec("10272.90"),
		PrincipalAmount:    dec("9772.90"),
		InterestAmount:     dec("500.00"),
		RemainingPrincipal: dec("110227.10"),
		Status:             ScheduleStatusPending,
	}
}

var paidAt = time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

func TestScheduleEntry_MarkAsPaid(t *testing.T) {
	e := firstPeriod()
	e.LateFee = dec("12.50")

	err := e.MarkAsPaid(PaymentMetadata{Method: PaymentMethodCash, TransactionID: "TX-1", RecordedBy: "ops"}, paidAt)

	require.NoError(t, err)
	assert.Equal(t, ScheduleStatusPaid, e.Status)
	assert.True(t, e.PaidAmount.Equal(e.TotalAmount))
	assert.True(t, e.PaidPrincipal.Equal(e.PrincipalAmount))
	assert.True(t, e.PaidInterest.Equal(e.InterestAmount))
	assert.True(t, e.PaidLateFee.Equal(dec("12.50")))
	assert.Equal(t, PaymentMethodCash, e.PaymentMethod)
	assert.Equal(t, "TX-1", e.TransactionID)
	assert.Equal(t, "ops", e.UpdatedBy)
	require.NotNil(t, e.PaidDate)
	assert.Equal(t, paidAt, *e.PaidDate)

	err = e.MarkAsPaid(PaymentMetadata{}, paidAt)
	assert.True(t, errors.Is(err, customError.ErrAlreadySettled))
}

func TestScheduleEntry_PartialPaymentHalfOfPeriod(t *testing.T) {
	e := firstPeriod()

	err := e.MakePartialPayment(dec("5136.45"), PaymentMetadata{Method: PaymentMethodBankTransfer}, paidAt)

	require.NoError(t, err)
	assert.Equal(t, ScheduleStatusPartial, e.Status)
	assert.Equal(t, "5136.45", e.PaidAmount.StringFixed(2))
	assert.Equal(t, "4886.45", e.PaidPrincipal.StringFixed(2))
	assert.Equal(t, "250.00", e.PaidInterest.StringFixed(2))
	assert.Equal(t, 50, e.Progress())
}

func TestScheduleEntry_PartialPaymentsReachFullSettlement(t *testing.T) {
	e := firstPeriod()
	meta := PaymentMetadata{Method: PaymentMethodOnlinePayment}

	for _, amount := range []string{"3000.00", "3000.00", "4272.90"} {
		require.NoError(t, e.MakePartialPayment(dec(amount), meta, paidAt))
	}

	assert.Equal(t, ScheduleStatusPaid, e.Status)
	assert.True(t, e.PaidPrincipal.Add(e.PaidInterest).Equal(e.PrincipalAmount.Add(e.InterestAmount)))
	assert.True(t, e.Outstanding().IsZero())
}

func TestScheduleEntry_PartialAllocationIncludesLateFee(t *testing.T) {
	e := &ScheduleEntry{
		PeriodNumber:    2,
		TotalAmount:     dec("1000.00"),
		PrincipalAmount: dec("900.00"),
		InterestAmount:  dec("100.00"),
		LateFee:         dec("250.00"),
		Status:          ScheduleStatusOverdue,
	}

	require.NoError(t, e.MakePartialPayment(dec("500.00"), PaymentMetadata{}, paidAt))

	// ratio = 500 / 1250
	assert.Equal(t, "360.00", e.PaidPrincipal.StringFixed(2))
	assert.Equal(t, "40.00", e.PaidInterest.StringFixed(2))
	assert.Equal(t, ScheduleStatusPartial, e.Status)
}

func TestScheduleEntry_ApplyRejectsInvalidAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-1.00"},
		{"above outstanding", "10272.91"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := firstPeriod()
			_, err := e.Apply(dec(tt.amount), PaymentMetadata{}, paidAt)

			assert.True(t, errors.Is(err, customError.ErrInvalidAmount))
			assert.Equal(t, customError.ErrCodeInvalidAmount, customError.CodeOf(err))
			assert.Equal(t, ScheduleStatusPending, e.Status)
			assert.True(t, e.PaidAmount.IsZero())
		})
	}
}

func TestScheduleEntry_ApplyChoosesSettlement(t *testing.T) {
	e := firstPeriod()
	settlement, err := e.Apply(dec("272.90"), PaymentMetadata{}, paidAt)
	require.NoError(t, err)
	assert.Equal(t, SettlementPartial, settlement)

	settlement, err = e.Apply(dec("10000.00"), PaymentMetadata{}, paidAt)
	require.NoError(t, err)
	assert.Equal(t, SettlementFull, settlement)
	assert.Equal(t, ScheduleStatusPaid, e.Status)

	_, err = e.Apply(dec("1.00"), PaymentMetadata{}, paidAt)
	assert.True(t, errors.Is(err, customError.ErrAlreadySettled))
}

func TestScheduleEntry_ApplyWithLateFee(t *testing.T) {
	overdue := func() *ScheduleEntry {
		e := firstPeriod()
		e.Status = ScheduleStatusOverdue
		e.LateFee = dec("51.36")
		return e
	}

	t.Run("amount due settles the fee", func(t *testing.T) {
		e := overdue()
		require.Equal(t, "10324.26", e.AmountDue().StringFixed(2))

		settlement, err := e.Apply(e.AmountDue(), PaymentMetadata{}, paidAt)

		require.NoError(t, err)
		assert.Equal(t, SettlementFull, settlement)
		assert.Equal(t, ScheduleStatusPaid, e.Status)
		assert.Equal(t, "10272.90", e.PaidAmount.StringFixed(2))
		assert.Equal(t, "51.36", e.PaidLateFee.StringFixed(2))
		assert.True(t, e.UnpaidLateFee().IsZero())
	})

	t.Run("outstanding only leaves the fee unpaid", func(t *testing.T) {
		e := overdue()

		settlement, err := e.Apply(e.Outstanding(), PaymentMetadata{}, paidAt)

		require.NoError(t, err)
		assert.Equal(t, SettlementFull, settlement)
		assert.True(t, e.PaidLateFee.IsZero())
		assert.Equal(t, "51.36", e.UnpaidLateFee().StringFixed(2))
	})

	t.Run("part of the fee", func(t *testing.T) {
		e := overdue()

		_, err := e.Apply(dec("10300.00"), PaymentMetadata{}, paidAt)

		require.NoError(t, err)
		assert.Equal(t, "27.10", e.PaidLateFee.StringFixed(2))
	})

	t.Run("above amount due", func(t *testing.T) {
		e := overdue()

		_, err := e.Apply(dec("10324.27"), PaymentMetadata{}, paidAt)

		assert.True(t, errors.Is(err, customError.ErrInvalidAmount))
		assert.Equal(t, ScheduleStatusOverdue, e.Status)
	})
}

func TestScheduleEntry_PaidDateFromMetadata(t *testing.T) {
	e := firstPeriod()
	when := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := e.Apply(e.TotalAmount, PaymentMetadata{PaidDate: &when}, paidAt)

	require.NoError(t, err)
	assert.Equal(t, when, *e.PaidDate)
}

func TestScheduleEntry_RefreshOverdue(t *testing.T) {
	due := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	after := due.AddDate(0, 0, 3)

	tests := []struct {
		name    string
		status  ScheduleStatus
		now     time.Time
		flipped bool
		want    ScheduleStatus
	}{
		{"pending before due", ScheduleStatusPending, due.AddDate(0, 0, -1), false, ScheduleStatusPending},
		{"pending past due", ScheduleStatusPending, after, true, ScheduleStatusOverdue},
		{"partial stays partial", ScheduleStatusPartial, after, false, ScheduleStatusPartial},
		{"paid stays paid", ScheduleStatusPaid, after, false, ScheduleStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := firstPeriod()
			e.DueDate = due
			e.Status = tt.status

			assert.Equal(t, tt.flipped, e.RefreshOverdue(tt.now))
			assert.Equal(t, tt.want, e.Status)
		})
	}
}

func TestScheduleEntry_LateFee(t *testing.T) {
	e := firstPeriod()
	now := e.DueDate.AddDate(0, 0, 10)

	assert.Equal(t, 10, e.OverdueDays(now))
	// 10272.90 * 0.05% * 10 days
	assert.Equal(t, "51.36", e.CalculateLateFee(dec("0.05"), now).StringFixed(2))
	assert.True(t, e.CalculateLateFee(dec("0.05"), e.DueDate.AddDate(0, 0, -2)).IsZero())
	assert.Equal(t, 0, e.OverdueDays(e.DueDate.AddDate(0, 0, -2)))
}

func TestScheduleEntry_ApplyEdit(t *testing.T) {
	total := dec("11000.00")
	principal := dec("10500.00")
	interest := dec("500.00")
	badPrincipal := dec("10400.00")
	lowTotal := dec("100.00")
	lowPrincipal := dec("100.00")
	zero := dec("0")
	notes := "restructured"

	t.Run("consistent amounts", func(t *testing.T) {
		e := firstPeriod()
		err := e.ApplyEdit(PeriodEdit{PeriodNumber: 1, TotalAmount: &total, PrincipalAmount: &principal, InterestAmount: &interest, Notes: &notes}, "admin")

		require.NoError(t, err)
		assert.True(t, e.TotalAmount.Equal(total))
		assert.Equal(t, "restructured", e.Notes)
		assert.Equal(t, "admin", e.UpdatedBy)
	})

	t.Run("principal plus interest mismatch", func(t *testing.T) {
		e := firstPeriod()
		err := e.ApplyEdit(PeriodEdit{PeriodNumber: 1, TotalAmount: &total, PrincipalAmount: &badPrincipal, InterestAmount: &interest}, "admin")

		assert.True(t, errors.Is(err, customError.ErrConsistencyViolation))
		assert.Equal(t, "10272.90", e.TotalAmount.StringFixed(2))
	})

	t.Run("total below paid amount", func(t *testing.T) {
		e := firstPeriod()
		require.NoError(t, e.MakePartialPayment(dec("5000.00"), PaymentMetadata{}, paidAt))

		err := e.ApplyEdit(PeriodEdit{PeriodNumber: 1, TotalAmount: &lowTotal, PrincipalAmount: &lowPrincipal, InterestAmount: &zero}, "admin")
		assert.True(t, errors.Is(err, customError.ErrConsistencyViolation))
	})

	t.Run("paid period", func(t *testing.T) {
		e := firstPeriod()
		require.NoError(t, e.MarkAsPaid(PaymentMetadata{}, paidAt))

		err := e.ApplyEdit(PeriodEdit{PeriodNumber: 1, Notes: &notes}, "admin")
		assert.True(t, errors.Is(err, customError.ErrAlreadySettled))
	})

	t.Run("keeps the late fee in the allocation base", func(t *testing.T) {
		e := &ScheduleEntry{
			PeriodNumber:    2,
			TotalAmount:     dec("1000.00"),
			PrincipalAmount: dec("900.00"),
			InterestAmount:  dec("100.00"),
			LateFee:         dec("250.00"),
			Status:          ScheduleStatusOverdue,
		}
		require.NoError(t, e.MakePartialPayment(dec("500.00"), PaymentMetadata{}, paidAt))
		sameTotal, samePrincipal, sameInterest := dec("1000.00"), dec("900.00"), dec("100.00")

		err := e.ApplyEdit(PeriodEdit{PeriodNumber: 2, TotalAmount: &sameTotal, PrincipalAmount: &samePrincipal, InterestAmount: &sameInterest, Notes: &notes}, "admin")

		require.NoError(t, err)
		// ratio = 500 / 1250, as the partial payment allocated it
		assert.Equal(t, "360.00", e.PaidPrincipal.StringFixed(2))
		assert.Equal(t, "40.00", e.PaidInterest.StringFixed(2))

		noFee := dec("0")
		require.NoError(t, e.ApplyEdit(PeriodEdit{PeriodNumber: 2, LateFee: &noFee}, "admin"))
		// ratio = 500 / 1000
		assert.Equal(t, "450.00", e.PaidPrincipal.StringFixed(2))
		assert.Equal(t, "50.00", e.PaidInterest.StringFixed(2))
		assert.Equal(t, ScheduleStatusPartial, e.Status)
	})

	t.Run("reallocates paid share", func(t *testing.T) {
		e := firstPeriod()
		require.NoError(t, e.MakePartialPayment(dec("5500.00"), PaymentMetadata{}, paidAt))

		err := e.ApplyEdit(PeriodEdit{PeriodNumber: 1, TotalAmount: &total, PrincipalAmount: &principal, InterestAmount: &interest}, "admin")

		require.NoError(t, err)
		// ratio = 5500 / 11000
		assert.Equal(t, "5250.00", e.PaidPrincipal.StringFixed(2))
		assert.Equal(t, "250.00", e.PaidInterest.StringFixed(2))
		assert.Equal(t, ScheduleStatusPartial, e.Status)
	})
}
