package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-engine/pkg/utils"
)

type RepaymentStatus string

const (
	RepaymentStatusNotStarted RepaymentStatus = "not_started"
	RepaymentStatusInProgress RepaymentStatus = "in_progress"
	RepaymentStatusCompleted  RepaymentStatus = "completed"
	RepaymentStatusOverdue    RepaymentStatus = "overdue"
)

// LoanAggregate is the roll-up of a loan's schedule stored on the loan row.
type LoanAggregate struct {
	TotalPaidAmount decimal.Decimal `json:"total_paid_amount" db:"total_paid_amount"`
	PaidPeriods     int             `json:"paid_periods" db:"paid_periods"`
	OverduePeriods  int             `json:"overdue_periods" db:"overdue_periods"`
	NextPaymentDate *time.Time      `json:"next_payment_date" db:"next_payment_date"`
	LastPaymentDate *time.Time      `json:"last_payment_date" db:"last_payment_date"`
	RepaymentStatus RepaymentStatus `json:"repayment_status" db:"repayment_status"`
}

// ComputeAggregate rebuilds the roll-up from every entry of a loan. The
// entries may arrive in any order.
func ComputeAggregate(entries []*ScheduleEntry) LoanAggregate {
	agg := LoanAggregate{
		TotalPaidAmount: decimal.Zero,
		RepaymentStatus: RepaymentStatusNotStarted,
	}
	if len(entries) == 0 {
		return agg
	}

	var next, lastPaid *ScheduleEntry
	touched := false
	for _, e := range entries {
		agg.TotalPaidAmount = agg.TotalPaidAmount.Add(e.PaidAmount)
		switch e.Status {
		case ScheduleStatusPaid:
			agg.PaidPeriods++
			touched = true
			if lastPaid == nil || e.PeriodNumber > lastPaid.PeriodNumber {
				lastPaid = e
			}
		case ScheduleStatusOverdue:
			agg.OverduePeriods++
		case ScheduleStatusPartial:
			touched = true
		}
		if e.Status != ScheduleStatusPaid && (next == nil || e.PeriodNumber < next.PeriodNumber) {
			next = e
		}
	}

	if next != nil {
		due := next.DueDate
		agg.NextPaymentDate = &due
	}
	if lastPaid != nil && lastPaid.PaidDate != nil {
		paid := *lastPaid.PaidDate
		agg.LastPaymentDate = &paid
	}

	switch {
	case agg.PaidPeriods == len(entries):
		agg.RepaymentStatus = RepaymentStatusCompleted
	case agg.OverduePeriods > 0:
		agg.RepaymentStatus = RepaymentStatusOverdue
	case touched:
		agg.RepaymentStatus = RepaymentStatusInProgress
	default:
		agg.RepaymentStatus = RepaymentStatusNotStarted
	}
	return agg
}

func ComputeStats(entries []*ScheduleEntry) PaymentStats {
	stats := PaymentStats{
		TotalPeriods:    len(entries),
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
		ProgressPercent: decimal.Zero,
	}
	for _, e := range entries {
		stats.TotalAmount = stats.TotalAmount.Add(e.TotalAmount)
		stats.PaidAmount = stats.PaidAmount.Add(e.PaidAmount)
		switch e.Status {
		case ScheduleStatusPaid:
			stats.PaidPeriods++
		case ScheduleStatusOverdue:
			stats.OverduePeriods++
		case ScheduleStatusPartial:
			stats.PartialPeriods++
		default:
			stats.PendingPeriods++
		}
	}
	stats.RemainingAmount = stats.TotalAmount.Sub(stats.PaidAmount)
	if stats.TotalAmount.IsPositive() {
		stats.ProgressPercent = utils.RoundCurrency(
			utils.Div(stats.PaidAmount.Mul(decimal.NewFromInt(100)), stats.TotalAmount),
		)
	}
	return stats
}
