package amortization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/repayment-engine/internal/domain"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

// entryNamespace scopes the name-based UUIDs of schedule entries.
var entryNamespace = uuid.MustParse("9b7c0a52-3f7e-4d1e-8a3c-6f2d1e5b4a90")

// EntryID is the stable ID of a loan's period; regenerating an unchanged schedule
// reproduces the same IDs.
func EntryID(loanID uuid.UUID, period int) uuid.UUID {
	return uuid.NewSHA1(entryNamespace, []byte(fmt.Sprintf("%s/%d", loanID, period)))
}

// BuildSchedule binds a calculated schedule to calendar due dates. Period k falls
// k calendar months after start.
func BuildSchedule(loanID uuid.UUID, result *Result, start time.Time) []*domain.ScheduleEntry {
	entries := make([]*domain.ScheduleEntry, 0, len(result.Periods))
	for _, p := range result.Periods {
		entries = append(entries, &domain.ScheduleEntry{
			ID:                 EntryID(loanID, p.Period),
			LoanID:             loanID,
			PeriodNumber:       p.Period,
			DueDate:            utils.CalculateDueDate(start, p.Period),
			TotalAmount:        p.Payment,
			PrincipalAmount:    p.Principal,
			InterestAmount:     p.Interest,
			RemainingPrincipal: p.RemainingPrincipal,
			Status:             domain.ScheduleStatusPending,
			PaidAmount:         decimal.Zero,
			PaidPrincipal:      decimal.Zero,
			PaidInterest:       decimal.Zero,
			LateFee:            decimal.Zero,
			PaidLateFee:        decimal.Zero,
			Version:            1,
		})
	}
	return entries
}
