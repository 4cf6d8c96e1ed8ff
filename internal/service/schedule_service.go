package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/amortization"
	"github.com/segyhp/repayment-engine/internal/domain"
	"github.com/segyhp/repayment-engine/internal/events"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

// GenerateSchedule (re)builds the loan's schedule. startDate may only be given
// while the loan has no start date yet, or when it matches the stored one.
func (s *BillingService) GenerateSchedule(ctx context.Context, loanID uuid.UUID, startDate *time.Time) (*domain.LoanScheduleResponse, error) {
	var resp *domain.LoanScheduleResponse
	err := s.withLoanLock(ctx, loanID, func() error {
		loan, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}

		if startDate != nil {
			if loan.RepaymentStartDate != nil && !sameDay(*loan.RepaymentStartDate, *startDate) {
				return customError.WrapInvalidParameters(fmt.Sprintf(
					"repayment start date is already set to %s", loan.RepaymentStartDate.Format("2006-01-02")))
			}
			start := *startDate
			loan.RepaymentStartDate = &start
		}

		existing, err := s.schedules.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		entries, err := s.regenerate(ctx, loan, existing)
		if err != nil {
			return err
		}
		resp = &domain.LoanScheduleResponse{
			Loan:     loan,
			Schedule: entries,
			Stats:    domain.ComputeStats(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// regenerate calculates the loan's terms, binds them to due dates and replaces the
// stored schedule. existing is the schedule currently stored; regeneration is refused
// while any of it is paid. The caller holds the loan lock.
func (s *BillingService) regenerate(ctx context.Context, loan *domain.Loan, existing []*domain.ScheduleEntry) ([]*domain.ScheduleEntry, error) {
	for _, e := range existing {
		if e.IsSettled() {
			return nil, customError.WrapScheduleExistsWithPayments(loan.ID.String())
		}
	}

	result, err := amortization.Calculate(loan.Terms())
	if err != nil {
		return nil, err
	}

	if loan.RepaymentStartDate == nil {
		start := utils.AddMonths(truncateDay(loan.CreatedAt), 1)
		loan.RepaymentStartDate = &start
	}

	now := s.now()
	stored := make(map[uuid.UUID]*domain.ScheduleEntry, len(existing))
	for _, e := range existing {
		stored[e.ID] = e
	}
	entries := amortization.BuildSchedule(loan.ID, result, *loan.RepaymentStartDate)
	for _, e := range entries {
		e.CreatedAt, e.UpdatedAt = now, now
		// unchanged periods keep their timestamps
		if old, ok := stored[e.ID]; ok {
			e.CreatedAt = old.CreatedAt
			if old.SamePlan(e) {
				e.UpdatedAt = old.UpdatedAt
			}
		}
	}

	loan.MonthlyPayment = result.MonthlyPayment
	loan.TotalPayment = result.TotalPayment
	loan.TotalInterest = result.TotalInterest
	loan.ApplyAggregate(domain.ComputeAggregate(entries))
	loan.UpdatedAt = now

	if err := s.schedules.Replace(ctx, loan, entries); err != nil {
		return nil, err
	}

	s.metrics.ScheduleGenerated(string(loan.RepaymentMethod))
	evt := events.New(events.TypeScheduleGenerated, loan.ID, now)
	evt.Amount = &loan.TotalPayment
	s.publish(ctx, evt)

	s.log.Info("schedule generated",
		zap.String("loan_id", loan.ID.String()),
		zap.Int("periods", len(entries)),
		zap.String("total_interest", loan.TotalInterest.StringFixed(2)),
	)
	return entries, nil
}

// GetSchedule returns the loan's schedule ordered by period, optionally filtered
// by status. Pending periods found past due are persisted as overdue first.
func (s *BillingService) GetSchedule(ctx context.Context, loanID uuid.UUID, status string) (*domain.LoanScheduleResponse, error) {
	var filter domain.ScheduleStatus
	if status != "" {
		filter = domain.ScheduleStatus(status)
		if !filter.Valid() {
			return nil, customError.WrapInvalidParameters("unknown schedule status " + status)
		}
	}

	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	entries, err := s.schedules.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if hasNewArrears(entries, s.now()) {
		err = s.withLoanLock(ctx, loanID, func() error {
			loan, entries, err = s.refreshArrears(ctx, loanID, false)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	resp := &domain.LoanScheduleResponse{
		Loan:     loan,
		Schedule: entries,
		Stats:    domain.ComputeStats(entries),
	}
	if filter != "" {
		filtered := make([]*domain.ScheduleEntry, 0, len(entries))
		for _, e := range entries {
			if e.Status == filter {
				filtered = append(filtered, e)
			}
		}
		resp.Schedule = filtered
	}
	return resp, nil
}

// UpdatePeriod applies a manual correction to one period.
func (s *BillingService) UpdatePeriod(ctx context.Context, loanID uuid.UUID, edit domain.PeriodEdit, editor string) (*domain.ScheduleEntry, error) {
	entries, err := s.BatchEdit(ctx, loanID, domain.BatchEditRequest{Schedules: []domain.PeriodEdit{edit}}, editor)
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

// BatchEdit applies every edit or none. Each edit is validated against a copy of its
// period before anything is written.
func (s *BillingService) BatchEdit(ctx context.Context, loanID uuid.UUID, req domain.BatchEditRequest, editor string) ([]*domain.ScheduleEntry, error) {
	if len(req.Schedules) == 0 {
		return nil, customError.WrapInvalidParameters("no periods to update")
	}

	var edited []*domain.ScheduleEntry
	err := s.withLoanLock(ctx, loanID, func() error {
		loan, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		entries, err := s.schedules.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}

		byPeriod := make(map[int]*domain.ScheduleEntry, len(entries))
		for _, e := range entries {
			byPeriod[e.PeriodNumber] = e
		}

		now := s.now()
		staged := make(map[int]*domain.ScheduleEntry, len(req.Schedules))
		order := make([]int, 0, len(req.Schedules))
		for _, edit := range req.Schedules {
			current, ok := staged[edit.PeriodNumber]
			if !ok {
				stored, found := byPeriod[edit.PeriodNumber]
				if !found {
					return customError.WrapPeriodNotFound(loanID.String(), edit.PeriodNumber)
				}
				clone := *stored
				current = &clone
				staged[edit.PeriodNumber] = current
				order = append(order, edit.PeriodNumber)
			}
			if err := current.ApplyEdit(edit, editor); err != nil {
				return err
			}
			current.UpdatedAt = now
		}

		changed := make([]*domain.ScheduleEntry, 0, len(order))
		for _, period := range order {
			changed = append(changed, staged[period])
		}

		// the aggregate is computed over the stored set with the edits swapped in
		merged := make([]*domain.ScheduleEntry, 0, len(entries))
		for _, e := range entries {
			if c, ok := staged[e.PeriodNumber]; ok {
				merged = append(merged, c)
			} else {
				merged = append(merged, e)
			}
		}
		loan.ApplyAggregate(domain.ComputeAggregate(merged))
		loan.UpdatedAt = now

		if err := s.schedules.Save(ctx, loan, changed, nil); err != nil {
			return err
		}

		s.log.Info("schedule periods edited",
			zap.String("loan_id", loanID.String()),
			zap.Ints("periods", order),
			zap.String("editor", editor),
		)
		edited = changed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// refreshArrears reloads the loan under its lock, flips pending periods past due to
// overdue and, when accrue is set, recalculates their late fees. Changed periods and
// the recomputed aggregate are saved together.
func (s *BillingService) refreshArrears(ctx context.Context, loanID uuid.UUID, accrue bool) (*domain.Loan, []*domain.ScheduleEntry, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.schedules.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	var changed []*domain.ScheduleEntry
	var flipped []*domain.ScheduleEntry
	accrued := 0.0
	for _, e := range entries {
		dirty := false
		if e.RefreshOverdue(now) {
			flipped = append(flipped, e)
			dirty = true
		}
		if accrue && e.Status == domain.ScheduleStatusOverdue {
			fee := e.CalculateLateFee(s.lateFeeRate(), now)
			if !fee.Equal(e.LateFee) {
				accrued += fee.Sub(e.LateFee).InexactFloat64()
				e.LateFee = fee
				dirty = true
			}
		}
		if dirty {
			e.UpdatedAt = now
			changed = append(changed, e)
		}
	}
	if len(changed) == 0 {
		return loan, entries, nil
	}

	loan.ApplyAggregate(domain.ComputeAggregate(entries))
	loan.UpdatedAt = now
	if err := s.schedules.Save(ctx, loan, changed, nil); err != nil {
		return nil, nil, err
	}

	s.metrics.PeriodsOverdue(len(flipped))
	if accrued > 0 {
		s.metrics.LateFeeAccrued(accrued)
	}
	evts := make([]events.Event, 0, len(flipped))
	for _, e := range flipped {
		evt := events.New(events.TypePeriodOverdue, loanID, now)
		evt.PeriodNumber = e.PeriodNumber
		outstanding := e.Outstanding()
		evt.Amount = &outstanding
		due := e.DueDate
		evt.DueDate = &due
		evt.Status = string(e.Status)
		evts = append(evts, evt)
	}
	if len(evts) > 0 {
		s.publish(ctx, evts...)
	}
	return loan, entries, nil
}

func hasNewArrears(entries []*domain.ScheduleEntry, now time.Time) bool {
	for _, e := range entries {
		if e.Status == domain.ScheduleStatusPending && utils.IsDateOverdue(e.DueDate, now) && e.PaidAmount.LessThan(e.TotalAmount) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
