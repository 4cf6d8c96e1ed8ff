package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/events"
)

// SweepResult reports one arrears sweep.
type SweepResult struct {
	LoansChecked int `json:"loans_checked"`
	LoansFailed  int `json:"loans_failed"`
}

// RefreshArrears flips every pending period past due to overdue and recalculates
// late fees on overdue periods. A failure on one loan is logged and the sweep
// moves on.
func (s *BillingService) RefreshArrears(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	ids, err := s.loans.ListWithArrears(ctx, s.now())
	if err != nil {
		return result, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.LoansChecked++
		if err := s.refreshLoanArrears(ctx, id); err != nil {
			result.LoansFailed++
			s.log.Error("arrears refresh failed", zap.String("loan_id", id.String()), zap.Error(err))
		}
	}

	s.log.Info("arrears sweep finished",
		zap.Int("loans_checked", result.LoansChecked),
		zap.Int("loans_failed", result.LoansFailed),
	)
	return result, nil
}

func (s *BillingService) refreshLoanArrears(ctx context.Context, loanID uuid.UUID) error {
	return s.withLoanLock(ctx, loanID, func() error {
		_, _, err := s.refreshArrears(ctx, loanID, true)
		return err
	})
}

// SendReminders publishes a reminder for every unpaid period due within the
// reminder window and returns how many were sent.
func (s *BillingService) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	from := truncateDay(now)
	to := from.AddDate(0, 0, s.reminderDays()+1)

	entries, err := s.schedules.GetDueBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	evts := make([]events.Event, 0, len(entries))
	for _, e := range entries {
		evt := events.New(events.TypePaymentReminder, e.LoanID, now)
		evt.PeriodNumber = e.PeriodNumber
		outstanding := e.AmountDue()
		evt.Amount = &outstanding
		due := e.DueDate
		evt.DueDate = &due
		evt.Status = string(e.Status)
		evts = append(evts, evt)

		s.log.Info("payment reminder",
			zap.String("loan_id", e.LoanID.String()),
			zap.Int("period", e.PeriodNumber),
			zap.Time("due_date", e.DueDate),
			zap.String("amount_due", outstanding.StringFixed(2)),
		)
	}

	if err := s.publisher.Publish(ctx, evts...); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, err
		}
		s.log.Warn("publish reminders failed", zap.Int("count", len(evts)), zap.Error(err))
	}
	return len(evts), nil
}

func (s *BillingService) lateFeeRate() decimal.Decimal {
	if s.config == nil {
		return decimal.Zero
	}
	return s.config.GetLateFeeRate()
}

func (s *BillingService) reminderDays() int {
	if s.config != nil && s.config.Business.ReminderDays > 0 {
		return s.config.Business.ReminderDays
	}
	return 3
}
