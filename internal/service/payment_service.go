package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/domain"
	"github.com/segyhp/repayment-engine/internal/events"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

// RecordPayment applies a payment to one period. A nil amount pays the period's
// outstanding balance plus any unpaid late fee. The entry, the payment record and the loan aggregate are
// written in one transaction.
func (s *BillingService) RecordPayment(ctx context.Context, loanID uuid.UUID, req *domain.RecordPaymentRequest, recordedBy string) (*domain.RecordPaymentResponse, error) {
	var resp *domain.RecordPaymentResponse
	err := s.withLoanLock(ctx, loanID, func() error {
		loan, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		entries, err := s.schedules.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}

		now := s.now()
		var target *domain.ScheduleEntry
		changed := make([]*domain.ScheduleEntry, 0, 1)
		flipped := 0
		for _, e := range entries {
			if e.PeriodNumber == req.PeriodNumber {
				target = e
			}
			if e.RefreshOverdue(now) {
				e.UpdatedAt = now
				flipped++
				if e.PeriodNumber != req.PeriodNumber {
					changed = append(changed, e)
				}
			}
		}
		if target == nil {
			return customError.WrapPeriodNotFound(loanID.String(), req.PeriodNumber)
		}

		amount := target.AmountDue()
		if req.Amount != nil {
			amount = utils.RoundCurrency(*req.Amount)
		}
		meta := req.Metadata(recordedBy)
		settlement, err := target.Apply(amount, meta, now)
		if err != nil {
			return err
		}
		target.UpdatedAt = now
		changed = append(changed, target)

		payment := domain.NewPayment(target, amount, settlement, meta, now)
		wasCompleted := loan.RepaymentStatus == domain.RepaymentStatusCompleted
		loan.ApplyAggregate(domain.ComputeAggregate(entries))
		loan.UpdatedAt = now

		if err := s.schedules.Save(ctx, loan, changed, payment); err != nil {
			return err
		}

		s.metrics.PeriodsOverdue(flipped)
		s.metrics.PaymentRecorded(string(settlement), amount.InexactFloat64())

		evt := events.New(events.TypePaymentRecorded, loanID, now)
		evt.PeriodNumber = target.PeriodNumber
		evt.Amount = &payment.Amount
		evt.Status = string(target.Status)
		evts := []events.Event{evt}
		if !wasCompleted && loan.RepaymentStatus == domain.RepaymentStatusCompleted {
			evts = append(evts, events.New(events.TypeLoanCompleted, loanID, now))
		}
		s.publish(ctx, evts...)

		s.log.Info("payment recorded",
			zap.String("loan_id", loanID.String()),
			zap.Int("period", target.PeriodNumber),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("settlement", string(settlement)),
			zap.String("repayment_status", string(loan.RepaymentStatus)),
		)

		resp = &domain.RecordPaymentResponse{
			Payment:   payment,
			Entry:     target,
			Aggregate: loan.LoanAggregate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPayments lists a loan's payments, newest first.
func (s *BillingService) GetPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.loans.GetByID(ctx, loanID); err != nil {
		return nil, err
	}
	return s.payments.GetByLoanID(ctx, loanID)
}

func (s *BillingService) GetPaymentStats(ctx context.Context, loanID uuid.UUID) (*domain.PaymentStats, error) {
	resp, err := s.GetSchedule(ctx, loanID, "")
	if err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}
