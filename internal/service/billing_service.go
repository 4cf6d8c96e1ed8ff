package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/amortization"
	"github.com/segyhp/repayment-engine/internal/config"
	"github.com/segyhp/repayment-engine/internal/domain"
	"github.com/segyhp/repayment-engine/internal/events"
	"github.com/segyhp/repayment-engine/internal/lock"
	"github.com/segyhp/repayment-engine/internal/metrics"
	"github.com/segyhp/repayment-engine/internal/repository"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
	"github.com/segyhp/repayment-engine/pkg/utils"
)

// Dependencies wires the service. Cache, Publisher and Metrics are optional.
type Dependencies struct {
	Loans     repository.LoanRepository
	Schedules repository.ScheduleRepository
	Payments  repository.PaymentRepository
	Cache     repository.CacheRepository
	Locker    lock.Locker
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Config    *config.Config
	Now       func() time.Time
}

type BillingService struct {
	loans     repository.LoanRepository
	schedules repository.ScheduleRepository
	payments  repository.PaymentRepository
	cache     repository.CacheRepository
	locker    lock.Locker
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	config    *config.Config
	now       func() time.Time
}

func NewBillingService(deps Dependencies) *BillingService {
	s := &BillingService{
		loans:     deps.Loans,
		schedules: deps.Schedules,
		payments:  deps.Payments,
		cache:     deps.Cache,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		config:    deps.Config,
		now:       deps.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.locker == nil {
		s.locker = lock.NewMemoryLocker(5 * time.Second)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// CreateLoan stores an active loan and generates its schedule.
func (s *BillingService) CreateLoan(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	method, ok := domain.ParseRepaymentMethod(req.RepaymentMethod)
	if !ok {
		return nil, customError.WrapInvalidParameters("unsupported repayment method " + req.RepaymentMethod)
	}
	principal := utils.RoundCurrency(req.Amount)
	if err := amortization.Validate(principal, req.InterestRate, req.Term); err != nil {
		return nil, err
	}

	now := s.now()
	loan := &domain.Loan{
		ID:              uuid.New(),
		LoanName:        strings.TrimSpace(req.LoanName),
		ApplicantID:     req.ApplicantID,
		ApplicantName:   req.ApplicantName,
		Bank:            req.Bank,
		Purpose:         req.Purpose,
		Collateral:      req.Collateral,
		Amount:          principal,
		InterestRate:    req.InterestRate,
		Term:            req.Term,
		RepaymentMethod: method,
		Status:          domain.LoanStatusActive,
		MonthlyPayment:  decimal.Zero,
		TotalPayment:    decimal.Zero,
		TotalInterest:   decimal.Zero,
		LoanAggregate:   domain.ComputeAggregate(nil),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.RepaymentStartDate != nil {
		start := *req.RepaymentStartDate
		loan.RepaymentStartDate = &start
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, err
	}

	var entries []*domain.ScheduleEntry
	err := s.withLoanLock(ctx, loan.ID, func() error {
		var err error
		entries, err = s.regenerate(ctx, loan, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("method", string(method)),
		zap.String("amount", principal.StringFixed(2)),
		zap.Int("term", loan.Term),
	)
	return &domain.CreateLoanResponse{Loan: loan, Schedule: entries}, nil
}

func (s *BillingService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.loans.GetByID(ctx, loanID)
}

func (s *BillingService) ListLoans(ctx context.Context, q domain.LoanListQuery) (*domain.LoanListResponse, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = s.defaultPageSize()
	}
	if max := s.maxPageSize(); q.PerPage > max {
		q.PerPage = max
	}

	loans, total, err := s.loans.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &domain.LoanListResponse{
		Items:      loans,
		Pagination: domain.NewPagination(q.Page, q.PerPage, total),
	}, nil
}

// UpdateLoan applies the changed fields. Changing principal, rate, term or method
// regenerates the schedule, which is refused once a period is paid.
func (s *BillingService) UpdateLoan(ctx context.Context, loanID uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	var updated *domain.Loan
	err := s.withLoanLock(ctx, loanID, func() error {
		loan, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}

		if req.LoanName != nil {
			loan.LoanName = strings.TrimSpace(*req.LoanName)
		}
		if req.Bank != nil {
			loan.Bank = *req.Bank
		}
		if req.Purpose != nil {
			loan.Purpose = *req.Purpose
		}
		if req.Collateral != nil {
			loan.Collateral = *req.Collateral
		}
		loan.UpdatedAt = s.now()

		if !req.ChangesTerms(loan.Terms()) {
			updated = loan
			return s.loans.Update(ctx, loan)
		}

		if req.Amount != nil {
			loan.Amount = utils.RoundCurrency(*req.Amount)
		}
		if req.InterestRate != nil {
			loan.InterestRate = *req.InterestRate
		}
		if req.Term != nil {
			loan.Term = *req.Term
		}
		if req.RepaymentMethod != nil {
			method, ok := domain.ParseRepaymentMethod(*req.RepaymentMethod)
			if !ok {
				return customError.WrapInvalidParameters("unsupported repayment method " + *req.RepaymentMethod)
			}
			loan.RepaymentMethod = method
		}

		existing, err := s.schedules.GetByLoanID(ctx, loan.ID)
		if err != nil {
			return err
		}
		if _, err := s.regenerate(ctx, loan, existing); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteLoan removes a loan and its schedule. Loans with recorded payments are kept.
func (s *BillingService) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	return s.withLoanLock(ctx, loanID, func() error {
		if _, err := s.loans.GetByID(ctx, loanID); err != nil {
			return err
		}
		count, err := s.payments.CountByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		if count > 0 {
			return customError.WrapLoanHasPayments(loanID.String(), count)
		}
		if err := s.loans.Delete(ctx, loanID); err != nil {
			return err
		}
		s.log.Info("loan deleted", zap.String("loan_id", loanID.String()))
		return nil
	})
}

// withLoanLock runs fn while holding the loan's mutation lock.
func (s *BillingService) withLoanLock(ctx context.Context, loanID uuid.UUID, fn func() error) error {
	release, err := s.locker.Acquire(ctx, loanID.String())
	if err != nil {
		s.metrics.LockFailed()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return customError.WrapLockNotAcquired(loanID.String(), err)
	}
	defer release()
	return fn()
}

func (s *BillingService) publish(ctx context.Context, evts ...events.Event) {
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.log.Warn("publish events failed", zap.Int("count", len(evts)), zap.Error(err))
	}
}

func (s *BillingService) defaultPageSize() int {
	if s.config != nil && s.config.Business.DefaultPageSize > 0 {
		return s.config.Business.DefaultPageSize
	}
	return 10
}

func (s *BillingService) maxPageSize() int {
	if s.config != nil && s.config.Business.MaxPageSize > 0 {
		return s.config.Business.MaxPageSize
	}
	return 100
}
