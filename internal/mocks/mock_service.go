package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/repayment-engine/internal/amortization"
	"github.com/segyhp/repayment-engine/internal/domain"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) CreateLoan(ctx context.Context, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLoanResponse), args.Error(1)
}

func (m *MockBillingService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockBillingService) ListLoans(ctx context.Context, q domain.LoanListQuery) (*domain.LoanListResponse, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanListResponse), args.Error(1)
}

func (m *MockBillingService) UpdateLoan(ctx context.Context, loanID uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockBillingService) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

func (m *MockBillingService) GenerateSchedule(ctx context.Context, loanID uuid.UUID, startDate *time.Time) (*domain.LoanScheduleResponse, error) {
	args := m.Called(ctx, loanID, startDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanScheduleResponse), args.Error(1)
}

func (m *MockBillingService) GetSchedule(ctx context.Context, loanID uuid.UUID, status string) (*domain.LoanScheduleResponse, error) {
	args := m.Called(ctx, loanID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanScheduleResponse), args.Error(1)
}

func (m *MockBillingService) UpdatePeriod(ctx context.Context, loanID uuid.UUID, edit domain.PeriodEdit, editor string) (*domain.ScheduleEntry, error) {
	args := m.Called(ctx, loanID, edit, editor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleEntry), args.Error(1)
}

func (m *MockBillingService) BatchEdit(ctx context.Context, loanID uuid.UUID, req domain.BatchEditRequest, editor string) ([]*domain.ScheduleEntry, error) {
	args := m.Called(ctx, loanID, req, editor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduleEntry), args.Error(1)
}

func (m *MockBillingService) RecordPayment(ctx context.Context, loanID uuid.UUID, req *domain.RecordPaymentRequest, recordedBy string) (*domain.RecordPaymentResponse, error) {
	args := m.Called(ctx, loanID, req, recordedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordPaymentResponse), args.Error(1)
}

func (m *MockBillingService) GetPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockBillingService) GetPaymentStats(ctx context.Context, loanID uuid.UUID) (*domain.PaymentStats, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentStats), args.Error(1)
}

func (m *MockBillingService) CalculateEqualInstallment(ctx context.Context, req amortization.CalculationRequest) (*amortization.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amortization.Result), args.Error(1)
}

func (m *MockBillingService) CalculateEqualPrincipal(ctx context.Context, req amortization.CalculationRequest) (*amortization.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amortization.Result), args.Error(1)
}

func (m *MockBillingService) CompareRepaymentMethods(ctx context.Context, req amortization.CalculationRequest) (*amortization.Comparison, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amortization.Comparison), args.Error(1)
}

func (m *MockBillingService) CalculatePrepayment(ctx context.Context, req amortization.PrepaymentRequest) (*amortization.PrepaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*amortization.PrepaymentResult), args.Error(1)
}
