package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/repayment-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan, failing with LOAN_NOT_FOUND when it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// List returns one page of loans, newest first, plus the total match count
	List(ctx context.Context, query domain.LoanListQuery) ([]*domain.Loan, int, error)

	// Update writes descriptive fields, terms, summary and aggregate
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan with its schedule
	Delete(ctx context.Context, id uuid.UUID) error

	// ListWithArrears returns active loans holding an unpaid period due before asOf
	ListWithArrears(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)
}

// ScheduleRepository defines the interface for repayment schedule operations.
// Every write also stores the loan row so the aggregate never lags the entries.
type ScheduleRepository interface {
	// GetByLoanID retrieves all entries of a loan ordered by period
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleEntry, error)

	// Replace deletes the loan's entries and inserts the new set in one transaction.
	// It fails with SCHEDULE_EXISTS_WITH_PAYMENTS if a stored entry is paid.
	Replace(ctx context.Context, loan *domain.Loan, entries []*domain.ScheduleEntry) error

	// Save updates entries under their version and optionally records a payment,
	// all in one transaction. A stale version fails with CONCURRENT_MODIFICATION.
	Save(ctx context.Context, loan *domain.Loan, entries []*domain.ScheduleEntry, payment *domain.Payment) error

	// GetDueBetween returns unpaid entries of active loans due in [from, to)
	GetDueBetween(ctx context.Context, from, to time.Time) ([]*domain.ScheduleEntry, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// GetByLoanID retrieves all payments for a loan, newest first
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// CountByLoanID counts the payments recorded for a loan
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error)
}

// CacheRepository stores JSON-encoded values with an expiry
type CacheRepository interface {
	// Get decodes the cached value into dest and reports whether it was found
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
