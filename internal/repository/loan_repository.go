package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

const loanColumns = `
	id, loan_name, applicant_id, applicant_name, bank, purpose, collateral,
	amount, interest_rate, term, repayment_method, status,
	monthly_payment, total_payment, total_interest, repayment_start_date,
	total_paid_amount, paid_periods, overdue_periods, next_payment_date, last_payment_date, repayment_status,
	created_at, updated_at
`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (
			:id, :loan_name, :applicant_id, :applicant_name, :bank, :purpose, :collateral,
			:amount, :interest_rate, :term, :repayment_method, :status,
			:monthly_payment, :total_payment, :total_interest, :repayment_start_date,
			:total_paid_amount, :paid_periods, :overdue_periods, :next_payment_date, :last_payment_date, :repayment_status,
			:created_at, :updated_at
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, loan); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(id.String())
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, q domain.LoanListQuery) ([]*domain.Loan, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.RepaymentStatus != "" {
		args = append(args, q.RepaymentStatus)
		where = append(where, fmt.Sprintf("repayment_status = $%d", len(args)))
	}
	if q.ApplicantID != "" {
		args = append(args, q.ApplicantID)
		where = append(where, fmt.Sprintf("applicant_id = $%d", len(args)))
	}

	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM loans`+filter, args...); err != nil {
		return nil, 0, customError.WrapDatabaseError(err)
	}

	offset := (q.Page - 1) * q.PerPage
	if offset < 0 {
		offset = 0
	}
	args = append(args, q.PerPage, offset)
	query := fmt.Sprintf(`SELECT %s FROM loans%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		loanColumns, filter, len(args)-1, len(args))

	loans := []*domain.Loan{}
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, 0, customError.WrapDatabaseError(err)
	}

	return loans, total, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	affected, err := execUpdateLoan(ctx, r.db, loan)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if affected == 0 {
		return customError.WrapLoanNotFound(loan.ID.String())
	}
	return nil
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if affected == 0 {
		return customError.WrapLoanNotFound(id.String())
	}
	return nil
}

func (r *loanRepository) ListWithArrears(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT s.loan_id
		FROM repayment_schedules s
		JOIN loans l ON l.id = s.loan_id
		WHERE l.status = $1 AND s.status <> $2 AND s.due_date < $3
		ORDER BY s.loan_id
	`

	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, query, domain.LoanStatusActive, domain.ScheduleStatusPaid, asOf); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return ids, nil
}
