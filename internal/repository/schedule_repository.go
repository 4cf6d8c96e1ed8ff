package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-engine/internal/domain"
	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

const scheduleColumns = `
	id, loan_id, period_number, due_date, total_amount, principal_amount, interest_amount, remaining_principal,
	status, paid_amount, paid_principal, paid_interest, paid_date, payment_method, transaction_id, notes, updated_by,
	late_fee, paid_late_fee, version, created_at, updated_at
`

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduleEntry, error) {
	query := `SELECT ` + scheduleColumns + ` FROM repayment_schedules WHERE loan_id = $1 ORDER BY period_number`

	entries := []*domain.ScheduleEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return entries, nil
}

func (r *scheduleRepository) Replace(ctx context.Context, loan *domain.Loan, entries []*domain.ScheduleEntry) error {
	insert := `
		INSERT INTO repayment_schedules (` + scheduleColumns + `)
		VALUES (
			:id, :loan_id, :period_number, :due_date, :total_amount, :principal_amount, :interest_amount, :remaining_principal,
			:status, :paid_amount, :paid_principal, :paid_interest, :paid_date, :payment_method, :transaction_id, :notes, :updated_by,
			:late_fee, :paid_late_fee, :version, :created_at, :updated_at
		)
	`

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Lock the loan row so a concurrent payment cannot slip in between the check and the delete.
		var id uuid.UUID
		if err := tx.GetContext(ctx, &id, `SELECT id FROM loans WHERE id = $1 FOR UPDATE`, loan.ID); err != nil {
			return err
		}

		var paid int
		if err := tx.GetContext(ctx, &paid,
			`SELECT COUNT(*) FROM repayment_schedules WHERE loan_id = $1 AND status = $2`,
			loan.ID, domain.ScheduleStatusPaid); err != nil {
			return err
		}
		if paid > 0 {
			return customError.WrapScheduleExistsWithPayments(loan.ID.String())
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM repayment_schedules WHERE loan_id = $1`, loan.ID); err != nil {
			return err
		}
		for _, entry := range entries {
			if _, err := tx.NamedExecContext(ctx, insert, entry); err != nil {
				return err
			}
		}

		_, err := execUpdateLoan(ctx, tx, loan)
		return err
	})
	return wrapTxError(loan.ID, err)
}

func (r *scheduleRepository) Save(ctx context.Context, loan *domain.Loan, entries []*domain.ScheduleEntry, payment *domain.Payment) error {
	update := `
		UPDATE repayment_schedules
		SET due_date = :due_date, total_amount = :total_amount, principal_amount = :principal_amount,
			interest_amount = :interest_amount, status = :status, paid_amount = :paid_amount,
			paid_principal = :paid_principal, paid_interest = :paid_interest, paid_date = :paid_date,
			payment_method = :payment_method, transaction_id = :transaction_id, notes = :notes,
			updated_by = :updated_by, late_fee = :late_fee, paid_late_fee = :paid_late_fee,
			version = version + 1, updated_at = :updated_at
		WHERE id = :id AND version = :version
	`
	insertPayment := `
		INSERT INTO payments (id, loan_id, schedule_id, period_number, amount, settlement, payment_method,
			transaction_id, notes, recorded_by, paid_at, created_at)
		VALUES (:id, :loan_id, :schedule_id, :period_number, :amount, :settlement, :payment_method,
			:transaction_id, :notes, :recorded_by, :paid_at, :created_at)
	`

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, entry := range entries {
			res, err := tx.NamedExecContext(ctx, update, entry)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return customError.WrapConcurrentModification(loan.ID.String())
			}
		}

		if payment != nil {
			if _, err := tx.NamedExecContext(ctx, insertPayment, payment); err != nil {
				return err
			}
		}

		_, err := execUpdateLoan(ctx, tx, loan)
		return err
	})
	if err != nil {
		return wrapTxError(loan.ID, err)
	}

	for _, entry := range entries {
		entry.Version++
	}
	return nil
}

func (r *scheduleRepository) GetDueBetween(ctx context.Context, from, to time.Time) ([]*domain.ScheduleEntry, error) {
	query := `
		SELECT ` + prefixed("s.", scheduleColumns) + `
		FROM repayment_schedules s
		JOIN loans l ON l.id = s.loan_id
		WHERE l.status = $1 AND s.status <> $2 AND s.due_date >= $3 AND s.due_date < $4
		ORDER BY s.due_date, s.loan_id
	`

	entries := []*domain.ScheduleEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, domain.LoanStatusActive, domain.ScheduleStatusPaid, from, to); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return entries, nil
}

// wrapTxError keeps business errors raised inside a transaction and wraps everything else.
func wrapTxError(loanID uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	if customError.CodeOf(err) != "" {
		return err
	}
	if isNoRows(err) {
		return customError.WrapLoanNotFound(loanID.String())
	}
	return customError.WrapDatabaseError(err)
}
