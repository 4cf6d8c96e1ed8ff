package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/repayment-engine/internal/domain"
)

// withTx runs fn in a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const updateLoanQuery = `
	UPDATE loans
	SET loan_name = :loan_name, bank = :bank, purpose = :purpose, collateral = :collateral,
		amount = :amount, interest_rate = :interest_rate, term = :term, repayment_method = :repayment_method,
		status = :status, monthly_payment = :monthly_payment, total_payment = :total_payment,
		total_interest = :total_interest, repayment_start_date = :repayment_start_date,
		total_paid_amount = :total_paid_amount, paid_periods = :paid_periods, overdue_periods = :overdue_periods,
		next_payment_date = :next_payment_date, last_payment_date = :last_payment_date,
		repayment_status = :repayment_status, updated_at = :updated_at
	WHERE id = :id
`

// execUpdateLoan stores the loan row through any sqlx executor.
func execUpdateLoan(ctx context.Context, ext sqlx.ExtContext, loan *domain.Loan) (int64, error) {
	res, err := sqlx.NamedExecContext(ctx, ext, updateLoanQuery, loan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
