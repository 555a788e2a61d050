package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (member_id, number, password, name, balance, min_amount, pay_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id, created_at, updated_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(
		ctx,
		query,
		account.MemberID,
		account.Number,
		account.Password,
		account.Name,
		account.Balance.String(),
		account.MinAmount.String(),
		account.PayDate,
		now,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				r.logger.Warn("Duplicate account creation attempt", "member_id", account.MemberID)
				return errors.ErrDuplicateAccount
			case "23503": // foreign_key_violation
				r.logger.Warn("Account creation for unknown member", "member_id", account.MemberID)
				return errors.ErrMemberNotFound
			}
		}
		r.logger.Error("Failed to create account", "member_id", account.MemberID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	r.logger.Info("Account created successfully", "account_id", account.ID, "member_id", account.MemberID)
	return nil
}

func (r *accountRepository) GetAccountByMember(ctx context.Context, memberID int64) (*domain.Account, error) {
	query := `
		SELECT id, member_id, number, password, name, balance, min_amount, pay_date, created_at, updated_at
		FROM accounts WHERE member_id = $1
	`

	var account domain.Account
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(
		&account.ID,
		&account.MemberID,
		&account.Number,
		&account.Password,
		&account.Name,
		&account.Balance,
		&account.MinAmount,
		&account.PayDate,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Account not found", "member_id", memberID)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "member_id", memberID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
	}

	return &account, nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete account").WithDetails(err.Error())
	}

	if err := requireRow(result); err != nil {
		return r.notFoundOr(err, id)
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}

func (r *accountRepository) UpdateName(ctx context.Context, id int64, name string) (time.Time, error) {
	return r.updateField(ctx, id, "name", name)
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (time.Time, error) {
	return r.updateField(ctx, id, "password", passwordHash)
}

func (r *accountRepository) UpdatePayDate(ctx context.Context, id int64, day int) (time.Time, error) {
	return r.updateField(ctx, id, "pay_date", day)
}

func (r *accountRepository) UpdateMinAmount(ctx context.Context, id int64, amount decimal.Decimal) (time.Time, error) {
	return r.updateField(ctx, id, "min_amount", amount.String())
}

// updatedAtExpr moves updated_at strictly forward even when two writes share a clock tick.
const updatedAtExpr = `GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')`

// updateField writes one column and updated_at in a single statement. column is
// always one of the literals passed by the methods above.
func (r *accountRepository) updateField(ctx context.Context, id int64, column string, value interface{}) (time.Time, error) {
	query := `UPDATE accounts SET ` + column + ` = $1, updated_at = ` + updatedAtExpr + ` WHERE id = $2 RETURNING updated_at`

	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, query, value, id).Scan(&updatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("No account found to update", "account_id", id, "field", column)
			return time.Time{}, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to update account", "account_id", id, "field", column, "error", err)
		return time.Time{}, errors.NewAppError(errors.InternalError, "failed to update account").WithDetails(err.Error())
	}

	r.logger.Info("Account updated", "account_id", id, "field", column)
	return updatedAt, nil
}

func (r *accountRepository) notFoundOr(err error, id int64) error {
	if stderrors.Is(err, errNoRowsAffected) {
		r.logger.Warn("No account found to delete", "account_id", id)
		return errors.ErrAccountNotFound
	}
	return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
}
