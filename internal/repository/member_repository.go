package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

type memberRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewMemberRepository(db SQLExecutor, logger *slog.Logger) domain.MemberRepository {
	return &memberRepository{
		db:     db,
		logger: logger,
	}
}

func (r *memberRepository) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	query := `SELECT id, name, fcm_token, created_at FROM members WHERE id = $1`

	var member domain.Member
	var token sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&member.ID, &member.Name, &token, &member.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Member not found", "member_id", id)
			return nil, errors.ErrMemberNotFound
		}
		r.logger.Error("Failed to get member", "member_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get member").WithDetails(err.Error())
	}

	if token.Valid {
		member.PushToken = &token.String
	}
	return &member, nil
}

func (r *memberRepository) UpdatePushToken(ctx context.Context, id int64, token *string) error {
	var value interface{}
	if token != nil {
		value = *token
	}

	result, err := r.db.ExecContext(ctx, `UPDATE members SET fcm_token = $1 WHERE id = $2`, value, id)
	if err != nil {
		r.logger.Error("Failed to update push token", "member_id", id, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to update push token").WithDetails(err.Error())
	}

	if err := requireRow(result); err != nil {
		if stderrors.Is(err, errNoRowsAffected) {
			return errors.ErrMemberNotFound
		}
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	r.logger.Info("Push token updated", "member_id", id, "cleared", token == nil)
	return nil
}
