package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

type keyPairRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewKeyPairRepository(db SQLExecutor, logger *slog.Logger) domain.KeyPairRepository {
	return &keyPairRepository{
		db:     db,
		logger: logger,
	}
}

func (r *keyPairRepository) SaveKeyPair(ctx context.Context, kp *domain.KeyPair) error {
	query := `
		INSERT INTO member_keys (member_id, public_key, private_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (member_id) DO UPDATE
		SET public_key = EXCLUDED.public_key,
		    private_key = EXCLUDED.private_key,
		    created_at = EXCLUDED.created_at
	`

	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, kp.MemberID, kp.PublicKey, kp.PrivateKey, now); err != nil {
		r.logger.Error("Failed to save key pair", "member_id", kp.MemberID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to save key pair").WithDetails(err.Error())
	}

	kp.CreatedAt = now
	r.logger.Info("Key pair saved", "member_id", kp.MemberID)
	return nil
}

func (r *keyPairRepository) GetKeyPair(ctx context.Context, memberID int64) (*domain.KeyPair, error) {
	query := `SELECT member_id, public_key, private_key, created_at FROM member_keys WHERE member_id = $1`

	var kp domain.KeyPair
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(&kp.MemberID, &kp.PublicKey, &kp.PrivateKey, &kp.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Key pair not found", "member_id", memberID)
			return nil, errors.ErrKeyPairNotFound
		}
		r.logger.Error("Failed to get key pair", "member_id", memberID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get key pair").WithDetails(err.Error())
	}

	return &kp, nil
}

func (r *keyPairRepository) DeleteKeyPair(ctx context.Context, memberID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM member_keys WHERE member_id = $1`, memberID); err != nil {
		r.logger.Error("Failed to delete key pair", "member_id", memberID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete key pair").WithDetails(err.Error())
	}

	r.logger.Info("Key pair deleted", "member_id", memberID)
	return nil
}
