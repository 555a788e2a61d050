package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

// keyCacheTTL bounds how long a cached pair can outlive an eviction that failed.
const keyCacheTTL = time.Hour

// RedisKeyPairRepository keeps member key pairs in an expiring Redis hash per
// member. It serves as the cache in front of member_keys.
type RedisKeyPairRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisKeyPairRepository(client *redis.Client, logger *slog.Logger) *RedisKeyPairRepository {
	return &RedisKeyPairRepository{
		client: client,
		logger: logger,
	}
}

// NewRedisClient connects and pings with the same timeouts the service uses elsewhere.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

func keyPairKey(memberID int64) string {
	return fmt.Sprintf("member:%d:rsa", memberID)
}

var _ domain.KeyPairRepository = (*RedisKeyPairRepository)(nil)

func (r *RedisKeyPairRepository) SaveKeyPair(ctx context.Context, kp *domain.KeyPair) error {
	now := time.Now().UTC()
	createdAt := kp.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	key := keyPairKey(kp.MemberID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"public_key", kp.PublicKey,
			"private_key", kp.PrivateKey,
			"created_at", createdAt.Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, key, keyCacheTTL)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save key pair", "member_id", kp.MemberID, "store", "redis", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to save key pair").WithDetails(err.Error())
	}

	kp.CreatedAt = createdAt
	r.logger.Debug("Key pair cached", "member_id", kp.MemberID, "store", "redis")
	return nil
}

func (r *RedisKeyPairRepository) GetKeyPair(ctx context.Context, memberID int64) (*domain.KeyPair, error) {
	fields, err := r.client.HGetAll(ctx, keyPairKey(memberID)).Result()
	if err != nil {
		r.logger.Error("Failed to get key pair", "member_id", memberID, "store", "redis", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get key pair").WithDetails(err.Error())
	}

	if fields["private_key"] == "" {
		r.logger.Warn("Key pair not found", "member_id", memberID, "store", "redis")
		return nil, errors.ErrKeyPairNotFound
	}

	kp := &domain.KeyPair{
		MemberID:   memberID,
		PublicKey:  fields["public_key"],
		PrivateKey: fields["private_key"],
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		kp.CreatedAt = createdAt
	}
	return kp, nil
}

func (r *RedisKeyPairRepository) DeleteKeyPair(ctx context.Context, memberID int64) error {
	if err := r.client.Del(ctx, keyPairKey(memberID)).Err(); err != nil {
		r.logger.Error("Failed to delete key pair", "member_id", memberID, "store", "redis", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to delete key pair").WithDetails(err.Error())
	}

	r.logger.Info("Key pair deleted", "member_id", memberID, "store", "redis")
	return nil
}
