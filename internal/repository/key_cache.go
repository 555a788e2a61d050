package repository

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

// keyInvalidations collects the members whose key pair a transaction wrote.
// Their cache entries are dropped once the transaction ends, whatever its outcome.
type keyInvalidations struct {
	mu      sync.Mutex
	members map[int64]struct{}
}

func newKeyInvalidations() *keyInvalidations {
	return &keyInvalidations{members: map[int64]struct{}{}}
}

func (p *keyInvalidations) add(memberID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[memberID] = struct{}{}
}

func (p *keyInvalidations) has(memberID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.members[memberID]
	return ok
}

func (p *keyInvalidations) drain() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.members))
	for id := range p.members {
		ids = append(ids, id)
	}
	p.members = map[int64]struct{}{}
	return ids
}

// cachedKeyPairRepository reads key pairs through an external cache in front
// of the member_keys table. Writes only touch the table, so they commit or roll
// back with the surrounding transaction; the cache entry is invalidated after.
type cachedKeyPairRepository struct {
	source  domain.KeyPairRepository
	cache   domain.KeyPairRepository
	pending *keyInvalidations // nil outside a transaction
	logger  *slog.Logger
}

func (r *cachedKeyPairRepository) SaveKeyPair(ctx context.Context, kp *domain.KeyPair) error {
	if err := r.source.SaveKeyPair(ctx, kp); err != nil {
		return err
	}
	r.invalidate(ctx, kp.MemberID)
	return nil
}

func (r *cachedKeyPairRepository) GetKeyPair(ctx context.Context, memberID int64) (*domain.KeyPair, error) {
	// A pair written by this transaction is only visible through it.
	if r.pending != nil && r.pending.has(memberID) {
		return r.source.GetKeyPair(ctx, memberID)
	}

	kp, err := r.cache.GetKeyPair(ctx, memberID)
	if err == nil {
		return kp, nil
	}
	if !stderrors.Is(err, errors.ErrKeyPairNotFound) {
		r.logger.Warn("Key cache read failed, using database", "member_id", memberID, "error", err)
	}

	kp, err = r.source.GetKeyPair(ctx, memberID)
	if err != nil {
		return nil, err
	}

	fill := *kp
	if err := r.cache.SaveKeyPair(ctx, &fill); err != nil {
		r.logger.Warn("Failed to fill key cache", "member_id", memberID, "error", err)
	}
	return kp, nil
}

func (r *cachedKeyPairRepository) DeleteKeyPair(ctx context.Context, memberID int64) error {
	if err := r.source.DeleteKeyPair(ctx, memberID); err != nil {
		return err
	}
	r.invalidate(ctx, memberID)
	return nil
}

func (r *cachedKeyPairRepository) invalidate(ctx context.Context, memberID int64) {
	if r.pending != nil {
		r.pending.add(memberID)
		return
	}
	evictKeyPair(ctx, r.cache, memberID, r.logger)
}

func evictKeyPair(ctx context.Context, cache domain.KeyPairRepository, memberID int64, logger *slog.Logger) {
	if err := cache.DeleteKeyPair(context.WithoutCancel(ctx), memberID); err != nil {
		logger.Error("Failed to invalidate cached key pair", "member_id", memberID, "error", err)
	}
}
