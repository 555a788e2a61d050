package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	executor    SQLExecutor
	keyCache    domain.KeyPairRepository
	pendingKeys *keyInvalidations
	logger      *slog.Logger
}

type StoreOption func(*Store)

// WithKeyPairCache puts an external cache in front of the member_keys table.
// member_keys stays authoritative; cached entries are evicted after every write.
func WithKeyPairCache(cache domain.KeyPairRepository) StoreOption {
	return func(s *Store) {
		s.keyCache = cache
	}
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		executor: db,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*Store)(nil)

func (s *Store) Members() domain.MemberRepository {
	return NewMemberRepository(s.executor, s.logger)
}

func (s *Store) Accounts() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

func (s *Store) KeyPairs() domain.KeyPairRepository {
	source := NewKeyPairRepository(s.executor, s.logger)
	if s.keyCache == nil {
		return source
	}
	return &cachedKeyPairRepository{
		source:  source,
		cache:   s.keyCache,
		pending: s.pendingKeys,
		logger:  s.logger,
	}
}

// WithTransaction executes fn within a database transaction. The transaction is
// rolled back when fn returns an error or panics.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(DB)
	if !ok {
		return errors.ErrCannotBeginTx
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}

	txStore := &Store{
		executor:    tx,
		keyCache:    s.keyCache,
		pendingKeys: newKeyInvalidations(),
		logger:      s.logger,
	}

	// Runs after commit or rollback so no reader refills the cache from a stale row.
	defer s.evictPendingKeys(ctx, txStore.pendingKeys)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) evictPendingKeys(ctx context.Context, pending *keyInvalidations) {
	if s.keyCache == nil {
		return
	}
	for _, memberID := range pending.drain() {
		evictKeyPair(ctx, s.keyCache, memberID, s.logger)
	}
}
