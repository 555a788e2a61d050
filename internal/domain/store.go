package domain

import "context"

// Store groups the repositories of one unit of work.
type Store interface {
	Members() MemberRepository
	Accounts() AccountRepository
	KeyPairs() KeyPairRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
}
