package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory domain.Store. WithTransaction snapshots state and
// restores it when fn fails, which is enough to observe rollback.
type memStore struct {
	mu       sync.Mutex
	members  map[int64]*domain.Member
	accounts map[int64]*domain.Account
	keys     map[int64]*domain.KeyPair
	nextID   int64
	txCount  int
}

func newMemStore(memberIDs ...int64) *memStore {
	s := &memStore{
		members:  map[int64]*domain.Member{},
		accounts: map[int64]*domain.Account{},
		keys:     map[int64]*domain.KeyPair{},
	}
	for _, id := range memberIDs {
		s.members[id] = &domain.Member{ID: id, CreatedAt: time.Now()}
	}
	return s
}

func (s *memStore) transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *memStore) Members() domain.MemberRepository   { return memMembers{s} }
func (s *memStore) Accounts() domain.AccountRepository { return memAccounts{s} }
func (s *memStore) KeyPairs() domain.KeyPairRepository { return memKeys{s} }

func (s *memStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	s.mu.Lock()
	s.txCount++
	snapshot := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type memState struct {
	members  map[int64]domain.Member
	accounts map[int64]domain.Account
	keys     map[int64]domain.KeyPair
	nextID   int64
}

func (s *memStore) snapshot() memState {
	st := memState{
		members:  map[int64]domain.Member{},
		accounts: map[int64]domain.Account{},
		keys:     map[int64]domain.KeyPair{},
		nextID:   s.nextID,
	}
	for k, v := range s.members {
		st.members[k] = *v
	}
	for k, v := range s.accounts {
		st.accounts[k] = *v
	}
	for k, v := range s.keys {
		st.keys[k] = *v
	}
	return st
}

func (s *memStore) restore(st memState) {
	s.members = map[int64]*domain.Member{}
	s.accounts = map[int64]*domain.Account{}
	s.keys = map[int64]*domain.KeyPair{}
	for k, v := range st.members {
		v := v
		s.members[k] = &v
	}
	for k, v := range st.accounts {
		v := v
		s.accounts[k] = &v
	}
	for k, v := range st.keys {
		v := v
		s.keys[k] = &v
	}
	s.nextID = st.nextID
}

func (s *memStore) accountByID(id int64) *domain.Account {
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

type memMembers struct{ s *memStore }

func (r memMembers) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, errors.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (r memMembers) UpdatePushToken(ctx context.Context, id int64, token *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return errors.ErrMemberNotFound
	}
	if token == nil {
		m.PushToken = nil
	} else {
		t := *token
		m.PushToken = &t
	}
	return nil
}

type memAccounts struct{ s *memStore }

func (r memAccounts) CreateAccount(ctx context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.members[account.MemberID]; !ok {
		return errors.ErrMemberNotFound
	}
	if _, ok := r.s.accounts[account.MemberID]; ok {
		return errors.ErrDuplicateAccount
	}
	r.s.nextID++
	now := time.Now().UTC()
	account.ID = r.s.nextID
	account.CreatedAt = now
	account.UpdatedAt = now
	cp := *account
	r.s.accounts[account.MemberID] = &cp
	return nil
}

func (r memAccounts) GetAccountByMember(ctx context.Context, memberID int64) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[memberID]
	if !ok {
		return nil, errors.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r memAccounts) DeleteAccount(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := r.s.accountByID(id)
	if a == nil {
		return errors.ErrAccountNotFound
	}
	delete(r.s.accounts, a.MemberID)
	return nil
}

func (r memAccounts) update(id int64, apply func(a *domain.Account)) (time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := r.s.accountByID(id)
	if a == nil {
		return time.Time{}, errors.ErrAccountNotFound
	}
	apply(a)
	next := time.Now().UTC()
	if !next.After(a.UpdatedAt) {
		next = a.UpdatedAt.Add(time.Microsecond)
	}
	a.UpdatedAt = next
	return next, nil
}

func (r memAccounts) UpdateName(ctx context.Context, id int64, name string) (time.Time, error) {
	return r.update(id, func(a *domain.Account) { a.Name = name })
}

func (r memAccounts) UpdatePassword(ctx context.Context, id int64, hash string) (time.Time, error) {
	return r.update(id, func(a *domain.Account) { a.Password = hash })
}

func (r memAccounts) UpdatePayDate(ctx context.Context, id int64, day int) (time.Time, error) {
	return r.update(id, func(a *domain.Account) { a.PayDate = day })
}

func (r memAccounts) UpdateMinAmount(ctx context.Context, id int64, amount decimal.Decimal) (time.Time, error) {
	return r.update(id, func(a *domain.Account) { a.MinAmount = amount })
}

type memKeys struct{ s *memStore }

func (r memKeys) SaveKeyPair(ctx context.Context, kp *domain.KeyPair) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *kp
	cp.CreatedAt = time.Now().UTC()
	r.s.keys[kp.MemberID] = &cp
	return nil
}

func (r memKeys) GetKeyPair(ctx context.Context, memberID int64) (*domain.KeyPair, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kp, ok := r.s.keys[memberID]
	if !ok {
		return nil, errors.ErrKeyPairNotFound
	}
	cp := *kp
	return &cp, nil
}

func (r memKeys) DeleteKeyPair(ctx context.Context, memberID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.keys, memberID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AccountEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.AccountEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
