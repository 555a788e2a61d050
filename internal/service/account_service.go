package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
	"member-accounts/internal/security"
)

const (
	MaxAccountNameLength = 50
	MinPasswordLength    = 4
	MaxPasswordLength    = 64
)

// EventPublisher receives account lifecycle events after they commit.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AccountEvent) error
}

type AccountService struct {
	store     domain.Store
	keys      *KeyService
	hasher    security.PasswordHasher
	numbers   security.AccountNumberGenerator
	publisher EventPublisher
	retention domain.KeyRetention
	logger    *slog.Logger
}

type AccountOption func(*AccountService)

func WithEventPublisher(p EventPublisher) AccountOption {
	return func(s *AccountService) {
		s.publisher = p
	}
}

func WithKeyRetention(r domain.KeyRetention) AccountOption {
	return func(s *AccountService) {
		s.retention = r
	}
}

func NewAccountService(
	store domain.Store,
	keys *KeyService,
	hasher security.PasswordHasher,
	numbers security.AccountNumberGenerator,
	logger *slog.Logger,
	opts ...AccountOption,
) *AccountService {
	s := &AccountService{
		store:     store,
		keys:      keys,
		hasher:    hasher,
		numbers:   numbers,
		retention: domain.KeyRetentionRetain,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateAccountRequest struct {
	Name     string
	Password string
	PayDate  int
}

func (s *AccountService) CreateAccount(ctx context.Context, memberID int64, req CreateAccountRequest) (*domain.CreatedAccount, error) {
	s.logger.Info("Creating account", "member_id", memberID)

	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := validatePayDate(req.PayDate); err != nil {
		return nil, err
	}

	publicKey, privateKey, err := s.keys.GenerateKeyPair()
	if err != nil {
		s.logger.Error("Failed to generate key pair", "member_id", memberID, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to generate key pair").WithDetails(err.Error())
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to hash password").WithDetails(err.Error())
	}

	var created domain.CreatedAccount
	var accountID int64
	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if _, err := tx.Members().GetMember(ctx, memberID); err != nil {
			return err
		}

		_, err := tx.Accounts().GetAccountByMember(ctx, memberID)
		switch {
		case err == nil:
			return errors.ErrDuplicateAccount
		case !stderrors.Is(err, errors.ErrAccountNotFound):
			return err
		}

		if err := s.keys.SaveRSAKey(ctx, tx.KeyPairs(), memberID, publicKey, privateKey); err != nil {
			return err
		}

		plainNumber, err := s.numbers.NextNumber()
		if err != nil {
			return errors.NewAppError(errors.InternalError, "failed to generate account number").WithDetails(err.Error())
		}

		sealedNumber, err := s.keys.Encode(publicKey, plainNumber)
		if err != nil {
			return err
		}

		account := &domain.Account{
			MemberID:  memberID,
			Number:    sealedNumber,
			Password:  passwordHash,
			Name:      req.Name,
			Balance:   decimal.Zero,
			MinAmount: decimal.Zero,
			PayDate:   req.PayDate,
		}
		if err := tx.Accounts().CreateAccount(ctx, account); err != nil {
			return err
		}

		// Decrypt what was stored rather than echoing plainNumber so a broken pair fails here.
		number, err := s.keys.Decode(privateKey, account.Number)
		if err != nil {
			return err
		}

		created = domain.CreatedAccount{Number: number, CreatedAt: account.CreatedAt}
		accountID = account.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.NewAccountEvent(domain.EventAccountCreated, memberID, accountID))
	s.logger.Info("Account created successfully", "member_id", memberID, "account_id", accountID)
	return &created, nil
}

func (s *AccountService) GetAccount(ctx context.Context, memberID int64) (*domain.AccountView, error) {
	s.logger.Info("Getting account", "member_id", memberID)

	var view *domain.AccountView
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := s.loadAccount(ctx, tx, memberID)
		if err != nil {
			return err
		}

		privateKey, err := s.keys.FindPrivateKey(ctx, tx.KeyPairs(), memberID)
		if err != nil {
			return err
		}

		number, err := s.keys.Decode(privateKey, account.Number)
		if err != nil {
			return err
		}

		// Pocket balances are not tracked here, so the whole balance is available.
		view = &domain.AccountView{
			ID:               account.ID,
			Number:           number,
			Name:             account.Name,
			Balance:          account.Balance,
			MinAmount:        account.MinAmount,
			AvailableBalance: account.Balance,
			PayDate:          account.PayDate,
			UpdatedAt:        account.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, memberID int64) error {
	s.logger.Info("Deleting account", "member_id", memberID, "key_retention", s.retention)

	var accountID int64
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := s.loadAccount(ctx, tx, memberID)
		if err != nil {
			return err
		}

		if err := tx.Accounts().DeleteAccount(ctx, account.ID); err != nil {
			return err
		}

		if s.retention == domain.KeyRetentionCascade {
			if err := tx.KeyPairs().DeleteKeyPair(ctx, memberID); err != nil {
				return err
			}
		}

		accountID = account.ID
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.NewAccountEvent(domain.EventAccountDeleted, memberID, accountID))
	return nil
}

func (s *AccountService) UpdateName(ctx context.Context, memberID int64, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return s.mutate(ctx, memberID, "name", func(repo domain.AccountRepository, account *domain.Account) (time.Time, error) {
		return repo.UpdateName(ctx, account.ID, name)
	})
}

func (s *AccountService) UpdatePwd(ctx context.Context, memberID int64, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to hash password").WithDetails(err.Error())
	}

	return s.mutate(ctx, memberID, "password", func(repo domain.AccountRepository, account *domain.Account) (time.Time, error) {
		return repo.UpdatePassword(ctx, account.ID, hash)
	})
}

func (s *AccountService) UpdatePayDate(ctx context.Context, memberID int64, day int) error {
	if err := validatePayDate(day); err != nil {
		return err
	}
	return s.mutate(ctx, memberID, "pay_date", func(repo domain.AccountRepository, account *domain.Account) (time.Time, error) {
		return repo.UpdatePayDate(ctx, account.ID, day)
	})
}

func (s *AccountService) UpdateMinAmount(ctx context.Context, memberID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.NewAppError(errors.InvalidInput, "minimum amount must not be negative")
	}
	return s.mutate(ctx, memberID, "min_amount", func(repo domain.AccountRepository, account *domain.Account) (time.Time, error) {
		return repo.UpdateMinAmount(ctx, account.ID, amount)
	})
}

// VerifyPwd checks password against the stored hash without side effects.
func (s *AccountService) VerifyPwd(ctx context.Context, memberID int64, password string) error {
	return s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := s.loadAccount(ctx, tx, memberID)
		if err != nil {
			return err
		}

		if !s.hasher.Verify(account.Password, password) {
			s.logger.Warn("Account password mismatch", "member_id", memberID)
			return errors.ErrPasswordMismatch
		}
		return nil
	})
}

func (s *AccountService) mutate(
	ctx context.Context,
	memberID int64,
	field string,
	update func(repo domain.AccountRepository, account *domain.Account) (time.Time, error),
) error {
	return s.store.WithTransaction(ctx, func(tx domain.Store) error {
		account, err := s.loadAccount(ctx, tx, memberID)
		if err != nil {
			return err
		}

		updatedAt, err := update(tx.Accounts(), account)
		if err != nil {
			return err
		}

		s.logger.Info("Account field updated", "member_id", memberID, "account_id", account.ID, "field", field, "updated_at", updatedAt)
		return nil
	})
}

// loadAccount resolves the member first so a missing member and a member
// without an account surface as different errors.
func (s *AccountService) loadAccount(ctx context.Context, tx domain.Store, memberID int64) (*domain.Account, error) {
	if _, err := tx.Members().GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return tx.Accounts().GetAccountByMember(ctx, memberID)
}

func (s *AccountService) publish(ctx context.Context, event domain.AccountEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish account event", "type", event.Type, "member_id", event.MemberID, "error", err)
	}
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n == 0 || n > MaxAccountNameLength {
		return errors.NewAppErrorf(errors.InvalidInput, "account name must be 1 to %d characters", MaxAccountNameLength)
	}
	return nil
}

func validatePassword(password string) error {
	n := len(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return errors.NewAppErrorf(errors.InvalidInput, "password must be %d to %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

func validatePayDate(day int) error {
	if day < 1 || day > 31 {
		return errors.NewAppError(errors.InvalidInput, "pay date must be between 1 and 31")
	}
	return nil
}
