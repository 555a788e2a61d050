package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a member's single bank account. Number holds the RSA ciphertext of
// the account number and Password the bcrypt hash; neither is ever plaintext here.
type Account struct {
	ID        int64           `json:"account_id"`
	MemberID  int64           `json:"member_id"`
	Number    string          `json:"-"`
	Password  string          `json:"-"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	MinAmount decimal.Decimal `json:"min_amount"`
	PayDate   int             `json:"pay_date"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountView is the decrypted read model returned to callers.
type AccountView struct {
	ID               int64           `json:"account_id"`
	Number           string          `json:"account_number"`
	Name             string          `json:"name"`
	Balance          decimal.Decimal `json:"balance"`
	MinAmount        decimal.Decimal `json:"min_amount"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PayDate          int             `json:"pay_date"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CreatedAccount is disclosed exactly once, at creation.
type CreatedAccount struct {
	Number    string    `json:"account_number"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountRepository updates write the field and updated_at in one statement and
// return the new updated_at.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByMember(ctx context.Context, memberID int64) (*Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	UpdateName(ctx context.Context, id int64, name string) (time.Time, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) (time.Time, error)
	UpdatePayDate(ctx context.Context, id int64, day int) (time.Time, error)
	UpdateMinAmount(ctx context.Context, id int64, amount decimal.Decimal) (time.Time, error)
}
