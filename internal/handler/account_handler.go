package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
	"member-accounts/internal/service"
)

// AccountManager is the account operation set the handler depends on.
type AccountManager interface {
	CreateAccount(ctx context.Context, memberID int64, req service.CreateAccountRequest) (*domain.CreatedAccount, error)
	GetAccount(ctx context.Context, memberID int64) (*domain.AccountView, error)
	DeleteAccount(ctx context.Context, memberID int64) error
	UpdateName(ctx context.Context, memberID int64, name string) error
	UpdatePwd(ctx context.Context, memberID int64, password string) error
	UpdatePayDate(ctx context.Context, memberID int64, day int) error
	UpdateMinAmount(ctx context.Context, memberID int64, amount decimal.Decimal) error
	VerifyPwd(ctx context.Context, memberID int64, password string) error
}

type AccountHandler struct {
	accounts AccountManager
}

func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
	}
}

type CreateAccountRequest struct {
	AccountName     string `json:"account_name" validate:"required,max=50"`
	AccountPassword string `json:"account_password" validate:"required,min=4,max=64"`
	AccountPayDate  int    `json:"account_pay_date" validate:"required,min=1,max=31"`
}

type AccountNameRequest struct {
	AccountName string `json:"account_name" validate:"required,max=50"`
}

type AccountPasswordRequest struct {
	Password string `json:"password" validate:"required,min=4,max=64"`
}

// AccountVerifyRequest carries no length rules: any wrong value is a mismatch.
type AccountVerifyRequest struct {
	Password string `json:"password" validate:"required"`
}

type AccountPayDateRequest struct {
	PayDate int `json:"pay_date" validate:"required,min=1,max=31"`
}

type AccountAmountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type CreateAccountResponse struct {
	AccountNumber string `json:"account_number"`
	CreatedAt     string `json:"created_at"`
}

type AccountResponse struct {
	AccountID        int64  `json:"account_id"`
	AccountNumber    string `json:"account_number"`
	AccountName      string `json:"account_name"`
	Balance          string `json:"balance"`
	MinAmount        string `json:"min_amount"`
	AvailableBalance string `json:"available_balance"`
	PayDate          int    `json:"pay_date"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	created, err := h.accounts.CreateAccount(r.Context(), memberID, service.CreateAccountRequest{
		Name:     req.AccountName,
		Password: req.AccountPassword,
		PayDate:  req.AccountPayDate,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateAccountResponse{
		AccountNumber: created.Number,
		CreatedAt:     created.CreatedAt.Format(timeLayout),
	})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		AccountID:        account.ID,
		AccountNumber:    account.Number,
		AccountName:      account.Name,
		Balance:          account.Balance.String(),
		MinAmount:        account.MinAmount.String(),
		AvailableBalance: account.AvailableBalance.String(),
		PayDate:          account.PayDate,
	})
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), memberID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "account deleted"})
}

func (h *AccountHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req AccountNameRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.accounts.UpdateName(r.Context(), memberID, req.AccountName); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "account name updated"})
}

func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req AccountPasswordRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.accounts.UpdatePwd(r.Context(), memberID, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "account password updated"})
}

func (h *AccountHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req AccountVerifyRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.accounts.VerifyPwd(r.Context(), memberID, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "password verified"})
}

func (h *AccountHandler) UpdatePayDate(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req AccountPayDateRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.accounts.UpdatePayDate(r.Context(), memberID, req.PayDate); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "pay date updated"})
}

func (h *AccountHandler) UpdateMinAmount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req AccountAmountRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid amount format").WithDetails(err.Error()))
		return
	}

	if err := h.accounts.UpdateMinAmount(r.Context(), memberID, amount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "minimum amount updated"})
}
