package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
	"member-accounts/internal/service"
)

// ---- mock implementations ----

type mockAccountManager struct {
	createFn    func(int64, service.CreateAccountRequest) (*domain.CreatedAccount, error)
	getFn       func(int64) (*domain.AccountView, error)
	deleteFn    func(int64) error
	nameFn      func(int64, string) error
	pwdFn       func(int64, string) error
	payDateFn   func(int64, int) error
	minAmountFn func(int64, decimal.Decimal) error
	verifyFn    func(int64, string) error
}

func (m *mockAccountManager) CreateAccount(ctx context.Context, memberID int64, req service.CreateAccountRequest) (*domain.CreatedAccount, error) {
	if m.createFn != nil {
		return m.createFn(memberID, req)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccountManager) GetAccount(ctx context.Context, memberID int64) (*domain.AccountView, error) {
	if m.getFn != nil {
		return m.getFn(memberID)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccountManager) DeleteAccount(ctx context.Context, memberID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(memberID)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAccountManager) UpdateName(ctx context.Context, memberID int64, name string) error {
	if m.nameFn != nil {
		return m.nameFn(memberID, name)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAccountManager) UpdatePwd(ctx context.Context, memberID int64, password string) error {
	if m.pwdFn != nil {
		return m.pwdFn(memberID, password)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAccountManager) UpdatePayDate(ctx context.Context, memberID int64, day int) error {
	if m.payDateFn != nil {
		return m.payDateFn(memberID, day)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAccountManager) UpdateMinAmount(ctx context.Context, memberID int64, amount decimal.Decimal) error {
	if m.minAmountFn != nil {
		return m.minAmountFn(memberID, amount)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAccountManager) VerifyPwd(ctx context.Context, memberID int64, password string) error {
	if m.verifyFn != nil {
		return m.verifyFn(memberID, password)
	}
	return fmt.Errorf("not configured")
}

// ---- helpers ----

func fakeAuth(memberID int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithMemberID(r.Context(), memberID)))
		})
	}
}

func newAccountTestRouter(accounts AccountManager, memberID int64) *mux.Router {
	r := mux.NewRouter()
	r.Use(fakeAuth(memberID))
	h := NewAccountHandler(accounts)
	r.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", h.GetAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts", h.DeleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/name", h.UpdateName).Methods(http.MethodPatch)
	r.HandleFunc("/accounts/password", h.UpdatePassword).Methods(http.MethodPatch)
	r.HandleFunc("/accounts/password/verify", h.VerifyPassword).Methods(http.MethodPost)
	r.HandleFunc("/accounts/pay-date", h.UpdatePayDate).Methods(http.MethodPatch)
	r.HandleFunc("/accounts/min-amount", h.UpdateMinAmount).Methods(http.MethodPatch)
	return r
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	var resp struct {
		Data  map[string]interface{} `json:"data"`
		Error map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Data, resp.Error
}

// ---- tests ----

func TestCreateAccount_Success(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	var got service.CreateAccountRequest
	var gotMember int64
	mock := &mockAccountManager{
		createFn: func(memberID int64, req service.CreateAccountRequest) (*domain.CreatedAccount, error) {
			gotMember, got = memberID, req
			return &domain.CreatedAccount{Number: "1234567891010", CreatedAt: createdAt}, nil
		},
	}

	rec := doRequest(newAccountTestRouter(mock, 7), http.MethodPost, "/accounts",
		`{"account_name":"MainAcct","account_password":"pw123","account_pay_date":15}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	data, _ := decodeBody(t, rec)
	assert.Equal(t, "1234567891010", data["account_number"])
	assert.NotEmpty(t, data["created_at"])
	assert.Equal(t, int64(7), gotMember)
	assert.Equal(t, service.CreateAccountRequest{Name: "MainAcct", Password: "pw123", PayDate: 15}, got)
}

func TestCreateAccount_ValidationError(t *testing.T) {
	mock := &mockAccountManager{}
	cases := map[string]string{
		"missing name": `{"account_password":"pw123","account_pay_date":15}`,
		"bad pay date": `{"account_name":"a","account_password":"pw123","account_pay_date":40}`,
		"short pw":     `{"account_name":"a","account_password":"pw","account_pay_date":1}`,
		"malformed":    `{"account_name":`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(newAccountTestRouter(mock, 7), http.MethodPost, "/accounts", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			_, errBody := decodeBody(t, rec)
			assert.Equal(t, string(errors.InvalidInput), errBody["code"])
		})
	}
}

func TestCreateAccount_Conflict(t *testing.T) {
	mock := &mockAccountManager{
		createFn: func(int64, service.CreateAccountRequest) (*domain.CreatedAccount, error) {
			return nil, errors.ErrDuplicateAccount
		},
	}

	rec := doRequest(newAccountTestRouter(mock, 7), http.MethodPost, "/accounts",
		`{"account_name":"a","account_password":"pw123","account_pay_date":1}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetAccount_Success(t *testing.T) {
	mock := &mockAccountManager{
		getFn: func(memberID int64) (*domain.AccountView, error) {
			return &domain.AccountView{
				ID:               3,
				Number:           "1234567891010",
				Name:             "MainAcct",
				Balance:          decimal.Zero,
				MinAmount:        decimal.Zero,
				AvailableBalance: decimal.Zero,
				PayDate:          15,
			}, nil
		},
	}

	rec := doRequest(newAccountTestRouter(mock, 7), http.MethodGet, "/accounts", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data, _ := decodeBody(t, rec)
	assert.Equal(t, float64(3), data["account_id"])
	assert.Equal(t, "1234567891010", data["account_number"])
	assert.Equal(t, "MainAcct", data["account_name"])
	assert.Equal(t, "0", data["balance"])
	assert.Equal(t, "0", data["min_amount"])
	assert.Equal(t, float64(15), data["pay_date"])
}

func TestGetAccount_NotFoundKinds(t *testing.T) {
	for _, appErr := range []*errors.AppError{errors.ErrMemberNotFound, errors.ErrAccountNotFound} {
		mock := &mockAccountManager{
			getFn: func(int64) (*domain.AccountView, error) { return nil, appErr },
		}

		rec := doRequest(newAccountTestRouter(mock, 7), http.MethodGet, "/accounts", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		_, errBody := decodeBody(t, rec)
		assert.Equal(t, string(appErr.Code), errBody["code"])
	}
}

func TestGetAccount_UnexpectedErrorIsMasked(t *testing.T) {
	mock := &mockAccountManager{
		getFn: func(int64) (*domain.AccountView, error) {
			return nil, errors.NewAppError(errors.InternalError, "failed to get account").WithDetails("pq: connection refused")
		},
	}

	rec := doRequest(newAccountTestRouter(mock, 7), http.MethodGet, "/accounts", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestDeleteAccount(t *testing.T) {
	deleted := int64(0)
	mock := &mockAccountManager{
		deleteFn: func(memberID int64) error {
			deleted = memberID
			return nil
		},
	}

	rec := doRequest(newAccountTestRouter(mock, 9), http.MethodDelete, "/accounts", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(9), deleted)
}

func TestUpdateEndpoints(t *testing.T) {
	var name, pwd string
	var day int
	var amount decimal.Decimal
	mock := &mockAccountManager{
		nameFn:      func(_ int64, v string) error { name = v; return nil },
		pwdFn:       func(_ int64, v string) error { pwd = v; return nil },
		payDateFn:   func(_ int64, v int) error { day = v; return nil },
		minAmountFn: func(_ int64, v decimal.Decimal) error { amount = v; return nil },
	}
	router := newAccountTestRouter(mock, 7)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPatch, "/accounts/name", `{"account_name":"Savings"}`).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPatch, "/accounts/password", `{"password":"n3w-pw"}`).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPatch, "/accounts/pay-date", `{"pay_date":25}`).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPatch, "/accounts/min-amount", `{"amount":"1500.50"}`).Code)

	assert.Equal(t, "Savings", name)
	assert.Equal(t, "n3w-pw", pwd)
	assert.Equal(t, 25, day)
	assert.Equal(t, "1500.5", amount.String())
}

func TestUpdateMinAmount_InvalidFormat(t *testing.T) {
	rec := doRequest(newAccountTestRouter(&mockAccountManager{}, 7), http.MethodPatch, "/accounts/min-amount", `{"amount":"lots"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPassword(t *testing.T) {
	mock := &mockAccountManager{
		verifyFn: func(_ int64, pw string) error {
			if pw != "pw123" {
				return errors.ErrPasswordMismatch
			}
			return nil
		},
	}
	router := newAccountTestRouter(mock, 7)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/accounts/password/verify", `{"password":"pw123"}`).Code)

	for _, wrong := range []string{"wrong", "ab", strings.Repeat("x", 100)} {
		rec := doRequest(router, http.MethodPost, "/accounts/password/verify", fmt.Sprintf(`{"password":%q}`, wrong))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, wrong)
		_, errBody := decodeBody(t, rec)
		assert.Equal(t, string(errors.PasswordMismatch), errBody["code"], wrong)
	}

	rec := doRequest(router, http.MethodPost, "/accounts/password/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlersRequireMember(t *testing.T) {
	r := mux.NewRouter()
	h := NewAccountHandler(&mockAccountManager{})
	r.HandleFunc("/accounts", h.GetAccount).Methods(http.MethodGet)

	rec := doRequest(r, http.MethodGet, "/accounts", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
