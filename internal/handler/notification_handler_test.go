package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"member-accounts/internal/errors"
)

type mockNotificationDispatcher struct {
	saveFn   func(int64, string) error
	deleteFn func(int64) error
	notifyFn func(int64, string, string) error
}

func (m *mockNotificationDispatcher) SaveToken(ctx context.Context, memberID int64, token string) error {
	if m.saveFn != nil {
		return m.saveFn(memberID, token)
	}
	return nil
}

func (m *mockNotificationDispatcher) DeleteToken(ctx context.Context, memberID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(memberID)
	}
	return nil
}

func (m *mockNotificationDispatcher) NotifyMember(ctx context.Context, memberID int64, title, body string) error {
	if m.notifyFn != nil {
		return m.notifyFn(memberID, title, body)
	}
	return nil
}

func newNotificationTestRouter(notifications NotificationDispatcher, memberID int64) *mux.Router {
	r := mux.NewRouter()
	r.Use(fakeAuth(memberID))
	h := NewNotificationHandler(notifications)
	r.HandleFunc("/fcm/token", h.SaveToken).Methods(http.MethodPost)
	r.HandleFunc("/fcm/token", h.DeleteToken).Methods(http.MethodDelete)
	r.HandleFunc("/fcm/notify", h.Notify).Methods(http.MethodPost)
	return r
}

func TestSaveToken(t *testing.T) {
	var gotMember int64
	var gotToken string
	mock := &mockNotificationDispatcher{
		saveFn: func(memberID int64, token string) error {
			gotMember, gotToken = memberID, token
			return nil
		},
	}

	rec := doRequest(newNotificationTestRouter(mock, 4), http.MethodPost, "/fcm/token", `{"token":"device-abc"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), gotMember)
	assert.Equal(t, "device-abc", gotToken)
}

func TestSaveToken_MissingToken(t *testing.T) {
	rec := doRequest(newNotificationTestRouter(&mockNotificationDispatcher{}, 4), http.MethodPost, "/fcm/token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveToken_UnknownMember(t *testing.T) {
	mock := &mockNotificationDispatcher{
		saveFn: func(int64, string) error { return errors.ErrMemberNotFound },
	}

	rec := doRequest(newNotificationTestRouter(mock, 4), http.MethodPost, "/fcm/token", `{"token":"device-abc"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, errBody := decodeBody(t, rec)
	assert.Equal(t, string(errors.MemberNotFound), errBody["code"])
}

func TestDeleteToken(t *testing.T) {
	called := false
	mock := &mockNotificationDispatcher{
		deleteFn: func(memberID int64) error {
			called = memberID == 4
			return nil
		},
	}

	rec := doRequest(newNotificationTestRouter(mock, 4), http.MethodDelete, "/fcm/token", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestNotify_UsesCallerIdentity(t *testing.T) {
	var gotMember int64
	var gotTitle string
	mock := &mockNotificationDispatcher{
		notifyFn: func(memberID int64, title, body string) error {
			gotMember, gotTitle = memberID, title
			return nil
		},
	}

	rec := doRequest(newNotificationTestRouter(mock, 4), http.MethodPost, "/fcm/notify", `{"title":"Hello"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, int64(4), gotMember)
	assert.Equal(t, "Hello", gotTitle)
}

func TestNotify_FailureIsOpaque(t *testing.T) {
	mock := &mockNotificationDispatcher{
		notifyFn: func(int64, string, string) error { return errors.ErrSendFailure },
	}

	rec := doRequest(newNotificationTestRouter(mock, 4), http.MethodPost, "/fcm/notify", `{"title":"Hello"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	_, errBody := decodeBody(t, rec)
	assert.Equal(t, string(errors.SendFailure), errBody["code"])
	assert.Empty(t, errBody["details"])
}
