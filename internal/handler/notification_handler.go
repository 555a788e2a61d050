package handler

import (
	"context"
	"net/http"
)

// NotificationDispatcher is the push operation set the handler depends on.
// Sending to an arbitrary token stays internal; members only reach their own device.
type NotificationDispatcher interface {
	SaveToken(ctx context.Context, memberID int64, token string) error
	DeleteToken(ctx context.Context, memberID int64) error
	NotifyMember(ctx context.Context, memberID int64, title, body string) error
}

type NotificationHandler struct {
	notifications NotificationDispatcher
}

func NewNotificationHandler(notifications NotificationDispatcher) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
	}
}

type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type NotifyRequest struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
}

func (h *NotificationHandler) SaveToken(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req TokenRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.notifications.SaveToken(r.Context(), memberID, req.Token); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "push token saved"})
}

func (h *NotificationHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	if err := h.notifications.DeleteToken(r.Context(), memberID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "push token deleted"})
}

func (h *NotificationHandler) Notify(w http.ResponseWriter, r *http.Request) {
	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req NotifyRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.notifications.NotifyMember(r.Context(), memberID, req.Title, req.Body); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "notification submitted"})
}
