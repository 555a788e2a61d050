package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"member-accounts/internal/domain"
	"member-accounts/internal/errors"
)

// PushTransport hands a message to a delivery service. Submit returns once the
// message is accepted for delivery; delivery itself is not awaited.
type PushTransport interface {
	Submit(ctx context.Context, msg domain.PushMessage) error
}

type NotificationService struct {
	store     domain.Store
	transport PushTransport
	logger    *slog.Logger
}

func NewNotificationService(store domain.Store, transport PushTransport, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		store:     store,
		transport: transport,
		logger:    logger,
	}
}

// SaveToken associates token with the member, replacing any previous one.
func (s *NotificationService) SaveToken(ctx context.Context, memberID int64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.NewAppError(errors.InvalidInput, "push token is required")
	}

	return s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if _, err := tx.Members().GetMember(ctx, memberID); err != nil {
			return err
		}
		return tx.Members().UpdatePushToken(ctx, memberID, &token)
	})
}

func (s *NotificationService) DeleteToken(ctx context.Context, memberID int64) error {
	return s.store.WithTransaction(ctx, func(tx domain.Store) error {
		if _, err := tx.Members().GetMember(ctx, memberID); err != nil {
			return err
		}
		return tx.Members().UpdatePushToken(ctx, memberID, nil)
	})
}

// SendNotification submits msg for delivery. A missing token is a no-op. Every
// submission failure is reported as ErrSendFailure without the underlying cause.
func (s *NotificationService) SendNotification(ctx context.Context, msg domain.PushMessage) (err error) {
	if msg.Token == nil || *msg.Token == "" {
		s.logger.Debug("Skipping push notification without token")
		return nil
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Push transport panicked", "panic", fmt.Sprint(p))
			err = errors.ErrSendFailure
		}
	}()

	if submitErr := s.transport.Submit(ctx, msg); submitErr != nil {
		s.logger.Error("Failed to submit push notification", "error", submitErr)
		return errors.ErrSendFailure
	}

	s.logger.Info("Push notification submitted", "title", msg.Title)
	return nil
}

// NotifyMember sends to whatever token the member has on record.
func (s *NotificationService) NotifyMember(ctx context.Context, memberID int64, title, body string) error {
	var token *string
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		member, err := tx.Members().GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		token = member.PushToken
		return nil
	})
	if err != nil {
		return err
	}

	return s.SendNotification(ctx, domain.PushMessage{Token: token, Title: title, Body: body})
}
