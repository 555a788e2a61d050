package push

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"member-accounts/internal/domain"
)

const sendTimeout = 10 * time.Second

var errMissingToken = stderrors.New("push message has no device token")

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMTransport delivers notifications through Firebase Cloud Messaging. The
// messaging client is created on first use; a failed initialisation is retried
// on the next Submit.
type FCMTransport struct {
	newSender func(ctx context.Context) (messageSender, error)
	logger    *slog.Logger

	mu     sync.Mutex
	sender messageSender
	wg     sync.WaitGroup
}

func NewFCMTransport(credentialsFile, projectID string, logger *slog.Logger) *FCMTransport {
	return &FCMTransport{
		newSender: func(ctx context.Context) (messageSender, error) {
			var opts []option.ClientOption
			if credentialsFile != "" {
				opts = append(opts, option.WithCredentialsFile(credentialsFile))
			}

			var cfg *firebase.Config
			if projectID != "" {
				cfg = &firebase.Config{ProjectID: projectID}
			}

			app, err := firebase.NewApp(ctx, cfg, opts...)
			if err != nil {
				return nil, fmt.Errorf("initialise firebase app: %w", err)
			}

			client, err := app.Messaging(ctx)
			if err != nil {
				return nil, fmt.Errorf("initialise firebase messaging: %w", err)
			}
			return client, nil
		},
		logger: logger,
	}
}

func (t *FCMTransport) client(ctx context.Context) (messageSender, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sender != nil {
		return t.sender, nil
	}

	sender, err := t.newSender(ctx)
	if err != nil {
		return nil, err
	}
	t.sender = sender
	return sender, nil
}

// Submit validates and hands the message to a background send. Delivery errors
// are only logged.
func (t *FCMTransport) Submit(ctx context.Context, msg domain.PushMessage) error {
	if msg.Token == nil || *msg.Token == "" {
		return errMissingToken
	}

	sender, err := t.client(ctx)
	if err != nil {
		return err
	}

	message := &messaging.Message{
		Token: *msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()

		id, err := sender.Send(sendCtx, message)
		if err != nil {
			t.logger.Error("FCM delivery failed", "title", msg.Title, "error", err)
			return
		}
		t.logger.Info("FCM message delivered", "message_id", id)
	}()

	return nil
}

// Wait blocks until every submitted message has finished sending.
func (t *FCMTransport) Wait() {
	t.wg.Wait()
}
