package push

import (
	"context"
	"log/slog"

	"member-accounts/internal/domain"
)

// LogTransport records notifications instead of delivering them. It is used
// when no Firebase credentials are configured.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Submit(ctx context.Context, msg domain.PushMessage) error {
	if msg.Token == nil || *msg.Token == "" {
		return errMissingToken
	}
	t.logger.InfoContext(ctx, "Push notification (not delivered)", "title", msg.Title, "body_length", len(msg.Body))
	return nil
}
