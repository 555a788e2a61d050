package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventAccountCreated = "account.created"
	EventAccountDeleted = "account.deleted"
)

// AccountEvent is published after an account lifecycle change commits.
type AccountEvent struct {
	ID         uuid.UUID `json:"event_id"`
	Type       string    `json:"type"`
	MemberID   int64     `json:"member_id"`
	AccountID  int64     `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewAccountEvent(eventType string, memberID, accountID int64) AccountEvent {
	return AccountEvent{
		ID:         uuid.New(),
		Type:       eventType,
		MemberID:   memberID,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
	}
}
