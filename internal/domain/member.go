package domain

import (
	"context"
	"time"
)

type Member struct {
	ID        int64     `json:"member_id"`
	Name      string    `json:"name"`
	PushToken *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberRepository interface {
	GetMember(ctx context.Context, id int64) (*Member, error)
	// UpdatePushToken stores token, or clears it when token is nil.
	UpdatePushToken(ctx context.Context, id int64, token *string) error
}
