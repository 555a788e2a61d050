package domain

import (
	"context"
	"time"
)

// KeyPair holds a member's RSA keys as base64-encoded DER text.
type KeyPair struct {
	MemberID   int64
	PublicKey  string
	PrivateKey string
	CreatedAt  time.Time
}

type KeyPairRepository interface {
	// SaveKeyPair overwrites any existing pair for the member.
	SaveKeyPair(ctx context.Context, kp *KeyPair) error
	GetKeyPair(ctx context.Context, memberID int64) (*KeyPair, error)
	DeleteKeyPair(ctx context.Context, memberID int64) error
}

// KeyRetention decides what happens to a member's key pair when the account is deleted.
type KeyRetention string

const (
	KeyRetentionRetain  KeyRetention = "retain"
	KeyRetentionCascade KeyRetention = "cascade"
)
