package service

import (
	"context"
	"log/slog"

	"member-accounts/internal/domain"
	"member-accounts/internal/security"
)

// KeyService is the custodian of per-member RSA key pairs. Repository arguments
// let callers bind custody operations to their unit of work.
type KeyService struct {
	cipher *security.RSACipher
	logger *slog.Logger
}

func NewKeyService(cipher *security.RSACipher, logger *slog.Logger) *KeyService {
	return &KeyService{
		cipher: cipher,
		logger: logger,
	}
}

func (s *KeyService) GenerateKeyPair() (publicKey, privateKey string, err error) {
	return s.cipher.GenerateKeyPair()
}

// SaveRSAKey stores both halves for memberID, replacing any earlier pair.
func (s *KeyService) SaveRSAKey(ctx context.Context, keys domain.KeyPairRepository, memberID int64, publicKey, privateKey string) error {
	return keys.SaveKeyPair(ctx, &domain.KeyPair{
		MemberID:   memberID,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	})
}

func (s *KeyService) FindPrivateKey(ctx context.Context, keys domain.KeyPairRepository, memberID int64) (string, error) {
	kp, err := keys.GetKeyPair(ctx, memberID)
	if err != nil {
		return "", err
	}
	return kp.PrivateKey, nil
}

func (s *KeyService) Encode(publicKey, plaintext string) (string, error) {
	return s.cipher.Encode(publicKey, plaintext)
}

func (s *KeyService) Decode(privateKey, ciphertext string) (string, error) {
	plaintext, err := s.cipher.Decode(privateKey, ciphertext)
	if err != nil {
		s.logger.Error("Failed to decode account number", "error", err)
		return "", err
	}
	return plaintext, nil
}
