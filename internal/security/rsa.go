package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"member-accounts/internal/errors"
)

const DefaultKeyBits = 2048

// RSACipher generates member key pairs and encrypts account numbers with them.
// Keys travel as base64 DER text (PKIX public, PKCS#8 private) so any store can hold them.
type RSACipher struct {
	Bits int
}

func NewRSACipher(bits int) *RSACipher {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	return &RSACipher{Bits: bits}
}

func (c *RSACipher) GenerateKeyPair() (publicKey, privateKey string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, c.Bits)
	if err != nil {
		return "", "", fmt.Errorf("generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("marshal private key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(pubDER), base64.StdEncoding.EncodeToString(privDER), nil
}

// Encode encrypts plaintext with PKCS#1 v1.5 padding and returns base64 ciphertext.
// The padding is randomized, so equal plaintexts produce different ciphertexts.
func (c *RSACipher) Encode(publicKey, plaintext string) (string, error) {
	pub, err := parsePublicKey(publicKey)
	if err != nil {
		return "", err
	}

	if limit := pub.Size() - 11; len(plaintext) > limit {
		return "", errors.NewAppErrorf(errors.InvalidInput, "plaintext exceeds %d bytes for this key", limit)
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("rsa encrypt: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decode reverses Encode. Any mismatch between key and ciphertext is ErrDecryptionFailed.
func (c *RSACipher) Decode(privateKey, ciphertext string) (string, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.ErrDecryptionFailed.WithDetails("ciphertext is not valid base64")
	}

	plaintext, err := rsa.DecryptPKCS1v15(nil, priv, raw)
	if err != nil {
		return "", errors.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func parsePublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.NewAppError(errors.InvalidInput, "public key is not valid base64")
	}

	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.NewAppError(errors.InvalidInput, "malformed public key").WithDetails(err.Error())
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.NewAppError(errors.InvalidInput, "public key is not RSA")
	}
	return pub, nil
}

func parsePrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.ErrDecryptionFailed.WithDetails("private key is not valid base64")
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.ErrDecryptionFailed.WithDetails("malformed private key")
	}

	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.ErrDecryptionFailed.WithDetails("private key is not RSA")
	}
	return priv, nil
}
