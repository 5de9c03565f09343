package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt cost parameters. N is the CPU/memory cost; raising it makes
	// brute-forcing a captured hash proportionally more expensive.
	costN  = 1 << 15
	costR  = 8
	costP  = 1
	keyLen = 64

	saltBytes = 8 // hex-encoded to 16 characters
)

// Hasher derives and verifies salted scrypt password hashes.
type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// Derive generates a fresh random salt and returns it together with the
// base64-encoded scrypt hash of password+salt.
func (h *Hasher) Derive(password string) (salt, hash string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)

	hash, err = h.DeriveWithSalt(password, salt)
	if err != nil {
		return "", "", err
	}
	return salt, hash, nil
}

// DeriveWithSalt recomputes the hash for a known salt. Deterministic for the
// same (password, salt) pair.
func (h *Hasher) DeriveWithSalt(password, salt string) (string, error) {
	key, err := scrypt.Key([]byte(password), []byte(salt), costN, costR, costP, keyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Verify recomputes the hash with the supplied salt and compares it against
// expectedHash in constant time. A malformed stored hash yields false.
func (h *Hasher) Verify(password, salt, expectedHash string) bool {
	expected, err := base64.StdEncoding.DecodeString(expectedHash)
	if err != nil {
		return false
	}

	key, err := scrypt.Key([]byte(password), []byte(salt), costN, costR, costP, keyLen)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(expected, key) == 1
}
