// Package service holds account support services.
package service

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes  = 16
	keyBytes   = 64
	iterations = 10_000
)

// PasswordService derives PBKDF2-SHA512 password hashes with per-account
// salts. Hash and salt are hex strings persisted as separate fields.
type PasswordService struct{}

// NewPasswordService creates a PasswordService.
func NewPasswordService() *PasswordService {
	return &PasswordService{}
}

// Hash derives a hash for the password with a freshly generated salt.
func (s *PasswordService) Hash(password string) (hash, salt string) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	salt = hex.EncodeToString(raw)
	return s.derive(password, salt), salt
}

// Verify reports whether the password matches the stored hash and salt.
func (s *PasswordService) Verify(password, salt, hash string) bool {
	if salt == "" || hash == "" {
		return false
	}
	derived := s.derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(hash)) == 1
}

func (s *PasswordService) derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyBytes, sha512.New)
	return hex.EncodeToString(key)
}
