package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier compares a plaintext secret with a stored one-way hash
type PasswordVerifier interface {
	Verify(plaintext, storedHash string) bool
}

// BcryptVerifier verifies bcrypt hashes
type BcryptVerifier struct{}

// NewBcryptVerifier creates a bcrypt-backed password verifier
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Verify reports whether plaintext matches storedHash.
// A malformed hash never matches.
func (BcryptVerifier) Verify(plaintext, storedHash string) bool {
	return CheckPasswordHash(plaintext, storedHash)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
