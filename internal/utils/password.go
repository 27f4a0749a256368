package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/finvault/transaction-service/internal/models"
)

const bcryptCost = 12

// prehashPassword reduces the password to a fixed-length hex digest so
// inputs longer than bcrypt's 72-byte limit still hash correctly.
func prehashPassword(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

// HashPassword hashes a password with SHA-256 followed by bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehashPassword(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a stored hash
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), prehashPassword(password))
}

// ValidatePasswordStrength enforces the password policy: at least 8
// characters, one uppercase letter and one digit.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("password", "must be at least 8 characters")
	}
	var hasUpper, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper {
		return models.NewValidationError("password", "must contain at least one uppercase letter")
	}
	if !hasDigit {
		return models.NewValidationError("password", "must contain at least one digit")
	}
	return nil
}
