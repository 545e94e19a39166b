package auth

import (
	"fmt"

	"github.com/HerbHall/havenwatch/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the only password policy enforced.
const MinPasswordLength = 8

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks that a password meets minimum requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return models.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
