package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12
	// PinLength is the number of digits in a wallet transaction PIN
	PinLength = 4
)

// ErrInvalidPinFormat is returned for PINs that are not exactly PinLength digits
var ErrInvalidPinFormat = errors.New("pin must be 4 digits")

var (
	bcryptGenerateFromPassword = bcrypt.GenerateFromPassword
	randomRead                 = rand.Read
	hashCost                   = DefaultCost
)

// ValidatePin checks the PIN format
func ValidatePin(pin string) error {
	if len(pin) != PinLength {
		return ErrInvalidPinFormat
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return ErrInvalidPinFormat
		}
	}
	return nil
}

// HashPin validates and hashes a transaction PIN using bcrypt
func HashPin(pin string) (string, error) {
	if err := ValidatePin(pin); err != nil {
		return "", err
	}
	bytes, err := bcryptGenerateFromPassword([]byte(pin), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(bytes), nil
}

// CheckPin compares a PIN with a hash
func CheckPin(pin, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// GenerateRandomToken generates a random hex token from length random bytes
func GenerateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := randomRead(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
