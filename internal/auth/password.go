package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// maxPasswordLength is bcrypt's input limit in bytes.
const maxPasswordLength = 72

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) ([]byte, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// CheckPassword compares a password with its hash.
func CheckPassword(password string, hash []byte) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
