package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password must not be empty")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// VerifyCredential reports whether plain matches the stored hash. Malformed
// hashes simply fail to verify.
func VerifyCredential(plain, storedHash string) bool {
	if plain == "" || storedHash == "" {
		return false
	}
	return CheckPassword(storedHash, plain) == nil
}
