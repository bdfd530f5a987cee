package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes an account password at the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks a login attempt against the stored hash. An
// empty hash (e.g. a seeded account without a password) never matches.
func ComparePassword(hash, password string) error {
	if hash == "" || password == "" {
		return errors.New("missing hash or password")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
