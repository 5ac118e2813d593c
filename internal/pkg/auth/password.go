package auth

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the work factor for newly stored hashes
	BcryptCost = 12
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 8
	// MaxPasswordLength is the longest input bcrypt accepts, in bytes
	MaxPasswordLength = 72
)

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(hash), err
}

// CheckPassword reports whether password matches the stored hash.
// A malformed hash never matches.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
