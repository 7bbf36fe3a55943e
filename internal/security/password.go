package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/aquatrace/aquatrace-go/internal/errors"
)

// HashPassword derives a bcrypt hash from a plaintext password using the
// given cost. A cost outside bcrypt's supported range falls back to the
// library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.New(err).
			Component("security").
			Category(errors.CategoryAuth).
			Context("operation", "hash_password").
			Build()
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
