package utils

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for new hashes.
var BcryptCost = 14

// HashPassword hashes a given password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password with its hashed version.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsBcryptHash reports whether stored looks like a bcrypt hash rather than a
// legacy plaintext credential.
func IsBcryptHash(stored string) bool {
	return len(stored) == 60 && (strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$"))
}

// VerifyPassword checks password against the stored credential. needsUpgrade
// is true when the stored value was plaintext and should be replaced by a hash.
func VerifyPassword(password, stored string) (ok, needsUpgrade bool) {
	if stored == "" {
		return false, false
	}
	if IsBcryptHash(stored) {
		return CheckPasswordHash(password, stored), false
	}
	match := subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1
	return match, match
}
