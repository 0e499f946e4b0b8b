package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt only uses the first 72 bytes of a password. The truncation is done
// here explicitly so hashing never fails on long inputs and so verification
// applies the exact same rule.
const maxPasswordBytes = 72

func truncatePassword(password string) []byte {
	pw := []byte(password)
	if len(pw) > maxPasswordBytes {
		pw = pw[:maxPasswordBytes]
	}
	return pw
}

// HashPassword hashes a plaintext password with bcrypt and a per-call
// random salt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash verifies a plaintext password against a stored bcrypt
// hash. It returns false on any mismatch or malformed hash, never an error.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}
