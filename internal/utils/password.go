package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the bcrypt hash stored on a user record. Cost is the
// library default.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash reports whether password matches a stored bcrypt hash.
// Any bcrypt failure counts as a mismatch.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
