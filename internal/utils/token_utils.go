package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued for authenticated users. Role is carried so
// the API boundary can enforce capability checks without a user lookup.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT generates a new JWT token with the given parameters.
func GenerateJWT(userID, role, secret string, expiryDuration time.Duration, issuer string) (string, time.Time, error) {
	expiresAt := time.Now().Add(expiryDuration)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	return signed, expiresAt, err
}

// ParseAndValidateJWT parses a JWT token string, validates its signature and
// standard claims, and returns the claims when the token is valid.
func ParseAndValidateJWT(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return claims, nil
}
