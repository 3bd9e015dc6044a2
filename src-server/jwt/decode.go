package jwt

import (
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Decode verifies the signature and the expiry of token.
func Decode(token string, secret string) (*Payload, error) {
	payload := new(Payload)
	parsed, err := jwtlib.ParseWithClaims(token, payload, func(*jwtlib.Token) (any, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuedAt())
	if err != nil {
		return nil, fmt.Errorf("Decode: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("Decode: invalid token")
	}
	return payload, nil
}
