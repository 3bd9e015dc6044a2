package jwt

import (
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func Encode(payload Payload, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("Encode: empty secret")
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, payload)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("Encode: %w", err)
	}
	return signed, nil
}
