package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Payload is the admin session carried in the session cookie.
type Payload struct {
	AdminID string `json:"id"`
	jwtlib.RegisteredClaims
}

func NewPayload(adminID string, issuedAt time.Time, ttl time.Duration) Payload {
	return Payload{
		AdminID: adminID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwtlib.NewNumericDate(issuedAt),
			ExpiresAt: jwtlib.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
}

func (p *Payload) IssuedAtTime() time.Time {
	if p.IssuedAt == nil {
		return time.Time{}
	}
	return p.IssuedAt.Time
}
