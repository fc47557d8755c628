package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs used by the fake backend. The real backend decides its own.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 14 * 24 * time.Hour
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
	ErrNoExpiry    = errors.New("jwtx: token has no exp claim")
)

// Claims are the access-token claims issued for a member session.
type Claims struct {
	jwt.RegisteredClaims

	// Nickname shown in the UI header.
	Nickname string `json:"nickname,omitempty"`
}

// NewAccessClaims builds claims for userID valid for ttl from now.
func NewAccessClaims(userID, nickname, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Nickname: nickname,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiryAt ensures the token hasn't expired (exp) and isn't before nbf
// at the given instant.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
