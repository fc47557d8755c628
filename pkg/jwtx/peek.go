package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim without verifying the signature. Clients use
// it only to decide when to renew; the server remains the authority.
func ExpiresAt(tokenStr string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, ErrMalformed
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, ErrMalformed
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// ExpiresWithin reports whether tokenStr expires within d of now. Opaque or
// exp-less tokens report false so callers fall back to reactive renewal.
func ExpiresWithin(tokenStr string, d time.Duration, now time.Time) bool {
	exp, err := ExpiresAt(tokenStr)
	if err != nil {
		return false
	}
	return exp.Sub(now) <= d
}
