package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256 signs and verifies access tokens with a shared secret. Only the fake
// backend holds the secret; the client never verifies signatures.
type HS256 struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewHS256 returns an HS256 signer/verifier. now may be nil.
func NewHS256(secret []byte, issuer string, now func() time.Time) (*HS256, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("jwtx: hs256 secret too short (%d bytes)", len(secret))
	}
	if now == nil {
		now = time.Now
	}
	return &HS256{secret: secret, issuer: issuer, now: now}, nil
}

// Sign returns the compact serialisation of c.
func (h *HS256) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := tok.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Verify checks signature, issuer and lifetime and returns the claims.
// Lifetime is checked against the injected clock rather than the library's.
func (h *HS256) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSig
	default:
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return nil, err
	}
	if err := claims.ValidateExpiryAt(h.now()); err != nil {
		return nil, err
	}
	return claims, nil
}
