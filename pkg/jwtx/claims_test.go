package jwtx_test

import (
	"testing"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "mindtree"},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("mindtree"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)
	})
}

func TestValidateExpiryAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()

	t.Run("valid token", func(t *testing.T) {
		c := jwtx.NewAccessClaims("alice", "Alice", "mindtree", time.Minute, now)
		require.NoError(t, c.ValidateExpiryAt(now.Add(30*time.Second)))
	})

	t.Run("expired token", func(t *testing.T) {
		c := jwtx.NewAccessClaims("alice", "Alice", "mindtree", time.Minute, now)
		require.ErrorIs(t, c.ValidateExpiryAt(now.Add(time.Minute)), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := jwtx.NewAccessClaims("alice", "Alice", "mindtree", time.Minute, now)
		require.ErrorIs(t, c.ValidateExpiryAt(now.Add(-time.Second)), jwtx.ErrNotYetValid)
	})
}

func TestNewJTIUnique(t *testing.T) {
	require.NotEqual(t, jwtx.NewJTI(), jwtx.NewJTI())
}
