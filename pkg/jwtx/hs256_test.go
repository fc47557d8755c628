package jwtx_test

import (
	"testing"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestHS256SignVerify(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	clock := now
	h, err := jwtx.NewHS256([]byte("0123456789abcdef0123"), "mindtree", func() time.Time { return clock })
	require.NoError(t, err)

	tok, err := h.Sign(jwtx.NewAccessClaims("alice", "Alice", "mindtree", time.Minute, now))
	require.NoError(t, err)

	claims, err := h.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Subject)
	require.Equal(t, "Alice", claims.Nickname)

	clock = now.Add(2 * time.Minute)
	_, err = h.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestHS256RejectsForeignSignature(t *testing.T) {
	t.Parallel()

	a, err := jwtx.NewHS256([]byte("secret-one-secret-one"), "", nil)
	require.NoError(t, err)
	b, err := jwtx.NewHS256([]byte("secret-two-secret-two"), "", nil)
	require.NoError(t, err)

	tok, err := a.Sign(jwtx.NewAccessClaims("bob", "", "", time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = b.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrInvalidSig)

	_, err = b.Verify("not.a.jwt")
	require.Error(t, err)
}

func TestNewHS256ShortSecret(t *testing.T) {
	_, err := jwtx.NewHS256([]byte("short"), "", nil)
	require.Error(t, err)
}

func TestExpiresWithin(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	h, err := jwtx.NewHS256([]byte("0123456789abcdef0123"), "", nil)
	require.NoError(t, err)

	tok, err := h.Sign(jwtx.NewAccessClaims("alice", "", "", 20*time.Second, now))
	require.NoError(t, err)

	exp, err := jwtx.ExpiresAt(tok)
	require.NoError(t, err)
	require.True(t, exp.Equal(now.Add(20*time.Second)))

	require.True(t, jwtx.ExpiresWithin(tok, 30*time.Second, now))
	require.False(t, jwtx.ExpiresWithin(tok, 10*time.Second, now))
	require.False(t, jwtx.ExpiresWithin("opaque-token", 30*time.Second, now))
}
