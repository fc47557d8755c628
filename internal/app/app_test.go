package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/store/drivers/sqlite"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/mindtree"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func startMock(t *testing.T) *MockServer {
	t.Helper()

	mock, err := NewMockServer("127.0.0.1:0", 0, slogx.Discard(),
		MockMember{UserID: "alice", Password: "pw-alice-1234", Nickname: "Alice", Points: 30})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mock.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return mock
}

func testConfig(t *testing.T, baseURL string) Config {
	cfg := defaultConfig()
	cfg.BaseURL = baseURL
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "mindtree.db")
	cfg.LogLevel = "error"
	cfg.PushBackoffFloor = 10 * time.Millisecond
	return cfg
}

func TestSessionSurvivesRestart(t *testing.T) {
	mock := startMock(t)
	cfg := testConfig(t, "http://"+mock.Addr())
	cfg.MasterKey = "correct horse battery staple"
	ctx := t.Context()

	first, err := New(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	_, err = first.Client().Login(ctx, "alice", "pw-alice-1234")
	require.NoError(t, err)
	access := first.Client().Tokens().Access()
	require.NoError(t, first.Close())

	// Values on disk are sealed.
	raw, err := sqlite.NewStore(cfg.DatabaseFile)
	require.NoError(t, err)
	stored, ok, err := raw.Get(ctx, mindtree.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, access, stored)
	require.NoError(t, raw.Close())

	second, err := New(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	id, err := second.Client().Restore(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", id.UserID)

	points, err := second.Client().Points(ctx)
	require.NoError(t, err)
	require.Equal(t, 30, points)
}

func TestResetNoticeIsPrinted(t *testing.T) {
	mock := startMock(t)
	cfg := testConfig(t, "http://"+mock.Addr())

	var out bytes.Buffer
	a, err := New(cfg, &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Client().Login(t.Context(), "alice", "pw-alice-1234")
	require.NoError(t, err)

	mock.API.InvalidateRefreshTokens()
	mock.API.ExpireAccessTokens()

	_, err = a.Client().Points(t.Context())
	require.True(t, mindtree.IsSessionFatal(err))
	require.Equal(t, "[error] Your session has expired. Returning to the main page.\n", out.String())

	keys, err := a.Store().Keys(t.Context())
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestNewRejectsUnreadableMasterKeyFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.MasterKeyPath = filepath.Join(t.TempDir(), "missing.key")

	_, err := New(cfg, nil)
	require.Error(t, err)
}
