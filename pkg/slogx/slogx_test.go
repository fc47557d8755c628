package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel("whatever"))
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := New(Config{Service: "mindtree", Version: "test", Env: "test", Level: "info", Output: &buf})
	logger.Info("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "mindtree", line["service"])
	require.Equal(t, "v", line["k"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.Default(), FromContext(context.Background()))

	l := Discard()
	require.Equal(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestTransportDoesNotLogAuthorization(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := &http.Client{Transport: NewTransport(nil, logger)}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/points", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Request-ID", "req_1")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Contains(t, buf.String(), `"path":"/points"`)
	require.Contains(t, buf.String(), `"req_id":"req_1"`)
	require.NotContains(t, buf.String(), "secret-token")
}
