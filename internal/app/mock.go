package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/internal/mockapi"
)

const mockShutdownGrace = 5 * time.Second

// MockMember is a member seeded into the fake backend.
type MockMember struct {
	UserID   string
	Password string
	Nickname string
	Points   int
}

// MockServer runs the fake backend on a real listener for local demos.
type MockServer struct {
	API    *mockapi.Server
	server *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// NewMockServer binds addr and seeds members. Use Addr for the bound
// address when addr ends in ":0".
func NewMockServer(addr string, accessTTL time.Duration, logger *slog.Logger, members ...MockMember) (*MockServer, error) {
	api, err := mockapi.New(mockapi.Config{AccessTTL: accessTTL, Logger: logger})
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if err := api.AddMember(m.UserID, m.Password, m.Nickname, m.Points); err != nil {
			return nil, err
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &MockServer{
		API:    api,
		ln:     ln,
		logger: logger,
		server: &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Addr returns the bound listen address.
func (m *MockServer) Addr() string { return m.ln.Addr().String() }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (m *MockServer) Run(ctx context.Context) error {
	m.logger.Info("mock backend starting", "addr", m.Addr())

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- m.server.Serve(m.ln)
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	m.logger.Info("shutting down mock backend...")

	// Push streams never finish on their own.
	m.API.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), mockShutdownGrace)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("graceful server shutdown failed", "error", err)
		if err := m.server.Close(); err != nil {
			m.logger.Error("error closing server", "error", err)
		}
	}

	m.logger.Info("mock backend shutdown complete")
	return nil
}
