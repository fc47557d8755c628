// Package mockapi is an in-process stand-in for the mind tree backend. It
// implements just enough of the REST and SSE surface to drive the client SDK
// through login, renewal, push and reset in tests and local demos.
package mockapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/cryptox"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/idx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/jwtx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "mindtree-mock"

// Config tunes the fake backend. Zero values get sensible defaults.
type Config struct {
	Secret    []byte
	AccessTTL time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Notification mirrors the backend's notification payload.
type Notification struct {
	ID             string `json:"id"`
	ObjectID       int64  `json:"objectId"`
	SenderUserID   string `json:"senderUserId"`
	ReceiverUserID string `json:"receiverUserId"`
	Type           string `json:"type"`
	DiaryCreatedAt string `json:"diaryCreatedAt"`
	CreatedAt      string `json:"createdAt"`
}

type member struct {
	userID       string
	nickname     string
	passwordHash []byte
	points       int
	unchecked    []Notification
}

// Server is the fake backend. Use Handler with httptest.NewServer.
type Server struct {
	cfg    Config
	log    *slog.Logger
	signer *jwtx.HS256

	mu         sync.Mutex
	members    map[string]*member
	refresh    map[string]string // fingerprint -> userID
	liveAccess map[string]string // jti -> userID
	streams    map[string]map[*stream]struct{}
	pushTokens []string
	failures   map[string]routeFailure // path -> forced answer
	lastRenew  RenewRequest

	refreshCalls  atomic.Int64
	refreshDelay  atomic.Int64
	refreshStatus atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// New returns an empty backend.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}
		cfg.Secret = []byte(secret)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slogx.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	signer, err := jwtx.NewHS256(cfg.Secret, issuer, cfg.Now)
	if err != nil {
		return nil, fmt.Errorf("mockapi: %w", err)
	}

	return &Server{
		cfg:        cfg,
		log:        cfg.Logger.With("component", "mockapi"),
		signer:     signer,
		members:    make(map[string]*member),
		refresh:    make(map[string]string),
		liveAccess: make(map[string]string),
		streams:    make(map[string]map[*stream]struct{}),
		failures:   make(map[string]routeFailure),
		done:       make(chan struct{}),
	}, nil
}

// Close ends every open push stream so the HTTP server can shut down.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Handler returns the routed backend.
func (s *Server) Handler() http.Handler {
	authn := httpx.AuthnMiddleware(accessVerifier{s})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /members/signup", s.handleSignup)
	mux.HandleFunc("GET /members/check-id", s.handleCheckID)
	mux.HandleFunc("POST /members/login", s.handleLogin)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/reissue", s.handleRefresh)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, httpx.Chain(h, s.forcedFailure, authn))
	}
	protected("POST /members/logout", s.handleLogout)
	protected("POST /members/me", s.handleProfile)
	protected("DELETE /members/me", s.handleDeleteMember)
	protected("PUT /members/edit", s.handleEditNickname)
	protected("PUT /members/edit-password", s.handleEditPassword)
	protected("GET /points", s.handlePoints)
	protected("GET /notifications/unchecked-notifications", s.handleUnchecked)
	protected("POST /notifications/ack", s.handleAck)
	protected("GET /notifications/create", s.handlePush)

	return httpx.Chain(mux, s.requestLogger)
}

// requestLogger puts a per-request logger into the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = idx.Prefixed("srv")
		}
		ctx := slogx.WithContext(r.Context(), s.log.With("req_id", reqID, "method", r.Method, "path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type routeFailure struct {
	status  int
	code    string
	message string
}

// forcedFailure answers requests to a path registered with FailRoute.
func (s *Server) forcedFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[r.URL.Path]
		s.mu.Unlock()
		if ok {
			httpx.WriteError(w, f.status, f.code, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessVerifier accepts only tokens that are still live on the server, so
// tests can expire them on demand.
type accessVerifier struct{ s *Server }

func (v accessVerifier) Verify(token string) (*jwtx.Claims, error) {
	claims, err := v.s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.liveAccess[claims.ID]; !ok {
		return nil, jwtx.ErrExpired
	}
	if _, ok := v.s.members[claims.Subject]; !ok {
		return nil, errors.New("mockapi: unknown member")
	}
	return claims, nil
}

// AddMember registers a member directly.
func (s *Server) AddMember(userID, password, nickname string, points int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[userID]; ok {
		return fmt.Errorf("mockapi: member %q exists", userID)
	}
	s.members[userID] = &member{userID: userID, nickname: nickname, passwordHash: hash, points: points}
	return nil
}

// HasMember reports whether userID is registered.
func (s *Server) HasMember(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[userID]
	return ok
}

// ExpireAccessTokens makes every access token issued so far look expired.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.liveAccess)
}

// InvalidateRefreshTokens revokes every outstanding refresh token.
func (s *Server) InvalidateRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// RefreshCalls returns how many renewal requests reached the server.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// SetRefreshDelay delays every renewal response by d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// SetRefreshFailure makes renewals fail with status; 0 restores normal
// behaviour. The refresh token is not consumed while failing.
func (s *Server) SetRefreshFailure(status int) {
	s.refreshStatus.Store(int64(status))
}

// FailRoute makes every request to the protected path fail with status and
// the envelope code, before authentication. A zero status restores the route.
func (s *Server) FailRoute(path string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = routeFailure{status: status, code: code, message: message}
}

// RenewRequest is what the last renewal call carried.
type RenewRequest struct {
	Path         string
	RefreshToken string
	AccessToken  string
}

// LastRenewRequest returns the most recent renewal request body.
func (s *Server) LastRenewRequest() RenewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRenew
}

// issuePair mints a new access/refresh pair for m. Callers hold s.mu.
func (s *Server) issuePair(m *member) (access, refresh string, err error) {
	claims := jwtx.NewAccessClaims(m.userID, m.nickname, issuer, s.cfg.AccessTTL, s.cfg.Now())
	access, err = s.signer.Sign(claims)
	if err != nil {
		return "", "", err
	}
	refresh, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}

	s.liveAccess[claims.ID] = m.userID
	s.refresh[cryptox.FingerprintToken(refresh)] = m.userID
	return access, refresh, nil
}

// revokeMember drops every credential of userID. Callers hold s.mu.
func (s *Server) revokeMember(userID string) {
	for fp, uid := range s.refresh {
		if uid == userID {
			delete(s.refresh, fp)
		}
	}
	for jti, uid := range s.liveAccess {
		if uid == userID {
			delete(s.liveAccess, jti)
		}
	}
}
