package mindtree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// TokenPair is an access/refresh token pair. Either side empty means there
// is no session.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Valid reports whether both tokens are present.
func (p TokenPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// TokenStore holds the current pair in memory and mirrors it to Storage.
// Both keys are always written and removed through one storage call.
type TokenStore struct {
	storage Storage
	log     *slog.Logger

	mu   sync.RWMutex
	pair TokenPair
}

func NewTokenStore(storage Storage, log *slog.Logger) *TokenStore {
	return &TokenStore{storage: storage, log: log}
}

// Load reads the persisted pair into memory. A half-written pair is treated
// as no session and both keys are removed.
func (t *TokenStore) Load(ctx context.Context) (TokenPair, error) {
	access, okA, err := t.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to load access token: %w", err)
	}
	refresh, okR, err := t.storage.Get(ctx, KeyRefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to load refresh token: %w", err)
	}

	pair := TokenPair{AccessToken: access, RefreshToken: refresh}
	if !pair.Valid() {
		if okA || okR {
			t.log.Warn("discarding partially persisted token pair",
				"has_access", access != "", "has_refresh", refresh != "")
			if err := t.storage.DeleteMany(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
				return TokenPair{}, fmt.Errorf("failed to discard partial token pair: %w", err)
			}
		}
		pair = TokenPair{}
	}

	t.mu.Lock()
	t.pair = pair
	t.mu.Unlock()
	return pair, nil
}

// Get returns the current pair.
func (t *TokenStore) Get() TokenPair {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pair
}

// Access returns the current access token, or "".
func (t *TokenStore) Access() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pair.AccessToken
}

// Set replaces the pair. The in-memory pair is always updated when pair is
// valid; a returned error after that only reports that persisting failed.
func (t *TokenStore) Set(ctx context.Context, pair TokenPair) error {
	if !pair.Valid() {
		return errHalfPair
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store(ctx, pair)
}

// Replace stores next only while the current pair is still prev. It reports
// false, writing nothing, when a login, logout or reset changed the pair in
// the meantime.
func (t *TokenStore) Replace(ctx context.Context, prev, next TokenPair) (bool, error) {
	if !next.Valid() {
		return false, errHalfPair
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pair != prev {
		return false, nil
	}
	return true, t.store(ctx, next)
}

var errHalfPair = errors.New("mindtree: token pair must carry both tokens")

// store sets pair and persists it. Callers hold t.mu.
func (t *TokenStore) store(ctx context.Context, pair TokenPair) error {
	t.pair = pair
	err := t.storage.SetMany(ctx, map[string]string{
		KeyAccessToken:  pair.AccessToken,
		KeyRefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("failed to persist token pair: %w", err)
	}
	return nil
}

// Clear removes both tokens from memory and storage.
func (t *TokenStore) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pair = TokenPair{}
	if err := t.storage.DeleteMany(ctx, KeyAccessToken, KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to remove token pair: %w", err)
	}
	return nil
}
