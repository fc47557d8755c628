package mindtree

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Identity is the logged-in member as the UI sees it.
type Identity struct {
	LoggedIn bool   `json:"isLoggedIn"`
	UserID   string `json:"userId,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// IdentityState is the observable identity, persisted as one JSON blob.
type IdentityState struct {
	storage Storage

	mu  sync.RWMutex
	cur Identity

	subs observers[Identity]
}

func NewIdentityState(storage Storage) *IdentityState {
	return &IdentityState{storage: storage}
}

// Current returns the identity snapshot.
func (s *IdentityState) Current() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Subscribe registers fn for every change and returns the unsubscribe func.
func (s *IdentityState) Subscribe(fn func(Identity)) func() {
	return s.subs.subscribe(fn)
}

// Load restores the persisted identity without notifying subscribers.
func (s *IdentityState) Load(ctx context.Context) (Identity, error) {
	raw, ok, err := s.storage.Get(ctx, KeyIdentity)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}

	var id Identity
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			id = Identity{}
		}
	}

	s.mu.Lock()
	s.cur = id
	s.mu.Unlock()
	return id, nil
}

// Login marks userID as logged in.
func (s *IdentityState) Login(ctx context.Context, userID, nickname string) error {
	return s.set(ctx, Identity{LoggedIn: true, UserID: userID, Nickname: nickname})
}

// SetNickname updates the nickname of the logged-in member.
func (s *IdentityState) SetNickname(ctx context.Context, nickname string) error {
	cur := s.Current()
	if !cur.LoggedIn {
		return nil
	}
	cur.Nickname = nickname
	return s.set(ctx, cur)
}

// Logout clears the identity. Subscribers are notified even when it was
// already logged out, so teardown hooks always run.
func (s *IdentityState) Logout(ctx context.Context) error {
	return s.set(ctx, Identity{})
}

func (s *IdentityState) set(ctx context.Context, id Identity) error {
	s.mu.Lock()
	s.cur = id
	s.mu.Unlock()

	var err error
	if id.LoggedIn {
		raw, _ := json.Marshal(id)
		err = s.storage.SetMany(ctx, map[string]string{KeyIdentity: string(raw)})
	} else {
		err = s.storage.DeleteMany(ctx, KeyIdentity)
	}

	s.subs.notify(id)
	if err != nil {
		return fmt.Errorf("failed to persist identity: %w", err)
	}
	return nil
}
