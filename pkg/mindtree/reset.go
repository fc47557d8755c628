package mindtree

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Reason says why the session was torn down.
type Reason string

const (
	ReasonRefreshInvalid Reason = "refresh_invalid"
	ReasonNoSession      Reason = "no_session"
	ReasonAccountDeleted Reason = "account_deleted"
)

// NoticeLevel is the severity of a Notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient user-facing message (a toast).
type Notice struct {
	Level   NoticeLevel
	Message string
	Reason  Reason
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Navigator sends the user to the unauthenticated entry point.
type Navigator interface {
	ToEntry()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) ToEntry() { f() }

// ResetCoordinator tears the client session down at most once per episode.
// A new login re-arms it.
type ResetCoordinator struct {
	log       *slog.Logger
	tokens    *TokenStore
	identity  *IdentityState
	storage   Storage
	notifier  Notifier
	navigator Navigator
	delay     time.Duration

	resetting atomic.Bool
}

func noticeFor(reason Reason) Notice {
	switch reason {
	case ReasonAccountDeleted:
		return Notice{Level: NoticeInfo, Reason: reason, Message: "Your account has been deleted."}
	default:
		return Notice{Level: NoticeError, Reason: reason, Message: "Your session has expired. Returning to the main page."}
	}
}

// Reset clears tokens, identity and storage, shows one notice and navigates
// to the entry point. Only the first call until Rearm does anything; it
// reports whether this call performed the reset.
func (c *ResetCoordinator) Reset(ctx context.Context, reason Reason) bool {
	if !c.resetting.CompareAndSwap(false, true) {
		c.log.Debug("reset already performed", "reason", reason)
		return false
	}

	log := c.log.With("reason", reason)
	log.Warn("resetting client session")

	if err := c.tokens.Clear(ctx); err != nil {
		log.Error("reset: clear tokens", "err", err)
	}
	if err := c.identity.Logout(ctx); err != nil {
		log.Error("reset: logout identity", "err", err)
	}
	if err := c.storage.Clear(ctx); err != nil {
		log.Error("reset: clear storage", "err", err)
	}

	c.notifier.Notify(noticeFor(reason))

	if c.delay > 0 {
		time.AfterFunc(c.delay, c.navigator.ToEntry)
	} else {
		c.navigator.ToEntry()
	}
	return true
}

// Rearm allows the next Reset to run again.
func (c *ResetCoordinator) Rearm() {
	c.resetting.Store(false)
}

// Done reports whether a reset happened since the last Rearm.
func (c *ResetCoordinator) Done() bool {
	return c.resetting.Load()
}
