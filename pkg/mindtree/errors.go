package mindtree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
)

// Kind classifies a failure by how callers are expected to react to it.
type Kind int

const (
	// KindRequest is an ordinary API error surfaced to the caller as-is.
	KindRequest Kind = iota
	// KindNetwork covers transport failures and timeouts.
	KindNetwork
	// KindAccessExpired means the access token was rejected; the gateway
	// recovers from it and callers rarely see it.
	KindAccessExpired
	// KindRenewalRetryable means renewal failed for a transient reason. The
	// session is intact and the caller may retry later.
	KindRenewalRetryable
	// KindSessionFatal means the session ended and a reset was triggered.
	KindSessionFatal
	// KindPushTransient is a push channel failure followed by a backoff reconnect.
	KindPushTransient
	// KindPushAuthFatal means the push channel gave up after a failed renewal.
	KindPushAuthFatal
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNetwork:
		return "network"
	case KindAccessExpired:
		return "access_expired"
	case KindRenewalRetryable:
		return "renewal_retryable"
	case KindSessionFatal:
		return "session_fatal"
	case KindPushTransient:
		return "push_transient"
	case KindPushAuthFatal:
		return "push_auth_fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrNoSession is returned when an operation needs tokens that are not held.
	ErrNoSession = errors.New("mindtree: no session")
	// ErrRefreshInvalid is returned when the backend rejected the refresh token.
	ErrRefreshInvalid = errors.New("mindtree: refresh token invalid")
	// ErrPushClosed is returned by PushChannel.Err after the channel gave up.
	ErrPushClosed = errors.New("mindtree: push channel closed")
)

// Error is the single error type returned by the SDK.
type Error struct {
	Kind Kind
	// Op names the failed operation, usually "METHOD /path".
	Op string
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Code is the backend's machine-readable envelope status.
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("mindtree: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d", e.StatusCode)
		if e.Code != "" {
			b.WriteString(" ")
			b.WriteString(e.Code)
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err. Errors that did not originate in the SDK
// are reported as KindNetwork when they are context or net errors and as
// KindRequest otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNoSession) || errors.Is(err, ErrRefreshInvalid) {
		return KindSessionFatal
	}
	if isNetworkErr(err) {
		return KindNetwork
	}
	return KindRequest
}

// IsSessionFatal reports whether err ended the session.
func IsSessionFatal(err error) bool {
	return err != nil && KindOf(err) == KindSessionFatal
}

func isNetworkErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func networkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// parseErrorResponse turns a non-2xx response into an *Error, reading the
// envelope when there is one.
func parseErrorResponse(op string, status int, body []byte) *Error {
	e := &Error{Kind: KindRequest, Op: op, StatusCode: status}

	var env httpx.Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		e.Code = env.Status
		e.Message = env.Message
		if e.Message == "" && len(env.Data) > 0 {
			var data struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(env.Data, &data) == nil {
				e.Message = data.Message
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// UserMessage is the only place a human-readable explanation is attached to
// an error. UIs pass it to their notice mechanism.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		if isNetworkErr(err) {
			return "Check your internet connection."
		}
		return "Something went wrong. Please try again."
	}

	switch e.Kind {
	case KindSessionFatal:
		return "Your session has expired. Returning to the main page."
	case KindNetwork:
		return "Check your internet connection."
	case KindRenewalRetryable:
		return "Couldn't reach the server. Please try again in a moment."
	case KindPushTransient, KindPushAuthFatal:
		return "Live notifications are unavailable right now."
	}

	switch e.StatusCode {
	case http.StatusBadRequest:
		return messageOr(e, "Please double-check what you entered.")
	case http.StatusUnauthorized:
		return "Please log in to use this feature."
	case http.StatusForbidden:
		return "You don't have permission to access this page."
	case http.StatusConflict:
		return messageOr(e, "That value is already in use. Try another one.")
	case http.StatusInternalServerError:
		return "The server ran into a problem. Please try again later."
	default:
		return messageOr(e, "Something went wrong. Please try again.")
	}
}

func messageOr(e *Error, fallback string) string {
	if e.Message != "" && e.Message != http.StatusText(e.StatusCode) {
		return e.Message
	}
	return fallback
}
