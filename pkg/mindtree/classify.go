package mindtree

import (
	"net/http"
	"strings"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
)

// AuthFailure is the outcome of classifying a rejected response.
type AuthFailure int

const (
	// AuthNone means the failure is not about credentials.
	AuthNone AuthFailure = iota
	// AuthAccessExpired means the access token is stale and renewal may help.
	AuthAccessExpired
	// AuthRefreshInvalid means the refresh token is no longer accepted.
	AuthRefreshInvalid
)

// Classifier decides whether a rejected response is an auth failure.
type Classifier interface {
	Classify(e *Error) AuthFailure
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(e *Error) AuthFailure

func (f ClassifierFunc) Classify(e *Error) AuthFailure { return f(e) }

// DefaultClassifier prefers the envelope's machine-readable status, falls
// back to matching the message text, and finally treats any remaining 401 as
// an expired access token.
var DefaultClassifier Classifier = ClassifierFunc(defaultClassify)

func defaultClassify(e *Error) AuthFailure {
	if e == nil {
		return AuthNone
	}

	switch e.Code {
	case httpx.StatusAccessTokenExpired, httpx.StatusInvalidAccessToken:
		return AuthAccessExpired
	case httpx.StatusRefreshInvalid:
		return AuthRefreshInvalid
	}

	msg := strings.ToLower(e.Message)
	if strings.Contains(msg, "token") && (strings.Contains(msg, "expired") || strings.Contains(msg, "invalid")) {
		if strings.Contains(msg, "refresh") {
			return AuthRefreshInvalid
		}
		return AuthAccessExpired
	}

	if e.StatusCode == http.StatusUnauthorized {
		return AuthAccessExpired
	}
	return AuthNone
}
