package mindtree

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultRenewTimeout   = 5 * time.Second
	DefaultRenewBefore    = 30 * time.Second
	DefaultRefreshPath    = "/auth/refresh"
	DefaultPushPath       = "/notifications/create"
	DefaultBackoffFloor   = time.Second
	DefaultBackoffCap     = 30 * time.Second
)

// Config configures a Client. Zero values get the defaults above.
type Config struct {
	BaseURL string

	// HTTPClient is used for every call, push included. Its own Timeout
	// should stay zero; per-call timeouts come from RequestTimeout.
	HTTPClient *http.Client
	Storage    Storage
	Logger     *slog.Logger
	Classifier Classifier
	Notifier   Notifier
	Navigator  Navigator

	// PushTransport defaults to an SSETransport against BaseURL+PushPath.
	PushTransport PushTransport

	RequestTimeout time.Duration
	RenewTimeout   time.Duration

	// RenewBefore triggers a proactive renewal when the access token's exp
	// is this close. Negative disables it.
	RenewBefore time.Duration

	RefreshPath string
	// SendAccessOnRenew also sends the current access token in the renewal
	// body, for backends exposing a reissue endpoint.
	SendAccessOnRenew bool

	PushPath         string
	PushBackoffFloor time.Duration
	PushBackoffCap   time.Duration

	// RedirectDelay is how long the reset waits before navigating away, so
	// the notice stays visible.
	RedirectDelay time.Duration

	// RateLimit caps outgoing requests per second; zero means unlimited.
	RateLimit rate.Limit
	RateBurst int

	Now func() time.Time
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.Logger == nil {
		c.Logger = slogx.Discard()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Transport: slogx.NewTransport(http.DefaultTransport, c.Logger)}
	}
	if c.Storage == nil {
		c.Storage = NewMemoryStorage()
	}
	if c.Classifier == nil {
		c.Classifier = DefaultClassifier
	}
	if c.Notifier == nil {
		c.Notifier = NotifierFunc(func(Notice) {})
	}
	if c.Navigator == nil {
		c.Navigator = NavigatorFunc(func() {})
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RenewTimeout <= 0 {
		c.RenewTimeout = DefaultRenewTimeout
	}
	if c.RenewBefore == 0 {
		c.RenewBefore = DefaultRenewBefore
	}
	if c.RefreshPath == "" {
		c.RefreshPath = DefaultRefreshPath
	}
	if c.PushPath == "" {
		c.PushPath = DefaultPushPath
	}
	if c.PushBackoffFloor <= 0 {
		c.PushBackoffFloor = DefaultBackoffFloor
	}
	if c.PushBackoffCap <= 0 {
		c.PushBackoffCap = DefaultBackoffCap
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
