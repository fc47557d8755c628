package mindtree

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"
)

// Client is the session manager for one member on one device.
type Client struct {
	cfg Config
	log *slog.Logger

	storage  Storage
	tokens   *TokenStore
	identity *IdentityState
	notes    *NotificationList
	queue    *RetryQueue
	reset    *ResetCoordinator
	gateway  *Gateway
	renewer  *Renewer
	push     *PushChannel

	unsubscribe func()
}

// New wires a Client. Call Restore to pick up a persisted session.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("mindtree: BaseURL is required")
	}
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:      cfg,
		log:      cfg.Logger,
		storage:  cfg.Storage,
		tokens:   NewTokenStore(cfg.Storage, cfg.Logger),
		identity: NewIdentityState(cfg.Storage),
		notes:    NewNotificationList(),
		queue:    NewRetryQueue(),
	}

	c.reset = &ResetCoordinator{
		log:       cfg.Logger.With("component", "reset"),
		tokens:    c.tokens,
		identity:  c.identity,
		storage:   cfg.Storage,
		notifier:  cfg.Notifier,
		navigator: cfg.Navigator,
		delay:     cfg.RedirectDelay,
	}

	c.gateway = &Gateway{
		cfg:    cfg,
		log:    cfg.Logger.With("component", "gateway"),
		tokens: c.tokens,
		queue:  c.queue,
		reset:  c.reset,
	}
	if cfg.RateLimit > 0 {
		c.gateway.limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	c.renewer = &Renewer{
		cfg:     cfg,
		log:     cfg.Logger.With("component", "renewer"),
		gateway: c.gateway,
		tokens:  c.tokens,
		queue:   c.queue,
		reset:   c.reset,
	}
	c.gateway.renewer = c.renewer

	transport := cfg.PushTransport
	if transport == nil {
		transport = NewSSETransport(cfg.HTTPClient, cfg.BaseURL+cfg.PushPath)
	}
	c.push = &PushChannel{
		transport:  transport,
		renewer:    c.renewer,
		notes:      c.notes,
		classifier: cfg.Classifier,
		log:        cfg.Logger,
		floor:      cfg.PushBackoffFloor,
		ceiling:    cfg.PushBackoffCap,
	}
	c.renewer.push = c.push

	// Whatever logs the member out also drops the stream and their
	// notifications.
	c.unsubscribe = c.identity.Subscribe(func(id Identity) {
		if !id.LoggedIn {
			c.push.Close()
			c.notes.Clear()
		}
	})

	return c, nil
}

// Gateway is the entry point for raw backend calls.
func (c *Client) Gateway() *Gateway { return c.gateway }

// Identity is the observable logged-in member.
func (c *Client) Identity() *IdentityState { return c.identity }

// Notifications is the observable list of unacknowledged notifications.
func (c *Client) Notifications() *NotificationList { return c.notes }

// Tokens exposes the token store for inspection.
func (c *Client) Tokens() *TokenStore { return c.tokens }

// Push exposes the notification channel.
func (c *Client) Push() *PushChannel { return c.push }

// Renewer exposes token renewal.
func (c *Client) Renewer() *Renewer { return c.renewer }

// Resetter exposes the critical reset coordinator.
func (c *Client) Resetter() *ResetCoordinator { return c.reset }

// StartPush opens the notification channel with the current access token.
func (c *Client) StartPush() error {
	return c.push.Start(c.tokens.Access())
}

// Close stops background work. Persisted state is left untouched.
func (c *Client) Close() {
	c.push.Close()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// startSession runs after a login or a restore: push channel plus the
// unacknowledged notifications, both best effort.
func (c *Client) startSession(ctx context.Context) {
	if err := c.StartPush(); err != nil {
		c.log.Warn("push channel not started", "err", err)
	}
	if _, err := c.FetchUnchecked(ctx); err != nil {
		c.log.Warn("unchecked notifications not loaded", "err", err)
	}
}
