package mindtree

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/httpx"
)

// PushState is a state of the push channel.
type PushState int

const (
	PushDisconnected PushState = iota
	PushConnecting
	PushOpen
	PushReconnecting
	PushClosed
)

func (s PushState) String() string {
	switch s {
	case PushDisconnected:
		return "disconnected"
	case PushConnecting:
		return "connecting"
	case PushOpen:
		return "open"
	case PushReconnecting:
		return "reconnecting"
	case PushClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Push event names sent by the backend.
const (
	EventNotification = "notification"
	EventError        = "error"
)

// PushEvent is one dispatched server-sent event.
type PushEvent struct {
	ID    string
	Event string
	Data  string
}

// PushStream is an open push connection.
type PushStream interface {
	// Next blocks until the next event. It returns an error once the stream
	// ends, including when the ctx passed to Open is cancelled.
	Next() (PushEvent, error)
	Close() error
}

// PushTransport opens push connections authenticated with token.
type PushTransport interface {
	Open(ctx context.Context, token string) (PushStream, error)
}

type tokenRenewer interface {
	Renew(ctx context.Context) (string, error)
}

// pushRun is one Start..Close lifetime of the channel.
type pushRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// guarded by PushChannel.mu
	connCancel context.CancelFunc
	connToken  string
	openedAt   time.Time
	live       bool
	rotated    bool
}

// PushChannel keeps one authenticated notification stream open, reconnecting
// with backoff on transient failures and with the newest token after every
// renewal.
type PushChannel struct {
	transport  PushTransport
	renewer    tokenRenewer
	notes      *NotificationList
	classifier Classifier
	log        *slog.Logger
	floor      time.Duration
	ceiling    time.Duration

	mu      sync.Mutex
	state   PushState
	token   string
	run     *pushRun
	lastRun *pushRun
	lastErr error

	subs observers[PushState]
}

// State returns the current state.
func (p *PushChannel) State() PushState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Token returns the token the next connection will use.
func (p *PushChannel) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Err returns why the channel closed itself, or nil.
func (p *PushChannel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// OnStateChange registers fn for every transition and returns the
// unsubscribe func. fn runs on the channel's goroutine and must not block.
func (p *PushChannel) OnStateChange(fn func(PushState)) func() {
	return p.subs.subscribe(fn)
}

// Start connects with token. Starting a running channel only rotates it.
func (p *PushChannel) Start(token string) error {
	if token == "" {
		return &Error{Kind: KindPushAuthFatal, Op: "push start", Err: ErrNoSession}
	}

	p.mu.Lock()
	if p.run != nil {
		p.mu.Unlock()
		p.Rotate(token)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &pushRun{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	p.run = r
	p.lastRun = r
	p.token = token
	p.lastErr = nil
	p.mu.Unlock()

	p.setState(r, PushConnecting)
	go p.loop(r)
	return nil
}

// Rotate makes the channel use token. A live connection is torn down so the
// loop reconnects at once.
func (p *PushChannel) Rotate(token string) {
	if token == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = token
	if r := p.run; r != nil && r.live && r.connCancel != nil {
		r.rotated = true
		r.connCancel()
	}
}

// Close stops the channel immediately, cancelling any backoff wait. It does
// not wait for the loop goroutine; use Wait for that.
func (p *PushChannel) Close() {
	p.mu.Lock()
	r := p.run
	p.run = nil
	p.token = ""
	p.mu.Unlock()

	if r != nil {
		r.cancel()
	}
	p.transition(PushClosed)
}

// Wait blocks until the most recent run's loop has exited or ctx ends.
func (p *PushChannel) Wait(ctx context.Context) error {
	p.mu.Lock()
	r := p.lastRun
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PushChannel) loop(r *pushRun) {
	defer close(r.done)

	log := p.log.With("component", "push")
	backoff := NewBackoff(p.floor, p.ceiling)

	// Consecutive token rejections back off separately; a successful open
	// resets backoff.
	authBackoff := NewBackoff(p.floor, p.ceiling)
	rejections := 0

	for r.ctx.Err() == nil {
		p.setState(r, PushConnecting)

		err := p.connect(r, backoff, log)
		if r.ctx.Err() != nil {
			return
		}
		if p.takeRotated(r) {
			log.Debug("push token rotated, reconnecting")
			continue
		}

		if p.openedFor(r) >= p.ceiling {
			rejections = 0
			authBackoff.Reset()
		}

		if isPushTokenInvalid(err) {
			if p.tokenReplaced(r) {
				log.Debug("push token already replaced, reconnecting")
				continue
			}

			rejections++
			if rejections > 1 {
				delay := authBackoff.Next()
				log.Warn("push token rejected again, delaying renewal", "rejections", rejections, "delay", delay)
				p.setState(r, PushReconnecting)
				if !sleep(r.ctx, delay) {
					return
				}
			}

			log.Info("push token rejected, renewing", "err", err)
			if _, rerr := p.renewer.Renew(r.ctx); rerr != nil {
				if r.ctx.Err() != nil {
					return
				}
				log.Warn("push renewal failed, closing channel", "err", rerr)
				p.fail(r, &Error{Kind: KindPushAuthFatal, Op: "push", Err: errors.Join(ErrPushClosed, rerr)})
				return
			}
			p.takeRotated(r)
			continue
		}
		rejections = 0
		authBackoff.Reset()

		delay := backoff.Next()
		log.Warn("push connection lost, reconnecting", "err", err, "delay", delay)
		p.setState(r, PushReconnecting)
		if !sleep(r.ctx, delay) {
			return
		}
	}
}

// sleep waits d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// connect opens one stream and consumes it until it fails.
func (p *PushChannel) connect(r *pushRun, backoff *Backoff, log *slog.Logger) error {
	connCtx, cancel := context.WithCancel(r.ctx)
	defer cancel()

	token := p.beginConnect(r, cancel)
	defer p.endConnect(r)

	stream, err := p.transport.Open(connCtx, token)
	if err != nil {
		return err
	}
	defer stream.Close()

	if !p.markOpen(r, token) {
		// Rotated while opening; the loop reconnects with the new token.
		return context.Canceled
	}
	backoff.Reset()
	log.Info("push channel open")

	for {
		ev, err := stream.Next()
		if err != nil {
			return err
		}
		if err := p.handle(ev, log); err != nil {
			return err
		}
	}
}

func (p *PushChannel) handle(ev PushEvent, log *slog.Logger) error {
	switch ev.Event {
	case EventNotification:
		var n Notification
		if err := json.Unmarshal([]byte(ev.Data), &n); err != nil {
			log.Warn("dropping malformed notification", "err", err, "event_id", ev.ID)
			return nil
		}
		p.notes.Add(n)
	case EventError:
		return p.classifyErrorEvent(ev.Data)
	default:
		log.Debug("ignoring push event", "event", ev.Event)
	}
	return nil
}

// classifyErrorEvent turns an "error" event into an error, recognising the
// backend's invalid-token signal.
func (p *PushChannel) classifyErrorEvent(data string) error {
	e := &Error{Kind: KindPushTransient, Op: "push", Message: data}

	var env httpx.Envelope
	if err := json.Unmarshal([]byte(data), &env); err == nil && (env.Status != "" || env.Message != "") {
		e.Code, e.Message = env.Status, env.Message
	}

	if p.classifier.Classify(e) != AuthNone {
		e.Kind = KindAccessExpired
	}
	return e
}

// isPushTokenInvalid reports whether err means the server refused the token.
func isPushTokenInvalid(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindAccessExpired || e.StatusCode == http.StatusUnauthorized
}

func (p *PushChannel) beginConnect(r *pushRun, cancel context.CancelFunc) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	r.connCancel = cancel
	r.connToken = p.token
	r.openedAt = time.Time{}
	r.rotated = false
	return p.token
}

// tokenReplaced reports whether the channel's token changed since the last
// connection attempt was made.
func (p *PushChannel) tokenReplaced(r *pushRun) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != "" && p.token != r.connToken
}

func (p *PushChannel) endConnect(r *pushRun) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r.connCancel = nil
	r.live = false
}

// markOpen flags the connection live unless the token changed meanwhile.
func (p *PushChannel) markOpen(r *pushRun, token string) bool {
	p.mu.Lock()
	if p.run != r || p.token != token {
		r.rotated = p.run == r
		p.mu.Unlock()
		return false
	}
	r.live = true
	r.openedAt = time.Now()
	p.mu.Unlock()

	p.setState(r, PushOpen)
	return true
}

// openedFor reports how long the last connection stayed open, or 0.
func (p *PushChannel) openedFor(r *pushRun) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.openedAt.IsZero() {
		return 0
	}
	return time.Since(r.openedAt)
}

func (p *PushChannel) takeRotated(r *pushRun) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	rotated := r.rotated
	r.rotated = false
	return rotated
}

func (p *PushChannel) fail(r *pushRun, err error) {
	p.mu.Lock()
	if p.run != r {
		p.mu.Unlock()
		return
	}
	p.run = nil
	p.lastErr = err
	p.mu.Unlock()

	r.cancel()
	p.transition(PushClosed)
}

// setState moves to s if r is still the current run.
func (p *PushChannel) setState(r *pushRun, s PushState) {
	p.mu.Lock()
	if p.run != r || r.ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	changed := p.state != s
	p.state = s
	p.mu.Unlock()

	if changed {
		p.subs.notify(s)
	}
}

func (p *PushChannel) transition(s PushState) {
	p.mu.Lock()
	changed := p.state != s
	p.state = s
	p.mu.Unlock()

	if changed {
		p.subs.notify(s)
	}
}
