package mindtree

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeStream struct {
	ctx    context.Context
	token  string
	events chan PushEvent
	fail   chan error
	closed atomic.Bool
}

func (s *fakeStream) Next() (PushEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case err := <-s.fail:
		return PushEvent{}, err
	case <-s.ctx.Done():
		return PushEvent{}, networkError("push stream", s.ctx.Err())
	}
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeTransport hands every opened stream to the test through streams.
type fakeTransport struct {
	mu      sync.Mutex
	tokens  []string
	openErr func(attempt int, token string) error
	streams chan *fakeStream
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{streams: make(chan *fakeStream, 64)}
}

func (f *fakeTransport) Open(ctx context.Context, token string) (PushStream, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	attempt := len(f.tokens)
	openErr := f.openErr
	f.mu.Unlock()

	if openErr != nil {
		if err := openErr(attempt, token); err != nil {
			return nil, err
		}
	}

	s := &fakeStream{ctx: ctx, token: token, events: make(chan PushEvent), fail: make(chan error, 1)}
	f.streams <- s
	return s, nil
}

func (f *fakeTransport) opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.tokens)
}

func (f *fakeTransport) next(t *testing.T) *fakeStream {
	t.Helper()
	select {
	case s := <-f.streams:
		return s
	case <-time.After(waitFor):
		t.Fatal("no push connection opened")
		return nil
	}
}

type fakeRenewer struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (string, error)
}

func (r *fakeRenewer) Renew(ctx context.Context) (string, error) {
	r.calls.Add(1)
	return r.fn(ctx)
}

func newTestPush(tr PushTransport, rn tokenRenewer) *PushChannel {
	return &PushChannel{
		transport:  tr,
		renewer:    rn,
		notes:      NewNotificationList(),
		classifier: DefaultClassifier,
		log:        slogx.Discard(),
		floor:      5 * time.Millisecond,
		ceiling:    20 * time.Millisecond,
	}
}

func closePush(t *testing.T, p *PushChannel) {
	t.Helper()
	p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, p.Wait(ctx))
}

func requireState(t *testing.T, p *PushChannel, want PushState) {
	t.Helper()
	require.Eventually(t, func() bool { return p.State() == want }, waitFor, time.Millisecond,
		"push state stayed %s, want %s", p.State(), want)
}

// rotatingRenewer emulates the real renewer, which rotates the channel
// before returning the new token.
func rotatingRenewer(p **PushChannel, token string) *fakeRenewer {
	return &fakeRenewer{fn: func(context.Context) (string, error) {
		(*p).Rotate(token)
		return token, nil
	}}
}

func TestPushStartRequiresToken(t *testing.T) {
	t.Parallel()

	p := newTestPush(newFakeTransport(), &fakeRenewer{})
	err := p.Start("")
	require.Equal(t, KindPushAuthFatal, KindOf(err))
	require.Equal(t, PushDisconnected, p.State())
}

func TestPushDeliversNotifications(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	p := newTestPush(tr, &fakeRenewer{})
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	s := tr.next(t)
	require.Equal(t, "t1", s.token)
	requireState(t, p, PushOpen)

	s.events <- PushEvent{ID: "1", Event: EventNotification, Data: `{"id":"n1","type":"LIKE","senderUserId":"bob"}`}
	s.events <- PushEvent{ID: "2", Event: EventNotification, Data: `{not json`}
	s.events <- PushEvent{ID: "3", Event: "heartbeat", Data: "."}
	s.events <- PushEvent{ID: "4", Event: EventNotification, Data: `{"id":"n2","type":"COMMENT"}`}

	require.Eventually(t, func() bool { return p.notes.Len() == 2 }, waitFor, time.Millisecond)
	list := p.notes.List()
	require.Equal(t, "n2", list[0].ID)
	require.Equal(t, "n1", list[1].ID)
	require.Equal(t, "bob", list[1].SenderUserID)

	require.Equal(t, []string{"t1"}, tr.opened(), "malformed events must not drop the connection")
}

func TestPushReconnectsWithBackoff(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.openErr = func(attempt int, _ string) error {
		if attempt <= 3 {
			return networkError("open", errors.New("connection refused"))
		}
		return nil
	}

	p := newTestPush(tr, &fakeRenewer{})
	var mu sync.Mutex
	var states []PushState
	p.OnStateChange(func(s PushState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	s := tr.next(t)
	requireState(t, p, PushOpen)
	require.Len(t, tr.opened(), 4)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) > 0 && states[len(states)-1] == PushOpen
	}, waitFor, time.Millisecond)
	mu.Lock()
	require.Contains(t, states, PushReconnecting)
	mu.Unlock()

	// A transient error event reconnects with the same token.
	s.events <- PushEvent{Event: EventError, Data: "server restarting"}
	s2 := tr.next(t)
	require.Equal(t, "t1", s2.token)
	require.True(t, s.closed.Load())
	requireState(t, p, PushOpen)
}

func TestPushRotateReconnectsWithNewToken(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	rn := &fakeRenewer{}
	p := newTestPush(tr, rn)
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	s1 := tr.next(t)
	requireState(t, p, PushOpen)

	p.Rotate("t2")
	s2 := tr.next(t)
	require.Equal(t, "t2", s2.token)
	require.Error(t, s1.ctx.Err())
	requireState(t, p, PushOpen)

	// Start on a running channel rotates it.
	require.NoError(t, p.Start("t3"))
	s3 := tr.next(t)
	require.Equal(t, "t3", s3.token)
	require.Equal(t, "t3", p.Token())

	require.Zero(t, rn.calls.Load())
}

func TestPushTokenInvalidEventRenews(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	var p *PushChannel
	rn := rotatingRenewer(&p, "t2")
	p = newTestPush(tr, rn)
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	s1 := tr.next(t)
	requireState(t, p, PushOpen)

	s1.events <- PushEvent{Event: EventError, Data: `{"code":401,"status":"ACCESS_TOKEN_EXPIRED","message":"access token expired"}`}

	s2 := tr.next(t)
	require.Equal(t, "t2", s2.token)
	require.Equal(t, int32(1), rn.calls.Load())
	requireState(t, p, PushOpen)
}

func TestPushOpenRejectedRenews(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.openErr = func(_ int, token string) error {
		if token == "stale" {
			return &Error{Kind: KindRequest, Op: "GET /notifications/create", StatusCode: 401, Code: "INVALID_ACCESS_TOKEN"}
		}
		return nil
	}
	var p *PushChannel
	rn := rotatingRenewer(&p, "fresh")
	p = newTestPush(tr, rn)
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("stale"))
	s := tr.next(t)
	require.Equal(t, "fresh", s.token)
	require.Equal(t, []string{"stale", "fresh"}, tr.opened())
	require.Equal(t, int32(1), rn.calls.Load())
}

func TestPushRejectionAfterRotationSkipsRenewal(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	var p *PushChannel
	tr.openErr = func(_ int, token string) error {
		if token == "t1" {
			// A renewal elsewhere lands while this open is in flight.
			p.Rotate("t2")
			return &Error{Kind: KindRequest, StatusCode: 401, Code: "ACCESS_TOKEN_EXPIRED"}
		}
		return nil
	}
	rn := rotatingRenewer(&p, "t3")
	p = newTestPush(tr, rn)
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	s := tr.next(t)
	require.Equal(t, "t2", s.token)
	require.Equal(t, []string{"t1", "t2"}, tr.opened())
	require.Zero(t, rn.calls.Load())
	requireState(t, p, PushOpen)
}

func TestPushRepeatedRejectionsBackOff(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.openErr = func(int, string) error {
		return &Error{Kind: KindRequest, StatusCode: 401, Code: "INVALID_ACCESS_TOKEN"}
	}

	var (
		p  *PushChannel
		mu sync.Mutex
		at []time.Time
	)
	rn := &fakeRenewer{fn: func(context.Context) (string, error) {
		mu.Lock()
		at = append(at, time.Now())
		token := fmt.Sprintf("t%d", len(at)+1)
		mu.Unlock()
		p.Rotate(token)
		return token, nil
	}}
	p = newTestPush(tr, rn)
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	require.Eventually(t, func() bool { return rn.calls.Load() >= 4 }, waitFor, time.Millisecond)

	mu.Lock()
	renewals := slices.Clone(at[:4])
	mu.Unlock()

	// The first renewal is immediate, later ones wait 5ms, 10ms, 20ms.
	require.GreaterOrEqual(t, renewals[1].Sub(renewals[0]), 5*time.Millisecond)
	require.GreaterOrEqual(t, renewals[2].Sub(renewals[1]), 10*time.Millisecond)
	require.GreaterOrEqual(t, renewals[3].Sub(renewals[2]), 20*time.Millisecond)
}

func TestPushClosesWhenRenewalFails(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.openErr = func(int, string) error {
		return &Error{Kind: KindRequest, StatusCode: 401, Code: "ACCESS_TOKEN_EXPIRED"}
	}
	rn := &fakeRenewer{fn: func(context.Context) (string, error) {
		return "", &Error{Kind: KindSessionFatal, Op: "renew", Err: ErrRefreshInvalid}
	}}
	p := newTestPush(tr, rn)

	require.NoError(t, p.Start("t1"))

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	require.Equal(t, PushClosed, p.State())
	err := p.Err()
	require.ErrorIs(t, err, ErrPushClosed)
	require.ErrorIs(t, err, ErrRefreshInvalid)
	require.Equal(t, KindPushAuthFatal, KindOf(err))

	require.Len(t, tr.opened(), 1)
	require.Equal(t, int32(1), rn.calls.Load())
}

func TestPushCloseCancelsBackoff(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	tr.openErr = func(int, string) error {
		return networkError("open", errors.New("connection refused"))
	}
	p := newTestPush(tr, &fakeRenewer{})
	p.floor, p.ceiling = time.Hour, time.Hour

	require.NoError(t, p.Start("t1"))
	requireState(t, p, PushReconnecting)

	closePush(t, p)
	require.Equal(t, PushClosed, p.State())
	require.Empty(t, p.Token())
	require.NoError(t, p.Err())
}

func TestPushRestartAfterClose(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	p := newTestPush(tr, &fakeRenewer{})
	t.Cleanup(func() { closePush(t, p) })

	require.NoError(t, p.Start("t1"))
	tr.next(t)
	requireState(t, p, PushOpen)
	closePush(t, p)

	require.NoError(t, p.Start("t2"))
	s := tr.next(t)
	require.Equal(t, "t2", s.token)
	requireState(t, p, PushOpen)
}
