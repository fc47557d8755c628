package mindtree

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPending(ctx context.Context, path string, replays *atomic.Int32, seen *sync.Map) *PendingRequest {
	req := &Request{Method: "GET", Path: path}
	return NewPendingRequest(ctx, req, func(_ context.Context, token string) (*Response, error) {
		replays.Add(1)
		seen.Store(path, token)
		return &Response{StatusCode: 200, Body: []byte(path)}, nil
	})
}

func TestRetryQueueEnqueueRequiresOpenEpisode(t *testing.T) {
	t.Parallel()

	q := NewRetryQueue()
	var replays atomic.Int32
	var seen sync.Map

	require.False(t, q.Enqueue(newTestPending(context.Background(), "/a", &replays, &seen)))
	require.False(t, q.Active())

	q.Open()
	require.True(t, q.Active())
	require.True(t, q.Enqueue(newTestPending(context.Background(), "/a", &replays, &seen)))
	require.Equal(t, 1, q.Len())
}

func TestRetryQueueFlushReplaysEveryRequest(t *testing.T) {
	t.Parallel()

	q := NewRetryQueue()
	q.Open()

	var replays atomic.Int32
	var seen sync.Map
	paths := []string{"/a", "/b", "/c", "/d", "/e"}
	pending := make([]*PendingRequest, 0, len(paths))
	for _, p := range paths {
		pr := newTestPending(context.Background(), p, &replays, &seen)
		require.True(t, q.Enqueue(pr))
		pending = append(pending, pr)
	}

	q.Flush("new-token", nil)

	require.Equal(t, int32(len(paths)), replays.Load())
	for i, pr := range pending {
		res := pr.Wait(context.Background())
		require.False(t, res.Rejected)
		require.NoError(t, res.Err)
		require.Equal(t, paths[i], string(res.Response.Body))

		tok, ok := seen.Load(paths[i])
		require.True(t, ok)
		require.Equal(t, "new-token", tok)
	}

	require.False(t, q.Active())
	require.Zero(t, q.Len())
}

func TestRetryQueueFlushRejectsOnFailure(t *testing.T) {
	t.Parallel()

	q := NewRetryQueue()
	q.Open()

	var replays atomic.Int32
	var seen sync.Map
	a := newTestPending(context.Background(), "/a", &replays, &seen)
	b := newTestPending(context.Background(), "/b", &replays, &seen)
	require.True(t, q.Enqueue(a))
	require.True(t, q.Enqueue(b))

	failure := &Error{Kind: KindRenewalRetryable, Op: "renew"}
	q.Flush("", failure)

	for _, pr := range []*PendingRequest{a, b} {
		res := pr.Wait(context.Background())
		require.True(t, res.Rejected)
		require.True(t, errors.Is(res.Err, failure))
	}
	require.Zero(t, replays.Load())
}

func TestRetryQueueNothingSurvivesIntoNextEpisode(t *testing.T) {
	t.Parallel()

	q := NewRetryQueue()
	var replays atomic.Int32
	var seen sync.Map

	q.Open()
	require.True(t, q.Enqueue(newTestPending(context.Background(), "/a", &replays, &seen)))
	q.Flush("t1", nil)
	require.Equal(t, int32(1), replays.Load())

	q.Open()
	q.Flush("t2", nil)
	require.Equal(t, int32(1), replays.Load(), "second episode must not replay the first episode's requests")
}

func TestPendingRequestCallerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var replays atomic.Int32
	var seen sync.Map
	pr := newTestPending(ctx, "/a", &replays, &seen)
	cancel()

	res := pr.Wait(ctx)
	require.Equal(t, KindNetwork, KindOf(res.Err))

	q := NewRetryQueue()
	q.Open()
	require.True(t, q.Enqueue(pr))
	q.Flush("t", nil)
	require.Zero(t, replays.Load(), "cancelled callers are not replayed")
}
