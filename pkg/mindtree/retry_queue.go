package mindtree

import (
	"context"
	"sync"
)

// PendingResult is what a queued request ends with.
type PendingResult struct {
	Response *Response
	Err      error
	// Rejected is set when the renewal failed and the request was never
	// replayed; Err then carries the renewal error.
	Rejected bool
}

// PendingRequest is a request parked while a renewal episode is open.
type PendingRequest struct {
	ctx    context.Context
	req    *Request
	replay func(ctx context.Context, token string) (*Response, error)
	done   chan PendingResult
}

// NewPendingRequest parks req. replay re-sends it with a fresh token and
// runs under ctx, the caller's context.
func NewPendingRequest(
	ctx context.Context,
	req *Request,
	replay func(ctx context.Context, token string) (*Response, error),
) *PendingRequest {
	return &PendingRequest{ctx: ctx, req: req, replay: replay, done: make(chan PendingResult, 1)}
}

// Request returns the parked request.
func (p *PendingRequest) Request() *Request { return p.req }

// Wait blocks until the request was replayed or rejected, or ctx ends.
func (p *PendingRequest) Wait(ctx context.Context) PendingResult {
	select {
	case res := <-p.done:
		return res
	case <-ctx.Done():
		return PendingResult{Err: networkError(p.req.op(), ctx.Err())}
	}
}

func (p *PendingRequest) resolve(token string) {
	if err := p.ctx.Err(); err != nil {
		p.done <- PendingResult{Err: networkError(p.req.op(), err)}
		return
	}
	resp, err := p.replay(p.ctx, token)
	p.done <- PendingResult{Response: resp, Err: err}
}

func (p *PendingRequest) reject(err error) {
	p.done <- PendingResult{Err: err, Rejected: true}
}

// RetryQueue collects requests rejected for a stale token while a renewal
// episode is open. Each episode is opened once and flushed once.
type RetryQueue struct {
	mu      sync.Mutex
	open    bool
	pending []*PendingRequest
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{}
}

// Open starts an episode. Requests enqueued from now on wait for Flush.
func (q *RetryQueue) Open() {
	q.mu.Lock()
	q.open = true
	q.mu.Unlock()
}

// Active reports whether an episode is open.
func (q *RetryQueue) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.open
}

// Len returns the number of parked requests.
func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Enqueue parks p if an episode is open and reports whether it did.
func (q *RetryQueue) Enqueue(p *PendingRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.open {
		return false
	}
	q.pending = append(q.pending, p)
	return true
}

// Flush ends the episode. With err == nil every parked request is replayed
// concurrently with token and Flush waits for all of them; otherwise every
// request is rejected with err. Nothing carries over to the next episode.
func (q *RetryQueue) Flush(token string, err error) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.open = false
	q.mu.Unlock()

	if err != nil {
		for _, p := range pending {
			p.reject(err)
		}
		return
	}

	var wg sync.WaitGroup
	for _, p := range pending {
		wg.Go(func() { p.resolve(token) })
	}
	wg.Wait()
}
