package mindtree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/idx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/jwtx"
	"golang.org/x/time/rate"
)

// Gateway sends every backend call. It attaches the bearer token and turns
// a stale-token rejection into a renewal plus one replay. It never writes
// tokens itself.
type Gateway struct {
	cfg     Config
	log     *slog.Logger
	limiter *rate.Limiter

	tokens  *TokenStore
	renewer *Renewer
	queue   *RetryQueue
	reset   *ResetCoordinator
}

// Send performs req and returns the 2xx response or an *Error.
func (g *Gateway) Send(ctx context.Context, req *Request) (*Response, error) {
	return g.send(ctx, req, false)
}

func (g *Gateway) send(ctx context.Context, req *Request, retried bool) (*Response, error) {
	var token string
	if !req.SkipAuthRefresh {
		token = g.tokens.Access()
		if token != "" && !retried && g.expiresSoon(token) {
			renewed, err := g.renewer.Renew(ctx)
			switch {
			case err == nil:
				token = renewed
			case IsSessionFatal(err):
				return nil, err
			default:
				g.log.Warn("proactive renewal failed, using current token", "op", req.op(), "err", err)
			}
		}
	}

	resp, err := g.dispatch(ctx, req, token)
	if err == nil {
		return resp, nil
	}

	var apiErr *Error
	if req.SkipAuthRefresh || retried || !errors.As(err, &apiErr) || apiErr.Kind != KindRequest {
		return nil, err
	}

	switch g.cfg.Classifier.Classify(apiErr) {
	case AuthRefreshInvalid:
		g.reset.Reset(ctx, ReasonRefreshInvalid)
		return nil, &Error{
			Kind:       KindSessionFatal,
			Op:         apiErr.Op,
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			Err:        ErrRefreshInvalid,
		}
	case AuthAccessExpired:
		return g.recoverExpired(ctx, req, token, apiErr)
	default:
		return nil, err
	}
}

// recoverExpired handles a stale-token rejection of req, which was sent with
// token sent.
func (g *Gateway) recoverExpired(ctx context.Context, req *Request, sent string, orig *Error) (*Response, error) {
	log := g.log.With("op", req.op())

	// A renewal finished while this request was in flight.
	if cur := g.tokens.Access(); cur != "" && cur != sent {
		log.Debug("token already renewed, replaying")
		return g.send(ctx, req, true)
	}

	pending := NewPendingRequest(ctx, req, func(ctx context.Context, token string) (*Response, error) {
		return g.replay(ctx, req, token)
	})
	if g.queue.Enqueue(pending) {
		log.Debug("renewal in progress, request queued")
		res := pending.Wait(ctx)
		if res.Rejected {
			return nil, g.renewalFailure(orig, res.Err)
		}
		return res.Response, res.Err
	}

	token, err := g.renewer.Renew(ctx)
	if err != nil {
		return nil, g.renewalFailure(orig, err)
	}
	return g.replay(ctx, req, token)
}

// replay re-sends req once with token. A rejection is returned as-is.
func (g *Gateway) replay(ctx context.Context, req *Request, token string) (*Response, error) {
	return g.dispatch(ctx, req, token)
}

// renewalFailure maps a renewal error seen by a request onto the error the
// request returns. Session-fatal errors pass through; anything else keeps
// the original rejection and wraps the renewal cause.
func (g *Gateway) renewalFailure(orig *Error, err error) error {
	if IsSessionFatal(err) {
		return err
	}
	return &Error{
		Kind:       KindRenewalRetryable,
		Op:         orig.Op,
		StatusCode: orig.StatusCode,
		Code:       orig.Code,
		Message:    orig.Message,
		Err:        err,
	}
}

func (g *Gateway) expiresSoon(token string) bool {
	if g.cfg.RenewBefore < 0 {
		return false
	}
	return jwtx.ExpiresWithin(token, g.cfg.RenewBefore, g.cfg.Now())
}

// dispatch performs a single HTTP exchange.
func (g *Gateway) dispatch(ctx context.Context, req *Request, token string) (*Response, error) {
	op := req.op()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, networkError(op, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Kind: KindRequest, Op: op, Err: fmt.Errorf("failed to encode body: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	u := g.cfg.BaseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("X-Request-ID", idx.Prefixed("req"))
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		hreq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.cfg.HTTPClient.Do(hreq)
	if err != nil {
		return nil, networkError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseErrorResponse(op, resp.StatusCode, raw)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}
