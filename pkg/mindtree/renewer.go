package mindtree

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/idx"
	"golang.org/x/sync/singleflight"
)

const renewKey = "renew"

// tokenRotator receives each freshly renewed access token.
type tokenRotator interface {
	Rotate(token string)
}

// Renewer exchanges the refresh token for a new pair. Concurrent callers
// share one exchange.
type Renewer struct {
	cfg   Config
	log   *slog.Logger
	group singleflight.Group

	gateway *Gateway
	tokens  *TokenStore
	queue   *RetryQueue
	reset   *ResetCoordinator
	push    tokenRotator
}

type renewRequest struct {
	RefreshToken string `json:"refreshToken"`
	AccessToken  string `json:"accessToken,omitempty"`
}

// Renew returns a fresh access token, joining an exchange already in flight.
// Each caller stops waiting when its own ctx ends; the exchange itself keeps
// running with RenewTimeout.
func (r *Renewer) Renew(ctx context.Context) (string, error) {
	if !r.tokens.Get().Valid() {
		r.reset.Reset(ctx, ReasonNoSession)
		return "", &Error{Kind: KindSessionFatal, Op: "renew", Err: ErrNoSession}
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(renewKey, func() (any, error) {
		return r.renew(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &Error{Kind: KindRenewalRetryable, Op: "renew", Err: ctx.Err()}
	}
}

// renew runs one episode: open the queue, exchange, store, flush, rotate.
// The new pair is only stored over the pair the episode started from.
// The queue is always flushed before returning, so the singleflight key is
// only released once every parked request has its outcome.
func (r *Renewer) renew(ctx context.Context) (string, error) {
	log := r.log.With("episode", idx.Prefixed("renew"))

	r.queue.Open()
	flushed := false
	defer func() {
		if !flushed {
			r.queue.Flush("", &Error{Kind: KindRenewalRetryable, Op: "renew", Message: "renewal aborted"})
		}
	}()

	pair := r.tokens.Get()
	if !pair.Valid() {
		err := &Error{Kind: KindSessionFatal, Op: "renew", Err: ErrNoSession}
		flushed = true
		r.queue.Flush("", err)
		r.reset.Reset(ctx, ReasonNoSession)
		return "", err
	}

	log.Debug("renewing access token")
	next, err := r.exchange(ctx, pair)
	if err != nil {
		if r.isFatal(err) {
			log.Warn("refresh token rejected", "err", err)
			fatal := &Error{Kind: KindSessionFatal, Op: "renew", Err: ErrRefreshInvalid}
			var apiErr *Error
			if errors.As(err, &apiErr) {
				fatal.StatusCode, fatal.Code, fatal.Message = apiErr.StatusCode, apiErr.Code, apiErr.Message
			}
			// A logout or reset that already ended the session needs no notice.
			if r.tokens.Get() == pair {
				r.reset.Reset(ctx, ReasonRefreshInvalid)
			}
			flushed = true
			r.queue.Flush("", fatal)
			return "", fatal
		}

		log.Warn("renewal failed, session kept", "err", err)
		retry := &Error{Kind: KindRenewalRetryable, Op: "renew", Err: err}
		flushed = true
		r.queue.Flush("", retry)
		return "", retry
	}

	stored, err := r.tokens.Replace(ctx, pair, next)
	if err != nil {
		log.Error("renewed tokens not persisted", "err", err)
	}
	if !stored {
		log.Info("session changed during renewal, discarding renewed tokens")
		ended := &Error{Kind: KindSessionFatal, Op: "renew", Err: ErrNoSession}
		flushed = true
		r.queue.Flush("", ended)
		return "", ended
	}

	flushed = true
	r.queue.Flush(next.AccessToken, nil)

	if r.push != nil {
		r.push.Rotate(next.AccessToken)
	}

	log.Info("access token renewed")
	return next.AccessToken, nil
}

func (r *Renewer) exchange(ctx context.Context, pair TokenPair) (TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RenewTimeout)
	defer cancel()

	body := renewRequest{RefreshToken: pair.RefreshToken}
	if r.cfg.SendAccessOnRenew {
		body.AccessToken = pair.AccessToken
	}

	resp, err := r.gateway.Send(ctx, &Request{
		Method:          http.MethodPost,
		Path:            r.cfg.RefreshPath,
		Body:            body,
		SkipAuthRefresh: true,
	})
	if err != nil {
		return TokenPair{}, err
	}

	var next TokenPair
	if err := resp.Decode(&next); err != nil {
		return TokenPair{}, &Error{Kind: KindRequest, Op: "renew", StatusCode: resp.StatusCode, Err: err}
	}
	if !next.Valid() {
		return TokenPair{}, &Error{Kind: KindRequest, Op: "renew", StatusCode: resp.StatusCode, Message: "renewal response is missing a token"}
	}
	return next, nil
}

// isFatal reports whether the backend rejected the refresh token itself.
// Transport failures, timeouts, 5xx and malformed bodies are not fatal.
func (r *Renewer) isFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRequest || e.StatusCode == 0 {
		return false
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return true
	}
	if e.StatusCode >= 500 {
		return false
	}
	return r.cfg.Classifier.Classify(e) == AuthRefreshInvalid
}
