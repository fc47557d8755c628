package httpx

import (
	"context"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyClaims ctxKey = "claims"
)

// UserIDFromContext returns the authenticated member id, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ClaimsFromContext returns the verified access-token claims, if any.
func ClaimsFromContext(ctx context.Context) (*jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(*jwtx.Claims)
	return c, ok
}

func contextWithAuth(ctx context.Context, c *jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}
