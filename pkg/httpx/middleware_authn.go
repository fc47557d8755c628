package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/jwtx"
	"github.com/GDG-on-Campus-KNU/4th-SC-TEAM1-FE/pkg/slogx"
)

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	Verify(token string) (*jwtx.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return raw, raw != ""
}

// AuthnMiddleware rejects requests without a valid access token. Expired
// tokens get a distinct envelope status so clients can renew instead of
// logging the member out.
func AuthnMiddleware(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				WriteBearerError(w, StatusInvalidAccessToken, "missing bearer token")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					WriteBearerError(w, StatusAccessTokenExpired, "access token expired")
					return
				}
				log.Warn("jwt verify failed", "err", err)
				WriteBearerError(w, StatusInvalidAccessToken, "token verification failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, claims)))
		})
	}
}

// WriteBearerError writes an RFC 6750 challenge plus an error envelope.
func WriteBearerError(w http.ResponseWriter, status, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, status, desc)
}
