package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const ctxSessionKey contextKey = "session"

// Session is the authenticated identity for one request.
type Session struct {
	AccountID uuid.UUID
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// SessionValidator resolves a bearer token to a session, rejecting expired
// or revoked tokens.
type SessionValidator interface {
	ValidateToken(ctx context.Context, token string) (*Session, error)
}

// RequireSession validates the Bearer token once and stores the Session in
// the request context. Failures get 401 with a redirect to the sign-in page.
func RequireSession(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				writeRedirectError(w, http.StatusUnauthorized, "unauthorized", "/auth")
				return
			}
			sess, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				writeRedirectError(w, http.StatusUnauthorized, "unauthorized", "/auth")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// OptionalSession is RequireSession without the rejection: requests without
// a valid token pass through with no Session in context.
func OptionalSession(v SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := BearerToken(r); raw != "" {
				if sess, err := v.ValidateToken(r.Context(), raw); err == nil {
					r = r.WithContext(WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromCtx returns the authenticated session or nil.
func SessionFromCtx(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxSessionKey).(*Session)
	return s
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

// BearerToken extracts the token from the Authorization header. EventSource
// clients cannot set headers, so an access_token query parameter is accepted
// as well.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func writeRedirectError(w http.ResponseWriter, status int, msg, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "redirect": redirect})
}
