package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/fjod/go_cart/marketplace-client/internal/session"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey int

const userKey ctxKey = iota

// SessionSource reports the signed-in user.
type SessionSource interface {
	Current() (session.Session, bool)
}

// RequireSession rejects requests made while nobody is signed in and puts
// the user into the request context.
func RequireSession(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := sessions.Current()
			if !ok {
				respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
				return
			}
			ctx := context.WithValue(r.Context(), userKey, sess.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFromContext(ctx context.Context) (session.User, bool) {
	u, ok := ctx.Value(userKey).(session.User)
	return u, ok
}

func userIDFromContext(ctx context.Context) domain.ID {
	u, _ := userFromContext(ctx)
	return u.ID
}

// RequestIDHeader echoes chi's request id back to the caller.
func RequestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
