// ABOUTME: Session middleware that resolves the caller's bearer token from cookies
// ABOUTME: Stores the resolved principal in the request context

package middleware

import (
	"context"
	"net/http"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
	"github.com/travis-wayne/fastlearners-frontend-sub005/services"
)

// Principal is the authenticated caller of one request.
type Principal struct {
	Token   string
	Source  services.TokenSource
	User    *models.User // nil for registration tokens and sessions without a snapshot
	Session services.Session
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by RequireSession, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// RequireSession rejects requests that carry no usable token with a 401 envelope.
// With allowReg set, a live registration token is accepted when no session exists.
func RequireSession(codec *services.CookieCodec, allowReg bool) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s, ok := codec.ParseSession(r); ok {
				p := &Principal{Token: s.Token, Source: services.TokenSourceSession, User: s.User, Session: s}
				next(w, r.WithContext(WithPrincipal(r.Context(), p)))
				return
			}
			if allowReg {
				if reg, ok := codec.ParseRegToken(r); ok {
					p := &Principal{Token: reg.Token, Source: services.TokenSourceRegistration}
					next(w, r.WithContext(WithPrincipal(r.Context(), p)))
					return
				}
			}

			logger.FromContext(r.Context()).Debug("Session rejected: no auth cookies", "path", sanitizePath(r.URL.Path))
			writeJSONError(w, r, "Unauthorized", http.StatusUnauthorized)
		}
	}
}
