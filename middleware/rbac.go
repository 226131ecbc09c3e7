// ABOUTME: Role-based access control middleware for API endpoints
// ABOUTME: Gates endpoints by the roles cached in the session user snapshot

package middleware

import (
	"fmt"
	"net/http"

	"github.com/travis-wayne/fastlearners-frontend-sub005/logger"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// RequireRole returns middleware that admits callers holding any of roles.
// Panics if a role is unknown (catches config errors at startup).
// Must run after RequireSession; a missing principal or user is 401, a role mismatch is 403.
func RequireRole(roles ...models.Role) Middleware {
	if len(roles) == 0 {
		panic("RequireRole: at least one role is required")
	}
	for _, role := range roles {
		if !role.Valid() {
			panic(fmt.Sprintf("RequireRole: unknown role %q; valid roles: %v", role, models.KnownRoles))
		}
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil || p.User == nil {
				writeJSONError(w, r, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !p.User.HasAnyRole(roles...) {
				logger.FromContext(r.Context()).Warn("RBAC authorization denied",
					"path", sanitizePath(r.URL.Path),
					"method", r.Method,
					"required_roles", roles,
					"user_roles", p.User.Role,
					"user_id", p.User.ID,
				)
				writeJSONError(w, r, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next(w, r)
		}
	}
}
