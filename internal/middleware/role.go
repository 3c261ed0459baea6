package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/auth"
)

// roleKey is the context key under which ResolveRole stores the auth.Role.
const roleKey = "role"

// ResolveRole returns a middleware that classifies the verified subject id
// against the identity store and stores the resulting Role in the request
// context.  It must run after JWTAuth.  The classification is re-derived
// on every request and never cached: an account deleted between requests
// immediately resolves to no role.  Subjects that resolve to neither
// identity space are rejected here with 403 so handlers only ever see a
// mechanic or a customer.
func ResolveRole(resolver *auth.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subjectID, ok := SubjectID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			role, err := resolver.Resolve(c.Request().Context(), subjectID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role resolution failed"})
			}
			if role.Kind == auth.RoleUnauthenticated {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied: unknown identity"})
			}
			c.Set(roleKey, role)
			return next(c)
		}
	}
}

// RequireMechanic returns a middleware that aborts with 403 unless the
// resolved role is mechanic.  It assumes ResolveRole already ran.
func RequireMechanic() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := CurrentRole(c)
			if !ok || !role.IsMechanic() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "only mechanics can perform this action"})
			}
			return next(c)
		}
	}
}

// CurrentRole extracts the Role stored by ResolveRole.
func CurrentRole(c echo.Context) (auth.Role, bool) {
	v, ok := c.Get(roleKey).(auth.Role)
	return v, ok
}
