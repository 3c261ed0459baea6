package middleware // package middleware contains reusable HTTP middleware functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/utils"
)

// subjectKey is the context key under which JWTAuth stores the verified
// subject id (uint64).
const subjectKey = "subject_id"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the verified subject id into the request context.  The three
// failure modes are reported distinctly: a missing credential, an expired
// one, and a malformed one, all as 401 so clients can tell whether to
// re-authenticate or just retry with a token at all.  The middleware only
// establishes WHO is calling; whether that subject is a mechanic or a
// customer is resolved separately per request.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
			subjectID, err := utils.VerifyAccessToken(secret, raw)
			if err != nil {
				switch {
				case errors.Is(err, utils.ErrTokenMissing):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
				case errors.Is(err, utils.ErrTokenExpired):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				default:
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				}
			}
			c.Set(subjectKey, subjectID)
			return next(c)
		}
	}
}

// SubjectID extracts the verified subject id stored by JWTAuth.  The
// second return value is false when no subject is present, which means
// the route was registered without the JWTAuth middleware.
func SubjectID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(subjectKey).(uint64)
	return v, ok
}
