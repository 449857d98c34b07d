package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-comment-service/internal/moderation"
)

// RequireScope returns a middleware that enforces that the decoded
// identity token covers every one of the given scopes.  Requests
// without a token are rejected with 401 and requests whose scope set
// falls short with 403.  It assumes TokenDecode ran earlier in the
// chain.
func RequireScope(scopes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := moderation.Authorize(CurrentToken(c), scopes...); err != nil {
				me, _ := moderation.AsError(err)
				return c.JSON(me.Code, me)
			}
			return next(c)
		}
	}
}
