package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-comment-service/internal/moderation"
)

// tokenKey is the context key the decoded identity token is stored
// under.  Handlers retrieve it through CurrentToken.
const tokenKey = "identity_token"

// TokenDecode returns an Echo middleware that decodes an optional
// Bearer identity token.  A missing header is not an error: the
// request simply proceeds anonymously and scope-gated operations fail
// downstream.  A present but invalid token is rejected with 401, since
// a client that sends a token expects it to count.
func TokenDecode(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				// Reject any signing method other than HMAC.
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token", "code": http.StatusUnauthorized})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid claims", "code": http.StatusUnauthorized})
			}

			c.Set(tokenKey, tokenFromClaims(claims))
			return next(c)
		}
	}
}

// tokenFromClaims converts raw JWT claims into the pipeline's token
// payload.  A missing scopes claim yields an empty scope set rather
// than an error; such a token fails any scope-gated check but is fine
// for anonymous posting.
func tokenFromClaims(claims jwt.MapClaims) *moderation.Token {
	t := &moderation.Token{}
	if sub, ok := claims["sub"].(string); ok {
		t.Subject = sub
	}
	if iat, ok := claims["iat"].(float64); ok {
		t.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if raw, ok := claims["scopes"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				t.Scopes = append(t.Scopes, s)
			}
		}
	}
	return t
}

// CurrentToken returns the identity token decoded by TokenDecode, or
// nil when the request is anonymous.
func CurrentToken(c echo.Context) *moderation.Token {
	if t, ok := c.Get(tokenKey).(*moderation.Token); ok {
		return t
	}
	return nil
}
