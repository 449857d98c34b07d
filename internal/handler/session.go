package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-comment-service/internal/config"
	"github.com/iliyamo/blog-comment-service/internal/moderation"
	"github.com/iliyamo/blog-comment-service/internal/utils"
)

// SessionHandler issues the stateless identity tokens the comment
// pipeline consumes.  An anonymous session token is minted when the
// comment form loads; its issuance time anchors the age-based
// rate-limit window.  Nothing is stored server-side for either kind of
// token.
type SessionHandler struct {
	Cfg config.Config
}

func NewSessionHandler(cfg config.Config) *SessionHandler {
	return &SessionHandler{Cfg: cfg}
}

type loginReq struct {
	Password string `json:"password"`
}

type sessionResp struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSession mints an anonymous user-scoped token with a fresh opaque
// subject.  The subject is stable for this session only and is used
// exclusively to correlate the poster's moderation history.
func (h *SessionHandler) NewSession(c echo.Context) error {
	sub, err := utils.NewSubject()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, moderation.Internal())
	}
	tok, err := utils.NewIdentityToken(h.Cfg.JWTSecret, []string{moderation.ScopeUser}, sub, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, moderation.Internal())
	}
	return c.JSON(http.StatusCreated, sessionResp{Token: tok.Token, IssuedAt: tok.IssuedAt})
}

// AdminLogin verifies the moderator password against the configured
// bcrypt hash and mints an admin-scoped token.
func (h *SessionHandler) AdminLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Password) == "" {
		me := moderation.Validation("field 'password' is required")
		return c.JSON(me.Code, me)
	}
	if !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) {
		me := moderation.Authentication("invalid credentials")
		return c.JSON(me.Code, me)
	}
	sub, err := utils.NewSubject()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, moderation.Internal())
	}
	tok, err := utils.NewIdentityToken(h.Cfg.JWTSecret,
		[]string{moderation.ScopeAdmin, moderation.ScopeUser}, sub, time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, moderation.Internal())
	}
	return c.JSON(http.StatusOK, sessionResp{Token: tok.Token, IssuedAt: tok.IssuedAt})
}
