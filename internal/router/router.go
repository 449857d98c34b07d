package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/blog-comment-service/internal/config"
	"github.com/iliyamo/blog-comment-service/internal/handler"
	"github.com/iliyamo/blog-comment-service/internal/middleware"
	"github.com/iliyamo/blog-comment-service/internal/moderation"
)

// RegisterRoutes wires the API surface.  Token decoding runs on every
// /api route so read endpoints can degrade gracefully to the
// unprivileged view; the admin group additionally enforces the admin
// scope.  The redis client may be nil, in which case the transport
// rate limiter and the list cache are pass-throughs.
func RegisterRoutes(e *echo.Echo, cfg config.Config, rdb *redis.Client, s *handler.SessionHandler, cmt *handler.CommentHandler) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	api.Use(middleware.TokenDecode(cfg.JWTSecret))
	api.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Session issuance: anonymous tokens for the comment form, admin
	// tokens for the moderation UI.
	api.POST("/session", s.NewSession)
	api.POST("/admin/login", s.AdminLogin)

	// Comment submission and the public list.  The list read is the
	// hot path of the embedded widget and sits behind the response
	// cache.
	api.POST("/comments", cmt.Create)
	api.GET("/comments", cmt.ListByPost, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Moderation operations require the admin scope.
	adm := api.Group("")
	adm.Use(middleware.RequireScope(moderation.ScopeAdmin))
	adm.GET("/comments/:id", cmt.Get)
	adm.PUT("/comments/:id", cmt.Edit)
	adm.PUT("/comments/:id/status", cmt.SetStatus)
	adm.DELETE("/comments/:id", cmt.Delete)
}
