package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-comment-service/internal/config"
	"github.com/iliyamo/blog-comment-service/internal/database"
	"github.com/iliyamo/blog-comment-service/internal/handler"
	"github.com/iliyamo/blog-comment-service/internal/moderation"
	"github.com/iliyamo/blog-comment-service/internal/queue"
	"github.com/iliyamo/blog-comment-service/internal/repository"
	"github.com/iliyamo/blog-comment-service/internal/router"
	queue_publisher "github.com/iliyamo/blog-comment-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	// Redis is optional: rate limiting and list caching degrade to
	// no-ops when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	repo := repository.NewCommentRepo(db)
	engine := &moderation.Engine{
		History:      repo,
		MinTokenAge:  cfg.MinTokenAge,
		MaxTokenAge:  cfg.MaxTokenAge,
		RequireToken: cfg.RequireSession,
	}

	sessions := handler.NewSessionHandler(cfg)
	comments := handler.NewCommentHandler(repo, engine,
		handler.PublisherFunc(queue_publisher.PublishCommentCreated))

	e := echo.New()
	router.RegisterRoutes(e, cfg, rdb, sessions, comments)

	// Moderator notifications drain in the background; the consumer
	// reconnects on broker failures and never affects request flow.
	go func() {
		if err := queue.StartNotifyConsumer(); err != nil {
			log.Printf("notify consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
