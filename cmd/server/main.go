package main // Entry point package

import (
	"log"  // Logging library
	"time" // Match TTL conversion

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/bruindash/bruindash/internal/config"     // Internal config loader
	"github.com/bruindash/bruindash/internal/database"   // MySQL connector
	"github.com/bruindash/bruindash/internal/handler"    // HTTP handlers
	"github.com/bruindash/bruindash/internal/middleware" // Rate limiting and caching
	"github.com/bruindash/bruindash/internal/queue"      // Background match event consumer
	"github.com/bruindash/bruindash/internal/repository" // Data access layer
	"github.com/bruindash/bruindash/internal/router"     // Route registration
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: rate limiting and response caching degrade to
	// no-ops when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and caching disabled")
	}

	// Background consumer appends claimed matches to logs/match.log.
	go func() {
		if err := queue.StartMatchConsumer(); err != nil {
			log.Printf("match consumer stopped: %v", err)
		}
	}()

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	availRepo := repository.NewAvailabilityRepo(db)
	matchRepo := repository.NewMatchRepo(db)
	convRepo := repository.NewConversationRepo(db)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	delivererHandler := handler.NewDelivererHandler(availRepo, userRepo)
	matchHandler := handler.NewMatchHandler(availRepo, userRepo, matchRepo, convRepo,
		time.Duration(cfg.MatchTTLMin)*time.Minute)
	diningHandler := handler.NewDiningHandler(availRepo)
	messageHandler := handler.NewMessageHandler(convRepo)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterDeliverers(e, delivererHandler, matchHandler, cfg.JWTSecret)
	router.RegisterDining(e, diningHandler, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterMessaging(e, messageHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
