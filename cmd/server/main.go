package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/auth"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/chat"
	cfgpkg "github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/config"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/events"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/gateway"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/handlers"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/logger"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/middleware"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/presence"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/repository"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/routes"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/ws"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := cfgpkg.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if cfg.App.JWTSecret == "" {
		log.Fatal("app.jwt_secret is required")
	}

	lg, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// Mongo
	mc, err := repository.NewMongoClient(context.Background(), cfg.Mongo.URI)
	if err != nil {
		lg.Fatalw("mongo init", "error", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	store := repository.NewMongoStore(mc.Database(cfg.Mongo.Database))
	if err := store.EnsureIndexes(context.Background()); err != nil {
		lg.Fatalw("mongo indexes", "error", err)
	}

	// Redis (optional): presence mirror + shared rate limit window
	var rdb *redis.Client
	var mirror presence.StatusMirror
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		mirror = presence.NewRedisMirror(rdb, cfg.Redis.Prefix, 2*cfg.PingInterval)
	}

	registry := presence.NewRegistry(mirror)
	gw := gateway.New(registry, lg)

	var publisher chat.Publisher
	if kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent, lg); kp != nil {
		publisher = kp
		defer func() { _ = kp.Close() }()
	}

	svc := chat.NewService(store, gw, publisher, lg)

	verifier := auth.NewVerifier(cfg.App.JWTSecret)
	wsSrv := ws.NewServer(verifier, gw, cfg, lg)
	h := handlers.NewChatHandler(svc, lg)
	limiter := middleware.NewRateLimiter(rdb, cfg.Redis.Prefix+":rl", cfg.RateLimit.Requests, cfg.RateLimitWindow)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(middleware.Recovery(lg))
	app.Use(middleware.RequestLogger(lg))
	routes.Register(app, h, wsSrv, verifier, limiter)

	errs := make(chan error, 1)
	go func() {
		lg.Infow("server starting", "port", cfg.App.Port)
		errs <- app.Listen(":" + cfg.App.Port)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		lg.Fatalw("server error", "error", err)
	case s := <-sig:
		lg.Infow("signal received", "signal", s.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		lg.Warnw("shutdown", "error", err)
	}
	lg.Info("server stopped")
}
