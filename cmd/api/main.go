package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cinepass/booking-core/internal/adapters/chapa"
	"github.com/cinepass/booking-core/internal/adapters/crdb"
	mongoadapter "github.com/cinepass/booking-core/internal/adapters/mongo"
	redisadapter "github.com/cinepass/booking-core/internal/adapters/redis"
	"github.com/cinepass/booking-core/internal/config"
	httphandler "github.com/cinepass/booking-core/internal/http"
	"github.com/cinepass/booking-core/internal/idempotency"
	"github.com/cinepass/booking-core/internal/observability"
	"github.com/cinepass/booking-core/internal/rateLimit"
	"github.com/cinepass/booking-core/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("cinema")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := rateLimit.NewRateLimiter(redisCache)

	gateway := chapa.New(cfg.GatewayBaseURL, cfg.GatewaySecret, &http.Client{Timeout: cfg.GatewayTimeout}, logger)

	reservations := service.NewReservation(repo, catalog, audit, logger, cfg.Currency, cfg.ReserveRetries)
	settlement := service.NewSettlement(repo, repo, gateway, audit, logger,
		cfg.GatewayCallbackURL, cfg.GatewayReturnURL, cfg.GatewayTimeout, cfg.GatewayRetries)
	availability := service.NewAvailability(repo)

	handlers := httphandler.NewHandlers(cfg, reservations, settlement, availability, repo, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
