package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"casaviva/server/config"
	"casaviva/server/internal/api"
	"casaviva/server/internal/graph"
	"casaviva/server/internal/livability"
	"casaviva/server/internal/marketplace"
	"casaviva/server/internal/queue"
	"casaviva/server/internal/repair"
	"casaviva/server/internal/reservations"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx := context.Background()

	// Spatial graph store
	graphStore, err := graph.NewStore(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to graph store")
	}
	defer graphStore.Close(ctx)

	logger.Info("Ensuring graph schema...")
	if err := graphStore.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to ensure graph schema")
	}

	// Reservation store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to reservation store")
	}
	buyerStore := reservations.NewRedisBuyerStore(redisClient)
	sellerStore := reservations.NewRedisSellerStore(redisClient)

	// Marketplace collaborator (buyer profiles, property listings)
	market, err := marketplace.NewClient(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to marketplace database")
	}
	defer market.Close(ctx)

	// Repair scheduler for half-written reservation pairs
	repairer := reservations.NewBuyerRepairer(buyerStore, logger)
	scheduler := repair.NewScheduler(
		repairer,
		time.Duration(cfg.Repair.RetryDelay)*time.Second,
		time.Duration(cfg.Repair.TickInterval)*time.Second,
		cfg.Repair.MaxCPUPercent,
		logger,
	)
	scheduler.Start()
	defer scheduler.Stop()

	protocol := reservations.NewProtocol(buyerStore, sellerStore, market, scheduler, logger)

	// Livability scoring
	scorer := livability.NewScorer(graphStore, logger)
	scoreQueue := queue.NewIDQueue(cfg.Scoring.BatchSize, logger)
	batchScorer := livability.NewBatchScorer(scorer, graphStore, scoreQueue, cfg, logger)
	batchScorer.Start()
	defer batchScorer.Stop()

	// HTTP surface
	handler := api.NewHandler(graphStore, scorer, batchScorer, protocol, market, buyerStore, cfg, logger)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
	}))
	api.SetupRoutes(router, handler, cfg.HTTP.TokenSecret)

	logger.Infof("Starting server on port %s", cfg.HTTP.Port)
	if err := router.Run(":" + cfg.HTTP.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
