package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/docuchat/backend/internal/api/handlers"
	apimw "github.com/docuchat/backend/internal/api/middleware"
	"github.com/docuchat/backend/internal/cache/redis"
	"github.com/docuchat/backend/internal/chat"
	"github.com/docuchat/backend/internal/enrich"
	"github.com/docuchat/backend/internal/feedback"
	"github.com/docuchat/backend/internal/history"
	"github.com/docuchat/backend/internal/llm"
	"github.com/docuchat/backend/internal/metrics"
	"github.com/docuchat/backend/internal/middleware/ratelimit"
	"github.com/docuchat/backend/internal/middleware/security"
	"github.com/docuchat/backend/internal/middleware/validation"
	"github.com/docuchat/backend/internal/retrieval"
	"github.com/docuchat/backend/internal/search/elastic"
	"github.com/docuchat/backend/pkg/config"
	appLogger "github.com/docuchat/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting DocuChat API Server")

	metrics.Init()

	esClient, err := elastic.NewClient(cfg.Elasticsearch)
	if err != nil {
		appLogger.Fatal("Failed to create Elasticsearch client", zap.Error(err))
	}

	var summaryCache enrich.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLHours)*time.Hour,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		summaryCache = redisClient
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	historyStore := history.NewStore(esClient, cfg.Elasticsearch.ChatHistoryIndex)
	engine := retrieval.NewEngine(esClient, cfg.Elasticsearch.Index)
	pool := enrich.NewPool(llmClient, esClient, summaryCache, cfg.Elasticsearch.Index, cfg.Enrichment.MaxWorkers)
	streamer := chat.NewStreamer(historyStore, llmClient, engine, pool, cfg.Enrichment.WaitTimeoutSec)
	forwarder := feedback.NewForwarder(cfg.Feedback.AnalyticsURL, cfg.Feedback.TimeoutSec)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(cfg.RateLimit.MaxRequestsPerMinute)
	defer limiter.Stop()

	chatHandler := handlers.NewChatHandler(streamer)
	authHandler := handlers.NewAuthHandler(cfg.Auth.Username, cfg.Auth.Password, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	feedbackHandler := handlers.NewFeedbackHandler(forwarder)

	api := app.Group("/api")

	api.Post("/verify-credentials", authHandler.HandleVerifyCredentials)

	protected := api.Group("", apimw.RequireToken(cfg.Auth.Secret), limiter.Middleware())
	protected.Post("/chat", validation.Middleware(validation.Config{}), chatHandler.HandleChat)
	protected.Post("/feedback", feedbackHandler.HandleFeedback)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
