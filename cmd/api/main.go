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

	"github.com/krishi-sahayak/backend/internal/advisory"
	"github.com/krishi-sahayak/backend/internal/api/handlers"
	rediscache "github.com/krishi-sahayak/backend/internal/cache/redis"
	"github.com/krishi-sahayak/backend/internal/crops"
	"github.com/krishi-sahayak/backend/internal/llm"
	"github.com/krishi-sahayak/backend/internal/market"
	"github.com/krishi-sahayak/backend/internal/metrics"
	"github.com/krishi-sahayak/backend/internal/middleware/ratelimit"
	"github.com/krishi-sahayak/backend/internal/middleware/security"
	"github.com/krishi-sahayak/backend/internal/middleware/validation"
	"github.com/krishi-sahayak/backend/internal/planthealth"
	"github.com/krishi-sahayak/backend/internal/storage/csvstore"
	"github.com/krishi-sahayak/backend/internal/weather"
	"github.com/krishi-sahayak/backend/pkg/config"
	appLogger "github.com/krishi-sahayak/backend/pkg/logger"
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

	appLogger.Info("Starting Krishi-Sahayak advisory API server")

	profileStore := csvstore.NewProfileStore(cfg.Storage.ProfilePath)
	interactionLog := csvstore.NewInteractionLog(cfg.Storage.QALogPath)

	var forecastCache *rediscache.Client
	if cfg.Redis.Enabled {
		forecastCache, err = rediscache.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, forecast caching disabled", zap.Error(err))
			forecastCache = nil
		}
	}

	weatherClient := weather.NewClient(
		cfg.Weather.BaseURL,
		time.Duration(cfg.Weather.TimeoutSec)*time.Second,
		forecastCache,
		time.Duration(cfg.Weather.CacheTTL)*time.Second,
	)

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	engine := advisory.NewEngine(
		interactionLog,
		weatherClient,
		llmClient,
		crops.NewRulePredictor(0),
		market.NewWalkForecaster(0),
		planthealth.NewPlaceholderDetector(0),
		cfg.Weather.APIKey,
	)

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
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Server.Environment == "development",
	}))
	app.Use(ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	}).Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	adviceHandler := handlers.NewAdviceHandler(profileStore, engine)
	profileHandler := handlers.NewProfileHandler(profileStore)
	historyHandler := handlers.NewHistoryHandler(interactionLog)
	weatherHandler := handlers.NewWeatherHandler(profileStore, weatherClient, cfg.Weather.APIKey)

	api := app.Group("/api/v1")

	api.Post("/advice", adviceHandler.HandleAdvice)

	api.Get("/profiles", profileHandler.ListProfiles)
	api.Get("/profiles/:name", profileHandler.GetProfile)
	api.Post("/profiles", profileHandler.CreateProfile)
	api.Put("/profiles/:name", profileHandler.UpdateProfile)

	api.Get("/history", historyHandler.HandleHistory)
	api.Get("/weather", weatherHandler.HandleWeather)
	api.Get("/meta", profileHandler.Meta)

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

	app.Get("/metrics", metrics.Handler())

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
