package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/Adhiksha007/AuraFinance/internal/config"
	"github.com/Adhiksha007/AuraFinance/internal/handlers"
	"github.com/Adhiksha007/AuraFinance/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Environment == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	// Initialize services
	cacheService := services.NewCacheService(cfg, log)
	marketDataService := services.NewMarketDataService(cfg, cacheService, log)
	sentimentProvider := services.NewMomentumSentiment(marketDataService, log)
	portfolioService := services.NewPortfolioService(cfg, marketDataService, sentimentProvider, cacheService, log)
	goalService := services.NewGoalService(cfg, log)

	// Initialize handlers
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, marketDataService)
	goalHandler := handlers.NewGoalHandler(goalService)
	healthHandler := handlers.NewHealthHandler(cacheService)

	// Create Fiber app with optimized config
	app := fiber.New(fiber.Config{
		Prefork:       false,
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "AuraFinance-API",
		AppName:       "AuraFinance v1.0",
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 150, // streaming runs outlive request timeouts
		BodyLimit:     4 * 1024 * 1024,   // 4MB
		ErrorHandler:  handlers.CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			// Compression buffers SSE responses.
			return c.Get(fiber.HeaderAccept) == "text/event-stream"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	}))

	// Routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "AuraFinance API",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	app.Get("/health", healthHandler.Health)
	app.Get("/health/ready", healthHandler.Ready)

	// API v1 routes
	v1 := app.Group("/v1")
	v1.Post("/portfolio/optimize", portfolioHandler.Optimize)
	v1.Get("/portfolio/optimize/stream", portfolioHandler.OptimizeStream)
	v1.Post("/portfolio/monte-carlo", portfolioHandler.MonteCarlo)
	v1.Get("/portfolio/monte-carlo/stream", portfolioHandler.MonteCarloStream)
	v1.Post("/portfolio/compare", portfolioHandler.Compare)
	v1.Post("/portfolio/backtest", portfolioHandler.Backtest)
	v1.Post("/portfolio/backtest/clear-cache", portfolioHandler.ClearBacktestCache)
	v1.Post("/goals/simulate", goalHandler.Simulate)
	v1.Get("/tickers/:symbol", portfolioHandler.GetTickerData)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Str("port", port).Str("environment", cfg.Environment).Msg("AuraFinance API started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	if err := cacheService.Close(); err != nil {
		log.Warn().Err(err).Msg("cache close")
	}

	log.Info().Msg("server shutdown complete")
}
