package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"

	config "threadflow/configs"
	"threadflow/internal/api/handlers"
	job "threadflow/internal/jobs"
	"threadflow/internal/media"
	"threadflow/internal/service"
	"threadflow/internal/store"
	"threadflow/internal/threads"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	configStore, err := store.NewFileConfigStore(cfg.ConfigDir, cfg.DefaultBaseURL, cfg.SecretKey)
	if err != nil {
		log.Fatalf("Failed to open config store: %v", err)
	}

	encoder, err := media.NewEncoder(cfg.OutputDir)
	if err != nil {
		log.Fatalf("Failed to prepare output directory: %v", err)
	}

	newClient := func(userID, accessToken string) service.ThreadsAPI {
		return threads.NewClient(cfg.ThreadsAPIURL, userID, accessToken)
	}
	clock := service.NewClock()

	tokenService := service.NewTokenService(configStore, newClient, clock)
	publishService := service.NewPublishService(configStore, encoder, newClient, clock)
	historyService := service.NewHistoryService(configStore, newClient, clock)

	app := fiber.New(fiber.Config{
		// a video publish can hold the connection through the full
		// polling budget, so the server timeouts must outlast it
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	auth := handlers.NewAuthHandler(tokenService)
	publish := handlers.NewPublishHandler(publishService)
	history := handlers.NewHistoryHandler(historyService)
	settings := handlers.NewSettingsHandler(configStore)
	mediaView := handlers.NewMediaHandler(encoder)

	api := app.Group("/api")
	api.Post("/token/exchange", auth.ExchangeToken)
	api.Post("/publish", publish.Publish)
	api.Get("/history", history.GetHistory)
	api.Get("/settings/base_url", settings.GetBaseURL)
	api.Post("/settings/base_url", settings.UpdateBaseURL)
	api.Get("/view", mediaView.View)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(tokenService)

	c := cron.New()
	c.AddFunc("@daily", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, c)
}

func gracefulShutdown(app *fiber.App, c *cron.Cron) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	c.Stop()
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	log.Println("Server shutdown complete.")
}
