package main

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/teamtide/workforce-backend/internal/queue"
	"github.com/teamtide/workforce-backend/internal/router"
	"github.com/teamtide/workforce-backend/pkg/config"
	"github.com/teamtide/workforce-backend/pkg/logger"
	"github.com/teamtide/workforce-backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()
	zlog := logger.New(cfg.Env)
	defer zlog.Sync()

	// Initialize database connection
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDB(db)

	// Delivery queue with supervised availability heartbeat
	redisClient := config.NewRedisClient(cfg)
	defer redisClient.Close()
	deliveryQueue := queue.New(redisClient, zlog)
	deliveryQueue.Start()
	defer deliveryQueue.Stop()

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, db, deliveryQueue, cfg, zlog)

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
