package router

import (
	"log"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/teamtide/workforce-backend/internal/handlers"
	"github.com/teamtide/workforce-backend/internal/middleware"
	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/repositories"
	"github.com/teamtide/workforce-backend/internal/services"
	"github.com/teamtide/workforce-backend/pkg/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, db *gorm.DB, deliveryQueue services.DeliveryQueue, cfg *config.Config, logger *zap.Logger) {
	err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.NotificationPreference{},
		&models.NotificationDeliveryAttempt{},
		&models.NotificationCampaign{},
		&models.NotificationRecipient{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db)
	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	preferenceRepo := repositories.NewPostgresPreferenceRepository(db)
	campaignRepo := repositories.NewPostgresCampaignRepository(db)

	// --- Channel adapters ---
	emailAdapter := services.NewEmailAdapter(services.EmailConfig{
		Enabled:  cfg.EmailEnabled,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	}, logger)
	smsAdapter := services.NewSMSAdapter(services.SMSConfig{
		Enabled:  cfg.SMSEnabled,
		Provider: cfg.SMSProvider,
	}, logger)

	// --- Services ---
	notificationService := services.NewNotificationService(
		notificationRepo, preferenceRepo, userRepo,
		emailAdapter, smsAdapter, deliveryQueue, logger,
	)
	campaignService := services.NewCampaignService(campaignRepo, userRepo, notificationService, logger)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	notificationHandler := handlers.NewNotificationHandler(notificationService)
	notificationHandler.RegisterNotificationRoutes(api)

	campaignHandler := handlers.NewCampaignHandler(campaignService)
	campaignHandler.RegisterCampaignRoutes(api)

	logger.Info("All routes configured")
}
