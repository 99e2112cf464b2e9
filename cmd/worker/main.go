package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/teamtide/workforce-backend/internal/queue"
	"github.com/teamtide/workforce-backend/internal/repositories"
	"github.com/teamtide/workforce-backend/internal/services"
	"github.com/teamtide/workforce-backend/pkg/config"
	"github.com/teamtide/workforce-backend/pkg/logger"
)

// The delivery worker drains the queue out-of-process: it dispatches each job
// through a channel adapter and finalizes the delivery-attempt row. Failures
// ride the queue's own retry/backoff.
func main() {
	cfg := config.Load()
	zlog := logger.New(cfg.Env)
	defer zlog.Sync()

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer config.CloseDB(db)

	redisClient := config.NewRedisClient(cfg)
	defer redisClient.Close()

	notificationRepo := repositories.NewPostgresNotificationRepository(db)
	emailAdapter := services.NewEmailAdapter(services.EmailConfig{
		Enabled:  cfg.EmailEnabled,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	}, zlog)
	smsAdapter := services.NewSMSAdapter(services.SMSConfig{
		Enabled:  cfg.SMSEnabled,
		Provider: cfg.SMSProvider,
	}, zlog)

	handler := services.NewDeliveryHandler(notificationRepo, emailAdapter, smsAdapter, zlog)
	worker := queue.NewWorker(redisClient, handler, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		log.Fatalf("Worker exited with error: %v", err)
	}
}
