package services

import (
	"context"
	"fmt"

	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/queue"
	"github.com/teamtide/workforce-backend/internal/repositories"
	"go.uber.org/zap"
)

// NewDeliveryHandler builds the worker-side job handler: it dispatches a job
// through the matching channel adapter and finalizes the placeholder
// delivery-attempt row addressed by notification id + channel. A returned
// error hands the job back to the queue's retry mechanism.
func NewDeliveryHandler(
	notifications repositories.NotificationRepository,
	emailAdapter ChannelAdapter,
	smsAdapter ChannelAdapter,
	logger *zap.Logger,
) queue.Handler {
	adapters := map[models.Channel]ChannelAdapter{
		models.ChannelEmail: emailAdapter,
		models.ChannelSMS:   smsAdapter,
	}

	return func(ctx context.Context, job queue.Job) error {
		adapter, ok := adapters[job.Channel]
		if !ok {
			// Unroutable jobs are terminal; retrying cannot help.
			msg := fmt.Sprintf("no adapter for channel %s", job.Channel)
			_ = notifications.UpdateAttempt(ctx, job.NotificationID, job.Channel, models.AttemptFailed, &msg)
			logger.Error("unroutable delivery job",
				zap.String("notification_id", job.NotificationID),
				zap.String("channel", string(job.Channel)))
			return nil
		}

		result := adapter.Send(ctx, job.To, Message{
			Subject: job.Subject,
			Text:    job.Text,
			HTML:    job.HTML,
		})

		status, errorMessage := AttemptOutcome(result)
		if err := notifications.UpdateAttempt(ctx, job.NotificationID, job.Channel, status, errorMessage); err != nil {
			logger.Error("failed to finalize delivery attempt",
				zap.String("notification_id", job.NotificationID),
				zap.Error(err))
		}

		if result.Status == SendFailed {
			if result.Err != nil {
				return result.Err
			}
			return fmt.Errorf("delivery failed for notification %s on %s", job.NotificationID, job.Channel)
		}
		return nil
	}
}
