package repositories

import (
	"context"
	"time"

	"github.com/teamtide/workforce-backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines persistence for notifications and their
// per-channel delivery attempts.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, organisationID, userID, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, organisationID, userID string, query models.ListNotificationsQuery) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, organisationID, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id string, readAt time.Time) (bool, error)
	MarkAllAsRead(ctx context.Context, organisationID, userID string, readAt time.Time) error

	CreateAttempt(ctx context.Context, attempt *models.NotificationDeliveryAttempt) error
	UpdateAttempt(ctx context.Context, notificationID string, channel models.Channel, status string, errorMessage *string) error
	ListAttempts(ctx context.Context, notificationID string) ([]models.NotificationDeliveryAttempt, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByID(ctx context.Context, organisationID, userID, id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("organisation_id = ? AND user_id = ? AND id = ?", organisationID, userID, id).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *postgresNotificationRepository) ListByUser(ctx context.Context, organisationID, userID string, query models.ListNotificationsQuery) ([]models.Notification, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("organisation_id = ? AND user_id = ?", organisationID, userID)
	if query.UnreadOnly {
		base = base.Where("read_at IS NULL")
	}
	if query.Type != nil {
		base = base.Where("type = ?", *query.Type)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := base.
		Order("created_at DESC").
		Offset(query.Skip).Limit(query.Take).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *postgresNotificationRepository) UnreadCount(ctx context.Context, organisationID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("organisation_id = ? AND user_id = ? AND read_at IS NULL", organisationID, userID).
		Count(&count).Error
	return count, err
}

// MarkAsRead stamps read_at only when the notification is still unread,
// so repeated calls never move the timestamp. Returns whether a row changed.
func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", readAt)
	return result.RowsAffected > 0, result.Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, organisationID, userID string, readAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("organisation_id = ? AND user_id = ? AND read_at IS NULL", organisationID, userID).
		Update("read_at", readAt).Error
}

func (r *postgresNotificationRepository) CreateAttempt(ctx context.Context, attempt *models.NotificationDeliveryAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// UpdateAttempt overwrites the attempt row for a notification+channel pair in
// place. The async worker relies on this addressing to finalize the
// placeholder row it never saw being created.
func (r *postgresNotificationRepository) UpdateAttempt(ctx context.Context, notificationID string, channel models.Channel, status string, errorMessage *string) error {
	return r.db.WithContext(ctx).
		Model(&models.NotificationDeliveryAttempt{}).
		Where("notification_id = ? AND channel = ?", notificationID, channel).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
		}).Error
}

func (r *postgresNotificationRepository) ListAttempts(ctx context.Context, notificationID string) ([]models.NotificationDeliveryAttempt, error) {
	var attempts []models.NotificationDeliveryAttempt
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("created_at").
		Find(&attempts).Error
	return attempts, err
}
