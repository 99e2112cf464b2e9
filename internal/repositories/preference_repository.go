package repositories

import (
	"context"

	"github.com/teamtide/workforce-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository stores per (org, user, type) channel toggles.
type PreferenceRepository interface {
	GetByUserAndType(ctx context.Context, organisationID, userID string, t models.NotificationType) (*models.NotificationPreference, error)
	ListByUser(ctx context.Context, organisationID, userID string) ([]models.NotificationPreference, error)
	Upsert(ctx context.Context, preference *models.NotificationPreference) error
}

type postgresPreferenceRepository struct {
	db *gorm.DB
}

func NewPostgresPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &postgresPreferenceRepository{db: db}
}

func (r *postgresPreferenceRepository) GetByUserAndType(ctx context.Context, organisationID, userID string, t models.NotificationType) (*models.NotificationPreference, error) {
	var preference models.NotificationPreference
	err := r.db.WithContext(ctx).
		Where("organisation_id = ? AND user_id = ? AND type = ?", organisationID, userID, t).
		First(&preference).Error
	if err != nil {
		return nil, err
	}
	return &preference, nil
}

func (r *postgresPreferenceRepository) ListByUser(ctx context.Context, organisationID, userID string) ([]models.NotificationPreference, error) {
	var preferences []models.NotificationPreference
	err := r.db.WithContext(ctx).
		Where("organisation_id = ? AND user_id = ?", organisationID, userID).
		Find(&preferences).Error
	return preferences, err
}

// Upsert replaces the full toggle set for the (org, user, type) key.
func (r *postgresPreferenceRepository) Upsert(ctx context.Context, preference *models.NotificationPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "organisation_id"},
				{Name: "user_id"},
				{Name: "type"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"in_app", "email", "sms", "push", "updated_at"}),
		}).
		Create(preference).Error
}
