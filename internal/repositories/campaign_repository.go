package repositories

import (
	"context"
	"time"

	"github.com/teamtide/workforce-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRepository defines persistence for campaigns and their recipients.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.NotificationCampaign) error
	GetByID(ctx context.Context, organisationID, id string) (*models.NotificationCampaign, error)
	List(ctx context.Context, organisationID string, query models.ListCampaignsQuery) ([]models.NotificationCampaign, int64, error)
	MarkSending(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id string, status models.CampaignStatus, sentAt *time.Time) error

	InsertRecipients(ctx context.Context, recipients []models.NotificationRecipient) error
	UpdateRecipientStatus(ctx context.Context, campaignID, userID, status string, deliveredInAppAt *time.Time) error
	RecipientStats(ctx context.Context, campaignID string) (models.CampaignStats, error)
}

type postgresCampaignRepository struct {
	db *gorm.DB
}

func NewPostgresCampaignRepository(db *gorm.DB) CampaignRepository {
	return &postgresCampaignRepository{db: db}
}

func (r *postgresCampaignRepository) Create(ctx context.Context, campaign *models.NotificationCampaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *postgresCampaignRepository) GetByID(ctx context.Context, organisationID, id string) (*models.NotificationCampaign, error) {
	var campaign models.NotificationCampaign
	err := r.db.WithContext(ctx).
		Where("organisation_id = ? AND id = ?", organisationID, id).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *postgresCampaignRepository) List(ctx context.Context, organisationID string, query models.ListCampaignsQuery) ([]models.NotificationCampaign, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.NotificationCampaign{}).
		Where("organisation_id = ?", organisationID)
	if query.Status != nil {
		base = base.Where("status = ?", *query.Status)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var campaigns []models.NotificationCampaign
	err := base.
		Order("created_at DESC").
		Offset(query.Skip).Limit(query.Take).
		Find(&campaigns).Error
	return campaigns, total, err
}

// MarkSending performs the guarded DRAFT -> SENDING transition. Zero rows
// affected means the campaign was not in DRAFT, which closes the double-send
// race between two concurrent send calls.
func (r *postgresCampaignRepository) MarkSending(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.NotificationCampaign{}).
		Where("id = ? AND status = ?", id, models.CampaignDraft).
		Update("status", models.CampaignSending)
	return result.RowsAffected > 0, result.Error
}

func (r *postgresCampaignRepository) SetStatus(ctx context.Context, id string, status models.CampaignStatus, sentAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if sentAt != nil {
		updates["sent_at"] = sentAt
	}
	return r.db.WithContext(ctx).
		Model(&models.NotificationCampaign{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// InsertRecipients bulk-inserts recipient rows, silently skipping pairs that
// already exist.
func (r *postgresCampaignRepository) InsertRecipients(ctx context.Context, recipients []models.NotificationRecipient) error {
	if len(recipients) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&recipients).Error
}

func (r *postgresCampaignRepository) UpdateRecipientStatus(ctx context.Context, campaignID, userID, status string, deliveredInAppAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if deliveredInAppAt != nil {
		updates["delivered_in_app_at"] = deliveredInAppAt
	}
	return r.db.WithContext(ctx).
		Model(&models.NotificationRecipient{}).
		Where("campaign_id = ? AND user_id = ?", campaignID, userID).
		Updates(updates).Error
}

// RecipientStats projects aggregate delivery counts from recipient statuses.
func (r *postgresCampaignRepository) RecipientStats(ctx context.Context, campaignID string) (models.CampaignStats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.NotificationRecipient{}).
		Select("status, COUNT(*) AS count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return models.CampaignStats{}, err
	}

	var stats models.CampaignStats
	for _, row := range rows {
		stats.TotalRecipients += row.Count
		switch row.Status {
		case models.RecipientDeliveredInApp:
			stats.DeliveredInApp = row.Count
		case models.RecipientEmailSent:
			stats.EmailSent = row.Count
		case models.RecipientEmailFailed:
			stats.EmailFailed = row.Count
		case models.RecipientSkipped:
			stats.Skipped = row.Count
		case models.RecipientPending:
			stats.Pending = row.Count
		}
	}
	return stats, nil
}
