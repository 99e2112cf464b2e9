package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fanOutWorkers bounds the campaign fan-out pool. Recipient rows are
// independently keyed, so concurrent status writes never collide.
const fanOutWorkers = 8

// CampaignService owns the campaign lifecycle: create in DRAFT, send with
// audience fan-out, and read-side stats.
type CampaignService struct {
	campaigns     repositories.CampaignRepository
	users         repositories.UserRepository
	notifications *NotificationService
	logger        *zap.Logger
}

func NewCampaignService(
	campaigns repositories.CampaignRepository,
	users repositories.UserRepository,
	notifications *NotificationService,
	logger *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns:     campaigns,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

// CreateCampaign validates and persists a campaign in DRAFT.
func (s *CampaignService) CreateCampaign(ctx context.Context, organisationID, userID string, role models.Role, req models.CreateCampaignRequest) (*models.NotificationCampaign, error) {
	if !role.CanManageCampaigns() {
		return nil, ErrForbidden
	}
	if len(req.Channels) == 0 {
		return nil, fmt.Errorf("%w: at least one channel is required", ErrValidation)
	}
	for _, c := range req.Channels {
		if !models.IsValidChannel(c) {
			return nil, fmt.Errorf("%w: unsupported channel %q", ErrValidation, c)
		}
	}
	if req.AudienceFilter.IsEmpty() {
		return nil, fmt.Errorf("%w: audience filter must select at least one dimension", ErrValidation)
	}
	if !models.IsValidNotificationType(req.Type) {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidation, req.Type)
	}

	campaign := &models.NotificationCampaign{
		ID:              uuid.NewString(),
		OrganisationID:  organisationID,
		CreatedByUserID: userID,
		Title:           req.Title,
		Body:            req.Body,
		Type:            req.Type,
		Channels:        req.Channels,
		AudienceFilter:  req.AudienceFilter,
		Status:          models.CampaignDraft,
		CreatedAt:       time.Now(),
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("persist campaign: %w", err)
	}
	return campaign, nil
}

// SendCampaign resolves the audience and fans the campaign out to every
// recipient. The DRAFT -> SENDING transition is a conditional update, so a
// concurrent second send observes zero affected rows and is rejected. A
// failure on one recipient marks that recipient and keeps going; the campaign
// only ends FAILED when audience resolution or the recipient insert fails,
// and already-processed recipients keep their state either way.
func (s *CampaignService) SendCampaign(ctx context.Context, organisationID, userID string, role models.Role, campaignID string) (int, error) {
	if !role.CanManageCampaigns() {
		return 0, ErrForbidden
	}

	campaign, err := s.campaigns.GetByID(ctx, organisationID, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	transitioned, err := s.campaigns.MarkSending(ctx, campaign.ID)
	if err != nil {
		return 0, err
	}
	if !transitioned {
		return 0, fmt.Errorf("%w: campaign %s is not in DRAFT status", ErrConflict, campaign.ID)
	}

	recipientIDs, err := s.users.ResolveAudience(ctx, organisationID, campaign.AudienceFilter)
	if err != nil {
		s.fail(ctx, campaign.ID)
		return 0, fmt.Errorf("resolve audience: %w", err)
	}
	if len(recipientIDs) == 0 {
		s.fail(ctx, campaign.ID)
		return 0, fmt.Errorf("%w: no recipients found (%s)", ErrValidation, campaign.AudienceFilter.Describe())
	}

	now := time.Now()
	recipients := make([]models.NotificationRecipient, len(recipientIDs))
	for i, recipientID := range recipientIDs {
		recipients[i] = models.NotificationRecipient{
			CampaignID: campaign.ID,
			UserID:     recipientID,
			Status:     models.RecipientPending,
			CreatedAt:  now,
		}
	}
	if err := s.campaigns.InsertRecipients(ctx, recipients); err != nil {
		s.fail(ctx, campaign.ID)
		return 0, fmt.Errorf("insert recipients: %w", err)
	}

	delivered := s.fanOut(ctx, campaign, recipientIDs)

	sentAt := time.Now()
	if err := s.campaigns.SetStatus(ctx, campaign.ID, models.CampaignSent, &sentAt); err != nil {
		return delivered, fmt.Errorf("mark campaign sent: %w", err)
	}
	return delivered, nil
}

// fanOut creates one notification per recipient through a bounded worker
// pool, capturing success or failure per recipient so stats reflect partial
// completion. The campaign's channel list is passed explicitly, bypassing
// individual preferences.
func (s *CampaignService) fanOut(ctx context.Context, campaign *models.NotificationCampaign, recipientIDs []string) int {
	ids := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	delivered := 0

	for i := 0; i < fanOutWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recipientID := range ids {
				if s.deliverToRecipient(ctx, campaign, recipientID) {
					mu.Lock()
					delivered++
					mu.Unlock()
				}
			}
		}()
	}

	for _, recipientID := range recipientIDs {
		ids <- recipientID
	}
	close(ids)
	wg.Wait()

	return delivered
}

func (s *CampaignService) deliverToRecipient(ctx context.Context, campaign *models.NotificationCampaign, recipientID string) bool {
	notification, err := s.notifications.CreateNotification(ctx, models.CreateNotificationInput{
		OrganisationID: campaign.OrganisationID,
		UserID:         recipientID,
		Type:           campaign.Type,
		Title:          campaign.Title,
		Body:           campaign.Body,
		Channels:       campaign.Channels,
	})
	if err != nil || notification == nil {
		if err != nil {
			s.logger.Warn("campaign recipient delivery failed",
				zap.String("campaign_id", campaign.ID),
				zap.String("user_id", recipientID),
				zap.Error(err))
		}
		if updateErr := s.campaigns.UpdateRecipientStatus(ctx, campaign.ID, recipientID, models.RecipientSkipped, nil); updateErr != nil {
			s.logger.Error("failed to mark recipient skipped",
				zap.String("campaign_id", campaign.ID),
				zap.String("user_id", recipientID),
				zap.Error(updateErr))
		}
		return false
	}

	deliveredAt := time.Now()
	if err := s.campaigns.UpdateRecipientStatus(ctx, campaign.ID, recipientID, models.RecipientDeliveredInApp, &deliveredAt); err != nil {
		s.logger.Error("failed to mark recipient delivered",
			zap.String("campaign_id", campaign.ID),
			zap.String("user_id", recipientID),
			zap.Error(err))
	}
	return true
}

func (s *CampaignService) fail(ctx context.Context, campaignID string) {
	if err := s.campaigns.SetStatus(ctx, campaignID, models.CampaignFailed, nil); err != nil {
		s.logger.Error("failed to mark campaign failed",
			zap.String("campaign_id", campaignID),
			zap.Error(err))
	}
}

// ListCampaigns returns a page of the organisation's campaigns.
func (s *CampaignService) ListCampaigns(ctx context.Context, organisationID string, role models.Role, query models.ListCampaignsQuery) (*models.CampaignPage, error) {
	if !role.CanManageCampaigns() {
		return nil, ErrForbidden
	}
	if query.Take <= 0 || query.Take > 100 {
		query.Take = 20
	}
	if query.Skip < 0 {
		query.Skip = 0
	}

	campaigns, total, err := s.campaigns.List(ctx, organisationID, query)
	if err != nil {
		return nil, err
	}
	if campaigns == nil {
		campaigns = []models.NotificationCampaign{}
	}
	return &models.CampaignPage{
		Data:  campaigns,
		Total: total,
		Skip:  query.Skip,
		Take:  query.Take,
	}, nil
}

// GetCampaignDetails returns a campaign with stats projected from its
// recipient rows.
func (s *CampaignService) GetCampaignDetails(ctx context.Context, organisationID string, role models.Role, campaignID string) (*models.CampaignDetails, error) {
	if !role.CanManageCampaigns() {
		return nil, ErrForbidden
	}

	campaign, err := s.campaigns.GetByID(ctx, organisationID, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	stats, err := s.campaigns.RecipientStats(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	return &models.CampaignDetails{
		NotificationCampaign: *campaign,
		Stats:                stats,
	}, nil
}
