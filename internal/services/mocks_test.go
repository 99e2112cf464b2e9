package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/queue"
)

// MockNotificationRepository is a mock implementation of repositories.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, organisationID, userID, id string) (*models.Notification, error) {
	args := m.Called(ctx, organisationID, userID, id)
	if n := args.Get(0); n != nil {
		return n.(*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, organisationID, userID string, query models.ListNotificationsQuery) ([]models.Notification, int64, error) {
	args := m.Called(ctx, organisationID, userID, query)
	var notifications []models.Notification
	if n := args.Get(0); n != nil {
		notifications = n.([]models.Notification)
	}
	return notifications, args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) UnreadCount(ctx context.Context, organisationID, userID string) (int64, error) {
	args := m.Called(ctx, organisationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, id string, readAt time.Time) (bool, error) {
	args := m.Called(ctx, id, readAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, organisationID, userID string, readAt time.Time) error {
	args := m.Called(ctx, organisationID, userID, readAt)
	return args.Error(0)
}

func (m *MockNotificationRepository) CreateAttempt(ctx context.Context, attempt *models.NotificationDeliveryAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockNotificationRepository) UpdateAttempt(ctx context.Context, notificationID string, channel models.Channel, status string, errorMessage *string) error {
	args := m.Called(ctx, notificationID, channel, status, errorMessage)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListAttempts(ctx context.Context, notificationID string) ([]models.NotificationDeliveryAttempt, error) {
	args := m.Called(ctx, notificationID)
	var attempts []models.NotificationDeliveryAttempt
	if a := args.Get(0); a != nil {
		attempts = a.([]models.NotificationDeliveryAttempt)
	}
	return attempts, args.Error(1)
}

// MockPreferenceRepository is a mock implementation of repositories.PreferenceRepository
type MockPreferenceRepository struct {
	mock.Mock
}

func (m *MockPreferenceRepository) GetByUserAndType(ctx context.Context, organisationID, userID string, t models.NotificationType) (*models.NotificationPreference, error) {
	args := m.Called(ctx, organisationID, userID, t)
	if p := args.Get(0); p != nil {
		return p.(*models.NotificationPreference), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPreferenceRepository) ListByUser(ctx context.Context, organisationID, userID string) ([]models.NotificationPreference, error) {
	args := m.Called(ctx, organisationID, userID)
	var preferences []models.NotificationPreference
	if p := args.Get(0); p != nil {
		preferences = p.([]models.NotificationPreference)
	}
	return preferences, args.Error(1)
}

func (m *MockPreferenceRepository) Upsert(ctx context.Context, preference *models.NotificationPreference) error {
	args := m.Called(ctx, preference)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, organisationID, userID string) (*models.User, error) {
	args := m.Called(ctx, organisationID, userID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) ResolveAudience(ctx context.Context, organisationID string, filter models.AudienceFilter) ([]string, error) {
	args := m.Called(ctx, organisationID, filter)
	var ids []string
	if i := args.Get(0); i != nil {
		ids = i.([]string)
	}
	return ids, args.Error(1)
}

// MockCampaignRepository is a mock implementation of repositories.CampaignRepository
type MockCampaignRepository struct {
	mock.Mock
}

func (m *MockCampaignRepository) Create(ctx context.Context, campaign *models.NotificationCampaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, organisationID, id string) (*models.NotificationCampaign, error) {
	args := m.Called(ctx, organisationID, id)
	if c := args.Get(0); c != nil {
		return c.(*models.NotificationCampaign), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCampaignRepository) List(ctx context.Context, organisationID string, query models.ListCampaignsQuery) ([]models.NotificationCampaign, int64, error) {
	args := m.Called(ctx, organisationID, query)
	var campaigns []models.NotificationCampaign
	if c := args.Get(0); c != nil {
		campaigns = c.([]models.NotificationCampaign)
	}
	return campaigns, args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignRepository) MarkSending(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCampaignRepository) SetStatus(ctx context.Context, id string, status models.CampaignStatus, sentAt *time.Time) error {
	args := m.Called(ctx, id, status, sentAt)
	return args.Error(0)
}

func (m *MockCampaignRepository) InsertRecipients(ctx context.Context, recipients []models.NotificationRecipient) error {
	args := m.Called(ctx, recipients)
	return args.Error(0)
}

func (m *MockCampaignRepository) UpdateRecipientStatus(ctx context.Context, campaignID, userID, status string, deliveredInAppAt *time.Time) error {
	args := m.Called(ctx, campaignID, userID, status, deliveredInAppAt)
	return args.Error(0)
}

func (m *MockCampaignRepository) RecipientStats(ctx context.Context, campaignID string) (models.CampaignStats, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(models.CampaignStats), args.Error(1)
}

// fakeAdapter is a scripted ChannelAdapter for service tests.
type fakeAdapter struct {
	channel models.Channel
	state   AdapterState
	result  SendResult

	mu    sync.Mutex
	sends []string // targets seen
}

func (a *fakeAdapter) Channel() models.Channel { return a.channel }
func (a *fakeAdapter) State() AdapterState     { return a.state }

func (a *fakeAdapter) Send(ctx context.Context, target string, message Message) SendResult {
	a.mu.Lock()
	a.sends = append(a.sends, target)
	a.mu.Unlock()
	return a.result
}

// fakeQueue is a scripted DeliveryQueue.
type fakeQueue struct {
	available bool
	accept    bool

	mu   sync.Mutex
	jobs []queue.Job
}

func (q *fakeQueue) IsAvailable() bool { return q.available }

func (q *fakeQueue) Enqueue(ctx context.Context, job queue.Job) bool {
	if !q.accept {
		return false
	}
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	return true
}
