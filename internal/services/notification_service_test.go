package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/teamtide/workforce-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testOrgID  = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	testUserID = "6ba7b811-9dad-11d1-80b4-00c04fd430c8"
)

type serviceFixture struct {
	notifications *MockNotificationRepository
	preferences   *MockPreferenceRepository
	users         *MockUserRepository
	email         *fakeAdapter
	sms           *fakeAdapter
	queue         *fakeQueue
	service       *NotificationService
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		notifications: new(MockNotificationRepository),
		preferences:   new(MockPreferenceRepository),
		users:         new(MockUserRepository),
		email:         &fakeAdapter{channel: models.ChannelEmail, state: StateReady, result: SendResult{Status: SendSent}},
		sms:           &fakeAdapter{channel: models.ChannelSMS, state: StateReady, result: SendResult{Status: SendSent}},
		queue:         &fakeQueue{},
	}
	f.service = NewNotificationService(
		f.notifications, f.preferences, f.users,
		f.email, f.sms, f.queue, zap.NewNop(),
	)
	return f
}

func TestCreateNotification_DefaultsToInAppOnly(t *testing.T) {
	f := newServiceFixture()
	f.preferences.On("GetByUserAndType", mock.Anything, testOrgID, testUserID, models.TypeShiftAssigned).
		Return(nil, gorm.ErrRecordNotFound)
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeShiftAssigned,
		Title:          "Shift assigned",
	})

	require.NoError(t, err)
	require.NotNil(t, notification)
	assert.Equal(t, models.ChannelList{models.ChannelInApp}, notification.Channels)
	// In-app needs no attempt rows and no adapter calls.
	f.notifications.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
	assert.Empty(t, f.email.sends)
	assert.Empty(t, f.sms.sends)
}

func TestCreateNotification_ZeroChannelsNotPersisted(t *testing.T) {
	f := newServiceFixture()
	f.preferences.On("GetByUserAndType", mock.Anything, testOrgID, testUserID, models.TypeAnnouncement).
		Return(&models.NotificationPreference{
			OrganisationID: testOrgID,
			UserID:         testUserID,
			Type:           models.TypeAnnouncement,
		}, nil) // every toggle off

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Ignored",
	})

	require.NoError(t, err)
	assert.Nil(t, notification)
	f.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifications.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
}

func TestCreateNotification_ExplicitChannelsBypassPreferences(t *testing.T) {
	f := newServiceFixture()
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Broadcast",
		Channels:       []models.Channel{models.ChannelInApp, models.ChannelInApp},
	})

	require.NoError(t, err)
	require.NotNil(t, notification)
	assert.Equal(t, models.ChannelList{models.ChannelInApp}, notification.Channels, "explicit channels are deduplicated")
	f.preferences.AssertNotCalled(t, "GetByUserAndType", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateNotification_RejectsUnknownChannel(t *testing.T) {
	f := newServiceFixture()

	tests := []struct {
		name     string
		channels []models.Channel
	}{
		{name: "unknown value", channels: []models.Channel{"BOGUS"}},
		{name: "reserved push", channels: []models.Channel{models.ChannelInApp, models.ChannelPush}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
				OrganisationID: testOrgID,
				UserID:         testUserID,
				Type:           models.TypeAnnouncement,
				Title:          "Hello",
				Channels:       tt.channels,
			})

			require.ErrorIs(t, err, ErrValidation)
			assert.Nil(t, notification)
		})
	}
	f.notifications.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifications.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
}

func TestCreateNotification_UserLookupFailureRecordsFailedAttempt(t *testing.T) {
	f := newServiceFixture()
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)
	f.users.On("GetByID", mock.Anything, testOrgID, testUserID).
		Return(nil, errors.New("db down"))
	f.notifications.On("CreateAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationDeliveryAttempt) bool {
		return a.Channel == models.ChannelEmail &&
			a.Status == models.AttemptFailed &&
			a.ErrorMessage != nil && *a.ErrorMessage == "User lookup failed"
	})).Return(nil)
	f.notifications.On("CreateAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationDeliveryAttempt) bool {
		return a.Channel == models.ChannelSMS &&
			a.Status == models.AttemptFailed &&
			a.ErrorMessage != nil && *a.ErrorMessage == "User lookup failed"
	})).Return(nil)

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Hello",
		Channels:       []models.Channel{models.ChannelEmail, models.ChannelSMS},
	})

	require.NoError(t, err, "delivery failures never abort creation")
	require.NotNil(t, notification)
	f.notifications.AssertExpectations(t)
	assert.Empty(t, f.email.sends)
	assert.Empty(t, f.sms.sends)
}

func TestCreateNotification_SMSGatedOnAdapterState(t *testing.T) {
	f := newServiceFixture()
	f.sms.state = StateDisabled
	f.preferences.On("GetByUserAndType", mock.Anything, testOrgID, testUserID, models.TypeShiftUpdated).
		Return(&models.NotificationPreference{
			OrganisationID: testOrgID,
			UserID:         testUserID,
			Type:           models.TypeShiftUpdated,
			InApp:          true,
			SMS:            true,
		}, nil)
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeShiftUpdated,
		Title:          "Shift changed",
	})

	require.NoError(t, err)
	require.NotNil(t, notification)
	assert.Equal(t, models.ChannelList{models.ChannelInApp}, notification.Channels)
}

func TestCreateNotification_EmailMissingRecordsSkippedAttempt(t *testing.T) {
	f := newServiceFixture()
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)
	f.users.On("GetByID", mock.Anything, testOrgID, testUserID).
		Return(&models.User{ID: testUserID, OrganisationID: testOrgID}, nil) // no email
	f.notifications.On("CreateAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationDeliveryAttempt) bool {
		return a.Channel == models.ChannelEmail &&
			a.Status == models.AttemptSkipped &&
			a.ErrorMessage != nil && *a.ErrorMessage == "User email missing"
	})).Return(nil)

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Hello",
		Channels:       []models.Channel{models.ChannelEmail},
	})

	require.NoError(t, err, "delivery failures never abort creation")
	require.NotNil(t, notification)
	f.notifications.AssertExpectations(t)
	assert.Empty(t, f.email.sends)
}

func TestCreateNotification_EmailSyncFallback(t *testing.T) {
	f := newServiceFixture()
	f.queue.available = false
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)
	f.users.On("GetByID", mock.Anything, testOrgID, testUserID).
		Return(&models.User{ID: testUserID, OrganisationID: testOrgID, Email: "w@example.com"}, nil)
	f.notifications.On("CreateAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationDeliveryAttempt) bool {
		return a.Status == models.AttemptSkipped &&
			a.ErrorMessage != nil && *a.ErrorMessage == models.PendingDeliveryMessage
	})).Return(nil)
	f.notifications.On("UpdateAttempt", mock.Anything, mock.AnythingOfType("string"), models.ChannelEmail, models.AttemptSent, (*string)(nil)).
		Return(nil)

	_, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Hello",
		Channels:       []models.Channel{models.ChannelEmail},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"w@example.com"}, f.email.sends)
	f.notifications.AssertExpectations(t)
}

func TestCreateNotification_EmailQueuePathIsFireAndForget(t *testing.T) {
	f := newServiceFixture()
	f.queue.available = true
	f.queue.accept = true
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)
	f.users.On("GetByID", mock.Anything, testOrgID, testUserID).
		Return(&models.User{ID: testUserID, OrganisationID: testOrgID, Email: "w@example.com"}, nil)
	f.notifications.On("CreateAttempt", mock.Anything, mock.AnythingOfType("*models.NotificationDeliveryAttempt")).
		Return(nil)

	notification, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Hello",
		Channels:       []models.Channel{models.ChannelEmail},
	})

	require.NoError(t, err)
	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, notification.ID, job.NotificationID)
	assert.Equal(t, models.ChannelEmail, job.Channel)
	assert.Equal(t, "w@example.com", job.To)
	assert.Equal(t, 1, job.Attempt)
	// The worker finalizes the row; nothing is sent synchronously.
	assert.Empty(t, f.email.sends)
	f.notifications.AssertNotCalled(t, "UpdateAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateNotification_SMSPhoneMissing(t *testing.T) {
	f := newServiceFixture()
	f.notifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Notification")).
		Return(nil)
	f.users.On("GetByID", mock.Anything, testOrgID, testUserID).
		Return(&models.User{ID: testUserID, OrganisationID: testOrgID, Email: "w@example.com"}, nil) // no phone
	f.notifications.On("CreateAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationDeliveryAttempt) bool {
		return a.Channel == models.ChannelSMS &&
			a.Status == models.AttemptSkipped &&
			a.ErrorMessage != nil && *a.ErrorMessage == "User phone number missing"
	})).Return(nil)

	_, err := f.service.CreateNotification(context.Background(), models.CreateNotificationInput{
		OrganisationID: testOrgID,
		UserID:         testUserID,
		Type:           models.TypeAnnouncement,
		Title:          "Hello",
		Channels:       []models.Channel{models.ChannelSMS},
	})

	require.NoError(t, err)
	f.notifications.AssertExpectations(t)
	assert.Empty(t, f.sms.sends)
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	f := newServiceFixture()
	readAt := time.Now().Add(-time.Hour)
	alreadyRead := &models.Notification{
		ID:             "n1",
		OrganisationID: testOrgID,
		UserID:         testUserID,
		ReadAt:         &readAt,
	}
	f.notifications.On("GetByID", mock.Anything, testOrgID, testUserID, "n1").
		Return(alreadyRead, nil)

	notification, err := f.service.MarkAsRead(context.Background(), testOrgID, testUserID, "n1")

	require.NoError(t, err)
	assert.Equal(t, &readAt, notification.ReadAt, "second call returns the original readAt")
	f.notifications.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAsRead_NotFoundForOtherOrg(t *testing.T) {
	f := newServiceFixture()
	f.notifications.On("GetByID", mock.Anything, testOrgID, testUserID, "foreign").
		Return(nil, gorm.ErrRecordNotFound)

	_, err := f.service.MarkAsRead(context.Background(), testOrgID, testUserID, "foreign")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPreferences_FillsDefaults(t *testing.T) {
	f := newServiceFixture()
	f.preferences.On("ListByUser", mock.Anything, testOrgID, testUserID).
		Return([]models.NotificationPreference{
			{
				OrganisationID: testOrgID,
				UserID:         testUserID,
				Type:           models.TypeAnnouncement,
				InApp:          false,
				Email:          true,
			},
		}, nil)

	preferences, err := f.service.GetPreferences(context.Background(), testOrgID, testUserID)

	require.NoError(t, err)
	require.Len(t, preferences, len(models.NotificationTypes))
	for _, p := range preferences {
		if p.Type == models.TypeAnnouncement {
			assert.False(t, p.InApp)
			assert.True(t, p.Email)
			assert.False(t, p.SMS)
			assert.False(t, p.Push)
			continue
		}
		assert.True(t, p.InApp, "type %s defaults to in-app on", p.Type)
		assert.False(t, p.Email)
		assert.False(t, p.SMS)
		assert.False(t, p.Push)
	}
}

func TestUpdatePreferences_RejectsUnknownType(t *testing.T) {
	f := newServiceFixture()

	err := f.service.UpdatePreferences(context.Background(), testOrgID, testUserID, []models.PreferenceUpdate{
		{Type: "NOT_A_TYPE", InApp: true},
	})

	assert.ErrorIs(t, err, ErrValidation)
	f.preferences.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUpdatePreferences_UpsertsEachType(t *testing.T) {
	f := newServiceFixture()
	f.preferences.On("Upsert", mock.Anything, mock.MatchedBy(func(p *models.NotificationPreference) bool {
		return p.Type == models.TypeAnnouncement && !p.InApp && p.Email && !p.SMS && !p.Push
	})).Return(nil)

	err := f.service.UpdatePreferences(context.Background(), testOrgID, testUserID, []models.PreferenceUpdate{
		{Type: models.TypeAnnouncement, InApp: false, Email: true},
	})

	require.NoError(t, err)
	f.preferences.AssertExpectations(t)
}
