package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teamtide/workforce-backend/internal/models"
	"github.com/teamtide/workforce-backend/internal/queue"
	"github.com/teamtide/workforce-backend/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Skip reasons recorded on delivery attempts when contact info is absent.
const (
	skipEmailMissing = "User email missing"
	skipPhoneMissing = "User phone number missing"
)

// failUserLookup marks attempts that never reached the adapter because the
// recipient row could not be loaded at all.
const failUserLookup = "User lookup failed"

// DeliveryQueue is the narrow queue surface the service needs. False from
// Enqueue means "deliver synchronously instead".
type DeliveryQueue interface {
	IsAvailable() bool
	Enqueue(ctx context.Context, job queue.Job) bool
}

// NotificationService creates notification records, resolves delivery
// channels and triggers per-channel delivery with attempt tracking.
type NotificationService struct {
	notifications repositories.NotificationRepository
	preferences   repositories.PreferenceRepository
	users         repositories.UserRepository
	emailAdapter  ChannelAdapter
	smsAdapter    ChannelAdapter
	queue         DeliveryQueue
	logger        *zap.Logger
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	preferences repositories.PreferenceRepository,
	users repositories.UserRepository,
	emailAdapter ChannelAdapter,
	smsAdapter ChannelAdapter,
	deliveryQueue DeliveryQueue,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		preferences:   preferences,
		users:         users,
		emailAdapter:  emailAdapter,
		smsAdapter:    smsAdapter,
		queue:         deliveryQueue,
		logger:        logger,
	}
}

// resolveChannels applies: explicit override > stored preference > default.
// An explicit channel list is used verbatim; otherwise the stored preference
// (or the in-app-only default) decides, with SMS additionally gated on the
// adapter being ready. The result is ordered and deduplicated; empty means
// "do not create".
func (s *NotificationService) resolveChannels(ctx context.Context, organisationID, userID string, t models.NotificationType, explicit []models.Channel) ([]models.Channel, error) {
	if len(explicit) > 0 {
		var channels []models.Channel
		for _, c := range explicit {
			if !models.IsValidChannel(c) {
				return nil, fmt.Errorf("%w: unsupported channel %q", ErrValidation, c)
			}
			if !models.ChannelList(channels).Contains(c) {
				channels = append(channels, c)
			}
		}
		return channels, nil
	}

	pref, err := s.preferences.GetByUserAndType(ctx, organisationID, userID, t)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		def := models.DefaultPreference(organisationID, userID, t)
		pref = &def
	}

	var channels []models.Channel
	if pref.InApp {
		channels = append(channels, models.ChannelInApp)
	}
	if pref.Email {
		channels = append(channels, models.ChannelEmail)
	}
	if pref.SMS && s.smsAdapter.State() == StateReady {
		channels = append(channels, models.ChannelSMS)
	}
	return channels, nil
}

// CreateNotification is the single entry point domain events use. A nil
// notification with a nil error means the user opted out of every channel.
// Delivery failures never abort creation: once the row is persisted they are
// recorded per attempt, not raised.
func (s *NotificationService) CreateNotification(ctx context.Context, input models.CreateNotificationInput) (*models.Notification, error) {
	if !models.IsValidNotificationType(input.Type) {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrValidation, input.Type)
	}

	channels, err := s.resolveChannels(ctx, input.OrganisationID, input.UserID, input.Type, input.Channels)
	if err != nil {
		return nil, fmt.Errorf("resolve channels: %w", err)
	}
	if len(channels) == 0 {
		return nil, nil
	}

	notification := &models.Notification{
		ID:             uuid.NewString(),
		OrganisationID: input.OrganisationID,
		UserID:         input.UserID,
		Type:           input.Type,
		Title:          input.Title,
		Body:           input.Body,
		Data:           input.Data,
		Channels:       channels,
		CreatedAt:      time.Now(),
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	for _, channel := range channels {
		switch channel {
		case models.ChannelEmail:
			s.deliverEmail(ctx, notification)
		case models.ChannelSMS:
			s.deliverSMS(ctx, notification)
		}
		// IN_APP needs nothing beyond the persisted row; PUSH is reserved.
	}

	return notification, nil
}

// deliverEmail writes a placeholder attempt, then either enqueues an async job
// (fire-and-forget, the worker finalizes the row) or sends synchronously when
// the queue is unavailable.
func (s *NotificationService) deliverEmail(ctx context.Context, n *models.Notification) {
	user, err := s.users.GetByID(ctx, n.OrganisationID, n.UserID)
	if err != nil {
		s.logger.Error("failed to load user for email delivery",
			zap.String("notification_id", n.ID),
			zap.Error(err))
		s.recordAttempt(ctx, n.ID, models.ChannelEmail, models.AttemptFailed, failUserLookup)
		return
	}
	if user.Email == "" {
		s.recordAttempt(ctx, n.ID, models.ChannelEmail, models.AttemptSkipped, skipEmailMissing)
		return
	}

	s.recordAttempt(ctx, n.ID, models.ChannelEmail, models.AttemptSkipped, models.PendingDeliveryMessage)

	message := s.messageFor(n)
	if s.queue != nil && s.queue.IsAvailable() {
		job := queue.Job{
			NotificationID: n.ID,
			Channel:        models.ChannelEmail,
			To:             user.Email,
			Subject:        message.Subject,
			Text:           message.Text,
			HTML:           message.HTML,
			OrganisationID: n.OrganisationID,
			UserID:         n.UserID,
			Attempt:        1,
		}
		if s.queue.Enqueue(ctx, job) {
			return
		}
		s.logger.Warn("enqueue failed, delivering email synchronously",
			zap.String("notification_id", n.ID))
	}

	result := s.emailAdapter.Send(ctx, user.Email, message)
	s.finalizeAttempt(ctx, n.ID, models.ChannelEmail, result)
}

// deliverSMS is always synchronous.
func (s *NotificationService) deliverSMS(ctx context.Context, n *models.Notification) {
	user, err := s.users.GetByID(ctx, n.OrganisationID, n.UserID)
	if err != nil {
		s.logger.Error("failed to load user for sms delivery",
			zap.String("notification_id", n.ID),
			zap.Error(err))
		s.recordAttempt(ctx, n.ID, models.ChannelSMS, models.AttemptFailed, failUserLookup)
		return
	}
	if user.Phone == "" {
		s.recordAttempt(ctx, n.ID, models.ChannelSMS, models.AttemptSkipped, skipPhoneMissing)
		return
	}

	s.recordAttempt(ctx, n.ID, models.ChannelSMS, models.AttemptSkipped, models.PendingDeliveryMessage)

	result := s.smsAdapter.Send(ctx, user.Phone, s.messageFor(n))
	s.finalizeAttempt(ctx, n.ID, models.ChannelSMS, result)
}

func (s *NotificationService) messageFor(n *models.Notification) Message {
	text := n.Title
	if n.Body != nil && *n.Body != "" {
		text = *n.Body
	}
	return Message{Subject: n.Title, Text: text}
}

func (s *NotificationService) recordAttempt(ctx context.Context, notificationID string, channel models.Channel, status, message string) {
	attempt := &models.NotificationDeliveryAttempt{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		Channel:        channel,
		Status:         status,
		CreatedAt:      time.Now(),
	}
	if message != "" {
		attempt.ErrorMessage = &message
	}
	if err := s.notifications.CreateAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record delivery attempt",
			zap.String("notification_id", notificationID),
			zap.String("channel", string(channel)),
			zap.Error(err))
	}
}

func (s *NotificationService) finalizeAttempt(ctx context.Context, notificationID string, channel models.Channel, result SendResult) {
	status, errorMessage := AttemptOutcome(result)
	if err := s.notifications.UpdateAttempt(ctx, notificationID, channel, status, errorMessage); err != nil {
		s.logger.Error("failed to finalize delivery attempt",
			zap.String("notification_id", notificationID),
			zap.String("channel", string(channel)),
			zap.Error(err))
	}
}

// AttemptOutcome maps an adapter result onto delivery-attempt columns, using
// the adapter's error string verbatim when present.
func AttemptOutcome(result SendResult) (status string, errorMessage *string) {
	switch result.Status {
	case SendSent:
		status = models.AttemptSent
	case SendSkipped:
		status = models.AttemptSkipped
	default:
		status = models.AttemptFailed
	}
	if result.Err != nil {
		msg := result.Err.Error()
		errorMessage = &msg
	}
	return status, errorMessage
}

// ListNotifications returns a page of the caller's notifications together
// with the unread counter.
func (s *NotificationService) ListNotifications(ctx context.Context, organisationID, userID string, query models.ListNotificationsQuery) (*models.NotificationPage, error) {
	if query.Take <= 0 || query.Take > 100 {
		query.Take = 20
	}
	if query.Skip < 0 {
		query.Skip = 0
	}

	notifications, total, err := s.notifications.ListByUser(ctx, organisationID, userID, query)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.UnreadCount(ctx, organisationID, userID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return &models.NotificationPage{
		Data:        notifications,
		Total:       total,
		Skip:        query.Skip,
		Take:        query.Take,
		UnreadCount: unread,
	}, nil
}

// UnreadCount returns the caller's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, organisationID, userID string) (int64, error) {
	return s.notifications.UnreadCount(ctx, organisationID, userID)
}

// MarkAsRead is idempotent: a second call returns the same readAt without
// writing. Cross-tenant ids surface as not found.
func (s *NotificationService) MarkAsRead(ctx context.Context, organisationID, userID, id string) (*models.Notification, error) {
	notification, err := s.notifications.GetByID(ctx, organisationID, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if notification.ReadAt != nil {
		return notification, nil
	}

	readAt := time.Now()
	updated, err := s.notifications.MarkAsRead(ctx, id, readAt)
	if err != nil {
		return nil, err
	}
	if updated {
		notification.ReadAt = &readAt
		return notification, nil
	}
	// Lost a race with a concurrent mark-read; reload the stamped row.
	return s.notifications.GetByID(ctx, organisationID, userID, id)
}

// MarkAllAsRead stamps every unread notification of the caller.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, organisationID, userID string) error {
	return s.notifications.MarkAllAsRead(ctx, organisationID, userID, time.Now())
}

// GetPreferences returns one entry per known type, falling back to the
// documented defaults for types without a stored row.
func (s *NotificationService) GetPreferences(ctx context.Context, organisationID, userID string) ([]models.NotificationPreference, error) {
	stored, err := s.preferences.ListByUser(ctx, organisationID, userID)
	if err != nil {
		return nil, err
	}
	byType := make(map[models.NotificationType]models.NotificationPreference, len(stored))
	for _, p := range stored {
		byType[p.Type] = p
	}

	result := make([]models.NotificationPreference, 0, len(models.NotificationTypes))
	for _, t := range models.NotificationTypes {
		if p, ok := byType[t]; ok {
			result = append(result, p)
			continue
		}
		result = append(result, models.DefaultPreference(organisationID, userID, t))
	}
	return result, nil
}

// UpdatePreferences fully replaces the toggle set for every listed type.
func (s *NotificationService) UpdatePreferences(ctx context.Context, organisationID, userID string, updates []models.PreferenceUpdate) error {
	for _, u := range updates {
		if !models.IsValidNotificationType(u.Type) {
			return fmt.Errorf("%w: unknown notification type %q", ErrValidation, u.Type)
		}
	}
	now := time.Now()
	for _, u := range updates {
		preference := &models.NotificationPreference{
			ID:             uuid.NewString(),
			OrganisationID: organisationID,
			UserID:         userID,
			Type:           u.Type,
			InApp:          u.InApp,
			Email:          u.Email,
			SMS:            u.SMS,
			Push:           u.Push,
			UpdatedAt:      now,
		}
		if err := s.preferences.Upsert(ctx, preference); err != nil {
			return err
		}
	}
	return nil
}

// SendTestNotification pushes a test notification through the full pipeline
// for the calling user with an explicit channel list.
func (s *NotificationService) SendTestNotification(ctx context.Context, organisationID, userID string, channels []models.Channel) (*models.Notification, error) {
	body := "This is a test notification."
	return s.CreateNotification(ctx, models.CreateNotificationInput{
		OrganisationID: organisationID,
		UserID:         userID,
		Type:           models.TypeSystem,
		Title:          "Test notification",
		Body:           &body,
		Channels:       channels,
	})
}
