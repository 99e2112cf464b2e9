package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Channel is a delivery medium for a notification.
type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH" // reserved, no delivery path yet
)

// NotificationType enumerates the domain events a notification can represent.
type NotificationType string

const (
	TypeShiftAssigned         NotificationType = "SHIFT_ASSIGNED"
	TypeShiftUpdated          NotificationType = "SHIFT_UPDATED"
	TypeShiftCancelled        NotificationType = "SHIFT_CANCELLED"
	TypeLeaveRequestSubmitted NotificationType = "LEAVE_REQUEST_SUBMITTED"
	TypeLeaveRequestApproved  NotificationType = "LEAVE_REQUEST_APPROVED"
	TypeLeaveRequestRejected  NotificationType = "LEAVE_REQUEST_REJECTED"
	TypeAnnouncement          NotificationType = "ANNOUNCEMENT"
	TypeSystem                NotificationType = "SYSTEM"
)

// NotificationTypes lists every known type, in the order preferences are reported.
var NotificationTypes = []NotificationType{
	TypeShiftAssigned,
	TypeShiftUpdated,
	TypeShiftCancelled,
	TypeLeaveRequestSubmitted,
	TypeLeaveRequestApproved,
	TypeLeaveRequestRejected,
	TypeAnnouncement,
	TypeSystem,
}

// IsValidNotificationType reports whether t is a known notification type.
func IsValidNotificationType(t NotificationType) bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsValidChannel reports whether c is a channel with a delivery path. PUSH is
// reserved and rejected until one exists.
func IsValidChannel(c Channel) bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// ChannelList is stored as a comma separated string column.
type ChannelList []Channel

func (l ChannelList) Value() (driver.Value, error) {
	parts := make([]string, len(l))
	for i, c := range l {
		parts[i] = string(c)
	}
	return strings.Join(parts, ","), nil
}

func (l *ChannelList) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported channel list column type %T", value)
	}
	*l = nil
	for _, part := range strings.Split(raw, ",") {
		if part != "" {
			*l = append(*l, Channel(part))
		}
	}
	return nil
}

// Contains reports whether c is in the list.
func (l ChannelList) Contains(c Channel) bool {
	for _, have := range l {
		if have == c {
			return true
		}
	}
	return false
}

// Notification is a single user-facing notification (PostgreSQL, append-only).
// Channels is never empty: an event that resolves to zero channels is not persisted.
type Notification struct {
	ID             string           `json:"id" gorm:"type:uuid;primaryKey"`
	OrganisationID string           `json:"organisation_id" gorm:"type:uuid;index"`
	UserID         string           `json:"user_id" gorm:"type:uuid;index"`
	Type           NotificationType `json:"type" gorm:"size:40;index"`
	Title          string           `json:"title"`
	Body           *string          `json:"body,omitempty"`
	Data           json.RawMessage  `json:"data,omitempty" gorm:"type:jsonb"`
	Channels       ChannelList      `json:"channels" gorm:"size:60"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at" gorm:"index"`
}

// NotificationPreference stores per-user per-type channel toggles.
// Absence of a row means the defaults apply: in-app on, everything else off.
type NotificationPreference struct {
	ID             string           `json:"id" gorm:"type:uuid;primaryKey"`
	OrganisationID string           `json:"organisation_id" gorm:"type:uuid;uniqueIndex:idx_pref_org_user_type"`
	UserID         string           `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_pref_org_user_type"`
	Type           NotificationType `json:"type" gorm:"size:40;uniqueIndex:idx_pref_org_user_type"`
	InApp          bool             `json:"in_app"`
	Email          bool             `json:"email"`
	SMS            bool             `json:"sms"`
	Push           bool             `json:"push"` // reserved
	UpdatedAt      time.Time        `json:"updated_at"`
}

// DefaultPreference returns the documented defaults for a type without a stored row.
func DefaultPreference(orgID, userID string, t NotificationType) NotificationPreference {
	return NotificationPreference{
		OrganisationID: orgID,
		UserID:         userID,
		Type:           t,
		InApp:          true,
	}
}

// Delivery attempt statuses.
const (
	AttemptSkipped = "SKIPPED"
	AttemptSent    = "SENT"
	AttemptFailed  = "FAILED"
)

// PendingDeliveryMessage marks a placeholder attempt row created before the
// actual send; the queue worker looks the row up by notification id + channel
// and overwrites it once the outcome is known.
const PendingDeliveryMessage = "Pending delivery"

// NotificationDeliveryAttempt records one channel-send outcome for one notification.
type NotificationDeliveryAttempt struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	NotificationID string    `json:"notification_id" gorm:"type:uuid;index:idx_attempt_notification_channel"`
	Channel        Channel   `json:"channel" gorm:"size:20;index:idx_attempt_notification_channel"`
	Status         string    `json:"status" gorm:"size:20"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateNotificationInput is what domain-event collaborators hand to the
// notification service. Channels, when set, override stored preferences.
type CreateNotificationInput struct {
	OrganisationID string           `json:"organisation_id" validate:"required,uuid4"`
	UserID         string           `json:"user_id" validate:"required,uuid4"`
	Type           NotificationType `json:"type" validate:"required"`
	Title          string           `json:"title" validate:"required,max=200"`
	Body           *string          `json:"body,omitempty"`
	Data           json.RawMessage  `json:"data,omitempty"`
	Channels       []Channel        `json:"channels,omitempty"`
}

// ListNotificationsQuery captures list filters from the API.
type ListNotificationsQuery struct {
	Skip       int
	Take       int
	UnreadOnly bool
	Type       *NotificationType
}

// NotificationPage is the list response envelope.
type NotificationPage struct {
	Data        []Notification `json:"data"`
	Total       int64          `json:"total"`
	Skip        int            `json:"skip"`
	Take        int            `json:"take"`
	UnreadCount int64          `json:"unreadCount"`
}

// PreferenceUpdate is one entry of a full-replace preference write.
type PreferenceUpdate struct {
	Type  NotificationType `json:"type" validate:"required"`
	InApp bool             `json:"in_app"`
	Email bool             `json:"email"`
	SMS   bool             `json:"sms"`
	Push  bool             `json:"push"`
}

// UpdatePreferencesRequest replaces preferences for every listed type.
type UpdatePreferencesRequest struct {
	Preferences []PreferenceUpdate `json:"preferences" validate:"required,min=1,dive"`
}

// SendTestRequest triggers a test notification for the calling user.
type SendTestRequest struct {
	Channels []Channel `json:"channels" validate:"required,min=1,dive,oneof=IN_APP EMAIL SMS"`
}
