package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CampaignStatus is the campaign lifecycle state. Transitions are one-way:
// DRAFT -> SENDING -> SENT | FAILED. A failed campaign is recreated, not resumed.
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "DRAFT"
	CampaignSending CampaignStatus = "SENDING"
	CampaignSent    CampaignStatus = "SENT"
	CampaignFailed  CampaignStatus = "FAILED"
)

// AudienceFilter selects campaign recipients. All supplied dimensions are
// intersected; All short-circuits and ignores every other field.
type AudienceFilter struct {
	All         bool     `json:"all,omitempty"`
	Roles       []Role   `json:"roles,omitempty"`
	LocationIDs []string `json:"location_ids,omitempty"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

// IsEmpty reports whether no dimension was supplied at all. An empty filter is
// a validation error; it is distinct from a filter that resolves to zero users.
func (f AudienceFilter) IsEmpty() bool {
	return !f.All && len(f.Roles) == 0 && len(f.LocationIDs) == 0 && len(f.EmployeeIDs) == 0
}

// Describe renders the applied dimensions for operator-facing error messages.
func (f AudienceFilter) Describe() string {
	if f.All {
		return "all users"
	}
	var parts []string
	if len(f.Roles) > 0 {
		names := make([]string, len(f.Roles))
		for i, r := range f.Roles {
			names[i] = string(r)
		}
		parts = append(parts, "roles: "+strings.Join(names, ", "))
	}
	if len(f.LocationIDs) > 0 {
		parts = append(parts, fmt.Sprintf("locations: %d selected", len(f.LocationIDs)))
	}
	if len(f.EmployeeIDs) > 0 {
		parts = append(parts, fmt.Sprintf("employees: %d selected", len(f.EmployeeIDs)))
	}
	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, ", ")
}

func (f AudienceFilter) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *AudienceFilter) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported audience filter column type %T", value)
	}
	return json.Unmarshal(raw, f)
}

// NotificationCampaign is a broadcast notification targeted at a resolved audience.
type NotificationCampaign struct {
	ID              string           `json:"id" gorm:"type:uuid;primaryKey"`
	OrganisationID  string           `json:"organisation_id" gorm:"type:uuid;index"`
	CreatedByUserID string           `json:"created_by_user_id" gorm:"type:uuid"`
	Title           string           `json:"title"`
	Body            *string          `json:"body,omitempty"`
	Type            NotificationType `json:"type" gorm:"size:40"`
	Channels        ChannelList      `json:"channels" gorm:"size:60"`
	AudienceFilter  AudienceFilter   `json:"audience_filter" gorm:"type:jsonb"`
	Status          CampaignStatus   `json:"status" gorm:"size:20;index"`
	SentAt          *time.Time       `json:"sent_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Recipient statuses.
const (
	RecipientPending        = "PENDING"
	RecipientDeliveredInApp = "DELIVERED_IN_APP"
	RecipientEmailSent      = "EMAIL_SENT"
	RecipientEmailFailed    = "EMAIL_FAILED"
	RecipientSkipped        = "SKIPPED"
)

// NotificationRecipient tracks per-recipient campaign delivery outcome.
// The (campaign, user) pair is unique; repeated inserts of the same pair are
// suppressed rather than failed.
type NotificationRecipient struct {
	CampaignID       string     `json:"campaign_id" gorm:"type:uuid;primaryKey"`
	UserID           string     `json:"user_id" gorm:"type:uuid;primaryKey"`
	Status           string     `json:"status" gorm:"size:30"`
	DeliveredInAppAt *time.Time `json:"delivered_in_app_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// CreateCampaignRequest creates a campaign in DRAFT.
type CreateCampaignRequest struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Body           *string          `json:"body,omitempty"`
	Type           NotificationType `json:"type" validate:"required"`
	Channels       []Channel        `json:"channels" validate:"required,min=1,dive,oneof=IN_APP EMAIL SMS"`
	AudienceFilter AudienceFilter   `json:"audience_filter"`
}

// ListCampaignsQuery captures campaign list filters.
type ListCampaignsQuery struct {
	Skip   int
	Take   int
	Status *CampaignStatus
}

// CampaignPage is the campaign list envelope.
type CampaignPage struct {
	Data  []NotificationCampaign `json:"data"`
	Total int64                  `json:"total"`
	Skip  int                    `json:"skip"`
	Take  int                    `json:"take"`
}

// CampaignStats is a read-side projection over recipient statuses.
type CampaignStats struct {
	TotalRecipients int64 `json:"total_recipients"`
	DeliveredInApp  int64 `json:"delivered_in_app"`
	EmailSent       int64 `json:"email_sent"`
	EmailFailed     int64 `json:"email_failed"`
	Skipped         int64 `json:"skipped"`
	Pending         int64 `json:"pending"`
}

// CampaignDetails combines a campaign with its computed stats.
type CampaignDetails struct {
	NotificationCampaign
	Stats CampaignStats `json:"stats"`
}
