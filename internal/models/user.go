package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Role is the workforce role a user holds within their organisation.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleOwner    Role = "OWNER"
	RoleAdmin    Role = "ADMIN"
)

// CanManageCampaigns reports whether the role may create and send campaigns.
func (r Role) CanManageCampaigns() bool {
	return r == RoleManager || r == RoleOwner || r == RoleAdmin
}

// User is an employee record. Employee CRUD is owned by a separate service;
// this backend only reads users for contact lookup and audience resolution.
type User struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrganisationID string    `json:"organisation_id" gorm:"type:uuid;index"`
	Name           string    `json:"name"`
	Email          string    `json:"email" gorm:"index"`
	Phone          string    `json:"phone"`
	Role           Role      `json:"role" gorm:"size:20;index"`
	LocationID     *string   `json:"location_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt      time.Time `json:"created_at"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID         string `json:"user_id"`
	OrganisationID string `json:"organisation_id"`
	Role           Role   `json:"role"`
	jwt.RegisteredClaims
}
