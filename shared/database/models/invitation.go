package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an organization invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationRevoked  InvitationStatus = "revoked"
	InvitationExpired  InvitationStatus = "expired"
)

type OrganizationInvitation struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID uuid.UUID        `json:"organization_id" gorm:"type:uuid;not null;index"`
	Email          string           `json:"email" gorm:"size:320;not null;index"`
	RoleID         uuid.UUID        `json:"role_id" gorm:"type:uuid;not null"`
	TokenHash      string           `json:"-" gorm:"size:64;uniqueIndex;not null"`
	InvitedByID    uuid.UUID        `json:"invited_by_id" gorm:"type:uuid;not null"`
	Status         InvitationStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	ExpiresAt      time.Time        `json:"expires_at" gorm:"not null"`
	RespondedAt    *time.Time       `json:"responded_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	// Relations
	Organization Organization `json:"organization" gorm:"foreignKey:OrganizationID"`
	Role         Role         `json:"role" gorm:"foreignKey:RoleID"`
	InvitedBy    User         `json:"-" gorm:"foreignKey:InvitedByID"`
}
