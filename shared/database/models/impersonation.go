package models

import (
	"time"

	"github.com/google/uuid"
)

// ImpersonationSession records a super admin acting as another user.
type ImpersonationSession struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AdminID      uuid.UUID  `json:"admin_id" gorm:"type:uuid;not null;index"`
	TargetUserID uuid.UUID  `json:"target_user_id" gorm:"type:uuid;not null"`
	Reason       string     `json:"reason" gorm:"type:text"`
	StartedAt    time.Time  `json:"started_at" gorm:"not null"`
	ExpiresAt    time.Time  `json:"expires_at" gorm:"not null"`
	EndedAt      *time.Time `json:"ended_at"`

	// Relations
	Admin      User `json:"admin" gorm:"foreignKey:AdminID"`
	TargetUser User `json:"target_user" gorm:"foreignKey:TargetUserID"`
}

// IsActive reports whether the session is open at the given instant.
func (s ImpersonationSession) IsActive(now time.Time) bool {
	return s.EndedAt == nil && now.Before(s.ExpiresAt)
}
