package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SurveyStatus is the publication state of a survey.
type SurveyStatus string

const (
	SurveyDraft     SurveyStatus = "draft"
	SurveyPublished SurveyStatus = "published"
	SurveyClosed    SurveyStatus = "closed"
)

type Survey struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UniqueID       string         `json:"unique_id" gorm:"size:32;uniqueIndex;not null"`
	OrganizationID uuid.UUID      `json:"organization_id" gorm:"type:uuid;not null;index"`
	CreatedByID    uuid.UUID      `json:"created_by_id" gorm:"type:uuid;not null"`
	Title          string         `json:"title" gorm:"size:300;not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Status         SurveyStatus   `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	Questions      datatypes.JSON `json:"questions" gorm:"type:jsonb"`
	Settings       datatypes.JSON `json:"settings" gorm:"type:jsonb"`
	PublishedAt    *time.Time     `json:"published_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization `json:"-" gorm:"foreignKey:OrganizationID"`
}
