package models

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus is the publication state of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

type BlogPost struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Slug          string     `json:"slug" gorm:"size:200;uniqueIndex;not null"`
	Title         string     `json:"title" gorm:"size:300;not null"`
	Excerpt       string     `json:"excerpt" gorm:"type:text"`
	Body          string     `json:"body" gorm:"type:text"`
	CoverImageKey string     `json:"cover_image_key" gorm:"size:500"`
	AuthorID      uuid.UUID  `json:"author_id" gorm:"type:uuid;not null"`
	Status        PostStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	PublishedAt   *time.Time `json:"published_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Relations
	Author User `json:"author" gorm:"foreignKey:AuthorID"`
}
