package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/utils/query"
)

type blogPostStore struct {
	db *gorm.DB
}

func NewBlogPostStore(db *gorm.DB) BlogPostStore {
	return &blogPostStore{db: db}
}

var blogColumns = query.Columns{
	Filter: map[string]string{"status": "status", "author_id": "author_id"},
	Search: []string{"title", "excerpt"},
	Sort:   map[string]string{"title": "title", "created_at": "created_at", "published_at": "published_at"},
}

func (s *blogPostStore) Create(ctx context.Context, post *models.BlogPost) error {
	return translate("creating blog post", s.db.WithContext(ctx).Create(post).Error)
}

func (s *blogPostStore) GetByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error) {
	var post models.BlogPost
	if err := s.db.WithContext(ctx).Preload("Author").First(&post, "id = ?", id).Error; err != nil {
		return nil, translate("getting blog post", err)
	}
	return &post, nil
}

func (s *blogPostStore) GetPublishedBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("slug = ? AND status = ?", slug, models.PostPublished).
		First(&post).Error
	if err != nil {
		return nil, translate("getting blog post by slug", err)
	}
	return &post, nil
}

func (s *blogPostStore) ListPublished(ctx context.Context, params query.Params) ([]models.BlogPost, int64, error) {
	// Public readers cannot filter their way to drafts.
	params.Filters = nil
	dbQuery := s.db.WithContext(ctx).Model(&models.BlogPost{}).Where("status = ?", models.PostPublished)
	return s.list(dbQuery, params)
}

func (s *blogPostStore) List(ctx context.Context, params query.Params) ([]models.BlogPost, int64, error) {
	return s.list(s.db.WithContext(ctx).Model(&models.BlogPost{}), params)
}

func (s *blogPostStore) list(dbQuery *gorm.DB, params query.Params) ([]models.BlogPost, int64, error) {
	dbQuery = dbQuery.Scopes(params.Where(blogColumns))

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, translate("counting blog posts", err)
	}

	var posts []models.BlogPost
	if err := dbQuery.Scopes(params.Window(blogColumns)).Preload("Author").Find(&posts).Error; err != nil {
		return nil, 0, translate("listing blog posts", err)
	}
	return posts, total, nil
}

func (s *blogPostStore) Update(ctx context.Context, post *models.BlogPost) error {
	return translate("updating blog post", s.db.WithContext(ctx).Omit("Author").Save(post).Error)
}

func (s *blogPostStore) Delete(ctx context.Context, id uuid.UUID) error {
	return requireRow("deleting blog post", s.db.WithContext(ctx).Delete(&models.BlogPost{}, "id = ?", id))
}
