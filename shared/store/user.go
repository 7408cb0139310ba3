package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/utils/query"
)

type userStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) UserStore {
	return &userStore{db: db}
}

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate("getting user", err)
	}
	return &user, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate("getting user by email", err)
	}
	return &user, nil
}

func (s *userStore) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, translate("getting user by external id", err)
	}
	return &user, nil
}

func (s *userStore) UpsertByExternalID(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "avatar_url", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return translate("upserting user", err)
	}

	// On conflict the RETURNING clause yields nothing on some drivers; reload.
	if user.ID == uuid.Nil && user.ExternalID != nil {
		stored, err := s.GetByExternalID(ctx, *user.ExternalID)
		if err != nil {
			return err
		}
		*user = *stored
	}
	return nil
}

func (s *userStore) Update(ctx context.Context, user *models.User) error {
	return translate("updating user", s.db.WithContext(ctx).Save(user).Error)
}

var userColumns = query.Columns{
	Filter: map[string]string{"is_super_admin": "is_super_admin"},
	Search: []string{"email", "first_name", "last_name"},
	Sort:   map[string]string{"email": "email", "created_at": "created_at"},
}

func (s *userStore) List(ctx context.Context, params query.Params) ([]models.User, int64, error) {
	dbQuery := s.db.WithContext(ctx).Model(&models.User{}).Scopes(params.Where(userColumns))

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, translate("counting users", err)
	}

	var users []models.User
	if err := dbQuery.Scopes(params.Window(userColumns)).Find(&users).Error; err != nil {
		return nil, 0, translate("listing users", err)
	}
	return users, total, nil
}

func (s *userStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, translate("counting users", err)
	}
	return total, nil
}
