package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
)

type roleStore struct {
	db *gorm.DB
}

func NewRoleStore(db *gorm.DB) RoleStore {
	return &roleStore{db: db}
}

func (s *roleStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, translate("getting role", err)
	}
	return &role, nil
}

func (s *roleStore) GetBySlug(ctx context.Context, slug string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&role).Error; err != nil {
		return nil, translate("getting role by slug", err)
	}
	return &role, nil
}

func (s *roleStore) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		return nil, translate("listing roles", err)
	}
	return roles, nil
}

func (s *roleStore) PermissionKeys(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	var permissions []models.Permission
	err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.resource, permissions.action").
		Find(&permissions).Error
	if err != nil {
		return nil, translate("listing role permissions", err)
	}

	keys := make([]string, 0, len(permissions))
	for _, p := range permissions {
		keys = append(keys, p.Key())
	}
	return keys, nil
}
