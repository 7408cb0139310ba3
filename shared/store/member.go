package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
)

type memberStore struct {
	db *gorm.DB
}

func NewMemberStore(db *gorm.DB) MemberStore {
	return &memberStore{db: db}
}

func (s *memberStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	var member models.OrganizationMember
	err := s.db.WithContext(ctx).
		Preload("Role").
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if err != nil {
		return nil, translate("getting member", err)
	}
	return &member, nil
}

func (s *memberStore) List(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationMember, error) {
	var members []models.OrganizationMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Role").
		Where("organization_id = ?", orgID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, translate("listing members", err)
	}
	return members, nil
}

func (s *memberStore) Count(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.OrganizationMember{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
		return 0, translate("counting members", err)
	}
	return total, nil
}

func (s *memberStore) Add(ctx context.Context, member *models.OrganizationMember) error {
	return translate("adding member", s.db.WithContext(ctx).Create(member).Error)
}

func (s *memberStore) UpdateRole(ctx context.Context, orgID, userID, roleID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Update("role_id", roleID)
	return requireRow("updating member role", result)
}

func (s *memberStore) Remove(ctx context.Context, orgID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.OrganizationMember{})
	return requireRow("removing member", result)
}
