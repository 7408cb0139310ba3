package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/utils/query"
)

type organizationStore struct {
	db *gorm.DB
}

func NewOrganizationStore(db *gorm.DB) OrganizationStore {
	return &organizationStore{db: db}
}

func (s *organizationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, translate("getting organization", err)
	}
	return &org, nil
}

func (s *organizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.WithContext(ctx).Unscoped().Where("slug = ?", slug).First(&org).Error; err != nil {
		return nil, translate("getting organization by slug", err)
	}
	return &org, nil
}

func (s *organizationStore) Create(ctx context.Context, org *models.Organization, ownerRoleID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return translate("creating organization", err)
		}
		member := models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         org.OwnerID,
			RoleID:         ownerRoleID,
			JoinedAt:       time.Now().UTC(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return translate("creating owner membership", err)
		}
		return nil
	})
}

func (s *organizationStore) Update(ctx context.Context, org *models.Organization) error {
	return translate("updating organization", s.db.WithContext(ctx).Save(org).Error)
}

func (s *organizationStore) Delete(ctx context.Context, id uuid.UUID) error {
	return requireRow("deleting organization", s.db.WithContext(ctx).Delete(&models.Organization{}, "id = ?", id))
}

func (s *organizationStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.db.WithContext(ctx).
		Joins("JOIN organization_members ON organization_members.organization_id = organizations.id").
		Where("organization_members.user_id = ?", userID).
		Order("organizations.name ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, translate("listing organizations for user", err)
	}
	return orgs, nil
}

func (s *organizationStore) ListOwnedBy(ctx context.Context, userID uuid.UUID) ([]models.Organization, error) {
	var orgs []models.Organization
	if err := s.db.WithContext(ctx).Where("owner_id = ?", userID).Order("created_at ASC").Find(&orgs).Error; err != nil {
		return nil, translate("listing owned organizations", err)
	}
	return orgs, nil
}

func (s *organizationStore) CountOwnedBy(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("owner_id = ?", userID).Count(&total).Error; err != nil {
		return 0, translate("counting owned organizations", err)
	}
	return total, nil
}

var organizationColumns = query.Columns{
	Filter: map[string]string{"owner_id": "owner_id"},
	Search: []string{"name", "slug"},
	Sort:   map[string]string{"name": "name", "slug": "slug", "created_at": "created_at"},
}

func (s *organizationStore) List(ctx context.Context, params query.Params) ([]models.Organization, int64, error) {
	dbQuery := s.db.WithContext(ctx).Model(&models.Organization{}).Scopes(params.Where(organizationColumns))

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, translate("counting organizations", err)
	}

	var orgs []models.Organization
	if err := dbQuery.Scopes(params.Window(organizationColumns)).Find(&orgs).Error; err != nil {
		return nil, 0, translate("listing organizations", err)
	}
	return orgs, total, nil
}

func (s *organizationStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Count(&total).Error; err != nil {
		return 0, translate("counting organizations", err)
	}
	return total, nil
}
