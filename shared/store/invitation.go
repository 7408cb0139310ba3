package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
)

type invitationStore struct {
	db *gorm.DB
}

func NewInvitationStore(db *gorm.DB) InvitationStore {
	return &invitationStore{db: db}
}

func (s *invitationStore) Create(ctx context.Context, inv *models.OrganizationInvitation) error {
	return translate("creating invitation", s.db.WithContext(ctx).Create(inv).Error)
}

func (s *invitationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.OrganizationInvitation, error) {
	var inv models.OrganizationInvitation
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, translate("getting invitation", err)
	}
	return &inv, nil
}

func (s *invitationStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.OrganizationInvitation, error) {
	var inv models.OrganizationInvitation
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("Role").
		Where("token_hash = ?", tokenHash).
		First(&inv).Error
	if err != nil {
		return nil, translate("getting invitation by token", err)
	}
	return &inv, nil
}

func (s *invitationStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationInvitation, error) {
	var invitations []models.OrganizationInvitation
	err := s.db.WithContext(ctx).
		Preload("Role").
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, translate("listing invitations", err)
	}
	return invitations, nil
}

func (s *invitationStore) FindPending(ctx context.Context, orgID uuid.UUID, email string, now time.Time) (*models.OrganizationInvitation, error) {
	var inv models.OrganizationInvitation
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND LOWER(email) = ? AND status = ? AND expires_at >= ?",
			orgID, strings.ToLower(email), models.InvitationPending, now).
		First(&inv).Error
	if err != nil {
		return nil, translate("finding pending invitation", err)
	}
	return &inv, nil
}

func (s *invitationStore) CountPending(ctx context.Context, orgID uuid.UUID, now time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.OrganizationInvitation{}).
		Where("organization_id = ? AND status = ? AND expires_at >= ?", orgID, models.InvitationPending, now).
		Count(&total).Error
	if err != nil {
		return 0, translate("counting pending invitations", err)
	}
	return total, nil
}

func (s *invitationStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus, respondedAt *time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.OrganizationInvitation{}).
		Where("id = ? AND status = ?", id, models.InvitationPending).
		Updates(map[string]interface{}{
			"status":       status,
			"responded_at": respondedAt,
		})
	return requireRow("updating invitation status", result)
}

func (s *invitationStore) Accept(ctx context.Context, inv *models.OrganizationInvitation, member *models.OrganizationMember) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrganizationInvitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":       models.InvitationAccepted,
				"responded_at": inv.RespondedAt,
			})
		if err := requireRow("accepting invitation", result); err != nil {
			return err
		}
		if err := tx.Create(member).Error; err != nil {
			return translate("adding member", err)
		}
		return nil
	})
}

func (s *invitationStore) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.OrganizationInvitation{}).
		Where("status = ? AND expires_at < ?", models.InvitationPending, now).
		Update("status", models.InvitationExpired)
	if result.Error != nil {
		return 0, translate("expiring invitations", result.Error)
	}
	return result.RowsAffected, nil
}
