package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
)

type impersonationStore struct {
	db *gorm.DB
}

func NewImpersonationStore(db *gorm.DB) ImpersonationStore {
	return &impersonationStore{db: db}
}

func (s *impersonationStore) Create(ctx context.Context, session *models.ImpersonationSession) error {
	return translate("creating impersonation session", s.db.WithContext(ctx).Create(session).Error)
}

func (s *impersonationStore) GetActiveByAdmin(ctx context.Context, adminID uuid.UUID, now time.Time) (*models.ImpersonationSession, error) {
	var session models.ImpersonationSession
	err := s.db.WithContext(ctx).
		Where("admin_id = ? AND ended_at IS NULL AND expires_at > ?", adminID, now).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, translate("getting active impersonation", err)
	}
	return &session, nil
}

func (s *impersonationStore) End(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.ImpersonationSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", at)
	return requireRow("ending impersonation", result)
}

func (s *impersonationStore) ListActive(ctx context.Context, now time.Time) ([]models.ImpersonationSession, error) {
	var sessions []models.ImpersonationSession
	err := s.db.WithContext(ctx).
		Preload("Admin").
		Preload("TargetUser").
		Where("ended_at IS NULL AND expires_at > ?", now).
		Order("started_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, translate("listing impersonations", err)
	}
	return sessions, nil
}
