package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/utils/query"
)

type surveyStore struct {
	db *gorm.DB
}

func NewSurveyStore(db *gorm.DB) SurveyStore {
	return &surveyStore{db: db}
}

func (s *surveyStore) Create(ctx context.Context, survey *models.Survey) error {
	return translate("creating survey", s.db.WithContext(ctx).Create(survey).Error)
}

func (s *surveyStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).First(&survey, "id = ?", id).Error; err != nil {
		return nil, translate("getting survey", err)
	}
	return &survey, nil
}

func (s *surveyStore) GetByUniqueID(ctx context.Context, uniqueID string) (*models.Survey, error) {
	var survey models.Survey
	if err := s.db.WithContext(ctx).Where("unique_id = ?", uniqueID).First(&survey).Error; err != nil {
		return nil, translate("getting survey by unique id", err)
	}
	return &survey, nil
}

var surveyColumns = query.Columns{
	Filter: map[string]string{"status": "status"},
	Search: []string{"title", "description"},
	Sort: map[string]string{
		"title":        "title",
		"status":       "status",
		"created_at":   "created_at",
		"updated_at":   "updated_at",
		"published_at": "published_at",
	},
}

func (s *surveyStore) ListByOrganization(ctx context.Context, orgID uuid.UUID, params query.Params) ([]models.Survey, int64, error) {
	dbQuery := s.db.WithContext(ctx).Model(&models.Survey{}).
		Where("organization_id = ?", orgID).
		Scopes(params.Where(surveyColumns))

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, translate("counting surveys", err)
	}

	var surveys []models.Survey
	if err := dbQuery.Scopes(params.Window(surveyColumns)).Find(&surveys).Error; err != nil {
		return nil, 0, translate("listing surveys", err)
	}
	return surveys, total, nil
}

func (s *surveyStore) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Survey{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
		return 0, translate("counting surveys", err)
	}
	return total, nil
}

func (s *surveyStore) Update(ctx context.Context, survey *models.Survey) error {
	return translate("updating survey", s.db.WithContext(ctx).Save(survey).Error)
}

func (s *surveyStore) Delete(ctx context.Context, id uuid.UUID) error {
	return requireRow("deleting survey", s.db.WithContext(ctx).Delete(&models.Survey{}, "id = ?", id))
}

func (s *surveyStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Survey{}).Count(&total).Error; err != nil {
		return 0, translate("counting surveys", err)
	}
	return total, nil
}
