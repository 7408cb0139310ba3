package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
	"surveyhub-backend/shared/utils/query"
)

// CreateSurveyRequest represents request body for creating a survey
type CreateSurveyRequest struct {
	OrganizationID uuid.UUID       `json:"organization_id" binding:"required"`
	Title          string          `json:"title" binding:"required,max=300"`
	Description    string          `json:"description"`
	Questions      json.RawMessage `json:"questions" swaggertype:"array,object"`
	Settings       json.RawMessage `json:"settings" swaggertype:"object"`
}

// UpdateSurveyRequest represents request body for updating a survey
type UpdateSurveyRequest struct {
	Title       *string         `json:"title" binding:"omitempty,min=1,max=300"`
	Description *string         `json:"description"`
	Questions   json.RawMessage `json:"questions" swaggertype:"array,object"`
	Settings    json.RawMessage `json:"settings" swaggertype:"object"`
}

// SurveyListResponse represents a page of surveys
type SurveyListResponse struct {
	Items      []models.Survey          `json:"items"`
	Pagination query.Page `json:"pagination"`
}

// PublicSurvey is the respondent view of a published survey
type PublicSurvey struct {
	UniqueID    string         `json:"unique_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   datatypes.JSON `json:"questions" swaggertype:"array,object"`
	Settings    datatypes.JSON `json:"settings" swaggertype:"object"`
}

var errInvalidJSON = errors.New("invalid JSON")

// jsonColumn validates raw as a JSON value whose first token opens with
// open, falling back to empty when raw is absent.
func jsonColumn(raw json.RawMessage, open byte, empty string) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return datatypes.JSON(empty), nil
	}
	if !json.Valid(trimmed) || trimmed[0] != open {
		return nil, errInvalidJSON
	}
	return datatypes.JSON(trimmed), nil
}

func questionCount(questions datatypes.JSON) int {
	var items []json.RawMessage
	if err := json.Unmarshal(questions, &items); err != nil {
		return 0
	}
	return len(items)
}

// loadSurvey fetches the survey and checks the caller's permission in its
// organization.
func (h *Handler) loadSurvey(c *gin.Context, action string) (*models.Survey, bool) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	survey, err := h.surveys.GetByID(c.Request.Context(), id)
	if err != nil {
		httpx.StoreError(c, h.log, err, "Survey not found")
		return nil, false
	}
	if _, _, ok := httpx.OrgAccess(c, h.log, h.orgs, h.perms, survey.OrganizationID, auth.MustUserID(c), permission.ResourceSurveys, action); !ok {
		return nil, false
	}
	return survey, true
}

// ListSurveys lists an organization's surveys
// @Summary List surveys
// @Tags surveys
// @Produce json
// @Param organizationId query string true "Organization ID"
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 20, max: 100)"
// @Param search query string false "Search across title and description"
// @Param filters[status] query string false "Filter by status (draft, published, closed)"
// @Param sort[field] query string false "Sort field (title, status, created_at, updated_at, published_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security CookieAuth
// @Success 200 {object} handlers.SurveyListResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /surveys [get]
func (h *Handler) ListSurveys(c *gin.Context) {
	orgID, ok := httpx.UUIDQuery(c, "organizationId")
	if !ok {
		return
	}
	if _, _, ok := httpx.OrgAccess(c, h.log, h.orgs, h.perms, orgID, auth.MustUserID(c), permission.ResourceSurveys, permission.ActionRead); !ok {
		return
	}

	params := query.Parse(c)
	surveys, total, err := h.surveys.ListByOrganization(c.Request.Context(), orgID, params)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch surveys", err)
		return
	}
	if surveys == nil {
		surveys = []models.Survey{}
	}
	c.JSON(http.StatusOK, SurveyListResponse{
		Items:      surveys,
		Pagination: params.Paginate(total),
	})
}

// CreateSurvey creates a draft survey
// @Summary Create survey
// @Description Creates a draft survey if the organization's plan allows another one
// @Tags surveys
// @Accept json
// @Produce json
// @Param survey body handlers.CreateSurveyRequest true "Survey data"
// @Security CookieAuth
// @Success 201 {object} models.Survey
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]interface{} "Forbidden or plan limit reached"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /surveys [post]
func (h *Handler) CreateSurvey(c *gin.Context) {
	var req CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		httpx.Error(c, http.StatusBadRequest, "Survey title is required")
		return
	}
	questions, err := jsonColumn(req.Questions, '[', "[]")
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, "questions must be a JSON array")
		return
	}
	settings, err := jsonColumn(req.Settings, '{', "{}")
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, "settings must be a JSON object")
		return
	}

	ctx := c.Request.Context()
	userID := auth.MustUserID(c)
	if _, _, ok := httpx.OrgAccess(c, h.log, h.orgs, h.perms, req.OrganizationID, userID, permission.ResourceSurveys, permission.ActionCreate); !ok {
		return
	}

	decision, err := h.usage.CheckSurveyLimit(ctx, req.OrganizationID)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to check survey limit", err)
		return
	}
	if !decision.Allowed {
		httpx.LimitReached(c, decision)
		return
	}

	survey := models.Survey{
		UniqueID:       h.ids.Next(),
		OrganizationID: req.OrganizationID,
		CreatedByID:    userID,
		Title:          title,
		Description:    req.Description,
		Status:         models.SurveyDraft,
		Questions:      questions,
		Settings:       settings,
	}
	if err := h.surveys.Create(ctx, &survey); err != nil {
		httpx.StoreError(c, h.log, err, "Organization not found")
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceSurveys, req.OrganizationID)

	logger.FromContext(c, h.log).Info("survey created",
		zap.String("survey_id", survey.ID.String()),
		zap.String("organization_id", survey.OrganizationID.String()))
	c.JSON(http.StatusCreated, survey)
}

// GetSurvey returns one survey
// @Summary Get survey
// @Tags surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Security CookieAuth
// @Success 200 {object} models.Survey
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Survey not found"
// @Router /surveys/{id} [get]
func (h *Handler) GetSurvey(c *gin.Context) {
	survey, ok := h.loadSurvey(c, permission.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, survey)
}

// UpdateSurvey edits a survey's content
// @Summary Update survey
// @Tags surveys
// @Accept json
// @Produce json
// @Param id path string true "Survey ID"
// @Param survey body handlers.UpdateSurveyRequest true "Fields to change"
// @Security CookieAuth
// @Success 200 {object} models.Survey
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Survey not found"
// @Router /surveys/{id} [put]
func (h *Handler) UpdateSurvey(c *gin.Context) {
	var req UpdateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	survey, ok := h.loadSurvey(c, permission.ActionUpdate)
	if !ok {
		return
	}

	if req.Title != nil {
		survey.Title = strings.TrimSpace(*req.Title)
		if survey.Title == "" {
			httpx.Error(c, http.StatusBadRequest, "Survey title is required")
			return
		}
	}
	if req.Description != nil {
		survey.Description = *req.Description
	}
	if req.Questions != nil {
		questions, err := jsonColumn(req.Questions, '[', "[]")
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, "questions must be a JSON array")
			return
		}
		if survey.Status == models.SurveyPublished && questionCount(questions) == 0 {
			httpx.Error(c, http.StatusBadRequest, "A published survey needs at least one question")
			return
		}
		survey.Questions = questions
	}
	if req.Settings != nil {
		settings, err := jsonColumn(req.Settings, '{', "{}")
		if err != nil {
			httpx.Error(c, http.StatusBadRequest, "settings must be a JSON object")
			return
		}
		survey.Settings = settings
	}

	if err := h.surveys.Update(c.Request.Context(), survey); err != nil {
		httpx.StoreError(c, h.log, err, "Survey not found")
		return
	}
	c.JSON(http.StatusOK, survey)
}

// PublishSurvey makes a survey available at its public URL
// @Summary Publish survey
// @Tags surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Security CookieAuth
// @Success 200 {object} models.Survey
// @Failure 400 {object} map[string]string "Survey has no questions"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Survey not found"
// @Router /surveys/{id}/publish [post]
func (h *Handler) PublishSurvey(c *gin.Context) {
	survey, ok := h.loadSurvey(c, permission.ActionPublish)
	if !ok {
		return
	}
	if questionCount(survey.Questions) == 0 {
		httpx.Error(c, http.StatusBadRequest, "Add at least one question before publishing")
		return
	}
	if survey.Status != models.SurveyPublished {
		now := h.now()
		survey.Status = models.SurveyPublished
		survey.PublishedAt = &now
	}
	h.saveStatus(c, survey)
}

// CloseSurvey stops a survey from accepting respondents
// @Summary Close survey
// @Tags surveys
// @Produce json
// @Param id path string true "Survey ID"
// @Security CookieAuth
// @Success 200 {object} models.Survey
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Survey not found"
// @Router /surveys/{id}/close [post]
func (h *Handler) CloseSurvey(c *gin.Context) {
	survey, ok := h.loadSurvey(c, permission.ActionPublish)
	if !ok {
		return
	}
	survey.Status = models.SurveyClosed
	h.saveStatus(c, survey)
}

func (h *Handler) saveStatus(c *gin.Context, survey *models.Survey) {
	if err := h.surveys.Update(c.Request.Context(), survey); err != nil {
		httpx.StoreError(c, h.log, err, "Survey not found")
		return
	}
	logger.FromContext(c, h.log).Info("survey status changed",
		zap.String("survey_id", survey.ID.String()),
		zap.String("status", string(survey.Status)))
	c.JSON(http.StatusOK, survey)
}

// DeleteSurvey soft deletes a survey
// @Summary Delete survey
// @Tags surveys
// @Param id path string true "Survey ID"
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Survey not found"
// @Router /surveys/{id} [delete]
func (h *Handler) DeleteSurvey(c *gin.Context) {
	survey, ok := h.loadSurvey(c, permission.ActionDelete)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.surveys.Delete(ctx, survey.ID); err != nil {
		httpx.StoreError(c, h.log, err, "Survey not found")
		return
	}
	h.usage.Invalidate(ctx, usage.ResourceSurveys, survey.OrganizationID)
	c.JSON(http.StatusOK, gin.H{"message": "Survey deleted successfully"})
}

// GetPublicSurvey returns a published survey to respondents
// @Summary Get a published survey
// @Tags surveys
// @Produce json
// @Param uniqueId path string true "Public survey ID"
// @Success 200 {object} handlers.PublicSurvey
// @Failure 404 {object} map[string]string "Survey not found"
// @Router /public/surveys/{uniqueId} [get]
func (h *Handler) GetPublicSurvey(c *gin.Context) {
	survey, err := h.surveys.GetByUniqueID(c.Request.Context(), c.Param("uniqueId"))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		httpx.Internal(c, h.log, "Failed to fetch survey", err)
		return
	}
	if err != nil || survey.Status != models.SurveyPublished {
		httpx.Error(c, http.StatusNotFound, "Survey not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, PublicSurvey{
		UniqueID:    survey.UniqueID,
		Title:       survey.Title,
		Description: survey.Description,
		Questions:   survey.Questions,
		Settings:    survey.Settings,
	})
}
