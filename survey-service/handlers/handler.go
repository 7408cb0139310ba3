// Package handlers serves survey authoring inside an organization and the
// public survey lookup used by respondents.
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/ids"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/usage"
	"surveyhub-backend/shared/utils/permission"
)

type Handler struct {
	surveys store.SurveyStore
	orgs    store.OrganizationStore
	usage   *usage.Checker
	perms   *permission.Checker
	ids     *ids.Generator
	log     *zap.Logger
	now     func() time.Time
}

func New(stores *store.Stores, usageChecker *usage.Checker, perms *permission.Checker, gen *ids.Generator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		surveys: stores.Surveys,
		orgs:    stores.Organizations,
		usage:   usageChecker,
		perms:   perms,
		ids:     gen,
		log:     log.Named("surveys"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register mounts the survey routes. Public lookups skip authentication.
func (h *Handler) Register(router gin.IRouter, authn *auth.Authenticator) {
	router.GET("/api/public/surveys/:uniqueId", h.GetPublicSurvey)

	surveys := router.Group("/api/surveys", authn.RequireAuth())
	surveys.GET("", h.ListSurveys)
	surveys.POST("", h.CreateSurvey)
	surveys.GET("/:id", h.GetSurvey)
	surveys.PUT("/:id", h.UpdateSurvey)
	surveys.DELETE("/:id", h.DeleteSurvey)
	surveys.POST("/:id/publish", h.PublishSurvey)
	surveys.POST("/:id/close", h.CloseSurvey)
}
