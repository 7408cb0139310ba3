// Package handlers serves the marketing blog and its admin editor.
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/storage"
	"surveyhub-backend/shared/store"
)

const coverURLTTL = time.Hour

type Handler struct {
	posts    store.BlogPostStore
	media    storage.MediaStore
	maxBytes int64
	log      *zap.Logger
	now      func() time.Time
}

// New builds the content handlers. media may be nil, in which case cover
// uploads answer 503 and posts are served without cover URLs.
func New(posts store.BlogPostStore, media storage.MediaStore, maxUploadBytes int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		posts:    posts,
		media:    media,
		maxBytes: maxUploadBytes,
		log:      log.Named("content"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Register(router gin.IRouter, authn *auth.Authenticator) {
	blog := router.Group("/api/blog")
	blog.GET("", h.ListPublishedPosts)
	blog.GET("/:slug", h.GetPublishedPost)

	admin := router.Group("/api/content/posts", authn.RequireAuth(), auth.RequireSuperAdmin())
	admin.GET("", h.ListPosts)
	admin.POST("", h.CreatePost)
	admin.GET("/:id", h.GetPost)
	admin.PUT("/:id", h.UpdatePost)
	admin.DELETE("/:id", h.DeletePost)
	admin.POST("/:id/cover", h.UploadCover)
}
