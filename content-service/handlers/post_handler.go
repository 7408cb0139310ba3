package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/auth"
	"surveyhub-backend/shared/database/models"
	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/store"
	"surveyhub-backend/shared/utils/query"
)

// CreatePostRequest represents request body for creating a blog post
type CreatePostRequest struct {
	Title   string `json:"title" binding:"required,max=300"`
	Slug    string `json:"slug" binding:"max=200"`
	Excerpt string `json:"excerpt"`
	Body    string `json:"body"`
	Status  string `json:"status" binding:"omitempty,oneof=draft published"`
}

// UpdatePostRequest represents request body for updating a blog post
type UpdatePostRequest struct {
	Title   *string `json:"title" binding:"omitempty,min=1,max=300"`
	Slug    *string `json:"slug" binding:"omitempty,min=1,max=200"`
	Excerpt *string `json:"excerpt"`
	Body    *string `json:"body"`
	Status  *string `json:"status" binding:"omitempty,oneof=draft published"`
}

// PostResponse is a blog post with its author's display name and a signed
// cover URL
type PostResponse struct {
	ID            uuid.UUID         `json:"id"`
	Slug          string            `json:"slug"`
	Title         string            `json:"title"`
	Excerpt       string            `json:"excerpt"`
	Body          string            `json:"body"`
	Status        models.PostStatus `json:"status"`
	AuthorID      uuid.UUID         `json:"author_id"`
	AuthorName    string            `json:"author_name,omitempty"`
	CoverImageKey string            `json:"cover_image_key,omitempty"`
	CoverURL      string            `json:"cover_url,omitempty"`
	PublishedAt   *time.Time        `json:"published_at"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type PostListResponse struct {
	Items      []PostResponse           `json:"items"`
	Pagination query.Page `json:"pagination"`
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func postSlug(s string) string {
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > 190 {
		slug = strings.TrimRight(slug[:190], "-")
	}
	if slug == "" {
		slug = "post"
	}
	return slug
}

// setStatus moves a post between draft and published. The first publish
// stamps PublishedAt; unpublishing keeps it.
func setStatus(post *models.BlogPost, status string, now time.Time) {
	post.Status = models.PostStatus(status)
	if post.Status == models.PostPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}
}

func (h *Handler) respond(ctx context.Context, post models.BlogPost) PostResponse {
	resp := PostResponse{
		ID:            post.ID,
		Slug:          post.Slug,
		Title:         post.Title,
		Excerpt:       post.Excerpt,
		Body:          post.Body,
		Status:        post.Status,
		AuthorID:      post.AuthorID,
		CoverImageKey: post.CoverImageKey,
		PublishedAt:   post.PublishedAt,
		CreatedAt:     post.CreatedAt,
		UpdatedAt:     post.UpdatedAt,
	}
	if post.Author.ID != uuid.Nil {
		resp.AuthorName = post.Author.DisplayName()
	}
	if post.CoverImageKey == "" || h.media == nil {
		return resp
	}
	url, err := h.media.PresignedURL(ctx, post.CoverImageKey, coverURLTTL)
	if err != nil {
		h.log.Warn("Failed to sign cover URL", zap.String("post_id", post.ID.String()), zap.Error(err))
		return resp
	}
	resp.CoverURL = url
	return resp
}

func (h *Handler) respondAll(ctx context.Context, posts []models.BlogPost) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, h.respond(ctx, p))
	}
	return out
}

func (h *Handler) loadPost(c *gin.Context) (*models.BlogPost, bool) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		httpx.StoreError(c, h.log, err, "Post not found")
		return nil, false
	}
	return post, true
}

// ListPublishedPosts lists published posts, newest first
// @Summary List blog posts
// @Tags blog
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 20, max: 100)"
// @Param search query string false "Search across title and excerpt"
// @Success 200 {object} handlers.PostListResponse
// @Router /blog [get]
func (h *Handler) ListPublishedPosts(c *gin.Context) {
	params := query.Parse(c)
	posts, total, err := h.posts.ListPublished(c.Request.Context(), params)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch posts", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, PostListResponse{
		Items:      h.respondAll(c.Request.Context(), posts),
		Pagination: params.Paginate(total),
	})
}

// GetPublishedPost returns one published post
// @Summary Get blog post
// @Tags blog
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} handlers.PostResponse
// @Failure 404 {object} map[string]string "Post not found"
// @Router /blog/{slug} [get]
func (h *Handler) GetPublishedPost(c *gin.Context) {
	post, err := h.posts.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		httpx.StoreError(c, h.log, err, "Post not found")
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	c.JSON(http.StatusOK, h.respond(c.Request.Context(), *post))
}

// ListPosts lists every post including drafts
// @Summary List posts for editing
// @Tags content
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 20, max: 100)"
// @Param search query string false "Search across title and excerpt"
// @Param filters[status] query string false "Filter by status (draft, published)"
// @Param sort[field] query string false "Sort field (title, created_at, published_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security CookieAuth
// @Success 200 {object} handlers.PostListResponse
// @Failure 403 {object} map[string]string "Super admin access required"
// @Router /content/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	params := query.Parse(c)
	posts, total, err := h.posts.List(c.Request.Context(), params)
	if err != nil {
		httpx.Internal(c, h.log, "Failed to fetch posts", err)
		return
	}
	c.JSON(http.StatusOK, PostListResponse{
		Items:      h.respondAll(c.Request.Context(), posts),
		Pagination: params.Paginate(total),
	})
}

// GetPost returns a post by id
// @Summary Get post for editing
// @Tags content
// @Produce json
// @Param id path string true "Post ID"
// @Security CookieAuth
// @Success 200 {object} handlers.PostResponse
// @Failure 404 {object} map[string]string "Post not found"
// @Router /content/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.respond(c.Request.Context(), *post))
}

// CreatePost creates a blog post
// @Summary Create post
// @Tags content
// @Accept json
// @Produce json
// @Param request body handlers.CreatePostRequest true "Post"
// @Security CookieAuth
// @Success 201 {object} handlers.PostResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Router /content/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		httpx.Error(c, http.StatusBadRequest, "Title is required")
		return
	}
	slug := req.Slug
	if slug == "" {
		slug = title
	}

	post := models.BlogPost{
		Title:    title,
		Slug:     postSlug(slug),
		Excerpt:  req.Excerpt,
		Body:     req.Body,
		AuthorID: auth.MustUserID(c),
		Status:   models.PostDraft,
	}
	if req.Status != "" {
		setStatus(&post, req.Status, h.now())
	}

	if err := h.posts.Create(c.Request.Context(), &post); err != nil {
		if errors.Is(err, store.ErrConflict) {
			httpx.Error(c, http.StatusConflict, "Post slug already taken")
			return
		}
		httpx.Internal(c, h.log, "Failed to create post", err)
		return
	}
	c.JSON(http.StatusCreated, h.respond(c.Request.Context(), post))
}

// UpdatePost edits a blog post
// @Summary Update post
// @Tags content
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body handlers.UpdatePostRequest true "Fields to change"
// @Security CookieAuth
// @Success 200 {object} handlers.PostResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 409 {object} map[string]string "Slug already taken"
// @Router /content/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Title != nil {
		post.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		post.Slug = postSlug(*req.Slug)
	}
	if req.Excerpt != nil {
		post.Excerpt = *req.Excerpt
	}
	if req.Body != nil {
		post.Body = *req.Body
	}
	if req.Status != nil {
		setStatus(post, *req.Status, h.now())
	}
	if post.Title == "" {
		httpx.Error(c, http.StatusBadRequest, "Title is required")
		return
	}

	if err := h.posts.Update(c.Request.Context(), post); err != nil {
		if errors.Is(err, store.ErrConflict) {
			httpx.Error(c, http.StatusConflict, "Post slug already taken")
			return
		}
		httpx.StoreError(c, h.log, err, "Post not found")
		return
	}
	c.JSON(http.StatusOK, h.respond(c.Request.Context(), *post))
}

// DeletePost removes a post and its cover image
// @Summary Delete post
// @Tags content
// @Param id path string true "Post ID"
// @Security CookieAuth
// @Success 204
// @Failure 404 {object} map[string]string "Post not found"
// @Router /content/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	post, ok := h.loadPost(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.posts.Delete(ctx, post.ID); err != nil {
		httpx.StoreError(c, h.log, err, "Post not found")
		return
	}
	h.removeObject(ctx, post.ID, post.CoverImageKey)
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeObject(ctx context.Context, postID uuid.UUID, key string) {
	if key == "" || h.media == nil {
		return
	}
	if err := h.media.Remove(ctx, key); err != nil {
		h.log.Warn("Failed to remove cover image", zap.String("post_id", postID.String()), zap.String("key", key), zap.Error(err))
	}
}
