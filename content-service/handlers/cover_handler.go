package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"surveyhub-backend/shared/httpx"
	"surveyhub-backend/shared/storage"
)

// UploadCover stores a cover image and attaches it to the post
// @Summary Upload cover image
// @Tags content
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Post ID"
// @Param file formData file true "Image (jpg, png, webp, gif)"
// @Security CookieAuth
// @Success 200 {object} handlers.PostResponse
// @Failure 400 {object} map[string]string "Invalid file"
// @Failure 404 {object} map[string]string "Post not found"
// @Failure 503 {object} map[string]string "Storage unavailable"
// @Router /content/posts/{id}/cover [post]
func (h *Handler) UploadCover(c *gin.Context) {
	if h.media == nil {
		httpx.Error(c, http.StatusServiceUnavailable, "Storage is not configured")
		return
	}
	post, ok := h.loadPost(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	contentType, err := storage.ValidateImageUpload(header, h.maxBytes)
	if err != nil {
		httpx.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	key := storage.CoverImageKey(post.ID.String(), header.Filename, h.now())
	if err := h.media.Put(ctx, key, file, header.Size, contentType); err != nil {
		httpx.Internal(c, h.log, "Failed to upload image", err)
		return
	}

	previous := post.CoverImageKey
	post.CoverImageKey = key
	if err := h.posts.Update(ctx, post); err != nil {
		h.removeObject(ctx, post.ID, key)
		httpx.StoreError(c, h.log, err, "Post not found")
		return
	}
	if previous != key {
		h.removeObject(ctx, post.ID, previous)
	}
	c.JSON(http.StatusOK, h.respond(ctx, *post))
}
