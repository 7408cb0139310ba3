// Package httpx holds the gin helpers every service shares: request ids,
// error responses and path parameter parsing.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"surveyhub-backend/shared/logger"
	"surveyhub-backend/shared/store"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates an inbound request id or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, id)
		c.Request.Header.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Error writes {"error": message} with status.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// Internal logs err and answers 500 without leaking details.
func Internal(c *gin.Context, log *zap.Logger, message string, err error) {
	logger.FromContext(c, log).Error(message, zap.Error(err), zap.String("path", c.FullPath()))
	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, message)
}

// StoreError maps store sentinels onto 404/409 and anything else onto 500.
func StoreError(c *gin.Context, log *zap.Logger, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(c, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrConflict):
		Error(c, http.StatusConflict, "Resource already exists")
	default:
		Internal(c, log, "Internal server error", err)
	}
}

// UUIDParam parses a path parameter, answering 400 when malformed.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		Error(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// UUIDQuery parses a required query parameter, answering 400 when missing or malformed.
func UUIDQuery(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		Error(c, http.StatusBadRequest, name+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		Error(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
