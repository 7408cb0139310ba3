package storage

import (
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateImageUpload checks size and extension and returns the content type.
func ValidateImageUpload(header *multipart.FileHeader, maxBytes int64) (string, error) {
	if header.Size == 0 {
		return "", fmt.Errorf("file is empty")
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return "", fmt.Errorf("file size exceeds %d bytes", maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	return contentType, nil
}

// CoverImageKey is the object key of a blog post cover.
func CoverImageKey(postID, filename string, at time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("blog", postID, fmt.Sprintf("cover-%d%s", at.Unix(), ext))
}
