package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// multipartOverhead is the slack allowed on top of the file itself for
// boundaries and part headers.
const multipartOverhead = 1 << 20

// MediaStore persists uploaded question images.
type MediaStore interface {
	SaveUpload(file multipart.File, header *multipart.FileHeader) (string, error)
}

// MediaHandler handles media upload endpoints.
type MediaHandler struct {
	media    MediaStore
	maxBytes int64
}

// NewMediaHandler creates a new MediaHandler. Request bodies larger than
// maxBytes plus multipart framing are cut off before parsing.
func NewMediaHandler(media MediaStore, maxBytes int64) *MediaHandler {
	return &MediaHandler{media: media, maxBytes: maxBytes}
}

// UploadMedia godoc
// POST /api/v1/admin/media/upload
// Uploads an image for an image-based question and returns its URL.
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, err := h.media.SaveUpload(file, header)
	switch {
	case err == nil:
		response.Success(c, http.StatusCreated, gin.H{"url": url})
	case errors.Is(err, service.ErrUnsupportedFileType):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrUnsupportedFile,
			map[string]string{"file": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
