package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-quiz/internal/markup"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// MarkupHandler exposes the markup tokenizer for editors that preview
// question text before saving it.
type MarkupHandler struct{}

// NewMarkupHandler creates a new MarkupHandler.
func NewMarkupHandler() *MarkupHandler {
	return &MarkupHandler{}
}

// Tokenize godoc
// POST /api/v1/markup/tokenize
// Returns the typed segments and the plain-text flattening of the input.
func (h *MarkupHandler) Tokenize(c *gin.Context) {
	var req model.TokenizeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	segments := markup.Tokenize(req.Text)
	if segments == nil {
		segments = []markup.Segment{}
	}
	metrics.TokenizeTotal.Inc()

	response.Success(c, http.StatusOK, gin.H{
		"segments":   segments,
		"plain_text": markup.PlainText(segments),
	})
}
