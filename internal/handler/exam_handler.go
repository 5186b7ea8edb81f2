package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/grading"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// ExamManager is the exam authoring surface.
type ExamManager interface {
	List(ctx context.Context, q model.ListExamsQuery) ([]model.Exam, *response.Pagination, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error)
	ReplaceQuestions(ctx context.Context, examID uuid.UUID, raws []grading.RawQuestion) (*model.Exam, error)
	Publish(ctx context.Context, examID uuid.UUID) error
	Archive(ctx context.Context, examID uuid.UUID) error
	RefreshCache(ctx context.Context, examID uuid.UUID) error
}

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	exams   ExamManager
	reports ReportReader
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams ExamManager, reports ReportReader) *ExamHandler {
	return &ExamHandler{exams: exams, reports: reports}
}

// ListExams godoc
// GET /api/v1/admin/exams
// Lists exams with pagination, optionally filtered by status.
func (h *ExamHandler) ListExams(c *gin.Context) {
	var q model.ListExamsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exams, pagination, err := h.exams.List(c.Request.Context(), q)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates a new draft exam, optionally with its questions.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), &req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/exams/:id/questions
// Replaces the whole question set. Accepts every legacy question shape.
func (h *ExamHandler) ReplaceQuestions(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.ReplaceQuestions(c.Request.Context(), examID, req.Questions)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// PublishExam godoc
// POST /api/v1/admin/exams/:id/publish
// Publishes an exam: caches paper + answer sheet to Redis, changes status.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.exams.Publish(c.Request.Context(), examID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam published successfully"})
}

// ArchiveExam godoc
// POST /api/v1/admin/exams/:id/archive
func (h *ExamHandler) ArchiveExam(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.exams.Archive(c.Request.Context(), examID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam archived successfully"})
}

// RefreshExamCache godoc
// POST /api/v1/admin/exams/:id/refresh-cache
// Re-caches the exam views to Redis after question changes.
func (h *ExamHandler) RefreshExamCache(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.exams.RefreshCache(c.Request.Context(), examID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam cache refreshed successfully"})
}

// ListExamReports godoc
// GET /api/v1/admin/exams/:id/reports
// Returns paginated report summaries and aggregate stats for an exam.
func (h *ExamHandler) ListExamReports(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var q model.ListReportsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.exams.GetByID(ctx, examID); err != nil {
		failService(c, err)
		return
	}

	reports, pagination, err := h.reports.ListByExam(ctx, examID, q)
	if err != nil {
		failService(c, err)
		return
	}
	stats, err := h.reports.Stats(ctx, examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"reports": reports, "stats": stats}, pagination)
}
