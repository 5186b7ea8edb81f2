package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// PaperSource serves the student-facing paper of a published exam.
type PaperSource interface {
	GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
}

// Submitter grades submissions and keeps autosaved drafts.
type Submitter interface {
	Submit(ctx context.Context, examID uuid.UUID, req *model.SubmitRequest) (*model.SubmitResult, error)
	SubmitDraft(ctx context.Context, examID uuid.UUID, userID string, timeTaken int) (*model.SubmitResult, error)
	SaveDraft(ctx context.Context, examID uuid.UUID, userID string, index int, answer string) error
	LoadDraft(ctx context.Context, examID uuid.UUID, userID string) (*model.Draft, error)
}

// ReportReader reads persisted reports.
type ReportReader interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Report, error)
	ListByExam(ctx context.Context, examID uuid.UUID, q model.ListReportsQuery) ([]model.ReportSummary, *response.Pagination, error)
	ListByUser(ctx context.Context, userID string) ([]model.ReportSummary, error)
	Stats(ctx context.Context, examID uuid.UUID) (*model.ExamStats, error)
}

// QuizHandler handles the quiz-taking endpoints.
type QuizHandler struct {
	papers      PaperSource
	submissions Submitter
	reports     ReportReader
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(papers PaperSource, submissions Submitter, reports ReportReader) *QuizHandler {
	return &QuizHandler{
		papers:      papers,
		submissions: submissions,
		reports:     reports,
	}
}

// GetExamPaper godoc
// GET /api/v1/exams/:id
// Returns the exam paper without correct answers, markup pre-tokenized.
func (h *QuizHandler) GetExamPaper(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	paper, err := h.papers.GetPaper(c.Request.Context(), examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": paper})
}

// SubmitExam godoc
// POST /api/v1/exams/:id/submit
// Grades the submitted answers and returns the report plus earned points.
func (h *QuizHandler) SubmitExam(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), examID, &req)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// GetDraft godoc
// GET /api/v1/exams/:id/draft?user_id=
// Returns the answers a user autosaved over the stream.
func (h *QuizHandler) GetDraft(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"user_id": "user_id is a required field"})
		return
	}

	draft, err := h.submissions.LoadDraft(c.Request.Context(), examID, userID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"draft": draft})
}

// GetReport godoc
// GET /api/v1/reports/:id
// Returns a persisted report with per-question details.
func (h *QuizHandler) GetReport(c *gin.Context) {
	reportID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	rep, err := h.reports.Get(c.Request.Context(), reportID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": rep})
}

// ListUserReports godoc
// GET /api/v1/users/:user_id/reports
func (h *QuizHandler) ListUserReports(c *gin.Context) {
	reports, err := h.reports.ListByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}
