package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/grading"
)

// Report is a persisted submission result.
type Report struct {
	ID        uuid.UUID    `json:"id"`
	ExamID    uuid.UUID    `json:"exam_id"`
	UserID    string       `json:"user_id"`
	Result    ReportResult `json:"result"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReportResult is the graded outcome stored with a report.
type ReportResult struct {
	CorrectAnswers int              `json:"correct_answers"`
	WrongAnswers   int              `json:"wrong_answers"`
	TotalQuestions int              `json:"total_questions"`
	Percentage     int              `json:"percentage"`
	Verdict        string           `json:"verdict"`
	Passed         bool             `json:"passed"`
	TimeTaken      int              `json:"time_taken"`
	Threshold      float64          `json:"threshold"`
	Details        []grading.Result `json:"details"`
}

// NewReportResult flattens a grading report.
func NewReportResult(r grading.Report, threshold float64, timeTaken int) ReportResult {
	return ReportResult{
		CorrectAnswers: r.Verdict.CorrectCount,
		WrongAnswers:   r.Verdict.WrongCount(),
		TotalQuestions: r.Verdict.TotalCount,
		Percentage:     r.Verdict.Percentage,
		Verdict:        r.Verdict.Label(),
		Passed:         r.Verdict.Passed,
		TimeTaken:      timeTaken,
		Threshold:      threshold,
		Details:        r.Results,
	}
}

// ReportSummary is a report without per-question details, used in listings.
type ReportSummary struct {
	ID             uuid.UUID `json:"id"`
	ExamID         uuid.UUID `json:"exam_id"`
	UserID         string    `json:"user_id"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	Percentage     int       `json:"percentage"`
	Verdict        string    `json:"verdict"`
	TimeTaken      int       `json:"time_taken"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExamStats aggregates the reports of one exam.
type ExamStats struct {
	Submissions       int     `json:"submissions"`
	Passed            int     `json:"passed"`
	Failed            int     `json:"failed"`
	AveragePercentage float64 `json:"average_percentage"`
}

// SubmitRequest is the payload for submitting answers. Answers are
// index-aligned with the exam's questions.
type SubmitRequest struct {
	UserID    string   `json:"userId" binding:"required,max=128"`
	Answers   []string `json:"answers" binding:"omitempty,max=1000"`
	TimeTaken int      `json:"timeTaken" binding:"omitempty,min=0"`
}

// SubmitResult is returned to the submitter.
type SubmitResult struct {
	Report *Report `json:"report"`
	Points int     `json:"points"`
}

// ListReportsQuery holds paging parameters for report listings.
type ListReportsQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// SubmissionEvent is published on the exam monitor channel.
type SubmissionEvent struct {
	Type       string    `json:"type"`
	ReportID   uuid.UUID `json:"report_id"`
	UserID     string    `json:"user_id"`
	Percentage int       `json:"percentage"`
	Verdict    string    `json:"verdict"`
	At         time.Time `json:"at"`
}
