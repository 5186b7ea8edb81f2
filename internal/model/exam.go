package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/grading"
	"github.com/stemsi/exstem-quiz/internal/markup"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity.
type Exam struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	DurationSeconds   int        `json:"duration_seconds"`
	PassingMarks      *float64   `json:"passing_marks,omitempty"`
	PassingPercentage *float64   `json:"passing_percentage,omitempty"`
	Status            ExamStatus `json:"status"`
	QuestionCount     int        `json:"question_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PassingThreshold returns the percentage a submission must reach. Exams carry
// the value under two historical names; passing_percentage wins.
func (e *Exam) PassingThreshold(fallback float64) float64 {
	if e.PassingPercentage != nil {
		return grading.ResolveThreshold(e.PassingPercentage, fallback)
	}
	if e.PassingMarks != nil {
		return grading.ResolveThreshold(e.PassingMarks, fallback)
	}
	return fallback
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title             string                `json:"title" binding:"required,min=3,max=255"`
	DurationSeconds   int                   `json:"duration_seconds" binding:"omitempty,min=0,max=86400"`
	PassingMarks      *float64              `json:"passing_marks" binding:"omitempty,min=0,max=100"`
	PassingPercentage *float64              `json:"passing_percentage" binding:"omitempty,min=0,max=100"`
	Questions         []grading.RawQuestion `json:"questions" binding:"omitempty,dive"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing questions.
type ReplaceQuestionsRequest struct {
	Questions []grading.RawQuestion `json:"questions" binding:"required,min=1,dive"`
}

// ListExamsQuery holds paging parameters for exam listings.
type ListExamsQuery struct {
	Page    int        `form:"page" binding:"omitempty,min=1"`
	PerPage int        `form:"per_page" binding:"omitempty,min=1,max=100"`
	Status  ExamStatus `form:"status" binding:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

// AnswerSheet is the cached grading view of a published exam: the exam
// header plus every normalized question, correct answers included.
type AnswerSheet struct {
	ExamID    uuid.UUID          `json:"exam_id"`
	Title     string             `json:"title"`
	Threshold float64            `json:"threshold"`
	Questions []grading.Question `json:"questions"`
}

// ExamPaper is the cached payload sent to quiz takers (no correct answers).
type ExamPaper struct {
	ExamID          uuid.UUID       `json:"exam_id"`
	Title           string          `json:"title"`
	DurationSeconds int             `json:"duration_seconds"`
	Threshold       float64         `json:"passing_threshold"`
	Questions       []PaperQuestion `json:"questions"`
}

// PaperQuestion is a question without its correct answer. Prompt and option
// texts are shipped pre-tokenized so clients only render segments.
type PaperQuestion struct {
	ID       string           `json:"id"`
	Index    int              `json:"index"`
	Format   grading.Format   `json:"format"`
	Prompt   string           `json:"prompt"`
	Segments []markup.Segment `json:"segments"`
	Options  []PaperOption    `json:"options,omitempty"`
	ImageURL string           `json:"image_url,omitempty"`
}

// PaperOption is one selectable choice. Value is what the client submits.
type PaperOption struct {
	Label    string           `json:"label"`
	Value    string           `json:"value"`
	Segments []markup.Segment `json:"segments"`
}

// NewExamPaper builds the student-facing paper from an answer sheet.
func NewExamPaper(exam *Exam, sheet *AnswerSheet) *ExamPaper {
	paper := &ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationSeconds: exam.DurationSeconds,
		Threshold:       sheet.Threshold,
		Questions:       make([]PaperQuestion, len(sheet.Questions)),
	}
	for i, q := range sheet.Questions {
		pq := PaperQuestion{
			ID:       q.ID,
			Index:    i,
			Format:   q.Format,
			Prompt:   q.Prompt,
			Segments: markup.Tokenize(q.Prompt),
			ImageURL: q.ImageURL,
		}
		for _, opt := range q.Options {
			pq.Options = append(pq.Options, PaperOption{
				Label:    opt.Label,
				Value:    opt.Text,
				Segments: markup.Tokenize(opt.Text),
			})
		}
		paper.Questions[i] = pq
	}
	return paper
}
