package model

import (
	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/grading"
)

// StoredQuestion is a question row. The answer_type and correct_option
// columns hold values written by older exam editors and are kept as-is.
type StoredQuestion struct {
	ID            uuid.UUID       `json:"id"`
	ExamID        uuid.UUID       `json:"exam_id"`
	ExternalID    string          `json:"external_id"`
	Prompt        string          `json:"prompt"`
	QuestionType  string          `json:"question_type"`
	AnswerType    string          `json:"answer_type"`
	Options       grading.Options `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	CorrectOption string          `json:"correct_option"`
	ImageURL      string          `json:"image_url"`
	OrderNum      int             `json:"order_num"`
}

// Raw returns the row in the shape grading.Normalize accepts. A question
// without an external id is identified by its row id.
func (q *StoredQuestion) Raw() grading.RawQuestion {
	id := q.ExternalID
	if id == "" {
		id = q.ID.String()
	}
	return grading.RawQuestion{
		ID:            grading.Scalar(id),
		Prompt:        q.Prompt,
		Type:          q.QuestionType,
		AnswerType:    q.AnswerType,
		Options:       q.Options,
		CorrectAnswer: grading.Scalar(q.CorrectAnswer),
		CorrectOption: grading.Scalar(q.CorrectOption),
		ImageURL:      q.ImageURL,
	}
}

// NewStoredQuestion captures an authored question for storage. The raw
// type strings are stored untouched so legacy values survive a round trip.
func NewStoredQuestion(examID uuid.UUID, order int, raw grading.RawQuestion) StoredQuestion {
	q := grading.Normalize(raw)
	return StoredQuestion{
		ExamID:        examID,
		ExternalID:    q.ID,
		Prompt:        q.Prompt,
		QuestionType:  raw.Type,
		AnswerType:    raw.AnswerType,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		CorrectOption: q.CorrectOption,
		ImageURL:      q.ImageURL,
		OrderNum:      order,
	}
}
