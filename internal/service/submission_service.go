package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/grading"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ErrInvalidAnswerIndex is returned for autosaves that address no question.
var ErrInvalidAnswerIndex = errors.New("invalid answer index")

// AnswerSheetSource resolves the grading view of a published exam.
type AnswerSheetSource interface {
	GetAnswerSheet(ctx context.Context, examID uuid.UUID) (*model.AnswerSheet, error)
}

// SubmissionQueue is the Redis side of a submission.
type SubmissionQueue interface {
	EnqueueReport(ctx context.Context, rep *model.Report) error
	PublishEvent(ctx context.Context, examID uuid.UUID, event interface{}) error
	SaveDraftAnswer(ctx context.Context, a *model.DraftAnswer) error
	DraftAnswers(ctx context.Context, examID, userID string) (map[int]string, error)
	ClearDrafts(ctx context.Context, refs ...model.DraftRef) error
}

// ReportWriter persists a report synchronously when the queue is unavailable.
type ReportWriter interface {
	Create(ctx context.Context, rep *model.Report) error
}

// DraftReader is the durable copy of autosaved answers.
type DraftReader interface {
	GetForUser(ctx context.Context, examID uuid.UUID, userID string) (map[int]string, error)
}

// SubmissionService grades submitted answers and hands reports to the
// persistence queue.
type SubmissionService struct {
	sheets           AnswerSheetSource
	queue            SubmissionQueue
	reports          ReportWriter
	drafts           DraftReader
	pointsPerCorrect int
	log              zerolog.Logger
	now              func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	sheets AnswerSheetSource,
	queue SubmissionQueue,
	reports ReportWriter,
	drafts DraftReader,
	pointsPerCorrect int,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		sheets:           sheets,
		queue:            queue,
		reports:          reports,
		drafts:           drafts,
		pointsPerCorrect: pointsPerCorrect,
		log:              log.With().Str("component", "submission_service").Logger(),
		now:              time.Now,
	}
}

// Submit grades answers against the exam's answer sheet. The report is
// queued for persistence; if Redis refuses it, it is written directly.
func (s *SubmissionService) Submit(ctx context.Context, examID uuid.UUID, req *model.SubmitRequest) (*model.SubmitResult, error) {
	sheet, err := s.sheets.GetAnswerSheet(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, examID, sheet, req)
}

func (s *SubmissionService) submit(ctx context.Context, examID uuid.UUID, sheet *model.AnswerSheet, req *model.SubmitRequest) (*model.SubmitResult, error) {
	graded := grading.Grade(sheet.Questions, req.Answers, sheet.Threshold)

	rep := &model.Report{
		ID:        uuid.New(),
		ExamID:    examID,
		UserID:    strings.TrimSpace(req.UserID),
		Result:    model.NewReportResult(graded, sheet.Threshold, req.TimeTaken),
		CreatedAt: s.now().UTC(),
	}

	if err := s.queue.EnqueueReport(ctx, rep); err != nil {
		s.log.Warn().Err(err).Str("report_id", rep.ID.String()).Msg("Enqueue failed, persisting directly")
		if err := s.reports.Create(ctx, rep); err != nil {
			return nil, fmt.Errorf("persist report: %w", err)
		}
	}

	event := model.SubmissionEvent{
		Type:       "submitted",
		ReportID:   rep.ID,
		UserID:     rep.UserID,
		Percentage: rep.Result.Percentage,
		Verdict:    rep.Result.Verdict,
		At:         rep.CreatedAt,
	}
	if err := s.queue.PublishEvent(ctx, examID, event); err != nil {
		s.log.Warn().Err(err).Msg("Publish monitor event failed")
	}

	metrics.ObserveSubmission(rep.Result.Verdict, rep.Result.Percentage)

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("user_id", rep.UserID).
		Int("correct", rep.Result.CorrectAnswers).
		Int("total", rep.Result.TotalQuestions).
		Int("percentage", rep.Result.Percentage).
		Str("verdict", rep.Result.Verdict).
		Msg("Submission graded")

	return &model.SubmitResult{
		Report: rep,
		Points: rep.Result.CorrectAnswers * s.pointsPerCorrect,
	}, nil
}

// SaveDraft buffers one autosaved answer. The index must address a question
// of the published exam.
func (s *SubmissionService) SaveDraft(ctx context.Context, examID uuid.UUID, userID string, index int, answer string) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAnswerIndex, index)
	}
	sheet, err := s.sheets.GetAnswerSheet(ctx, examID)
	if err != nil {
		return err
	}
	if index >= len(sheet.Questions) {
		return fmt.Errorf("%w: %d of %d questions", ErrInvalidAnswerIndex, index, len(sheet.Questions))
	}
	return s.queue.SaveDraftAnswer(ctx, &model.DraftAnswer{
		ExamID: examID.String(),
		UserID: userID,
		Index:  index,
		Answer: answer,
	})
}

// LoadDraft returns the autosaved answers of a user, preferring the Redis
// buffer and falling back to PostgreSQL when the buffer is empty.
func (s *SubmissionService) LoadDraft(ctx context.Context, examID uuid.UUID, userID string) (*model.Draft, error) {
	answers, err := s.queue.DraftAnswers(ctx, examID.String(), userID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Draft buffer unavailable, reading from database")
	}

	if len(answers) == 0 {
		answers, err = s.drafts.GetForUser(ctx, examID, userID)
		if err != nil {
			return nil, fmt.Errorf("load drafts: %w", err)
		}
	}

	return &model.Draft{ExamID: examID.String(), UserID: userID, Answers: answers}, nil
}

// SubmitDraft grades whatever the user has autosaved so far.
func (s *SubmissionService) SubmitDraft(ctx context.Context, examID uuid.UUID, userID string, timeTaken int) (*model.SubmitResult, error) {
	sheet, err := s.sheets.GetAnswerSheet(ctx, examID)
	if err != nil {
		return nil, err
	}

	draft, err := s.LoadDraft(ctx, examID, userID)
	if err != nil {
		return nil, err
	}

	return s.submit(ctx, examID, sheet, &model.SubmitRequest{
		UserID:    userID,
		Answers:   draft.AnswerList(len(sheet.Questions)),
		TimeTaken: timeTaken,
	})
}
