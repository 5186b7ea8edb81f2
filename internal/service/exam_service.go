package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/grading"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// Domain Errors
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrNoQuestions      = errors.New("exam has no questions")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
	ErrExamArchived     = errors.New("exam is archived")
)

// ExamStore is the exam persistence the service needs.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListPaginated(ctx context.Context, status model.ExamStatus, limit, offset int) ([]model.Exam, int, error)
	ListPublished(ctx context.Context) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error
}

// QuestionStore is the question persistence the service needs.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.StoredQuestion, error)
	ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.StoredQuestion) error
}

// ExamCache holds the prepared views of published exams. Misses are redis.Nil.
type ExamCache interface {
	Put(ctx context.Context, paper *model.ExamPaper, sheet *model.AnswerSheet) error
	Paper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
	AnswerSheet(ctx context.Context, examID uuid.UUID) (*model.AnswerSheet, error)
	Evict(ctx context.Context, examID uuid.UUID) error
}

// ExamService handles exam business logic and Redis caching.
type ExamService struct {
	examRepo         ExamStore
	questionRepo     QuestionStore
	cache            ExamCache
	defaultThreshold float64
	log              zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo ExamStore,
	questionRepo QuestionStore,
	cache ExamCache,
	defaultThreshold float64,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:         examRepo,
		questionRepo:     questionRepo,
		cache:            cache,
		defaultThreshold: grading.ResolveThreshold(defaultThreshold, grading.DefaultPassingThreshold),
		log:              log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// List retrieves exams page by page, optionally filtered by status.
func (s *ExamService) List(ctx context.Context, q model.ListExamsQuery) ([]model.Exam, *response.Pagination, error) {
	page, perPage := normalizePage(q.Page, q.PerPage)

	exams, total, err := s.examRepo.ListPaginated(ctx, q.Status, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list exams: %w", err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	return exams, response.NewPagination(page, perPage, total), nil
}

// Create inserts a new exam as DRAFT together with its initial questions.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:             req.Title,
		DurationSeconds:   req.DurationSeconds,
		PassingMarks:      req.PassingMarks,
		PassingPercentage: req.PassingPercentage,
		Status:            model.ExamStatusDraft,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	if len(req.Questions) > 0 {
		if err := s.questionRepo.ReplaceForExam(ctx, exam.ID, storedQuestions(exam.ID, req.Questions)); err != nil {
			return nil, fmt.Errorf("store questions: %w", err)
		}
		exam.QuestionCount = len(req.Questions)
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Int("questions", exam.QuestionCount).Msg("Exam created")
	return exam, nil
}

// ReplaceQuestions swaps the question set of an exam. A published exam has
// its cache rebuilt so new submissions are graded against the new set.
func (s *ExamService) ReplaceQuestions(ctx context.Context, examID uuid.UUID, raws []grading.RawQuestion) (*model.Exam, error) {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status == model.ExamStatusArchived {
		return nil, ErrExamArchived
	}

	if err := s.questionRepo.ReplaceForExam(ctx, examID, storedQuestions(examID, raws)); err != nil {
		return nil, fmt.Errorf("replace questions: %w", err)
	}
	exam.QuestionCount = len(raws)

	if exam.Status == model.ExamStatusPublished {
		if err := s.WarmExamCache(ctx, exam); err != nil {
			return nil, err
		}
	}
	return exam, nil
}

// Publish changes exam status to PUBLISHED and caches the paper + answer sheet in Redis.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// Archive closes an exam for submissions and drops its cached views. The
// cached answer sheet is what submissions grade against, so a failed evict
// is returned; archiving again retries it.
func (s *ExamService) Archive(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return err
	}

	if exam.Status != model.ExamStatusArchived {
		if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusArchived); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		s.log.Info().Str("exam_id", examID.String()).Msg("Exam archived")
	}

	// Status first: a cache miss after this point cannot re-warm the exam.
	if err := s.cache.Evict(ctx, examID); err != nil {
		return fmt.Errorf("evict exam cache: %w", err)
	}
	return nil
}

// RefreshCache re-caches the views of a published exam.
func (s *ExamService) RefreshCache(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Cache refreshed")
	return nil
}

// WarmExamCache loads an exam's questions from PostgreSQL into Redis.
// This is the core cache-warming logic used by Publish, RefreshCache, and PrewarmAllCaches.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	paper, sheet, err := s.buildViews(ctx, exam)
	if err != nil {
		return err
	}

	if err := s.cache.Put(ctx, paper, sheet); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(sheet.Questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published exams into Redis on application startup.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}

	if len(exams) == 0 {
		s.log.Info().Msg("No published exams to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(exams)).Msg("Prewarming published exams...")

	warmed := 0
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
	return nil
}

// GetPaper returns the student-facing paper of a published exam. A cache
// miss falls back to PostgreSQL and re-populates Redis.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	paper, err := s.cache.Paper(ctx, examID)
	if err == nil {
		return paper, nil
	}
	s.logCacheMiss(err, examID)

	paper, _, err = s.loadPublished(ctx, examID)
	return paper, err
}

// GetAnswerSheet returns the grading view of a published exam, with the
// same fallback as GetPaper.
func (s *ExamService) GetAnswerSheet(ctx context.Context, examID uuid.UUID) (*model.AnswerSheet, error) {
	sheet, err := s.cache.AnswerSheet(ctx, examID)
	if err == nil {
		return sheet, nil
	}
	s.logCacheMiss(err, examID)

	_, sheet, err = s.loadPublished(ctx, examID)
	return sheet, err
}

func (s *ExamService) logCacheMiss(err error, examID uuid.UUID) {
	if errors.Is(err, redis.Nil) {
		s.log.Debug().Str("exam_id", examID.String()).Msg("Exam cache miss")
		return
	}
	s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Exam cache unavailable, reading from database")
}

// loadPublished rebuilds both views from PostgreSQL and self-heals the cache.
func (s *ExamService) loadPublished(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, *model.AnswerSheet, error) {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, nil, err
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, nil, ErrExamNotPublished
	}

	paper, sheet, err := s.buildViews(ctx, exam)
	if err != nil {
		return nil, nil, err
	}

	if err := s.cache.Put(ctx, paper, sheet); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to re-cache exam")
	}
	return paper, sheet, nil
}

func (s *ExamService) buildViews(ctx context.Context, exam *model.Exam) (*model.ExamPaper, *model.AnswerSheet, error) {
	stored, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list questions: %w", err)
	}
	if len(stored) == 0 {
		return nil, nil, ErrNoQuestions
	}

	raws := make([]grading.RawQuestion, len(stored))
	for i := range stored {
		raws[i] = stored[i].Raw()
	}

	sheet := &model.AnswerSheet{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Threshold: exam.PassingThreshold(s.defaultThreshold),
		Questions: grading.NormalizeAll(raws),
	}
	return model.NewExamPaper(exam, sheet), sheet, nil
}

func storedQuestions(examID uuid.UUID, raws []grading.RawQuestion) []model.StoredQuestion {
	out := make([]model.StoredQuestion, len(raws))
	for i, raw := range raws {
		out[i] = model.NewStoredQuestion(examID, i, raw)
	}
	return out
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
