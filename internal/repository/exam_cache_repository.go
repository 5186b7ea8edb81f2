package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ExamCacheRepository keeps the prepared views of published exams in Redis.
// Misses are reported as redis.Nil.
type ExamCacheRepository struct {
	rdb *redis.Client
}

// NewExamCacheRepository creates a new ExamCacheRepository.
func NewExamCacheRepository(rdb *redis.Client) *ExamCacheRepository {
	return &ExamCacheRepository{rdb: rdb}
}

// Put stores both views of an exam in one pipeline.
func (r *ExamCacheRepository) Put(ctx context.Context, paper *model.ExamPaper, sheet *model.AnswerSheet) error {
	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	sheetJSON, err := json.Marshal(sheet)
	if err != nil {
		return fmt.Errorf("marshal answer sheet: %w", err)
	}

	id := paper.ExamID.String()
	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPaperKey(id), paperJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamAnswerSheetKey(id), sheetJSON, 0)
	_, err = pipe.Exec(ctx)
	return err
}

// Paper returns the cached student-facing paper.
func (r *ExamCacheRepository) Paper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	var paper model.ExamPaper
	if err := r.get(ctx, config.CacheKey.ExamPaperKey(examID.String()), &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

// AnswerSheet returns the cached grading view.
func (r *ExamCacheRepository) AnswerSheet(ctx context.Context, examID uuid.UUID) (*model.AnswerSheet, error) {
	var sheet model.AnswerSheet
	if err := r.get(ctx, config.CacheKey.ExamAnswerSheetKey(examID.String()), &sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

// Evict drops both views, e.g. when an exam is archived.
func (r *ExamCacheRepository) Evict(ctx context.Context, examID uuid.UUID) error {
	id := examID.String()
	return r.rdb.Del(ctx, config.CacheKey.ExamPaperKey(id), config.CacheKey.ExamAnswerSheetKey(id)).Err()
}

func (r *ExamCacheRepository) get(ctx context.Context, key string, dst interface{}) error {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
