package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// SubmissionQueueRepository is the Redis side of the submission path: the
// autosave buffer, the persistence queues and the monitor channel.
type SubmissionQueueRepository struct {
	rdb      *redis.Client
	draftTTL time.Duration
}

// NewSubmissionQueueRepository creates a new SubmissionQueueRepository.
func NewSubmissionQueueRepository(rdb *redis.Client, draftTTL time.Duration) *SubmissionQueueRepository {
	return &SubmissionQueueRepository{rdb: rdb, draftTTL: draftTTL}
}

// EnqueueReport pushes a graded report onto the persistence queue.
func (r *SubmissionQueueRepository) EnqueueReport(ctx context.Context, rep *model.Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return r.rdb.RPush(ctx, config.WorkerKey.PersistReportsQueue, raw).Err()
}

// PublishEvent sends a monitor event to everyone watching the exam.
func (r *SubmissionQueueRepository) PublishEvent(ctx context.Context, examID uuid.UUID, event interface{}) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), raw).Err()
}

// SaveDraftAnswer buffers one autosaved answer and queues it for the database.
func (r *SubmissionQueueRepository) SaveDraftAnswer(ctx context.Context, a *model.DraftAnswer) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}

	key := config.CacheKey.DraftAnswersKey(a.ExamID, a.UserID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(a.Index), a.Answer)
	if r.draftTTL > 0 {
		pipe.Expire(ctx, key, r.draftTTL)
	}
	pipe.RPush(ctx, config.WorkerKey.PersistDraftsQueue, raw)
	_, err = pipe.Exec(ctx)
	return err
}

// DraftAnswers returns the buffered answers keyed by question index.
// Fields that are not indexes are ignored.
func (r *SubmissionQueueRepository) DraftAnswers(ctx context.Context, examID, userID string) (map[int]string, error) {
	fields, err := r.rdb.HGetAll(ctx, config.CacheKey.DraftAnswersKey(examID, userID)).Result()
	if err != nil {
		return nil, err
	}

	answers := make(map[int]string, len(fields))
	for k, v := range fields {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			continue
		}
		answers[idx] = v
	}
	return answers, nil
}

// ClearDrafts removes the buffered answers of the given users.
func (r *SubmissionQueueRepository) ClearDrafts(ctx context.Context, refs ...model.DraftRef) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = config.CacheKey.DraftAnswersKey(ref.ExamID, ref.UserID)
	}
	return r.rdb.Del(ctx, keys...).Err()
}
