package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

type draftStore interface {
	Upsert(ctx context.Context, a *model.DraftAnswer) error
}

// DraftWorker consumes persist_drafts_queue and UPSERTs answers to PostgreSQL.
type DraftWorker struct {
	rdb        *redis.Client
	drafts     draftStore
	log        zerolog.Logger
	retryDelay time.Duration
}

// NewDraftWorker creates a new DraftWorker.
func NewDraftWorker(rdb *redis.Client, drafts *repository.DraftRepository, log zerolog.Logger) *DraftWorker {
	return &DraftWorker{
		rdb:        rdb,
		drafts:     drafts,
		log:        log.With().Str("component", "draft_worker").Logger(),
		retryDelay: 5 * time.Second,
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *DraftWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *DraftWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistDraftsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	if !w.persist(ctx, result[1]) {
		return
	}

	w.rdb.RPush(ctx, config.WorkerKey.PersistDraftsQueue, result[1])
	metrics.QueueRequeued.WithLabelValues(config.WorkerKey.PersistDraftsQueue).Inc()

	select {
	case <-ctx.Done():
	case <-time.After(w.retryDelay):
	}
}

// persist stores one queued payload and reports whether it should be retried.
// Payloads that can never be stored are logged and dropped.
func (w *DraftWorker) persist(ctx context.Context, raw string) (retry bool) {
	var payload model.DraftAnswer
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, dropping payload")
		return false
	}

	err := w.drafts.Upsert(ctx, &payload)
	switch {
	case err == nil:
		return false
	case errors.Is(err, repository.ErrInvalidDraft):
		w.log.Error().Err(err).
			Str("user_id", payload.UserID).
			Str("exam_id", payload.ExamID).
			Int("index", payload.Index).
			Msg("Draft rejected, dropping payload")
		return false
	default:
		w.log.Error().Err(err).
			Str("user_id", payload.UserID).
			Str("exam_id", payload.ExamID).
			Msg("Persist error, retrying later")
		return true
	}
}

// drain processes all remaining items in the queue before shutdown.
func (w *DraftWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistDraftsQueue).Result()
		if err != nil {
			break
		}

		if w.persist(ctx, result) {
			w.rdb.RPush(ctx, config.WorkerKey.PersistDraftsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
