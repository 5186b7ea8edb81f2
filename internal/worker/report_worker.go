package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/repository"
)

const (
	ReportBatchSize    = 50
	ReportBatchTimeout = 2 * time.Second
	ReportPollTimeout  = 1 * time.Second
)

type reportStore interface {
	BulkCreate(ctx context.Context, reports []*model.Report) error
	Create(ctx context.Context, rep *model.Report) error
}

type draftCleaner interface {
	DeleteForUser(ctx context.Context, examID uuid.UUID, userID string) error
}

// reportBuffer is the Redis side: requeueing reports and dropping draft hashes.
type reportBuffer interface {
	EnqueueReport(ctx context.Context, rep *model.Report) error
	ClearDrafts(ctx context.Context, refs ...model.DraftRef) error
}

// ReportWorker consumes persist_reports_queue and writes reports in batches.
type ReportWorker struct {
	rdb     *redis.Client
	reports reportStore
	drafts  draftCleaner
	buffer  reportBuffer
	log     zerolog.Logger
}

func NewReportWorker(
	rdb *redis.Client,
	reports *repository.ReportRepository,
	drafts *repository.DraftRepository,
	buffer *repository.SubmissionQueueRepository,
	log zerolog.Logger,
) *ReportWorker {
	return &ReportWorker{
		rdb:     rdb,
		reports: reports,
		drafts:  drafts,
		buffer:  buffer,
		log:     log.With().Str("component", "report_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ReportWorker started")

	batch := make([]*model.Report, 0, ReportBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ReportBatchSize || time.Since(lastFlush) >= ReportBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			return

		default:
			item, err := w.rdb.BLPop(ctx, ReportPollTimeout, config.WorkerKey.PersistReportsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			rep, ok := w.decode(item[1])
			if !ok {
				continue
			}
			batch = append(batch, rep)
		}
	}
}

func (w *ReportWorker) decode(raw string) (*model.Report, bool) {
	var rep model.Report
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return nil, false
	}
	if rep.ID == uuid.Nil || rep.ExamID == uuid.Nil {
		w.log.Error().Msg("Report payload without ids, dropping")
		return nil, false
	}
	return &rep, true
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ReportWorker) flushSafe(ctx context.Context, batch []*model.Report) {
	if len(batch) == 0 {
		return
	}

	if err := w.reports.BulkCreate(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk report insert failed, using fallback")

		persisted := make([]*model.Report, 0, len(batch))
		for _, rep := range batch {
			if err := w.reports.Create(ctx, rep); err != nil {
				w.log.Error().Err(err).Str("report_id", rep.ID.String()).Msg("single insert failed, requeueing")
				w.requeue(ctx, rep)
				continue
			}
			persisted = append(persisted, rep)
		}
		metrics.ReportsPersisted.WithLabelValues("single").Add(float64(len(persisted)))
		w.clearDrafts(ctx, persisted)
		return
	}

	metrics.ReportsPersisted.WithLabelValues("bulk").Add(float64(len(batch)))
	w.clearDrafts(ctx, batch)
}

// requeue puts a report back for the next batch. When Redis refuses it too
// the report only survives in this log line.
func (w *ReportWorker) requeue(ctx context.Context, rep *model.Report) {
	if err := w.buffer.EnqueueReport(ctx, rep); err != nil {
		w.log.Error().Err(err).
			Str("report_id", rep.ID.String()).
			Str("exam_id", rep.ExamID.String()).
			Str("user_id", rep.UserID).
			Int("percentage", rep.Result.Percentage).
			Msg("Requeue failed, report lost")
		return
	}
	metrics.QueueRequeued.WithLabelValues(config.WorkerKey.PersistReportsQueue).Inc()
}

// clearDrafts removes autosave buffers once their report is stored.
func (w *ReportWorker) clearDrafts(ctx context.Context, reports []*model.Report) {
	if len(reports) == 0 {
		return
	}

	refs := make([]model.DraftRef, len(reports))
	for i, rep := range reports {
		refs[i] = model.DraftRef{ExamID: rep.ExamID.String(), UserID: rep.UserID}
		if err := w.drafts.DeleteForUser(ctx, rep.ExamID, rep.UserID); err != nil {
			w.log.Warn().Err(err).Str("report_id", rep.ID.String()).Msg("Failed to delete stored drafts")
		}
	}
	if err := w.buffer.ClearDrafts(ctx, refs...); err != nil {
		w.log.Warn().Err(err).Msg("Failed to clear draft buffers")
	}
}

// drain writes whatever is still queued once the loop has stopped. Only the
// items present at the start are taken, so requeued failures cannot spin.
func (w *ReportWorker) drain(ctx context.Context) {
	pending, err := w.rdb.LLen(ctx, config.WorkerKey.PersistReportsQueue).Result()
	if err != nil || pending == 0 {
		return
	}

	batch := make([]*model.Report, 0, ReportBatchSize)
	drained := 0

	for ; pending > 0; pending-- {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistReportsQueue).Result()
		if err != nil {
			break
		}
		if rep, ok := w.decode(raw); ok {
			batch = append(batch, rep)
			drained++
		}
		if len(batch) >= ReportBatchSize {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
		}
	}
	w.flushSafe(ctx, batch)

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining reports")
	}
}
