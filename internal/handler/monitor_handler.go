package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
	snapshotSize      = 50
)

type MonitorHandler struct {
	rdb     *redis.Client
	exams   ExamManager
	reports ReportReader
	log     zerolog.Logger
}

func NewMonitorHandler(rdb *redis.Client, exams ExamManager, reports ReportReader, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:     rdb,
		exams:   exams,
		reports: reports,
		log:     log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:id/monitor
// Streams a snapshot of the exam's results, then every new submission.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	exam, err := h.exams.GetByID(reqCtx, examID)
	if err != nil {
		failService(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, exam)

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(examID.String()))
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Stats only change when someone submits.
	dirty := false

	h.log.Info().Str("exam_id", examID.String()).Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, open := <-ch:
			if !open {
				return
			}
			// Payloads are already JSON; forward them untouched.
			writeSSEData(c, []byte(msg.Payload))
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			h.sendRefresh(c, reqCtx, examID)
			dirty = false

		case <-keepAliveTicker.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func writeSSEData(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}

// sendSnapshot writes the first SSE event: exam header, stats and the most
// recent reports.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context, exam *model.Exam) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	stats, err := h.reports.Stats(fetchCtx, exam.ID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch stats for snapshot")
		stats = &model.ExamStats{}
	}

	recent, _, err := h.reports.ListByExam(fetchCtx, exam.ID, model.ListReportsQuery{Page: 1, PerPage: snapshotSize})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch reports for snapshot")
		recent = []model.ReportSummary{}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"exam": map[string]interface{}{
				"id":               exam.ID.String(),
				"title":            exam.Title,
				"status":           exam.Status,
				"duration_seconds": exam.DurationSeconds,
				"total_questions":  exam.QuestionCount,
			},
			"stats":   stats,
			"reports": recent,
		},
	})
	c.Writer.Flush()
}

// sendRefresh re-reads the aggregate stats. Reports land through the worker
// queue, so the refresh trails the live events by a batch interval.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	stats, err := h.reports.Stats(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch stats for refresh")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":  "refresh",
		"stats": stats,
	})
	c.Writer.Flush()
}
