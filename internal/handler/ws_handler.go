package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/metrics"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	ws "github.com/stemsi/exstem-quiz/internal/websocket"
)

const (
	maxAnswerBytes = 4096
	wsOpTimeout    = 5 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles WebSocket exam streaming.
type WSHandler struct {
	papers      PaperSource
	submissions Submitter
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(papers PaperSource, submissions Submitter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		papers:      papers,
		submissions: submissions,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/exams/:id/stream?user_id=
// Upgrades to WebSocket for autosave and instant grading.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" || len(userID) > 128 {
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
		return
	}

	// Refuse before upgrading so the client gets a normal HTTP error.
	if _, err := h.papers.GetPaper(c.Request.Context(), examID); err != nil {
		failService(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()

	wsLog := h.log.With().
		Str("user_id", userID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("User connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, examID, userID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, examID, userID, &msg)
		case ws.ActionPing:
			ws.WritePong(conn)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave buffers a single answer and queues it for persistence.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, userID string, msg *ws.RequestPayload) {
	if msg.Index == nil || *msg.Index < 0 {
		ws.WriteError(conn, "index is required")
		return
	}
	if len(msg.Answer) > maxAnswerBytes {
		ws.WriteError(conn, "answer too long")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	if err := h.submissions.SaveDraft(ctx, examID, userID, *msg.Index, msg.Answer); err != nil {
		if errors.Is(err, service.ErrInvalidAnswerIndex) {
			wsLog.Warn().Int("index", *msg.Index).Msg("Autosave index out of range")
			ws.WriteError(conn, "index out of range")
			return
		}
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved", Index: *msg.Index})
}

// handleSubmit grades the autosaved answers and queues the report.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, userID string, msg *ws.RequestPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	result, err := h.submissions.SubmitDraft(ctx, examID, userID, msg.TimeTaken)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "grading failed")
		return
	}

	res := result.Report.Result
	ws.WriteTyped(conn, ws.GradedResponse{
		Event:          ws.EventGraded,
		Status:         "completed",
		ReportID:       result.Report.ID.String(),
		CorrectAnswers: res.CorrectAnswers,
		TotalQuestions: res.TotalQuestions,
		Percentage:     res.Percentage,
		Verdict:        res.Verdict,
		Points:         result.Points,
	})
}
