package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/service"
	ws "github.com/stemsi/exstem-quiz/internal/websocket"
)

func newStreamServer(t *testing.T, f *quizFixture, origins []string) *httptest.Server {
	t.Helper()

	submissions := service.NewSubmissionService(f.exams, f.queue, f.writer, f.drafts, 10, zerolog.Nop())
	h := NewWSHandler(f.exams, submissions, zerolog.Nop(), origins)

	r := gin.New()
	r.GET("/ws/v1/exams/:id/stream", h.ExamWebSocketStream)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func streamURL(srv *httptest.Server, examID, userID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/exams/" + examID + "/stream?user_id=" + userID
}

func TestExamStreamAutosaveAndSubmit(t *testing.T) {
	f := newQuizFixture()
	srv := newStreamServer(t, f, nil)

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, f.exam.ID.String(), "alice"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	for i, ans := range []string{"Paris", "2"} {
		idx := i
		if err := conn.WriteJSON(ws.RequestPayload{Action: ws.ActionAutosave, Index: &idx, Answer: ans}); err != nil {
			t.Fatalf("write autosave: %v", err)
		}
		var ack ws.AutosaveResponse
		if err := conn.ReadJSON(&ack); err != nil {
			t.Fatalf("read ack: %v", err)
		}
		if ack.Event != ws.EventSuccess || ack.Index != idx {
			t.Fatalf("unexpected ack %+v", ack)
		}
	}

	if err := conn.WriteJSON(ws.RequestPayload{Action: ws.ActionPing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var pong ws.PongResponse
	if err := conn.ReadJSON(&pong); err != nil || pong.Event != ws.EventPong {
		t.Fatalf("expected pong, got %+v (%v)", pong, err)
	}

	if err := conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit, TimeTaken: 90}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	var graded ws.GradedResponse
	if err := conn.ReadJSON(&graded); err != nil {
		t.Fatalf("read graded: %v", err)
	}
	if graded.Event != ws.EventGraded || graded.CorrectAnswers != 2 || graded.Percentage != 100 {
		t.Fatalf("unexpected graded event %+v", graded)
	}
	if graded.Verdict != "Pass" || graded.Points != 20 {
		t.Fatalf("unexpected verdict/points %+v", graded)
	}
	if _, err := uuid.Parse(graded.ReportID); err != nil {
		t.Fatalf("report id %q: %v", graded.ReportID, err)
	}

	if queued := f.queue.queued(); len(queued) != 1 || queued[0].Result.TimeTaken != 90 {
		t.Fatalf("report not queued: %+v", queued)
	}
}

func TestExamStreamRejectsBadMessages(t *testing.T) {
	f := newQuizFixture()
	srv := newStreamServer(t, f, nil)

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, f.exam.ID.String(), "alice"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	negative, pastEnd, huge := -1, 2, 1<<40
	messages := []ws.RequestPayload{
		{Action: ws.ActionAutosave},
		{Action: ws.ActionAutosave, Index: &negative, Answer: "x"},
		{Action: ws.ActionAutosave, Index: &pastEnd, Answer: "x"},
		{Action: ws.ActionAutosave, Index: &huge, Answer: "x"},
		{Action: "teleport"},
	}
	for _, msg := range messages {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp ws.ErrorResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if resp.Event != ws.EventError || resp.Error == "" {
			t.Fatalf("expected error event for %+v, got %+v", msg, resp)
		}
	}
	if n := f.queue.draftCount(); n != 0 {
		t.Fatalf("rejected autosaves were stored: %d", n)
	}
}

func TestExamStreamRefusesBeforeUpgrade(t *testing.T) {
	f := newQuizFixture()
	srv := newStreamServer(t, f, []string{"https://quiz.example.com"})

	tests := []struct {
		name   string
		url    string
		header http.Header
		status int
	}{
		{name: "unknown exam", url: streamURL(srv, uuid.NewString(), "alice"), status: http.StatusNotFound},
		{name: "missing user", url: streamURL(srv, f.exam.ID.String(), ""), status: http.StatusBadRequest},
		{
			name:   "foreign origin",
			url:    streamURL(srv, f.exam.ID.String(), "alice"),
			header: http.Header{"Origin": []string{"https://evil.example.com"}},
			status: http.StatusForbidden,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tc.url, tc.header)
			if err == nil {
				conn.Close()
				t.Fatal("expected handshake to fail")
			}
			if resp == nil || resp.StatusCode != tc.status {
				t.Fatalf("expected status %d, got %+v", tc.status, resp)
			}
		})
	}
}
