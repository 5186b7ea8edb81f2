package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-quiz/internal/markup"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

func TestGetExamPaper(t *testing.T) {
	f := newQuizFixture()

	w, env := doJSON(t, f.router, http.MethodGet, "/api/v1/exams/"+f.exam.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var data struct {
		Exam model.ExamPaper `json:"exam"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(data.Exam.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(data.Exam.Questions))
	}
	first := data.Exam.Questions[0]
	if len(first.Segments) != 3 || first.Segments[1].Kind != markup.KindBold {
		t.Fatalf("prompt not tokenized: %+v", first.Segments)
	}
	if first.Options[0].Value != "Paris" {
		t.Fatalf("expected option values to be texts, got %+v", first.Options)
	}
	if strings.Contains(w.Body.String(), `"correct_answer"`) {
		t.Fatalf("paper leaks correct answers: %s", w.Body.String())
	}
}

func TestGetExamPaperErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   response.ErrCode
	}{
		{name: "malformed id", path: "/api/v1/exams/not-a-uuid", status: http.StatusBadRequest, code: response.ErrInvalidID},
		{name: "unknown exam", path: "/api/v1/exams/" + uuid.NewString(), status: http.StatusNotFound, code: response.ErrExamNotFound},
		{name: "not published", err: service.ErrExamNotPublished, status: http.StatusConflict, code: response.ErrExamNotPublished},
		{name: "backend failure", err: errBoom, status: http.StatusInternalServerError, code: response.ErrInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newQuizFixture()
			f.exams.err = tc.err
			path := tc.path
			if path == "" {
				path = "/api/v1/exams/" + f.exam.ID.String()
			}

			w, env := doJSON(t, f.router, http.MethodGet, path, nil)
			expectError(t, w, env, tc.status, tc.code)
		})
	}
}

func TestSubmitExam(t *testing.T) {
	f := newQuizFixture()

	w, env := doJSON(t, f.router, http.MethodPost, "/api/v1/exams/"+f.exam.ID.String()+"/submit", map[string]interface{}{
		"userId":    "alice",
		"answers":   []string{"Paris", " 3 "},
		"timeTaken": 42,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var result model.SubmitResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}

	res := result.Report.Result
	if res.CorrectAnswers != 1 || res.WrongAnswers != 1 || res.Percentage != 50 {
		t.Fatalf("unexpected score: %+v", res)
	}
	if res.Verdict != "Pass" || !res.Passed {
		t.Fatalf("50%% against a 50 threshold should pass, got %+v", res)
	}
	if res.TimeTaken != 42 || result.Points != 10 {
		t.Fatalf("unexpected time/points: %d/%d", res.TimeTaken, result.Points)
	}
	if res.Details[1].UserAnswer != "3" || res.Details[1].CorrectAnswer != "2" {
		t.Fatalf("unexpected detail: %+v", res.Details[1])
	}

	if len(f.queue.reports) != 1 || f.queue.reports[0].UserID != "alice" {
		t.Fatalf("report not queued: %+v", f.queue.reports)
	}
	if len(f.queue.events) != 1 {
		t.Fatalf("expected one monitor event, got %d", len(f.queue.events))
	}
	if len(f.writer.created) != 0 {
		t.Fatal("direct write should only happen when the queue fails")
	}
}

func TestSubmitExamFallsBackToDirectWrite(t *testing.T) {
	f := newQuizFixture()
	f.queue.enqueueErr = errors.New("redis down")

	w, _ := doJSON(t, f.router, http.MethodPost, "/api/v1/exams/"+f.exam.ID.String()+"/submit", map[string]interface{}{
		"userId":  "bob",
		"answers": []string{},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.writer.created) != 1 {
		t.Fatalf("expected direct write, got %d", len(f.writer.created))
	}
	if got := f.writer.created[0].Result; got.CorrectAnswers != 0 || got.Verdict != "Fail" {
		t.Fatalf("blank submission should fail, got %+v", got)
	}
}

func TestSubmitExamValidation(t *testing.T) {
	f := newQuizFixture()

	w, env := doJSON(t, f.router, http.MethodPost, "/api/v1/exams/"+f.exam.ID.String()+"/submit", map[string]interface{}{
		"answers":   []string{"Paris"},
		"timeTaken": -1,
	})
	expectError(t, w, env, http.StatusBadRequest, response.ErrValidation)
	if _, ok := env.Error.Fields["userId"]; !ok {
		t.Fatalf("expected userId field error, got %+v", env.Error.Fields)
	}
	if _, ok := env.Error.Fields["timeTaken"]; !ok {
		t.Fatalf("expected timeTaken field error, got %+v", env.Error.Fields)
	}
	if len(f.queue.reports) != 0 {
		t.Fatal("invalid submissions must not be graded")
	}
}

func TestGetDraft(t *testing.T) {
	f := newQuizFixture()
	base := "/api/v1/exams/" + f.exam.ID.String() + "/draft"

	w, env := doJSON(t, f.router, http.MethodGet, base, nil)
	expectError(t, w, env, http.StatusBadRequest, response.ErrValidation)

	f.drafts.answers = map[int]string{1: "2"}
	w, env = doJSON(t, f.router, http.MethodGet, base+"?user_id=alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data struct {
		Draft model.Draft `json:"draft"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Draft.Answers[1] != "2" || data.Draft.UserID != "alice" {
		t.Fatalf("unexpected draft: %+v", data.Draft)
	}
}

func TestGetReport(t *testing.T) {
	f := newQuizFixture()
	rep := &model.Report{ID: uuid.New(), ExamID: f.exam.ID, UserID: "alice", CreatedAt: time.Now().UTC()}
	f.reports.byID[rep.ID] = rep

	w, env := doJSON(t, f.router, http.MethodGet, "/api/v1/reports/"+rep.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data struct {
		Report model.Report `json:"report"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Report.ID != rep.ID {
		t.Fatalf("unexpected report %s", data.Report.ID)
	}

	w, env = doJSON(t, f.router, http.MethodGet, "/api/v1/reports/"+uuid.NewString(), nil)
	expectError(t, w, env, http.StatusNotFound, response.ErrReportNotFound)
}

func TestListUserReports(t *testing.T) {
	f := newQuizFixture()
	f.reports.summaries = []model.ReportSummary{
		{ID: uuid.New(), UserID: "alice", Percentage: 80},
		{ID: uuid.New(), UserID: "bob", Percentage: 20},
	}

	w, env := doJSON(t, f.router, http.MethodGet, "/api/v1/users/alice/reports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var data struct {
		Reports []model.ReportSummary `json:"reports"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Reports) != 1 || data.Reports[0].UserID != "alice" {
		t.Fatalf("unexpected reports %+v", data.Reports)
	}
}
