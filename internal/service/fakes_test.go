package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/stemsi/exstem-quiz/internal/model"
)

var errBoom = errors.New("boom")

// memExams is an in-memory ExamStore.
type memExams struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
}

func newMemExams(exams ...*model.Exam) *memExams {
	m := &memExams{exams: make(map[uuid.UUID]*model.Exam)}
	for _, e := range exams {
		m.exams[e.ID] = e
	}
	return m
}

func (m *memExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *memExams) ListPaginated(_ context.Context, status model.ExamStatus, limit, offset int) ([]model.Exam, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Exam
	for _, e := range m.exams {
		if status == "" || e.Status == status {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memExams) ListPublished(ctx context.Context) ([]model.Exam, error) {
	exams, _, err := m.ListPaginated(ctx, model.ExamStatusPublished, 1000, 0)
	return exams, err
}

func (m *memExams) Create(_ context.Context, e *model.Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	cp := *e
	m.exams[e.ID] = &cp
	return nil
}

func (m *memExams) UpdateStatus(_ context.Context, id uuid.UUID, status model.ExamStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return pgx.ErrNoRows
	}
	e.Status = status
	return nil
}

// memQuestions is an in-memory QuestionStore.
type memQuestions struct {
	byExam  map[uuid.UUID][]model.StoredQuestion
	listErr error
}

func (m *memQuestions) ListByExam(_ context.Context, examID uuid.UUID) ([]model.StoredQuestion, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.byExam[examID], nil
}

func (m *memQuestions) ReplaceForExam(_ context.Context, examID uuid.UUID, qs []model.StoredQuestion) error {
	if m.byExam == nil {
		m.byExam = make(map[uuid.UUID][]model.StoredQuestion)
	}
	m.byExam[examID] = qs
	return nil
}

// memCache is an in-memory ExamCache; misses are redis.Nil like the real one.
type memCache struct {
	papers    map[uuid.UUID]*model.ExamPaper
	sheets    map[uuid.UUID]*model.AnswerSheet
	puts      int
	failGet   error
	failEvict error
}

func newMemCache() *memCache {
	return &memCache{papers: map[uuid.UUID]*model.ExamPaper{}, sheets: map[uuid.UUID]*model.AnswerSheet{}}
}

func (c *memCache) Put(_ context.Context, paper *model.ExamPaper, sheet *model.AnswerSheet) error {
	c.puts++
	c.papers[paper.ExamID] = paper
	c.sheets[sheet.ExamID] = sheet
	return nil
}

func (c *memCache) Paper(_ context.Context, id uuid.UUID) (*model.ExamPaper, error) {
	if c.failGet != nil {
		return nil, c.failGet
	}
	if p, ok := c.papers[id]; ok {
		return p, nil
	}
	return nil, redis.Nil
}

func (c *memCache) AnswerSheet(_ context.Context, id uuid.UUID) (*model.AnswerSheet, error) {
	if c.failGet != nil {
		return nil, c.failGet
	}
	if s, ok := c.sheets[id]; ok {
		return s, nil
	}
	return nil, redis.Nil
}

func (c *memCache) Evict(_ context.Context, id uuid.UUID) error {
	if c.failEvict != nil {
		return c.failEvict
	}
	delete(c.papers, id)
	delete(c.sheets, id)
	return nil
}

// memQueue is an in-memory SubmissionQueue.
type memQueue struct {
	enqueueErr error
	draftErr   error
	reports    []*model.Report
	events     []interface{}
	drafts     map[string]map[int]string
}

func draftKey(examID, userID string) string { return examID + "/" + userID }

func (q *memQueue) EnqueueReport(_ context.Context, rep *model.Report) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.reports = append(q.reports, rep)
	return nil
}

func (q *memQueue) PublishEvent(_ context.Context, _ uuid.UUID, event interface{}) error {
	q.events = append(q.events, event)
	return nil
}

func (q *memQueue) SaveDraftAnswer(_ context.Context, a *model.DraftAnswer) error {
	if q.drafts == nil {
		q.drafts = make(map[string]map[int]string)
	}
	key := draftKey(a.ExamID, a.UserID)
	if q.drafts[key] == nil {
		q.drafts[key] = make(map[int]string)
	}
	q.drafts[key][a.Index] = a.Answer
	return nil
}

func (q *memQueue) DraftAnswers(_ context.Context, examID, userID string) (map[int]string, error) {
	if q.draftErr != nil {
		return nil, q.draftErr
	}
	return q.drafts[draftKey(examID, userID)], nil
}

func (q *memQueue) ClearDrafts(_ context.Context, refs ...model.DraftRef) error {
	for _, r := range refs {
		delete(q.drafts, draftKey(r.ExamID, r.UserID))
	}
	return nil
}

type memReportWriter struct {
	err     error
	created []*model.Report
}

func (w *memReportWriter) Create(_ context.Context, rep *model.Report) error {
	if w.err != nil {
		return w.err
	}
	w.created = append(w.created, rep)
	return nil
}

type memDrafts struct {
	answers map[int]string
	err     error
}

func (d *memDrafts) GetForUser(context.Context, uuid.UUID, string) (map[int]string, error) {
	return d.answers, d.err
}
