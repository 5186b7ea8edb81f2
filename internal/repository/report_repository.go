package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// ReportRepository handles report data access. The full graded result is
// stored as JSONB; the headline numbers are duplicated into columns for
// listings and aggregates.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create inserts one report. Re-inserting an existing id is a no-op, so a
// requeued report is never stored twice.
func (r *ReportRepository) Create(ctx context.Context, rep *model.Report) error {
	result, err := json.Marshal(rep.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO reports (id, exam_id, user_id, result, correct_answers, total_questions,
		                      percentage, passed, time_taken, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		rep.ID, rep.ExamID, rep.UserID, string(result), rep.Result.CorrectAnswers, rep.Result.TotalQuestions,
		rep.Result.Percentage, rep.Result.Passed, rep.Result.TimeTaken, rep.CreatedAt,
	)
	return err
}

// BulkCreate inserts a batch of reports in a single statement using UNNEST.
func (r *ReportRepository) BulkCreate(ctx context.Context, reports []*model.Report) error {
	n := len(reports)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, n)
	examIDs := make([]uuid.UUID, n)
	userIDs := make([]string, n)
	results := make([]string, n)
	corrects := make([]int, n)
	totals := make([]int, n)
	percentages := make([]int, n)
	passed := make([]bool, n)
	timeTaken := make([]int, n)
	createdAts := make([]time.Time, n)

	for i, rep := range reports {
		raw, err := json.Marshal(rep.Result)
		if err != nil {
			return fmt.Errorf("marshal result %s: %w", rep.ID, err)
		}
		ids[i] = rep.ID
		examIDs[i] = rep.ExamID
		userIDs[i] = rep.UserID
		results[i] = string(raw)
		corrects[i] = rep.Result.CorrectAnswers
		totals[i] = rep.Result.TotalQuestions
		percentages[i] = rep.Result.Percentage
		passed[i] = rep.Result.Passed
		timeTaken[i] = rep.Result.TimeTaken
		createdAts[i] = rep.CreatedAt
	}

	query := `
		INSERT INTO reports (id, exam_id, user_id, result, correct_answers, total_questions,
		                     percentage, passed, time_taken, created_at)
		SELECT u.id, u.exam_id, u.user_id, u.result, u.correct_answers, u.total_questions,
		       u.percentage, u.passed, u.time_taken, u.created_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::jsonb[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::bool[],
			$9::int[],
			$10::timestamptz[]
		) AS u (id, exam_id, user_id, result, correct_answers, total_questions,
		        percentage, passed, time_taken, created_at)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		ids, examIDs, userIDs, results, corrects, totals, percentages, passed, timeTaken, createdAts)
	return err
}

// GetByID retrieves a report with its per-question details.
// Returns pgx.ErrNoRows when absent.
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	rep := &model.Report{}
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, user_id, result, created_at FROM reports WHERE id = $1`, id,
	).Scan(&rep.ID, &rep.ExamID, &rep.UserID, &raw, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rep.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return rep, nil
}

const summaryColumns = `id, exam_id, user_id, correct_answers, total_questions, percentage,
	CASE WHEN passed THEN 'Pass' ELSE 'Fail' END, time_taken, created_at`

func collectSummaries(rows pgx.Rows) ([]model.ReportSummary, error) {
	defer rows.Close()

	var out []model.ReportSummary
	for rows.Next() {
		var s model.ReportSummary
		if err := rows.Scan(&s.ID, &s.ExamID, &s.UserID, &s.CorrectAnswers, &s.TotalQuestions,
			&s.Percentage, &s.Verdict, &s.TimeTaken, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByExam returns report summaries for an exam, newest first, with the total count.
func (r *ReportRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ReportSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE exam_id = $1`, examID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+` FROM reports WHERE exam_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out, err := collectSummaries(rows)
	return out, total, err
}

// ListByUser returns every report summary for a user, newest first.
func (r *ReportRepository) ListByUser(ctx context.Context, userID string) ([]model.ReportSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+summaryColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	return collectSummaries(rows)
}

// StatsByExam aggregates pass/fail counts and the mean percentage of an exam.
func (r *ReportRepository) StatsByExam(ctx context.Context, examID uuid.UUID) (*model.ExamStats, error) {
	s := &model.ExamStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE passed),
		        COUNT(*) FILTER (WHERE NOT passed),
		        COALESCE(AVG(percentage), 0)::float8
		 FROM reports WHERE exam_id = $1`, examID,
	).Scan(&s.Submissions, &s.Passed, &s.Failed, &s.AveragePercentage)
	if err != nil {
		return nil, err
	}
	return s, nil
}
