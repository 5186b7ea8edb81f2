package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// ErrInvalidDraft marks an answer that no retry can store: a malformed exam
// id, an index outside the int4 column, or a row PostgreSQL rejects on its
// data or constraints.
var ErrInvalidDraft = errors.New("invalid draft answer")

// DraftRepository persists autosaved answers so they survive a Redis flush.
type DraftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository creates a new DraftRepository.
func NewDraftRepository(pool *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{pool: pool}
}

// Upsert creates or updates a single autosaved answer.
func (r *DraftRepository) Upsert(ctx context.Context, a *model.DraftAnswer) error {
	examID, err := checkDraft(a)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO answer_drafts (exam_id, user_id, question_index, answer)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, user_id, question_index) DO UPDATE
		 SET answer = EXCLUDED.answer, updated_at = NOW()`,
		examID, a.UserID, a.Index, a.Answer,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// Class 22 is data exception, class 23 integrity constraint violation.
		if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
			return fmt.Errorf("%w: %s", ErrInvalidDraft, pgErr.Message)
		}
		return err
	}
	return nil
}

// checkDraft rejects answers that cannot fit the answer_drafts row.
func checkDraft(a *model.DraftAnswer) (uuid.UUID, error) {
	examID, err := uuid.Parse(a.ExamID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: exam id %q", ErrInvalidDraft, a.ExamID)
	}
	if a.Index < 0 || a.Index > math.MaxInt32 {
		return uuid.Nil, fmt.Errorf("%w: index %d", ErrInvalidDraft, a.Index)
	}
	return examID, nil
}

// GetForUser loads every stored answer of a user for an exam.
func (r *DraftRepository) GetForUser(ctx context.Context, examID uuid.UUID, userID string) (map[int]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_index, answer FROM answer_drafts WHERE exam_id = $1 AND user_id = $2`,
		examID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[int]string)
	for rows.Next() {
		var idx int
		var ans string
		if err := rows.Scan(&idx, &ans); err != nil {
			return nil, err
		}
		answers[idx] = ans
	}
	return answers, rows.Err()
}

// DeleteForUser removes a user's drafts for an exam once a report exists.
func (r *DraftRepository) DeleteForUser(ctx context.Context, examID uuid.UUID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM answer_drafts WHERE exam_id = $1 AND user_id = $2`,
		examID, userID)
	return err
}
