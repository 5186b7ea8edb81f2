package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-quiz/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.StoredQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, external_id, prompt, question_type, answer_type,
		        options, correct_answer, correct_option, image_url, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.StoredQuestion
	for rows.Next() {
		var q model.StoredQuestion
		if err := rows.Scan(&q.ID, &q.ExamID, &q.ExternalID, &q.Prompt, &q.QuestionType, &q.AnswerType,
			&q.Options, &q.CorrectAnswer, &q.CorrectOption, &q.ImageURL, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceForExam swaps the exam's question set and question count in one transaction.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.StoredQuestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	rows := make([][]interface{}, len(questions))
	for i, q := range questions {
		rows[i] = []interface{}{
			uuid.New(), examID, q.ExternalID, q.Prompt, q.QuestionType, q.AnswerType,
			q.Options, q.CorrectAnswer, q.CorrectOption, q.ImageURL, q.OrderNum,
		}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "exam_id", "external_id", "prompt", "question_type", "answer_type",
			"options", "correct_answer", "correct_option", "image_url", "order_num"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE exams SET question_count = $1, updated_at = NOW() WHERE id = $2`,
		len(questions), examID)
	if err != nil {
		return fmt.Errorf("update question count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}
