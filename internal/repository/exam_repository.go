package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access. Multi-table mutations (create
// with questions, cascading delete) run inside a single transaction: either
// every affected table changes or none do.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, name, description, duration_minutes, active, created_by, created_at`

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.DurationMinutes, &e.Active, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// CreateWithQuestions inserts an exam and all of its questions atomically.
func (r *ExamRepository) CreateWithQuestions(ctx context.Context, e *model.Exam, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (name, description, duration_minutes, active, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.Name, e.Description, e.DurationMinutes, e.Active, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	for i := range questions {
		questions[i].ExamID = e.ID
		opts, err := json.Marshal(questions[i].Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO questions (id, exam_id, position, text, options, correct_answer, points)
			 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
			questions[i].ID, e.ID, questions[i].Position, questions[i].Text, opts,
			questions[i].CorrectAnswer, questions[i].Points,
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListAll retrieves every exam with its question count, newest first.
func (r *ExamRepository) ListAll(ctx context.Context) ([]model.ExamWithCount, error) {
	return r.list(ctx,
		`SELECT e.id, e.name, e.description, e.duration_minutes, e.active, e.created_by, e.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id) AS question_count
		 FROM exams e
		 ORDER BY e.created_at DESC`)
}

// ListAvailableForUser retrieves active exams the user has not yet
// completed, with question counts, newest first.
func (r *ExamRepository) ListAvailableForUser(ctx context.Context, userID uuid.UUID) ([]model.ExamWithCount, error) {
	return r.list(ctx,
		`SELECT e.id, e.name, e.description, e.duration_minutes, e.active, e.created_by, e.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id) AS question_count
		 FROM exams e
		 WHERE e.active
		   AND NOT EXISTS (
		       SELECT 1 FROM exam_sessions s
		       WHERE s.exam_id = e.id AND s.user_id = $1 AND s.completed
		   )
		 ORDER BY e.created_at DESC`, userID)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.ExamWithCount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.ExamWithCount
	for rows.Next() {
		var e model.ExamWithCount
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.DurationMinutes,
			&e.Active, &e.CreatedBy, &e.CreatedAt, &e.QuestionCount); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Update overwrites an exam's mutable fields.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET name = $1, description = $2, duration_minutes = $3, active = $4
		 WHERE id = $5`,
		e.Name, e.Description, e.DurationMinutes, e.Active, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteCascade removes an exam together with its questions and sessions in
// one transaction. Returns pgx.ErrNoRows if the exam does not exist; on any
// failure nothing is deleted.
func (r *ExamRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, id); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM exam_sessions WHERE exam_id = $1`, id); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}
