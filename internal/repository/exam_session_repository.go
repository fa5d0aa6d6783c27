package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActiveSessionRow is one in-progress session joined with its owner's name,
// as shown on the proctoring dashboard.
type ActiveSessionRow struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Status    model.SessionStatus
	Warnings  int
	StartedAt time.Time
}

// ExamSessionRepository handles exam session data access.
//
// At most one non-completed session may exist per (user, exam); the partial
// unique index uniq_active_session enforces this, and Create relies on it to
// stay race-free under concurrent starts.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts a new active session. If the user already has an active
// session for the exam, nothing is inserted and pgx.ErrNoRows is returned;
// the caller should refetch with GetActive.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	warningLog, err := json.Marshal(s.WarningLog)
	if err != nil {
		return fmt.Errorf("marshal warning log: %w", err)
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (user_id, exam_id, status, warnings, warning_log, answers)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)
		 ON CONFLICT (user_id, exam_id) WHERE NOT completed DO NOTHING
		 RETURNING id, started_at`,
		s.UserID, s.ExamID, s.Status, s.Warnings, warningLog, answers,
	).Scan(&s.ID, &s.StartedAt)
}

const sessionColumns = `id, user_id, exam_id, started_at, ended_at, completed,
	score, forced_submission, status, warnings, warning_log, answers`

// GetActive retrieves the user's in-progress session for an exam, or
// pgx.ErrNoRows if none exists.
func (r *ExamSessionRepository) GetActive(ctx context.Context, userID, examID uuid.UUID) (*model.ExamSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE user_id = $1 AND exam_id = $2 AND NOT completed`,
		userID, examID)
	return scanSession(row)
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var warningLog, answers []byte
	err := row.Scan(&s.ID, &s.UserID, &s.ExamID, &s.StartedAt, &s.EndedAt,
		&s.Completed, &s.Score, &s.ForcedSubmission, &s.Status, &s.Warnings,
		&warningLog, &answers)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(warningLog, &s.WarningLog); err != nil {
		return nil, fmt.Errorf("unmarshal warning log: %w", err)
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return s, nil
}

// HasCompleted reports whether the user has already submitted this exam.
func (r *ExamSessionRepository) HasCompleted(ctx context.Context, userID, examID uuid.UUID) (bool, error) {
	var completed bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM exam_sessions
		     WHERE user_id = $1 AND exam_id = $2 AND completed
		 )`, userID, examID,
	).Scan(&completed)
	return completed, err
}

// SaveAnswer merges one answer into the active session's answer map.
// Returns pgx.ErrNoRows when no active session exists.
func (r *ExamSessionRepository) SaveAnswer(ctx context.Context, userID, examID, questionID uuid.UUID, answer json.RawMessage) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET answers = answers || jsonb_build_object($3::text, $4::jsonb)
		 WHERE user_id = $1 AND exam_id = $2 AND NOT completed`,
		userID, examID, questionID.String(), []byte(answer))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateProctorState overwrites a session's warning count, status and
// warning log. Returns pgx.ErrNoRows if the session is gone or sealed.
func (r *ExamSessionRepository) UpdateProctorState(ctx context.Context, sessionID uuid.UUID, warnings int, status model.SessionStatus, warningLog []model.WarningEvent) error {
	logJSON, err := json.Marshal(warningLog)
	if err != nil {
		return fmt.Errorf("marshal warning log: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET warnings = $2, status = $3, warning_log = $4::jsonb
		 WHERE id = $1 AND NOT completed`,
		sessionID, warnings, status, logJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Complete seals the user's active session with the final score. A non-nil
// warnings value overwrites the stored counter; nil leaves it untouched.
// Returns pgx.ErrNoRows when there is no active session to seal.
func (r *ExamSessionRepository) Complete(ctx context.Context, userID, examID uuid.UUID, score int, forced bool, warnings *int) error {
	var id uuid.UUID
	return r.pool.QueryRow(ctx,
		`UPDATE exam_sessions
		 SET completed = true,
		     ended_at = now(),
		     score = $3,
		     forced_submission = $4,
		     warnings = COALESCE($5::int, warnings)
		 WHERE user_id = $1 AND exam_id = $2 AND NOT completed
		 RETURNING id`,
		userID, examID, score, forced, warnings,
	).Scan(&id)
}

// ListActiveByExam retrieves all in-progress sessions for an exam with the
// owning user's name, oldest first.
func (r *ExamSessionRepository) ListActiveByExam(ctx context.Context, examID uuid.UUID) ([]ActiveSessionRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.user_id, COALESCE(u.name, 'Unknown User'),
		        s.status, s.warnings, s.started_at
		 FROM exam_sessions s
		 LEFT JOIN users u ON u.id = s.user_id
		 WHERE s.exam_id = $1 AND NOT s.completed
		 ORDER BY s.started_at ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []ActiveSessionRow
	for rows.Next() {
		var s ActiveSessionRow
		if err := rows.Scan(&s.SessionID, &s.UserID, &s.Name, &s.Status, &s.Warnings, &s.StartedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListCompletedByUser retrieves the user's submitted sessions with the exam
// names, most recent first.
func (r *ExamSessionRepository) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]model.CompletedExamSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.exam_id, COALESCE(e.name, 'Unknown Exam'),
		        s.score, s.ended_at, s.forced_submission
		 FROM exam_sessions s
		 LEFT JOIN exams e ON e.id = s.exam_id
		 WHERE s.user_id = $1 AND s.completed
		 ORDER BY s.ended_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.CompletedExamSummary
	for rows.Next() {
		var s model.CompletedExamSummary
		if err := rows.Scan(&s.SessionID, &s.ExamID, &s.ExamName, &s.Score, &s.CompletedAt, &s.ForcedSubmission); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
