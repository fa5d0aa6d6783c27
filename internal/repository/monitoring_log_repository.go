package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitoringLogRepository handles the append-only proctoring audit trail.
// The table carries no foreign keys so the trail survives exam deletion.
type MonitoringLogRepository struct {
	pool *pgxpool.Pool
}

// NewMonitoringLogRepository creates a new MonitoringLogRepository.
func NewMonitoringLogRepository(pool *pgxpool.Pool) *MonitoringLogRepository {
	return &MonitoringLogRepository{pool: pool}
}

// Insert appends a single monitoring event.
func (r *MonitoringLogRepository) Insert(ctx context.Context, l *model.MonitoringLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO monitoring_logs (id, session_id, user_id, exam_id, event_type, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		l.ID, l.SessionID, l.UserID, l.ExamID, l.EventType, []byte(l.Details), l.CreatedAt)
	return err
}

// BulkInsert appends a batch of monitoring events with COPY.
func (r *MonitoringLogRepository) BulkInsert(ctx context.Context, logs []model.MonitoringLog) error {
	if len(logs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []any{
			l.ID, l.SessionID, l.UserID, l.ExamID, l.EventType, []byte(l.Details), l.CreatedAt,
		})
	}

	copied, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"monitoring_logs"},
		[]string{"id", "session_id", "user_id", "exam_id", "event_type", "details", "created_at"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy monitoring logs: %w", err)
	}
	if int(copied) != len(logs) {
		return fmt.Errorf("copy monitoring logs: wrote %d of %d rows", copied, len(logs))
	}
	return nil
}

// ListByExam retrieves the most recent monitoring events for an exam,
// newest first, capped at limit.
func (r *MonitoringLogRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit int) ([]model.MonitoringLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, user_id, exam_id, event_type, details, created_at
		 FROM monitoring_logs
		 WHERE exam_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, examID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.MonitoringLog
	for rows.Next() {
		var l model.MonitoringLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.SessionID, &l.UserID, &l.ExamID, &l.EventType, &details, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Details = details
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
