package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LogStore is the persistence surface for reading the monitoring trail.
type LogStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID, limit int) ([]model.MonitoringLog, error)
}

// AuditService is the write side of the monitoring trail. Events are pushed
// onto a Redis queue and persisted in batches by the audit worker, keeping
// log appends off the request path's critical section. Losing an event on
// Redis failure is acceptable; failing the student's request is not.
type AuditService struct {
	rdb  *redis.Client
	logs LogStore
	log  zerolog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(rdb *redis.Client, logs LogStore, log zerolog.Logger) *AuditService {
	return &AuditService{
		rdb:  rdb,
		logs: logs,
		log:  log.With().Str("component", "audit_service").Logger(),
	}
}

// Record enqueues one monitoring event for asynchronous persistence.
// Never returns an error: a dropped audit event is logged and forgotten.
func (s *AuditService) Record(ctx context.Context, l model.MonitoringLog) {
	l.ID = uuid.New()
	l.CreatedAt = time.Now().UTC()

	payload, err := json.Marshal(l)
	if err != nil {
		s.log.Warn().Err(err).Str("event", string(l.EventType)).Msg("Failed to encode monitoring event")
		return
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("event", string(l.EventType)).Msg("Failed to enqueue monitoring event")
	}
}

// ListByExam retrieves the most recent monitoring events for an exam.
func (s *AuditService) ListByExam(ctx context.Context, examID uuid.UUID, limit int) ([]model.MonitoringLog, error) {
	return s.logs.ListByExam(ctx, examID, limit)
}
