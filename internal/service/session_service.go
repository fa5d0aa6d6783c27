package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SessionService owns the exam session lifecycle: start, answer capture,
// proctoring mutations and final submission. A session is resolved by
// (user, exam, not completed); once sealed it is invisible to every
// mutation here.
type SessionService struct {
	sessions  SessionStore
	questions QuestionStore
	audit     AuditTrail
	log       zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions SessionStore, questions QuestionStore, audit AuditTrail, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		questions: questions,
		audit:     audit,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// Start returns the user's active session for the exam, creating one if
// none exists. Starting is idempotent: a second call continues the same
// session. Both the continue and the create path log a session_start
// event. A previously completed attempt fails with ErrAlreadyCompleted.
func (s *SessionService) Start(ctx context.Context, userID uuid.UUID, exam *model.Exam) (*model.ExamSession, error) {
	completed, err := s.sessions.HasCompleted(ctx, userID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("check completion: %w", err)
	}
	if completed {
		return nil, ErrAlreadyCompleted
	}

	session, err := s.sessions.GetActive(ctx, userID, exam.ID)
	if err == nil {
		s.recordEvent(ctx, session, model.EventSessionStart, nil)
		return session, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session = &model.ExamSession{
		UserID:     userID,
		ExamID:     exam.ID,
		Status:     model.SessionStatusActive,
		Warnings:   0,
		WarningLog: []model.WarningEvent{},
		Answers:    map[string]json.RawMessage{},
	}
	err = s.sessions.Create(ctx, session)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with a concurrent start; the winner's session is ours too.
		session, err = s.sessions.GetActive(ctx, userID, exam.ID)
		if err != nil {
			return nil, fmt.Errorf("refetch session: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	} else {
		s.log.Info().
			Str("session_id", session.ID.String()).
			Str("exam_id", exam.ID.String()).
			Msg("Exam session started")
	}

	s.recordEvent(ctx, session, model.EventSessionStart, nil)
	return session, nil
}

// SaveAnswer upserts one answer into the user's active session. Answers
// do not touch warnings or status.
func (s *SessionService) SaveAnswer(ctx context.Context, userID, examID uuid.UUID, req model.SaveAnswerRequest) error {
	err := s.sessions.SaveAnswer(ctx, userID, examID, req.QuestionID, req.Answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoActiveSession
	}
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// RecordWarning increments the warning counter, appends the event to the
// warning log, rederives the status and returns the new count.
func (s *SessionService) RecordWarning(ctx context.Context, userID, examID uuid.UUID, message string) (int, model.SessionStatus, error) {
	session, err := s.sessions.GetActive(ctx, userID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrNoActiveSession
		}
		return 0, "", fmt.Errorf("get session: %w", err)
	}

	warnings := session.Warnings + 1
	status := model.StatusForWarnings(warnings)
	warningLog := append(session.WarningLog, model.WarningEvent{
		Message:   message,
		Timestamp: time.Now().UTC(),
	})

	if err := s.sessions.UpdateProctorState(ctx, session.ID, warnings, status, warningLog); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrNoActiveSession
		}
		return 0, "", fmt.Errorf("update session: %w", err)
	}

	s.recordEvent(ctx, session, model.EventWarning, map[string]any{
		"message":  message,
		"warnings": warnings,
		"status":   status,
	})
	return warnings, status, nil
}

// UpdateStatus applies client-reported proctoring telemetry. A supplied
// warnings value overwrites the counter (it is a report, not an increment)
// and the status is rederived from the result.
func (s *SessionService) UpdateStatus(ctx context.Context, userID uuid.UUID, req model.UpdateMonitoringRequest) (model.SessionStatus, error) {
	session, err := s.sessions.GetActive(ctx, userID, req.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoActiveSession
		}
		return "", fmt.Errorf("get session: %w", err)
	}

	warnings := session.Warnings
	if req.Warnings != nil {
		warnings = *req.Warnings
	}
	status := model.StatusForWarnings(warnings)

	if err := s.sessions.UpdateProctorState(ctx, session.ID, warnings, status, session.WarningLog); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoActiveSession
		}
		return "", fmt.Errorf("update session: %w", err)
	}

	s.recordEvent(ctx, session, model.EventStatusUpdate, map[string]any{
		"time_left":        req.TimeLeft,
		"warnings":         warnings,
		"current_question": req.CurrentQuestion,
		"status":           status,
	})
	return status, nil
}

// Submit scores the active session against the exam's questions and seals
// it. The score is round(100 * earned / total) and 0 for an exam with no
// points. A caller-supplied warnings value overwrites the stored counter.
// Submission does not append a monitoring event; EndMonitoring is the
// independent signal for that.
func (s *SessionService) Submit(ctx context.Context, userID, examID uuid.UUID, req model.SubmitExamRequest) (int, error) {
	session, err := s.sessions.GetActive(ctx, userID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoActiveSession
		}
		return 0, fmt.Errorf("get session: %w", err)
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}

	score := Score(questions, session.Answers)

	err = s.sessions.Complete(ctx, userID, examID, score, req.Forced, req.Warnings)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNoActiveSession
	}
	if err != nil {
		return 0, fmt.Errorf("complete session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Int("score", score).
		Bool("forced", req.Forced).
		Msg("Exam submitted")
	return score, nil
}

// EndMonitoring logs a session_end event for the active session. It does
// not seal the session; submission is a separate signal.
func (s *SessionService) EndMonitoring(ctx context.Context, userID, examID uuid.UUID) error {
	session, err := s.sessions.GetActive(ctx, userID, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("get session: %w", err)
	}

	s.recordEvent(ctx, session, model.EventSessionEnd, nil)
	return nil
}

// ListActive builds the proctoring dashboard snapshot for an exam. Remaining
// time is computed from the session start and the exam duration, clamped at
// zero; nothing server-side retires a session when it runs out.
func (s *SessionService) ListActive(ctx context.Context, exam *model.Exam) ([]model.ActiveSessionSnapshot, error) {
	rows, err := s.sessions.ListActiveByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := time.Now()
	snapshots := make([]model.ActiveSessionSnapshot, len(rows))
	for i, row := range rows {
		snapshots[i] = model.ActiveSessionSnapshot{
			SessionID:        row.SessionID,
			UserID:           row.UserID,
			UserName:         row.Name,
			Status:           row.Status,
			Warnings:         row.Warnings,
			MinutesRemaining: minutesRemaining(exam.DurationMinutes, row.StartedAt, now),
		}
	}
	return snapshots, nil
}

// ListCompleted retrieves the user's finished attempts, most recent first.
func (s *SessionService) ListCompleted(ctx context.Context, userID uuid.UUID) ([]model.CompletedExamSummary, error) {
	return s.sessions.ListCompletedByUser(ctx, userID)
}

// minutesRemaining rounds the leftover time up to whole minutes, so a
// session shows 1 until the final second ticks over to 0.
func minutesRemaining(durationMinutes int, startedAt, now time.Time) int {
	remaining := time.Duration(durationMinutes)*time.Minute - now.Sub(startedAt)
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

func (s *SessionService) recordEvent(ctx context.Context, session *model.ExamSession, event model.MonitoringEventType, details map[string]any) {
	l := model.MonitoringLog{
		SessionID: session.ID,
		UserID:    session.UserID,
		ExamID:    session.ExamID,
		EventType: event,
	}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to encode monitoring details")
		} else {
			l.Details = data
		}
	}
	s.audit.Record(ctx, l)
}
