package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the derived risk classification of an in-progress session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusWarning SessionStatus = "warning"
	SessionStatusFlagged SessionStatus = "flagged"
)

// StatusForWarnings derives the session status from a warning count.
// This is the only place the mapping lives; status must never be set
// independently of it.
func StatusForWarnings(count int) SessionStatus {
	switch {
	case count <= 0:
		return SessionStatusActive
	case count == 1:
		return SessionStatusWarning
	default:
		return SessionStatusFlagged
	}
}

// WarningEvent is one recorded suspicious-behavior event within a session.
type WarningEvent struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ExamSession is one user's single attempt at one exam. Once Completed is
// true the record is sealed: no mutation path touches it again.
type ExamSession struct {
	ID               uuid.UUID                  `json:"id"`
	UserID           uuid.UUID                  `json:"user_id"`
	ExamID           uuid.UUID                  `json:"exam_id"`
	StartedAt        time.Time                  `json:"started_at"`
	EndedAt          *time.Time                 `json:"ended_at,omitempty"`
	Completed        bool                       `json:"completed"`
	Score            *int                       `json:"score,omitempty"`
	ForcedSubmission bool                       `json:"forced_submission"`
	Status           SessionStatus              `json:"status"`
	Warnings         int                        `json:"warnings"`
	WarningLog       []WarningEvent             `json:"warning_log"`
	Answers          map[string]json.RawMessage `json:"answers"`
}

// CompletedExamSummary is a student's view of one finished attempt.
type CompletedExamSummary struct {
	SessionID        uuid.UUID  `json:"session_id"`
	ExamID           uuid.UUID  `json:"exam_id"`
	ExamName         string     `json:"exam_name"`
	Score            *int       `json:"score"`
	CompletedAt      *time.Time `json:"completed_at"`
	ForcedSubmission bool       `json:"forced_submission"`
}

// ActiveSessionSnapshot is one row of the admin monitoring dashboard.
// MinutesRemaining is computed at query time from the exam duration; the
// dashboard polls, nothing on the server retires a session when it hits 0.
type ActiveSessionSnapshot struct {
	SessionID        uuid.UUID     `json:"session_id"`
	UserID           uuid.UUID     `json:"user_id"`
	UserName         string        `json:"name"`
	Status           SessionStatus `json:"status"`
	Warnings         int           `json:"warnings"`
	MinutesRemaining int           `json:"time_left"`
}

// SaveAnswerRequest upserts one answer into the caller's active session.
// Answer is kept as raw JSON so structured answer shapes survive untouched.
type SaveAnswerRequest struct {
	QuestionID uuid.UUID       `json:"question_id" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
}

// SubmitExamRequest seals the caller's active session.
type SubmitExamRequest struct {
	Forced   bool `json:"forced"`
	Warnings *int `json:"warnings" binding:"omitempty,min=0"`
}

// StartMonitoringRequest opens (or continues) a monitoring session.
type StartMonitoringRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// UpdateMonitoringRequest carries client-reported proctoring telemetry.
// Warnings, when present, overwrites the server counter (the counter is
// also incremented server-side by warning recording; last writer wins).
type UpdateMonitoringRequest struct {
	ExamID          uuid.UUID `json:"exam_id" binding:"required"`
	TimeLeft        *int      `json:"time_left"`
	Warnings        *int      `json:"warnings" binding:"omitempty,min=0"`
	CurrentQuestion *int      `json:"current_question"`
}

// RecordWarningRequest records one suspicious-behavior event.
type RecordWarningRequest struct {
	ExamID  uuid.UUID `json:"exam_id" binding:"required"`
	Message string    `json:"message" binding:"required,max=500"`
}

// EndMonitoringRequest closes the monitoring stream for a session without
// submitting the exam.
type EndMonitoringRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}
