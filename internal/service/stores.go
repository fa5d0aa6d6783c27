package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/invigil/invigil-backend/internal/repository"
)

// Store interfaces consumed by the services. The concrete implementations
// live in internal/repository; absence of a row is always signalled with
// pgx.ErrNoRows so the services can translate uniformly.

// UserStore is the persistence surface for user accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// ExamStore is the persistence surface for exams.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	CreateWithQuestions(ctx context.Context, e *model.Exam, questions []model.Question) error
	ListAll(ctx context.Context) ([]model.ExamWithCount, error)
	ListAvailableForUser(ctx context.Context, userID uuid.UUID) ([]model.ExamWithCount, error)
	Update(ctx context.Context, e *model.Exam) error
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

// QuestionStore is the persistence surface for exam questions.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	CountByExam(ctx context.Context, examID uuid.UUID) (int, error)
}

// SessionStore is the persistence surface for exam sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetActive(ctx context.Context, userID, examID uuid.UUID) (*model.ExamSession, error)
	HasCompleted(ctx context.Context, userID, examID uuid.UUID) (bool, error)
	SaveAnswer(ctx context.Context, userID, examID, questionID uuid.UUID, answer json.RawMessage) error
	UpdateProctorState(ctx context.Context, sessionID uuid.UUID, warnings int, status model.SessionStatus, warningLog []model.WarningEvent) error
	Complete(ctx context.Context, userID, examID uuid.UUID, score int, forced bool, warnings *int) error
	ListActiveByExam(ctx context.Context, examID uuid.UUID) ([]repository.ActiveSessionRow, error)
	ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]model.CompletedExamSummary, error)
}

// AuditTrail records monitoring events. Recording is fire-and-forget: a
// failed append must never fail the student-facing operation it decorates.
type AuditTrail interface {
	Record(ctx context.Context, l model.MonitoringLog)
}
