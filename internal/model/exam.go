package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	CreatedBy       uuid.UUID `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// ExamWithCount decorates an exam with its question count for listings.
type ExamWithCount struct {
	Exam
	QuestionCount int `json:"question_count"`
}

// CreateExamRequest is the payload for creating an exam with its questions.
// Creation is all-or-nothing: the exam and every question land together or
// not at all.
type CreateExamRequest struct {
	Name            string        `json:"name" binding:"required,min=3,max=255"`
	Description     string        `json:"description" binding:"required,max=2000"`
	DurationMinutes int           `json:"duration_minutes" binding:"required,min=1,max=480"`
	Questions       []NewQuestion `json:"questions" binding:"required,min=1,dive"`
}

// UpdateExamRequest is the payload for updating an exam. Pointer fields
// distinguish "leave unchanged" from explicit zero values.
type UpdateExamRequest struct {
	Name            string  `json:"name" binding:"omitempty,min=3,max=255"`
	Description     *string `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int     `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	Active          *bool   `json:"active"`
}

// ExamPayload is the Redis-cached payload served to students taking an exam
// (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Name      string               `json:"name"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}
