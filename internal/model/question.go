package model

import (
	"github.com/google/uuid"
)

// Question represents a single exam question. CorrectAnswer must never
// reach a student-facing payload; use ForStudent for that.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	Position      int       `json:"position"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	Points        int       `json:"points"`
}

// QuestionForStudent is a question with the correct answer (and its point
// value) stripped.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	ExamID   uuid.UUID `json:"exam_id"`
	Position int       `json:"position"`
	Text     string    `json:"text"`
	Options  []string  `json:"options"`
}

// ForStudent returns the answer-stripped view of the question.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:       q.ID,
		ExamID:   q.ExamID,
		Position: q.Position,
		Text:     q.Text,
		Options:  q.Options,
	}
}

// NewQuestion is the payload for a question inside CreateExamRequest.
type NewQuestion struct {
	Text          string   `json:"text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,dive,required"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
	Points        int      `json:"points" binding:"omitempty,min=1"`
}
