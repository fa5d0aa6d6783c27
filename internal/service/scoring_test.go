package service

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/invigil/invigil-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func question(id uuid.UUID, correct string, points int) model.Question {
	return model.Question{
		ID:            id,
		Text:          "q",
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: correct,
		Points:        points,
	}
}

func rawAnswer(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func TestScore(t *testing.T) {
	q1 := uuid.New()
	q2 := uuid.New()
	q3 := uuid.New()

	tests := []struct {
		name      string
		questions []model.Question
		answers   map[string]json.RawMessage
		want      int
	}{
		{
			name:      "no questions scores zero",
			questions: nil,
			answers:   map[string]json.RawMessage{},
			want:      0,
		},
		{
			name: "all correct",
			questions: []model.Question{
				question(q1, "A", 1),
				question(q2, "B", 1),
			},
			answers: map[string]json.RawMessage{
				q1.String(): rawAnswer("A"),
				q2.String(): rawAnswer("B"),
			},
			want: 100,
		},
		{
			name: "half correct",
			questions: []model.Question{
				question(q1, "A", 1),
				question(q2, "B", 1),
			},
			answers: map[string]json.RawMessage{
				q1.String(): rawAnswer("A"),
				q2.String(): rawAnswer("X"),
			},
			want: 50,
		},
		{
			name: "no answers",
			questions: []model.Question{
				question(q1, "A", 1),
				question(q2, "B", 1),
			},
			answers: map[string]json.RawMessage{},
			want:    0,
		},
		{
			name: "points weight the score",
			questions: []model.Question{
				question(q1, "A", 3),
				question(q2, "B", 1),
			},
			answers: map[string]json.RawMessage{
				q1.String(): rawAnswer("A"),
			},
			want: 75,
		},
		{
			name: "rounds to nearest integer",
			questions: []model.Question{
				question(q1, "A", 1),
				question(q2, "B", 1),
				question(q3, "C", 1),
			},
			answers: map[string]json.RawMessage{
				q1.String(): rawAnswer("A"),
			},
			want: 33,
		},
		{
			name: "comparison is case sensitive",
			questions: []model.Question{
				question(q1, "A", 1),
			},
			answers: map[string]json.RawMessage{
				q1.String(): rawAnswer("a"),
			},
			want: 0,
		},
		{
			name: "non-string answer never matches",
			questions: []model.Question{
				question(q1, "A", 1),
			},
			answers: map[string]json.RawMessage{
				q1.String(): json.RawMessage(`{"choice":"A"}`),
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.questions, tt.answers))
		})
	}
}
