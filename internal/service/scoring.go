package service

import (
	"encoding/json"
	"math"

	"github.com/invigil/invigil-backend/internal/model"
)

// Score computes the percentage score for a set of submitted answers,
// rounded to the nearest integer. An exam with no questions (zero total
// points) scores 0 rather than dividing by zero.
func Score(questions []model.Question, answers map[string]json.RawMessage) int {
	var total, earned int
	for _, q := range questions {
		total += q.Points
		raw, ok := answers[q.ID.String()]
		if ok && answerMatches(q, raw) {
			earned += q.Points
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(earned) / float64(total)))
}

// answerMatches compares a submitted raw answer against the question's
// correct answer. Comparison is exact string equality; anything that is not
// a JSON string is wrong by definition.
func answerMatches(q model.Question, raw json.RawMessage) bool {
	var submitted string
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return false
	}
	return submitted == q.CorrectAnswer
}
