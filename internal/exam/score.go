package exam

import (
	"math"
	"strings"

	"placement-exam-service/internal/domain"
)

// Summary is the locally computed score of one attempt.
type Summary struct {
	Correct int `json:"correctAnswers"`
	Total   int `json:"totalQuestions"`
	Percent int `json:"scorePercent"`
}

// Score grades the recorded answers against the full question list. An answer
// matches on exact trimmed string equality with the stored answer; unanswered
// questions never match. An empty question list yields zero percent rather
// than a division error. Pure function: identical inputs give identical output.
func Score(questions []domain.Question, answers map[string]string) Summary {
	correct := 0
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if ok && strings.TrimSpace(selected) == strings.TrimSpace(q.Answer) {
			correct++
		}
	}

	total := len(questions)
	percent := 0
	if total > 0 {
		percent = int(math.Round(100 * float64(correct) / float64(total)))
	}
	return Summary{Correct: correct, Total: total, Percent: percent}
}
