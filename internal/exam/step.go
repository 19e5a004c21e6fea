package exam

import (
	"strings"

	"placement-exam-service/internal/domain"
)

// StepKind tags the active step variant. Exactly one variant is active at a
// time.
type StepKind string

const (
	// StepSingle presents exactly one ordinary question.
	StepSingle StepKind = "single"
	// StepListening presents every listening question of one level plus audio.
	StepListening StepKind = "listening"
	// StepReading presents every reading question of one level under a passage.
	StepReading StepKind = "reading"
)

// Step is one navigable unit of the exam: a single question, or a whole
// listening/reading block with its owned resources.
type Step struct {
	Kind      StepKind          `json:"kind"`
	Questions []domain.Question `json:"questions"`
	// Passage is the single shared prose rendering of a reading block.
	Passage string `json:"passage,omitempty"`
	// AudioPath is the derived audio resource of a listening block.
	AudioPath string `json:"audioPath,omitempty"`
	// AudioDegraded marks a rejected autoplay attempt; the client must offer
	// a manual replay control. Never blocks answering or advancing.
	AudioDegraded bool `json:"audioDegraded,omitempty"`
}

// AudioPath derives the audio resource path of a listening block from the
// exam language and the block level. The convention is fixed; there is no
// content negotiation.
func AudioPath(language string, level domain.Level) string {
	return "/audio/" + language + "/" + strings.ToLower(string(level)) + "-hoerverstehen.mp3"
}

// blockPassage picks the single shared passage of a reading block: the first
// member carrying a passage, else the first member's text, else empty.
func blockPassage(members []domain.Question) string {
	for _, q := range members {
		if q.Passage != "" {
			return q.Passage
		}
		if q.Text != "" {
			return q.Text
		}
	}
	return ""
}

// Urgency is the presentation-only timer severity. It carries no transition.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// UrgencyFor maps remaining seconds to severity: critical below 60, warning
// up to 300, normal above.
func UrgencyFor(remaining int) Urgency {
	switch {
	case remaining < 60:
		return UrgencyCritical
	case remaining <= 300:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}
