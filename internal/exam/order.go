package exam

import "placement-exam-service/internal/domain"

// OrderQuestions computes the presentation order for a session: questions are
// grouped by level rank, then by skill rank within each level, preserving the
// original relative order inside every (level, skill) bucket. Questions whose
// level or skill falls outside the closed enumerations are appended after all
// recognized ones, in original order, and are never dropped.
//
// The result is deterministic and computed once at session creation.
func OrderQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, 0, len(in))
	picked := make([]bool, len(in))

	for _, level := range domain.LevelOrder {
		for _, skill := range domain.SkillOrder {
			for i := range in {
				if in[i].Level == level && in[i].Skill == skill {
					out = append(out, in[i])
					picked[i] = true
				}
			}
		}
	}

	for i := range in {
		if !picked[i] {
			out = append(out, in[i])
		}
	}
	return out
}
