package domain

import (
	"strings"
	"time"
)

// Level is one of the six proficiency tiers used for grouping questions and
// for selecting the shared audio/passage resource of a block.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// LevelOrder is the fixed presentation rank of the closed level enumeration.
var LevelOrder = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// ParseLevel normalizes raw input to the canonical upper-case form. Unknown
// values are preserved as-is; ordering routes them to the leftover bucket.
func ParseLevel(raw string) Level {
	return Level(strings.ToUpper(strings.TrimSpace(raw)))
}

// Known reports whether the level belongs to the closed enumeration.
func (l Level) Known() bool {
	for _, known := range LevelOrder {
		if l == known {
			return true
		}
	}
	return false
}

// Skill is the question category governing presentation mode.
type Skill string

const (
	SkillGrammar    Skill = "grammar"
	SkillVocabulary Skill = "vocabulary"
	SkillListening  Skill = "listening"
	SkillReading    Skill = "reading"
)

// SkillOrder is the fixed presentation rank of the closed skill enumeration.
var SkillOrder = []Skill{SkillGrammar, SkillVocabulary, SkillListening, SkillReading}

// ParseSkill normalizes raw input to the canonical lower-case form. Unknown
// values are preserved as-is; ordering routes them to the leftover bucket.
func ParseSkill(raw string) Skill {
	return Skill(strings.ToLower(strings.TrimSpace(raw)))
}

// Known reports whether the skill belongs to the closed enumeration.
func (s Skill) Known() bool {
	for _, known := range SkillOrder {
		if s == known {
			return true
		}
	}
	return false
}

// Question is a single multiple-choice item. Passage/Text carry shared prose
// for reading blocks; listening audio is derived from language + level.
type Question struct {
	ID      string   `json:"id"`
	Level   Level    `json:"level"`
	Skill   Skill    `json:"skill"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
	Passage string   `json:"passage,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Normalize canonicalizes the level and skill fields after decoding.
func (q *Question) Normalize() {
	q.Level = ParseLevel(string(q.Level))
	q.Skill = ParseSkill(string(q.Skill))
}

// Result is the durable outcome of one exam attempt. Immutable once created.
type Result struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Language       string    `json:"language"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	ScorePercent   int       `json:"scorePercent"`
	CreatedAt      time.Time `json:"createdAt"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is an admin broadcast, either global or addressed to one user.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Global     bool      `json:"isGlobal"`
	CreatedAt  time.Time `json:"createdAt"`
}
