package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"placement-exam-service/internal/domain"
)

// QuestionLoader loads a language's question list from a JSONB column.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, language string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM questions WHERE language=$1`, language).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoQuestions
		}
		return nil, fmt.Errorf("load questions: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	for i := range questions {
		questions[i].Normalize()
	}
	return questions, nil
}

// UpsertQuestions replaces the stored question list for a language. Used by
// the seed subcommand.
func (l *QuestionLoader) UpsertQuestions(ctx context.Context, language string, questions []domain.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO questions (language, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (language) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		language, data)
	if err != nil {
		return fmt.Errorf("upsert questions: %w", err)
	}
	return nil
}
