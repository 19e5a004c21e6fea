package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"placement-exam-service/internal/domain"
)

// QuestionLoader reads per-language question files from a data directory:
// <baseDir>/<language>/*.json, each file holding a JSON array of questions.
// Files are concatenated in lexical name order; unreadable or malformed
// files are skipped rather than failing the whole load.
type QuestionLoader struct {
	baseDir string
}

func NewQuestionLoader(baseDir string) *QuestionLoader {
	return &QuestionLoader{baseDir: baseDir}
}

func (l *QuestionLoader) LoadQuestions(_ context.Context, language string) ([]domain.Question, error) {
	dir := filepath.Join(l.baseDir, filepath.Base(language))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNoQuestions
		}
		return nil, err
	}

	var all []domain.Question
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err != nil {
			continue
		}
		for i := range questions {
			questions[i].Normalize()
		}
		all = append(all, questions...)
	}

	if len(all) == 0 {
		return nil, domain.ErrNoQuestions
	}
	return all, nil
}
