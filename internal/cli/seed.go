package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"placement-exam-service/internal/config"
	"placement-exam-service/internal/infra/fs"
	pgstore "placement-exam-service/internal/infra/postgres"
)

// NewSeedCmd loads question files from the data directory into Postgres, one
// JSONB row per language. Re-running replaces existing rows.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load question files into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	questionsDir := cfg.Exam.QuestionsDir
	if questionsDir == "" {
		questionsDir = "data/questions"
	}
	entries, err := os.ReadDir(questionsDir)
	if err != nil {
		return fmt.Errorf("read questions dir: %w", err)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := fs.NewQuestionLoader(questionsDir)
	store := pgstore.NewQuestionLoader(pool)

	seeded := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		language := entry.Name()
		questions, err := loader.LoadQuestions(ctx, language)
		if err != nil {
			log.Printf("skipping %s: %v", language, err)
			continue
		}
		if err := store.UpsertQuestions(ctx, language, questions); err != nil {
			return err
		}
		log.Printf("seeded %s: %d questions", language, len(questions))
		seeded++
	}
	if seeded == 0 {
		return fmt.Errorf("no languages found under %s", questionsDir)
	}
	return nil
}
