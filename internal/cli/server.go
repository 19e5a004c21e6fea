package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"placement-exam-service/internal/app"
	"placement-exam-service/internal/auth"
	"placement-exam-service/internal/config"
	"placement-exam-service/internal/infra/fs"
	"placement-exam-service/internal/infra/memory"
	pgstore "placement-exam-service/internal/infra/postgres"
	redisstore "placement-exam-service/internal/infra/redis"
	transport "placement-exam-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	questionsDir := cfg.Exam.QuestionsDir
	if questionsDir == "" {
		questionsDir = "data/questions"
	}
	var loader memory.QuestionLoader = fs.NewQuestionLoader(questionsDir)
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Exam.CacheTTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	if redisClient != nil {
		questionRepo = redisstore.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var registry app.SessionRegistry
	if redisClient != nil {
		registry = redisstore.NewSessionRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewSessionRegistry()
	}

	var users app.UserStore
	var results app.ResultStore
	var messages app.MessageStore
	if pool != nil {
		users = pgstore.NewUserRepository(pool)
		results = pgstore.NewResultRepository(pool)
		messages = pgstore.NewMessageRepository(pool)
	} else {
		users = memory.NewUserStore()
		results = memory.NewResultStore()
		messages = memory.NewMessageStore()
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		secret = "insecure-dev-secret"
		logger.Warn("no jwt secret configured, using insecure development default")
	}
	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 7*24*time.Hour)

	authService := app.NewAuthService(users, auth.NewTokenManager(secret, tokenTTL))
	examService := app.NewExamService(questionRepo, registry, results)

	wsHandler := transport.NewWSHandler(examService, authService, logger)
	apiHandler := transport.NewAPIHandler(authService, results, messages, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws/exam", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting placement exam service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(parsed)
	}
	return cfg.Build()
}
