package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"placement-exam-service/internal/domain"
)

// UserRepository implements app.UserStore over Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	user.ID = uuid.New().String()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		user.ID, user.Name, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at FROM users WHERE email=$1`,
		email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at FROM users WHERE id=$1`,
		id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// ResultRepository implements app.ResultStore (and thereby exam.ResultSink)
// over Postgres.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveResult rejects anonymous submissions; the session degrades to its
// local summary in that case.
func (r *ResultRepository) SaveResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	if result.UserID == "" {
		return domain.Result{}, domain.ErrUnauthorized
	}
	result.ID = uuid.New().String()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO results (id, user_id, language, total_questions, correct_answers, score_percent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		result.ID, result.UserID, result.Language,
		result.TotalQuestions, result.CorrectAnswers, result.ScorePercent).Scan(&result.CreatedAt)
	if err != nil {
		return domain.Result{}, fmt.Errorf("save result: %w", err)
	}
	return result, nil
}

func (r *ResultRepository) ListResults(ctx context.Context, userID string) ([]domain.Result, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, language, total_questions, correct_answers, score_percent, created_at
		FROM results WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var result domain.Result
		if err := rows.Scan(&result.ID, &result.UserID, &result.Language,
			&result.TotalQuestions, &result.CorrectAnswers, &result.ScorePercent, &result.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *ResultRepository) GetResult(ctx context.Context, id, userID string) (domain.Result, error) {
	var result domain.Result
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, language, total_questions, correct_answers, score_percent, created_at
		FROM results WHERE id=$1 AND user_id=$2`, id, userID).
		Scan(&result.ID, &result.UserID, &result.Language,
			&result.TotalQuestions, &result.CorrectAnswers, &result.ScorePercent, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, domain.ErrResultNotFound
		}
		return domain.Result{}, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// MessageRepository implements app.MessageStore over Postgres.
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) CreateMessage(ctx context.Context, message domain.Message) (domain.Message, error) {
	message.ID = uuid.New().String()
	var receiver interface{}
	if message.ReceiverID != "" {
		receiver = message.ReceiverID
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, title, body, is_global)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		message.ID, message.SenderID, receiver, message.Title, message.Body, message.Global).
		Scan(&message.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}
	return message, nil
}

func (r *MessageRepository) ListMessages(ctx context.Context, userID string) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, sender_id, COALESCE(receiver_id::text, ''), title, body, is_global, created_at
		FROM messages WHERE is_global OR receiver_id::text=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(&message.ID, &message.SenderID, &message.ReceiverID,
			&message.Title, &message.Body, &message.Global, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
