package app

import (
	"context"

	"placement-exam-service/internal/domain"
	"placement-exam-service/internal/exam"
)

// ResultStore persists exam outcomes and serves the read path. SaveResult
// doubles as the session's exam.ResultSink; stores reject anonymous saves
// with domain.ErrUnauthorized, which sessions surface as the degraded
// local-summary fallback.
type ResultStore interface {
	exam.ResultSink
	ListResults(ctx context.Context, userID string) ([]domain.Result, error)
	GetResult(ctx context.Context, id, userID string) (domain.Result, error)
}

// MessageStore persists broadcast messages. ListMessages returns global
// messages plus those addressed to the user, newest first.
type MessageStore interface {
	CreateMessage(ctx context.Context, message domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, userID string) ([]domain.Message, error)
}
