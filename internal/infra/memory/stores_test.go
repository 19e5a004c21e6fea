package memory

import (
	"context"
	"errors"
	"testing"

	"placement-exam-service/internal/domain"
	"placement-exam-service/internal/exam"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	registry := NewSessionRegistry()

	session, err := exam.NewSession("s1", "u1", "de", sampleQuestions(), nil, nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	registry.Put(session)

	if _, ok := registry.Get("s1"); !ok {
		t.Fatalf("expected session present")
	}

	registry.Remove("s1")
	if _, ok := registry.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestResultStoreRejectsAnonymous(t *testing.T) {
	store := NewResultStore()
	_, err := store.SaveResult(context.Background(), domain.Result{Language: "de"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResultStoreScopesReadsToUser(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()

	saved, err := store.SaveResult(ctx, domain.Result{UserID: "u1", Language: "de", TotalQuestions: 4, CorrectAnswers: 3, ScorePercent: 75})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetResult(ctx, saved.ID, "u1")
	if err != nil || got.ScorePercent != 75 {
		t.Fatalf("expected stored result, got %+v err=%v", got, err)
	}

	if _, err := store.GetResult(ctx, saved.ID, "u2"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected foreign result hidden, got %v", err)
	}

	list, err := store.ListResults(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one listed result, got %v err=%v", list, err)
	}
}

func TestMessageStoreGlobalAndAddressed(t *testing.T) {
	ctx := context.Background()
	store := NewMessageStore()

	_, _ = store.CreateMessage(ctx, domain.Message{SenderID: "admin", Title: "welcome", Body: "hi all", Global: true})
	_, _ = store.CreateMessage(ctx, domain.Message{SenderID: "admin", ReceiverID: "u1", Title: "private", Body: "just you"})
	_, _ = store.CreateMessage(ctx, domain.Message{SenderID: "admin", ReceiverID: "u2", Title: "other", Body: "not you"})

	messages, err := store.ListMessages(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected global + addressed, got %d", len(messages))
	}
}

func TestUserStoreEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	if _, err := store.CreateUser(ctx, domain.User{Name: "Alice", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateUser(ctx, domain.User{Name: "Other", Email: "a@example.com"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}
