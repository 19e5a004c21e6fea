package auth

import (
	"errors"
	"testing"
	"time"

	"placement-exam-service/internal/domain"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword("s3cret-pass", hash) {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	user := domain.User{ID: "u1", Email: "alice@example.com", Name: "Alice"}

	token, err := manager.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "alice@example.com" || claims.Name != "Alice" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenWrongSecretRejected(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour).Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewTokenManager("secret-b", time.Hour).Verify(token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenExpiryRejected(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Minute)
	issued := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return issued }

	token, err := manager.Issue(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := manager.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}
