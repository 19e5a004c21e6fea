package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"placement-exam-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore, used when no
// database is configured and in handler tests.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	s.byID[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return user, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) GetUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// ResultStore is an in-memory implementation of app.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

// SaveResult rejects anonymous submissions, matching the upstream contract.
func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) (domain.Result, error) {
	if result.UserID == "" {
		return domain.Result{}, domain.ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = uuid.New().String()
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	s.results[result.ID] = result
	return result, nil
}

func (s *ResultStore) ListResults(_ context.Context, userID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []domain.Result
	for _, result := range s.results {
		if result.UserID == userID {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

func (s *ResultStore) GetResult(_ context.Context, id, userID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok || result.UserID != userID {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return result, nil
}

// MessageStore is an in-memory implementation of app.MessageStore.
type MessageStore struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) CreateMessage(_ context.Context, message domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	message.ID = uuid.New().String()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *MessageStore) ListMessages(_ context.Context, userID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var messages []domain.Message
	for _, message := range s.messages {
		if message.Global || message.ReceiverID == userID {
			messages = append(messages, message)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.After(messages[j].CreatedAt)
	})
	return messages, nil
}
