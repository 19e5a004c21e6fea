package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"placement-exam-service/internal/exam"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions themselves stay in-process; their timers and subscriber
//     channels cannot cross instances.
//   - Redis marks attempt liveness so operators can see running exams (and
//     it could be extended to share snapshots across instances).
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*exam.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*exam.Session),
	}
}

func (r *SessionRegistry) Put(session *exam.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID()] = session
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(session.ID()), "1", r.ttl).Err()
}

func (r *SessionRegistry) Get(id string) (*exam.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	_ = r.client.Del(context.Background(), r.key(id)).Err()
}

func (r *SessionRegistry) key(id string) string {
	return "exam:session:" + id
}
