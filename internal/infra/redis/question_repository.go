package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"placement-exam-service/internal/domain"
)

// QuestionLoader fetches question content from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, language string) ([]domain.Question, error)
}

// QuestionRepository caches each language's full question list in Redis as a
// serialized JSON value and falls back to a loader on cache miss. The
// question lists are small (<200 items) and read as a whole at session
// start, so one value per language beats per-question hashing.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, language string) ([]domain.Question, error) {
	key := r.key(language)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		if questions, ok := decode(raw); ok {
			return questions, nil
		}
	}

	result, err, _ := r.sf.Do(language, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			if questions, ok := decode(raw); ok {
				return questions, nil
			}
		}

		questions, err := r.loader.LoadQuestions(ctx, language)
		if err != nil {
			return nil, err
		}

		if encoded, err := json.Marshal(questions); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, encoded, r.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) key(language string) string {
	return "exam:questions:" + language
}

func decode(raw []byte) ([]domain.Question, bool) {
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
