package app

import (
	"context"

	"github.com/google/uuid"

	"placement-exam-service/internal/domain"
	"placement-exam-service/internal/exam"
)

// QuestionRepository loads the full question list for a language (from
// cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, language string) ([]domain.Question, error)
}

// SessionRegistry tracks live exam sessions by id.
type SessionRegistry interface {
	Put(session *exam.Session)
	Get(id string) (*exam.Session, bool)
	Remove(id string)
}

// ExamService owns the exam attempt lifecycle: question loading, session
// creation, and teardown. Per-attempt mechanics live in exam.Session.
type ExamService struct {
	questions QuestionRepository
	sessions  SessionRegistry
	results   exam.ResultSink
}

func NewExamService(questions QuestionRepository, sessions SessionRegistry, results exam.ResultSink) *ExamService {
	return &ExamService{questions: questions, sessions: sessions, results: results}
}

// StartSession loads the language's questions and creates a running session.
// An empty or absent question set is terminal for the attempt, never retried.
func (s *ExamService) StartSession(ctx context.Context, language, userID string, player exam.AudioPlayer) (*exam.Session, error) {
	questions, err := s.questions.GetQuestions(ctx, language)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	session, err := exam.NewSession(uuid.New().String(), userID, language, questions, player, s.results)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(session)
	session.Start(context.Background())
	return session, nil
}

// Session looks up a live session by id.
func (s *ExamService) Session(id string) (*exam.Session, bool) {
	return s.sessions.Get(id)
}

// EndSession tears a session down and drops it from the registry. Safe to
// call for unknown ids.
func (s *ExamService) EndSession(id string) {
	if session, ok := s.sessions.Get(id); ok {
		session.Close()
	}
	s.sessions.Remove(id)
}
