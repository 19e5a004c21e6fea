package exam

import (
	"context"
	"sync"
	"time"

	"placement-exam-service/internal/domain"
)

// DurationSeconds is the fixed countdown for a whole exam attempt.
const DurationSeconds = 45 * 60

// AudioPlayer is the playback collaborator of a listening block. Play is a
// one-shot, non-blocking attempt; a returned error means the runtime rejected
// playback and the block degrades to manual replay.
type AudioPlayer interface {
	Play(path string) error
	Stop()
}

// NopPlayer accepts every playback request and does nothing.
type NopPlayer struct{}

func (NopPlayer) Play(string) error { return nil }
func (NopPlayer) Stop()             {}

// ResultSink persists a computed score and assigns it a durable identifier.
type ResultSink interface {
	SaveResult(ctx context.Context, result domain.Result) (domain.Result, error)
}

// Outcome is what a finished session reports. Persisted is false when the
// sink call failed and only the local summary is available.
type Outcome struct {
	Summary
	Language  string `json:"language"`
	ResultID  string `json:"resultId,omitempty"`
	Persisted bool   `json:"persisted"`
}

// EventType enumerates session notifications pushed to subscribers.
type EventType string

const (
	EventStep      EventType = "step"
	EventTick      EventType = "tick"
	EventSubmitted EventType = "submitted"
)

// Event is one session notification.
type Event struct {
	Type      EventType `json:"type"`
	Step      *Step     `json:"step,omitempty"`
	Remaining int       `json:"remaining"`
	Urgency   Urgency   `json:"urgency,omitempty"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
}

// Session walks one learner through an ordered question list as a sequence of
// steps, tracks answers, runs the countdown, and guarantees the persistence
// call is issued at most once regardless of how the attempt ends.
//
// All transitions run to completion under the session mutex; the sink call is
// the only suspension point and happens outside the lock so answer selections
// arriving while it is pending are never lost.
type Session struct {
	id        string
	userID    string
	language  string
	questions []domain.Question
	player    AudioPlayer
	sink      ResultSink
	now       func() time.Time

	mu          sync.Mutex
	cursor      int
	answers     map[string]string
	remaining   int
	step        Step
	terminal    bool
	closed      bool
	outcome     *Outcome
	stopTimer   chan struct{}
	subscribers map[chan Event]struct{}
}

// NewSession orders the raw question list and enters the first step. The
// question list is fixed for the session's lifetime from here on.
func NewSession(id, userID, language string, questions []domain.Question, player AudioPlayer, sink ResultSink) (*Session, error) {
	return newSessionWithClock(id, userID, language, questions, player, sink, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id, userID, language string, questions []domain.Question, player AudioPlayer, sink ResultSink, now func() time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if player == nil {
		player = NopPlayer{}
	}
	s := &Session{
		id:          id,
		userID:      userID,
		language:    language,
		questions:   OrderQuestions(questions),
		player:      player,
		sink:        sink,
		now:         now,
		answers:     make(map[string]string),
		remaining:   DurationSeconds,
		subscribers: make(map[chan Event]struct{}),
	}
	s.enterLocked()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start launches the one-per-second countdown. The ticker is cleared on every
// exit path: manual submission, timeout, and Close.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.terminal || s.closed || s.stopTimer != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stopTimer = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if s.Tick(ctx) {
					return
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Tick decrements the countdown by one second and reports whether the session
// has reached a terminal state. Reaching zero submits exactly as if the
// learner had advanced past the last question; the trigger never re-fires.
func (s *Session) Tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.terminal || s.closed {
		s.mu.Unlock()
		return true
	}
	if s.remaining > 0 {
		s.remaining--
	}
	remaining := s.remaining
	if remaining <= 0 {
		s.mu.Unlock()
		s.Finish(ctx)
		return true
	}
	s.broadcastLocked(Event{Type: EventTick, Remaining: remaining, Urgency: UrgencyFor(remaining)})
	s.mu.Unlock()
	return false
}

// Select records an answer for a question, overwriting any previous choice.
// Selection never advances the cursor and is allowed at any point while the
// session is live, including while a network call is pending.
func (s *Session) Select(questionID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal || s.closed {
		return domain.ErrSessionFinished
	}
	s.answers[questionID] = option
	return nil
}

// Advance moves past the current step: one index for a single question, one
// past the last member of the active block's (level, skill) run otherwise.
// Advancing past the final index routes into the submission path, as does the
// defensive out-of-range guard.
func (s *Session) Advance(ctx context.Context) {
	s.mu.Lock()
	if s.terminal || s.closed {
		s.mu.Unlock()
		return
	}

	switch s.step.Kind {
	case StepListening, StepReading:
		s.player.Stop()
		s.cursor = s.lastBlockIndexLocked() + 1
	default:
		s.cursor++
	}

	if s.cursor < 0 || s.cursor >= len(s.questions) {
		s.mu.Unlock()
		s.Finish(ctx)
		return
	}

	s.enterLocked()
	step := s.step
	s.broadcastLocked(Event{Type: EventStep, Step: &step, Remaining: s.remaining, Urgency: UrgencyFor(s.remaining)})
	s.mu.Unlock()
}

// lastBlockIndexLocked finds the final index of the active block's run in the
// full presentation order.
func (s *Session) lastBlockIndexLocked() int {
	if len(s.step.Questions) == 0 {
		return s.cursor
	}
	level := s.step.Questions[0].Level
	var skill domain.Skill
	if s.step.Kind == StepListening {
		skill = domain.SkillListening
	} else {
		skill = domain.SkillReading
	}
	last := s.cursor
	for i, q := range s.questions {
		if q.Level == level && q.Skill == skill {
			last = i
		}
	}
	return last
}

// enterLocked evaluates the transition rule at the current cursor and builds
// the active step. Entering a listening block attempts playback once.
func (s *Session) enterLocked() {
	q := s.questions[s.cursor]
	switch q.Skill {
	case domain.SkillListening:
		members := s.collectLocked(q.Level, domain.SkillListening)
		step := Step{
			Kind:      StepListening,
			Questions: members,
			AudioPath: AudioPath(s.language, q.Level),
		}
		if err := s.player.Play(step.AudioPath); err != nil {
			step.AudioDegraded = true
		}
		s.step = step
	case domain.SkillReading:
		members := s.collectLocked(q.Level, domain.SkillReading)
		s.step = Step{
			Kind:      StepReading,
			Questions: members,
			Passage:   blockPassage(members),
		}
	default:
		s.step = Step{Kind: StepSingle, Questions: []domain.Question{q}}
	}
}

func (s *Session) collectLocked(level domain.Level, skill domain.Skill) []domain.Question {
	var members []domain.Question
	for _, q := range s.questions {
		if q.Level == level && q.Skill == skill {
			members = append(members, q)
		}
	}
	return members
}

// ReplayAudio re-issues the playback attempt of the active listening block.
// Idempotent; callable any number of times.
func (s *Session) ReplayAudio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal || s.closed || s.step.Kind != StepListening {
		return
	}
	s.step.AudioDegraded = s.player.Play(s.step.AudioPath) != nil
}

// ReportAudioFailure marks the active listening block degraded when the
// client runtime rejected autoplay.
func (s *Session) ReportAudioFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal || s.closed || s.step.Kind != StepListening {
		return
	}
	s.step.AudioDegraded = true
}

// Finish is the single submission path shared by all three triggers: manual
// advance past the end, timer expiry, and the defensive index guard. The
// second return value reports whether this call actually performed the
// submission; re-entry while terminal is a no-op.
//
// On sink failure the outcome keeps the locally computed summary with
// Persisted=false; the call is never retried.
func (s *Session) Finish(ctx context.Context) (Outcome, bool) {
	s.mu.Lock()
	if s.terminal {
		var out Outcome
		if s.outcome != nil {
			out = *s.outcome
		}
		s.mu.Unlock()
		return out, false
	}
	s.terminal = true
	s.stopTimerLocked()
	s.player.Stop()
	summary := Score(s.questions, s.answers)
	s.mu.Unlock()

	out := Outcome{Summary: summary, Language: s.language}
	if s.sink != nil {
		saved, err := s.sink.SaveResult(ctx, domain.Result{
			UserID:         s.userID,
			Language:       s.language,
			TotalQuestions: summary.Total,
			CorrectAnswers: summary.Correct,
			ScorePercent:   summary.Percent,
			CreatedAt:      s.now(),
		})
		if err == nil {
			out.ResultID = saved.ID
			out.Persisted = true
		}
	}

	s.mu.Lock()
	if s.closed {
		// Torn down while the sink call was in flight; drop the update.
		s.mu.Unlock()
		return out, true
	}
	s.outcome = &out
	s.broadcastLocked(Event{Type: EventSubmitted, Outcome: &out})
	s.mu.Unlock()
	return out, true
}

// Close tears the session down: the timer stops, playback stops, subscribers
// are released, and any sink response still in flight is suppressed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.player.Stop()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) stopTimerLocked() {
	if s.stopTimer != nil {
		close(s.stopTimer)
		s.stopTimer = nil
	}
}

// Snapshot returns the active step and remaining time for an initial render.
func (s *Session) Snapshot() (Step, int, Urgency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step, s.remaining, UrgencyFor(s.remaining)
}

// Finished reports whether submission has been initiated.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Subscribe returns a channel receiving session events. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcastLocked fans an event out to subscribers, dropping the stalest
// buffered event for slow consumers instead of blocking the transition.
func (s *Session) broadcastLocked(event Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
