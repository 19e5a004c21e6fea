package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"placement-exam-service/internal/domain"
)

type fakeSink struct {
	mu    sync.Mutex
	calls int
	fail  bool
	block chan struct{} // when set, SaveResult waits until closed
	last  domain.Result
}

func (f *fakeSink) SaveResult(_ context.Context, result domain.Result) (domain.Result, error) {
	f.mu.Lock()
	f.calls++
	f.last = result
	block := f.block
	fail := f.fail
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if fail {
		return domain.Result{}, errors.New("persistence down")
	}
	result.ID = "result-1"
	return result, nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePlayer struct {
	mu     sync.Mutex
	plays  []string
	stops  int
	reject bool
}

func (p *fakePlayer) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, path)
	if p.reject {
		return errors.New("autoplay blocked")
	}
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func newTestSession(t *testing.T, questions []domain.Question, sink ResultSink, player AudioPlayer) *Session {
	t.Helper()
	s, err := newSessionWithClock("s1", "u1", "de", questions, player, sink, func() time.Time {
		return time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

// Scenario A: one grammar question, correct answer, manual finish.
func TestSingleQuestionFlow(t *testing.T) {
	sink := &fakeSink{}
	questions := []domain.Question{{
		ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar,
		Options: []string{"a", "b"}, Answer: "a",
	}}
	s := newTestSession(t, questions, sink, nil)

	step, remaining, urgency := s.Snapshot()
	if step.Kind != StepSingle || len(step.Questions) != 1 || step.Questions[0].ID != "1" {
		t.Fatalf("expected single-question step, got %+v", step)
	}
	if remaining != DurationSeconds || urgency != UrgencyNormal {
		t.Fatalf("expected fresh timer, got remaining=%d urgency=%s", remaining, urgency)
	}

	if err := s.Select("1", "a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	s.Advance(context.Background())

	if sink.count() != 1 {
		t.Fatalf("expected one persistence call, got %d", sink.count())
	}
	if sink.last.CorrectAnswers != 1 || sink.last.TotalQuestions != 1 || sink.last.ScorePercent != 100 {
		t.Fatalf("expected 1/1=100%%, got %+v", sink.last)
	}
	if !s.Finished() {
		t.Fatalf("expected terminal session")
	}
}

// Scenario B: three B1 listening questions form one block; advancing jumps past all.
func TestListeningBlockIntegrity(t *testing.T) {
	sink := &fakeSink{}
	player := &fakePlayer{}
	questions := []domain.Question{
		{ID: "l1", Level: domain.LevelB1, Skill: domain.SkillListening, Options: []string{"a"}, Answer: "a"},
		{ID: "l2", Level: domain.LevelB1, Skill: domain.SkillListening, Options: []string{"a"}, Answer: "a"},
		{ID: "l3", Level: domain.LevelB1, Skill: domain.SkillListening, Options: []string{"a"}, Answer: "a"},
		{ID: "g1", Level: domain.LevelB2, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a"},
	}
	s := newTestSession(t, questions, sink, player)

	step, _, _ := s.Snapshot()
	if step.Kind != StepListening || len(step.Questions) != 3 {
		t.Fatalf("expected listening block of 3, got %+v", step)
	}
	if step.AudioPath != "/audio/de/b1-hoerverstehen.mp3" {
		t.Fatalf("unexpected audio path %q", step.AudioPath)
	}
	if len(player.plays) != 1 {
		t.Fatalf("expected one playback attempt, got %d", len(player.plays))
	}

	s.Advance(context.Background())
	step, _, _ = s.Snapshot()
	if step.Kind != StepSingle || step.Questions[0].ID != "g1" {
		t.Fatalf("expected to land one past the block, got %+v", step)
	}
	if player.stops == 0 {
		t.Fatalf("expected playback stopped when leaving the block")
	}
	if sink.count() != 0 {
		t.Fatalf("no submission expected yet")
	}
}

func TestReadingBlockSharesOnePassage(t *testing.T) {
	sink := &fakeSink{}
	questions := []domain.Question{
		{ID: "r1", Level: domain.LevelA2, Skill: domain.SkillReading, Options: []string{"a"}, Answer: "a"},
		{ID: "r2", Level: domain.LevelA2, Skill: domain.SkillReading, Options: []string{"a"}, Answer: "a", Passage: "Es war einmal..."},
	}
	s := newTestSession(t, questions, sink, nil)

	step, _, _ := s.Snapshot()
	if step.Kind != StepReading || len(step.Questions) != 2 {
		t.Fatalf("expected reading block of 2, got %+v", step)
	}
	if step.Passage != "Es war einmal..." {
		t.Fatalf("expected first available passage, got %q", step.Passage)
	}

	// Advancing from inside the block submits because the block is the tail.
	s.Advance(context.Background())
	if sink.count() != 1 {
		t.Fatalf("expected submission after final block, got %d calls", sink.count())
	}
}

// Scenario C: timer expiry auto-submits with zero answers.
func TestTimerExpiryAutoSubmits(t *testing.T) {
	sink := &fakeSink{}
	questions := []domain.Question{
		{ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a"},
		{ID: "2", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a"},
	}
	s := newTestSession(t, questions, sink, nil)

	ctx := context.Background()
	done := false
	for i := 0; i < DurationSeconds; i++ {
		done = s.Tick(ctx)
	}
	if !done {
		t.Fatalf("expected terminal state after %d ticks", DurationSeconds)
	}
	if sink.count() != 1 {
		t.Fatalf("expected exactly one persistence call, got %d", sink.count())
	}
	if sink.last.CorrectAnswers != 0 || sink.last.TotalQuestions != 2 || sink.last.ScorePercent != 0 {
		t.Fatalf("expected 0/2=0%%, got %+v", sink.last)
	}

	// Further ticks are no-ops.
	if !s.Tick(ctx) {
		t.Fatalf("expected tick on terminal session to report done")
	}
	if sink.count() != 1 {
		t.Fatalf("timer re-fired submission: %d calls", sink.count())
	}
}

// Scenario D: persistence failure degrades to a local summary, no retry.
func TestPersistenceFailureFallsBackToLocalSummary(t *testing.T) {
	sink := &fakeSink{fail: true}
	questions := []domain.Question{{
		ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a",
	}}
	s := newTestSession(t, questions, sink, nil)
	_ = s.Select("1", "a")

	out, submitted := s.Finish(context.Background())
	if !submitted {
		t.Fatalf("expected finish to perform the submission")
	}
	if out.Persisted || out.ResultID != "" {
		t.Fatalf("expected non-persisted outcome, got %+v", out)
	}
	if out.Correct != 1 || out.Total != 1 || out.Percent != 100 {
		t.Fatalf("expected local summary 1/1=100%%, got %+v", out)
	}
	if sink.count() != 1 {
		t.Fatalf("expected no retry, got %d calls", sink.count())
	}
}

func TestSubmitExactlyOnceUnderConcurrentTriggers(t *testing.T) {
	sink := &fakeSink{}
	questions := []domain.Question{{
		ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a",
	}}
	s := newTestSession(t, questions, sink, nil)

	ctx := context.Background()
	s.remaining = 1 // next tick reaches zero
	var wg sync.WaitGroup
	for i := 0; i < 9; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			switch n % 3 {
			case 0:
				s.Finish(ctx)
			case 1:
				s.Advance(ctx) // past the last question
			default:
				s.Tick(ctx)
			}
		}(i)
	}
	wg.Wait()

	if sink.count() != 1 {
		t.Fatalf("expected exactly one persistence call, got %d", sink.count())
	}
}

func TestSelectionDuringPendingPersistIsRejectedButNotLost(t *testing.T) {
	// Selections made before Finish are included even when the sink is slow;
	// selections after Finish are refused.
	block := make(chan struct{})
	sink := &fakeSink{block: block}
	questions := []domain.Question{
		{ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a"},
		{ID: "2", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"b"}, Answer: "b"},
	}
	s := newTestSession(t, questions, sink, nil)
	_ = s.Select("1", "a")
	_ = s.Select("2", "b")

	done := make(chan Outcome, 1)
	go func() {
		out, _ := s.Finish(context.Background())
		done <- out
	}()

	// Wait until the sink call is in flight.
	for sink.count() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := s.Select("1", "b"); !errors.Is(err, domain.ErrSessionFinished) {
		t.Fatalf("expected ErrSessionFinished, got %v", err)
	}
	close(block)

	out := <-done
	if out.Correct != 2 || out.Percent != 100 {
		t.Fatalf("expected both pre-finish answers scored, got %+v", out)
	}
}

func TestCloseSuppressesLateSinkResponse(t *testing.T) {
	block := make(chan struct{})
	sink := &fakeSink{block: block}
	questions := []domain.Question{{
		ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a",
	}}
	s := newTestSession(t, questions, sink, nil)

	events, cancel := s.Subscribe()
	defer cancel()

	go s.Finish(context.Background())
	for sink.count() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Close()
	close(block)

	// The subscriber channel was closed by Close; no submitted event may
	// arrive afterwards.
	for event := range events {
		if event.Type == EventSubmitted {
			t.Fatalf("submitted event delivered after teardown")
		}
	}
}

func TestAutoplayRejectionDegradesAndReplayRecovers(t *testing.T) {
	player := &fakePlayer{reject: true}
	questions := []domain.Question{{
		ID: "l1", Level: domain.LevelA1, Skill: domain.SkillListening, Options: []string{"a"}, Answer: "a",
	}}
	s := newTestSession(t, questions, &fakeSink{}, player)

	step, _, _ := s.Snapshot()
	if !step.AudioDegraded {
		t.Fatalf("expected degraded audio state after rejected play")
	}

	// Answering and advancing are not blocked by the degraded state.
	if err := s.Select("l1", "a"); err != nil {
		t.Fatalf("select in degraded block: %v", err)
	}

	player.reject = false
	s.ReplayAudio()
	step, _, _ = s.Snapshot()
	if step.AudioDegraded {
		t.Fatalf("expected replay to clear the degraded state")
	}
	if len(player.plays) != 2 {
		t.Fatalf("expected two playback attempts, got %d", len(player.plays))
	}
}

func TestTickEmitsUrgency(t *testing.T) {
	questions := []domain.Question{{
		ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a",
	}}
	s := newTestSession(t, questions, &fakeSink{}, nil)
	events, cancel := s.Subscribe()
	defer cancel()

	s.remaining = 301
	s.Tick(context.Background())
	event := <-events
	if event.Type != EventTick || event.Remaining != 300 || event.Urgency != UrgencyWarning {
		t.Fatalf("expected warning tick at 300s, got %+v", event)
	}

	s.remaining = 60
	s.Tick(context.Background())
	event = <-events
	if event.Urgency != UrgencyCritical {
		t.Fatalf("expected critical urgency below 60s, got %+v", event)
	}
}

func TestNewSessionRejectsEmptyList(t *testing.T) {
	_, err := NewSession("s1", "u1", "de", nil, nil, &fakeSink{})
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestStartAndCloseStopTicker(t *testing.T) {
	sink := &fakeSink{}
	questions := []domain.Question{{
		ID: "1", Level: domain.LevelA1, Skill: domain.SkillGrammar, Options: []string{"a"}, Answer: "a",
	}}
	s := newTestSession(t, questions, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Close()

	// A closed session never submits, even if a stray tick slips in.
	if s.Tick(ctx) != true {
		t.Fatalf("expected tick on closed session to report done")
	}
	if sink.count() != 0 {
		t.Fatalf("closed session must not submit, got %d calls", sink.count())
	}
}
