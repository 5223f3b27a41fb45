package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/domain"
)

// recorder captures broadcasts for assertions.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) ToRoom(_, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) ToParticipant(_, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func newTestOrchestrator(totalQuestions int) (*app.Orchestrator, *app.Registry, *recorder) {
	settings := domain.Settings{
		MaxParticipants:          4,
		QuestionTimeLimitSeconds: 1,
		TotalQuestions:           totalQuestions,
		TimeBonus:                true,
	}
	reg := app.NewRegistry(&stubBank{questions: testQuestions()}, settings, time.Hour)
	rec := &recorder{}
	orch := app.NewOrchestrator(reg, rec, 20*time.Millisecond, 20*time.Millisecond)
	return orch, reg, rec
}

func setupGame(t *testing.T, orch *app.Orchestrator) (code, hostID, bobID string) {
	t.Helper()
	code, hostID, err := orch.CreateRoom(context.Background(), "Alice")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	bobID, err = orch.JoinRoom(code, "Bob")
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	return code, hostID, bobID
}

func TestStartGameLeadsIntoFirstQuestion(t *testing.T) {
	orch, _, rec := newTestOrchestrator(2)
	defer orch.Shutdown()
	code, hostID, _ := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if rec.count("game-started") != 1 {
		t.Fatalf("expected game-started broadcast")
	}

	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})
	if !orch.Armed(code) {
		t.Fatalf("expected question timers armed")
	}
}

func TestStartGameRequiresHost(t *testing.T) {
	orch, _, _ := newTestOrchestrator(2)
	defer orch.Shutdown()
	_, _, bobID := setupGame(t, orch)

	if err := orch.StartGame(bobID); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := orch.StartGame("ghost"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestAllAnsweredEndsQuestionEarlyExactlyOnce(t *testing.T) {
	orch, _, rec := newTestOrchestrator(2)
	defer orch.Shutdown()
	_, hostID, bobID := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})

	if err := orch.SubmitAnswer(hostID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := orch.SubmitAnswer(bobID, 2); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, time.Second, "question-end", func() bool {
		return rec.count("question-end") == 1
	})
	// The superseded deadline must not end the question again; the next
	// question-start proves the game moved on instead.
	waitFor(t, 2*time.Second, "second question-start", func() bool {
		return rec.count("question-start") == 2
	})
	if rec.count("question-end") != 1 {
		t.Fatalf("question ended more than once")
	}
}

func TestHostForceEndRacesDeadlineSafely(t *testing.T) {
	orch, _, rec := newTestOrchestrator(1)
	defer orch.Shutdown()
	_, hostID, bobID := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})

	if err := orch.NextQuestion(hostID); err != nil {
		t.Fatalf("force end: %v", err)
	}
	// Let the original deadline expire too; it must find the question
	// already completed.
	time.Sleep(1200 * time.Millisecond)
	if got := rec.count("question-end"); got != 1 {
		t.Fatalf("expected exactly one question-end, got %d", got)
	}

	waitFor(t, time.Second, "game-over", func() bool {
		return rec.count("game-over") == 1
	})

	if err := orch.NextQuestion(bobID); !errors.Is(err, domain.ErrNotHost) {
		t.Fatalf("expected ErrNotHost for non-host, got %v", err)
	}
}

func TestGameRunsToCompletion(t *testing.T) {
	orch, reg, rec := newTestOrchestrator(1)
	defer orch.Shutdown()
	code, hostID, bobID := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})

	if err := orch.SubmitAnswer(hostID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := orch.SubmitAnswer(bobID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	waitFor(t, 2*time.Second, "game-over", func() bool {
		return rec.count("game-over") == 1
	})

	room, ok := reg.Room(code)
	if !ok {
		t.Fatalf("room should still be live until reclaimed")
	}
	if room.State() != domain.StateFinished {
		t.Fatalf("expected Finished, got %s", room.State())
	}
	if orch.Armed(code) {
		t.Fatalf("finished room must have no armed timers")
	}
}

func TestRevealSkipRacesRevealTimerSafely(t *testing.T) {
	orch, _, rec := newTestOrchestrator(2)
	defer orch.Shutdown()
	_, hostID, _ := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})
	if err := orch.NextQuestion(hostID); err != nil {
		t.Fatalf("force end: %v", err)
	}

	// Hammer the reveal skip while reveal timers expire underneath it; only
	// one side may own each advance.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			orch.NextQuestion(hostID)
			time.Sleep(time.Millisecond)
		}
	}()

	waitFor(t, 3*time.Second, "game-over", func() bool {
		return rec.count("game-over") == 1
	})
	<-done

	if starts, ends := rec.count("question-start"), rec.count("question-end"); starts != 2 || ends != 2 {
		t.Fatalf("expected each question started and ended exactly once, got starts=%d ends=%d", starts, ends)
	}
	if got := rec.count("game-over"); got != 1 {
		t.Fatalf("expected exactly one game-over, got %d", got)
	}
}

func TestDisconnectOfLastUnansweredEndsQuestion(t *testing.T) {
	// A long limit so only the all-answered path can end the question.
	settings := domain.Settings{
		MaxParticipants:          4,
		QuestionTimeLimitSeconds: 30,
		TotalQuestions:           1,
		TimeBonus:                true,
	}
	reg := app.NewRegistry(&stubBank{questions: testQuestions()}, settings, time.Hour)
	rec := &recorder{}
	orch := app.NewOrchestrator(reg, rec, 20*time.Millisecond, 20*time.Millisecond)
	defer orch.Shutdown()
	code, hostID, bobID := setupGame(t, orch)
	caraID, err := orch.JoinRoom(code, "Cara")
	if err != nil {
		t.Fatalf("join room: %v", err)
	}

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})

	if err := orch.SubmitAnswer(hostID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := orch.SubmitAnswer(bobID, 1); err != nil {
		t.Fatalf("submit: %v", err)
	}

	orch.Disconnect(caraID)
	waitFor(t, 2*time.Second, "question-end", func() bool {
		return rec.count("question-end") == 1
	})
	waitFor(t, 2*time.Second, "game-over", func() bool {
		return rec.count("game-over") == 1
	})
}

func TestLateSubmissionAfterCompletionRejected(t *testing.T) {
	orch, _, rec := newTestOrchestrator(1)
	defer orch.Shutdown()
	_, hostID, bobID := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})

	if err := orch.NextQuestion(hostID); err != nil {
		t.Fatalf("force end: %v", err)
	}
	if err := orch.SubmitAnswer(bobID, 1); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion after transition, got %v", err)
	}
}

func TestEmptiedRoomCancelsTimers(t *testing.T) {
	orch, _, rec := newTestOrchestrator(2)
	defer orch.Shutdown()
	code, hostID, bobID := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 2*time.Second, "question-start", func() bool {
		return rec.count("question-start") == 1
	})

	orch.Disconnect(hostID)
	if rec.count("player-left") != 1 {
		t.Fatalf("expected player-left for remaining participant")
	}
	orch.Disconnect(bobID)

	waitFor(t, time.Second, "timers disarmed", func() bool {
		return !orch.Armed(code)
	})
}

func TestCountdownBroadcastsRemainingTime(t *testing.T) {
	// Two-second limit so the 1s countdown tick lands well before the deadline.
	settings := domain.Settings{
		MaxParticipants:          4,
		QuestionTimeLimitSeconds: 2,
		TotalQuestions:           1,
		TimeBonus:                true,
	}
	reg := app.NewRegistry(&stubBank{questions: testQuestions()}, settings, time.Hour)
	rec := &recorder{}
	orch := app.NewOrchestrator(reg, rec, 20*time.Millisecond, 20*time.Millisecond)
	defer orch.Shutdown()
	_, hostID, _ := setupGame(t, orch)

	if err := orch.StartGame(hostID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	waitFor(t, 3*time.Second, "time-update", func() bool {
		return rec.count("time-update") >= 1
	})
}
