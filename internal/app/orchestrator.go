package app

import (
	"context"
	"log"
	"sync"
	"time"

	"trivia-party-service/internal/domain"
)

// Broadcaster delivers outbound events to participants. Delivery is
// best-effort and must never block state progression.
type Broadcaster interface {
	ToRoom(code, event string, payload any)
	ToParticipant(participantID, event string, payload any)
}

// Outbound event payloads.
type (
	RoomCreatedPayload struct {
		RoomCode string `json:"roomCode"`
		HostID   string `json:"hostId"`
	}
	RoomJoinedPayload struct {
		RoomCode      string `json:"roomCode"`
		ParticipantID string `json:"participantId"`
		DisplayName   string `json:"displayName"`
	}
	PlayerJoinedPayload struct {
		Player domain.PlayerView `json:"player"`
	}
	PlayerLeftPayload struct {
		ParticipantID string `json:"participantId"`
		DisplayName   string `json:"displayName"`
	}
	PlayersUpdatePayload struct {
		Players []domain.PlayerView `json:"players"`
	}
	GameStartedPayload struct {
		TotalQuestions int `json:"totalQuestions"`
		TimeLimit      int `json:"timeLimit"`
	}
	QuestionStartPayload struct {
		Question       domain.QuestionView `json:"question"`
		QuestionNumber int                 `json:"questionNumber"`
		TotalQuestions int                 `json:"totalQuestions"`
		TimeLimit      int                 `json:"timeLimit"`
	}
	TimeUpdatePayload struct {
		RemainingSeconds int `json:"remainingSeconds"`
	}
	QuestionEndPayload struct {
		Results     domain.QuestionResult     `json:"results"`
		Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
	}
	GameOverPayload struct {
		FinalScores []domain.LeaderboardEntry `json:"finalScores"`
		Stats       domain.GameStats          `json:"stats"`
	}
)

// roomTimers is the cancellable handle for a room's active phase. Exactly
// one exists per room at a time: a lead-in or reveal delay (question == -1)
// or a question deadline plus its cosmetic countdown ticker.
type roomTimers struct {
	question  int
	timer     *time.Timer
	countdown *time.Ticker
	done      chan struct{}
}

// Orchestrator bridges the room state machine to timer-driven execution.
// It reacts to participant events and timer expiry, drives room transitions,
// and emits the outbound broadcasts other layers deliver.
type Orchestrator struct {
	registry *Registry
	bc       Broadcaster
	leadIn   time.Duration
	reveal   time.Duration

	mu     sync.Mutex
	timers map[string]*roomTimers
	closed bool
}

// NewOrchestrator wires the orchestrator to the registry and installs it as
// the registry's timer guard.
func NewOrchestrator(registry *Registry, bc Broadcaster, leadIn, reveal time.Duration) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		bc:       bc,
		leadIn:   leadIn,
		reveal:   reveal,
		timers:   make(map[string]*roomTimers),
	}
	registry.SetTimerGuard(o)
	return o
}

// CreateRoom handles the create-room request.
func (o *Orchestrator) CreateRoom(ctx context.Context, displayName string) (code, participantID string, err error) {
	return o.registry.CreateRoom(ctx, displayName)
}

// AnnounceRoomCreated is invoked by the transport once the creator's
// connection is registered, so the initial events are deliverable.
func (o *Orchestrator) AnnounceRoomCreated(code, hostID string) {
	room, ok := o.registry.Room(code)
	if !ok {
		return
	}
	o.bc.ToParticipant(hostID, "room-created", RoomCreatedPayload{RoomCode: code, HostID: hostID})
	o.bc.ToRoom(code, "players-update", PlayersUpdatePayload{Players: room.Players()})
}

// JoinRoom handles the join-room request.
func (o *Orchestrator) JoinRoom(code, displayName string) (string, error) {
	return o.registry.JoinRoom(code, displayName)
}

// AnnounceJoined broadcasts a successful join to the room and confirms it
// to the joining participant.
func (o *Orchestrator) AnnounceJoined(code, participantID string) {
	room, ok := o.registry.Room(code)
	if !ok {
		return
	}
	player, ok := room.Player(participantID)
	if !ok {
		return
	}
	o.bc.ToRoom(code, "player-joined", PlayerJoinedPayload{Player: player})
	o.bc.ToParticipant(participantID, "room-joined", RoomJoinedPayload{
		RoomCode:      code,
		ParticipantID: participantID,
		DisplayName:   player.DisplayName,
	})
	o.bc.ToRoom(code, "players-update", PlayersUpdatePayload{Players: room.Players()})
}

// StartGame handles the start-game request: the room accepts the start,
// the lobby is notified, and question zero is scheduled after the lead-in.
func (o *Orchestrator) StartGame(participantID string) error {
	code, ok := o.registry.ParticipantRoom(participantID)
	if !ok {
		return domain.ErrParticipantNotFound
	}
	room, ok := o.registry.Room(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := room.Start(participantID); err != nil {
		return err
	}

	settings := room.Settings()
	o.bc.ToRoom(code, "game-started", GameStartedPayload{
		TotalQuestions: settings.TotalQuestions,
		TimeLimit:      settings.QuestionTimeLimitSeconds,
	})
	o.armDelay(code, o.leadIn, func() { o.advance(code) })
	return nil
}

// SubmitAnswer handles the submit-answer request. When the last outstanding
// participant answers, the question completes early through the same
// cancel-before-call path as the deadline.
func (o *Orchestrator) SubmitAnswer(participantID string, optionIndex int) error {
	code, ok := o.registry.ParticipantRoom(participantID)
	if !ok {
		return domain.ErrParticipantNotFound
	}
	room, ok := o.registry.Room(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := room.SubmitAnswer(participantID, optionIndex); err != nil {
		return err
	}
	if room.AllAnswered() {
		o.completeQuestion(code, room.CurrentQuestionIndex())
	}
	return nil
}

// NextQuestion handles the host-only next-question request: force-end the
// active question, or skip the rest of the reveal delay.
func (o *Orchestrator) NextQuestion(participantID string) error {
	code, ok := o.registry.ParticipantRoom(participantID)
	if !ok {
		return domain.ErrParticipantNotFound
	}
	room, ok := o.registry.Room(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.HostID() != participantID {
		return domain.ErrNotHost
	}

	switch room.State() {
	case domain.StateQuestion:
		o.completeQuestion(code, room.CurrentQuestionIndex())
		return nil
	case domain.StateResults:
		if !o.claimCurrent(code) {
			// The reveal timer fired first and is already advancing.
			return nil
		}
		o.advance(code)
		return nil
	default:
		return domain.ErrNoActiveQuestion
	}
}

// Disconnect removes the participant from their room, cancels the room's
// timers if nobody is left, and notifies the remaining players.
func (o *Orchestrator) Disconnect(participantID string) {
	code, removed, _, empty, err := o.registry.RemoveParticipant(participantID)
	if err != nil {
		return
	}
	if empty {
		// No orphaned timer may fire against a room with no participants.
		o.cancelTimers(code)
		return
	}

	o.bc.ToRoom(code, "player-left", PlayerLeftPayload{
		ParticipantID: removed.ID,
		DisplayName:   removed.DisplayName,
	})
	if room, ok := o.registry.Room(code); ok {
		o.bc.ToRoom(code, "players-update", PlayersUpdatePayload{Players: room.Players()})
		// The departed player may have been the only one still to answer.
		if room.AllAnswered() {
			o.completeQuestion(code, room.CurrentQuestionIndex())
		}
	}
}

// Armed implements TimerGuard for the registry's reclamation sweep.
func (o *Orchestrator) Armed(code string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.timers[code]
	return ok
}

// Shutdown cancels every outstanding timer and rejects further arming.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	for code := range o.timers {
		o.cancelLocked(code)
	}
}

// advance opens the next question, or finishes the game when the sequence
// is exhausted.
func (o *Orchestrator) advance(code string) {
	room, ok := o.registry.Room(code)
	if !ok {
		o.cancelTimers(code)
		return
	}

	view, number, err := room.AdvanceQuestion()
	if err != nil {
		if err == domain.ErrNoMoreQuestions {
			o.finishGame(code)
			return
		}
		log.Printf("room %s: advance question: %v", code, err)
		return
	}

	settings := room.Settings()
	o.bc.ToRoom(code, "question-start", QuestionStartPayload{
		Question:       view,
		QuestionNumber: number,
		TotalQuestions: settings.TotalQuestions,
		TimeLimit:      settings.QuestionTimeLimitSeconds,
	})
	o.armQuestion(code, room.CurrentQuestionIndex(), settings.QuestionTimeLimitSeconds)
}

// completeQuestion ends a question exactly once. The armed timer entry is
// the one-shot token: whichever of deadline expiry, host force-end, or the
// all-answered fast path claims it first proceeds; the others find it gone
// (or re-armed for a different question) and stand down.
func (o *Orchestrator) completeQuestion(code string, question int) {
	o.mu.Lock()
	t, ok := o.timers[code]
	if !ok || t.question != question {
		o.mu.Unlock()
		log.Printf("room %s: question %d already completed, ignoring", code, question)
		return
	}
	o.cancelLocked(code)
	o.mu.Unlock()

	room, ok := o.registry.Room(code)
	if !ok {
		return
	}
	results, leaderboard, err := room.EndQuestion()
	if err != nil {
		// A superseded caller lost the race to a state transition; not a fault.
		log.Printf("room %s: end question: %v", code, err)
		return
	}

	o.bc.ToRoom(code, "question-end", QuestionEndPayload{
		Results:     results,
		Leaderboard: leaderboard,
	})

	if room.OnLastQuestion() {
		o.armDelay(code, o.reveal, func() { o.finishGame(code) })
	} else {
		o.armDelay(code, o.reveal, func() { o.advance(code) })
	}
}

func (o *Orchestrator) finishGame(code string) {
	o.cancelTimers(code)
	room, ok := o.registry.Room(code)
	if !ok {
		return
	}
	finalScores, stats := room.Finish()
	o.bc.ToRoom(code, "game-over", GameOverPayload{FinalScores: finalScores, Stats: stats})
}

// armQuestion replaces any prior timers for the room with the question's
// deadline timer and countdown ticker.
func (o *Orchestrator) armQuestion(code string, question, limitSeconds int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.cancelLocked(code)

	t := &roomTimers{
		question:  question,
		countdown: time.NewTicker(time.Second),
		done:      make(chan struct{}),
	}
	t.timer = time.AfterFunc(time.Duration(limitSeconds)*time.Second, func() {
		o.completeQuestion(code, question)
	})
	o.timers[code] = t
	go o.runCountdown(code, limitSeconds, t)
}

// armDelay replaces any prior timers with a one-shot lead-in or reveal delay.
func (o *Orchestrator) armDelay(code string, d time.Duration, fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.cancelLocked(code)

	t := &roomTimers{
		question: -1,
		done:     make(chan struct{}),
	}
	t.timer = time.AfterFunc(d, func() {
		if !o.claim(code, t) {
			return
		}
		fn()
	})
	o.timers[code] = t
}

// claimCurrent removes whatever timer entry the room has armed, reporting
// whether the caller now owns the transition. A missing entry means a fired
// callback claimed it first.
func (o *Orchestrator) claimCurrent(code string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.timers[code]; !ok {
		return false
	}
	o.cancelLocked(code)
	return true
}

// claim removes the timer entry iff it is still the armed one, so a delay
// callback that raced its own cancellation stands down.
func (o *Orchestrator) claim(code string, t *roomTimers) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok := o.timers[code]
	if !ok || cur != t {
		return false
	}
	o.cancelLocked(code)
	return true
}

func (o *Orchestrator) cancelTimers(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelLocked(code)
}

// cancelLocked is a no-op when nothing is armed; stopping an
// already-fired timer is harmless.
func (o *Orchestrator) cancelLocked(code string) {
	t, ok := o.timers[code]
	if !ok {
		return
	}
	t.timer.Stop()
	if t.countdown != nil {
		t.countdown.Stop()
	}
	close(t.done)
	delete(o.timers, code)
}

// runCountdown broadcasts remaining time once per second. Cosmetic only;
// the deadline timer drives the state transition.
func (o *Orchestrator) runCountdown(code string, seconds int, t *roomTimers) {
	remaining := seconds
	for {
		select {
		case <-t.done:
			return
		case <-t.countdown.C:
			if remaining <= 0 {
				return
			}
			o.bc.ToRoom(code, "time-update", TimeUpdatePayload{RemainingSeconds: remaining})
			remaining--
		}
	}
}
