package app

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"trivia-party-service/internal/domain"
)

// Room owns one trivia session: participants, the question cursor, the
// answers collected for the current question, and accumulated scores.
// Every operation takes the room mutex, so each is atomic with respect to
// the others; the orchestrator relies on that when timer callbacks race
// participant events.
type Room struct {
	code      string
	createdAt time.Time
	settings  domain.Settings
	questions []domain.Question
	now       func() time.Time

	mu                sync.Mutex
	state             domain.RoomState
	hostID            string
	participants      map[string]*domain.Participant
	scores            map[string]int
	cursor            int
	pending           map[string]*domain.AnswerSubmission
	questionStartedAt time.Time
	startedAt         time.Time
}

// NewRoom creates a room in Waiting with the host as its sole participant.
func NewRoom(code, hostID, hostName string, questions []domain.Question, settings domain.Settings) *Room {
	return NewRoomWithClock(code, hostID, hostName, questions, settings, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(code, hostID, hostName string, questions []domain.Question, settings domain.Settings, now func() time.Time) *Room {
	r := &Room{
		code:         code,
		createdAt:    now(),
		settings:     settings,
		questions:    questions,
		now:          now,
		state:        domain.StateWaiting,
		hostID:       hostID,
		participants: make(map[string]*domain.Participant),
		scores:       make(map[string]int),
		cursor:       -1,
		pending:      make(map[string]*domain.AnswerSubmission),
	}
	r.participants[hostID] = &domain.Participant{
		ID:          hostID,
		DisplayName: hostName,
		IsHost:      true,
		IsActive:    true,
		JoinedAt:    r.createdAt,
	}
	r.scores[hostID] = 0
	return r
}

// startingGrace bounds how long a room may sit in Starting with no question
// opened before a join reverts it to Waiting. Covers a lost lead-in timer;
// well above any configured lead-in delay.
const startingGrace = 10 * time.Second

// Join adds a participant while the room is still accepting players.
// A room stuck in Starting (lead-in never advanced it to the first question)
// is reverted to Waiting rather than permanently blocking joins.
func (r *Room) Join(displayName string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StateWaiting {
		if r.state == domain.StateStarting && r.cursor == -1 && r.now().Sub(r.startedAt) > startingGrace {
			r.state = domain.StateWaiting
			r.startedAt = time.Time{}
		} else {
			return "", domain.ErrGameAlreadyStarted
		}
	}
	if len(r.participants) >= r.settings.MaxParticipants {
		return "", domain.ErrRoomFull
	}
	for _, p := range r.participants {
		if p.DisplayName == displayName {
			return "", domain.ErrNameTaken
		}
	}

	id := uuid.NewString()
	r.participants[id] = &domain.Participant{
		ID:          id,
		DisplayName: displayName,
		IsActive:    true,
		JoinedAt:    r.now(),
	}
	r.scores[id] = 0
	return id, nil
}

// Remove deletes a participant along with their score and pending answer.
// When the host leaves and others remain, the earliest-joined remaining
// participant is promoted. An emptied room transitions to Abandoned.
func (r *Room) Remove(participantID string) (removed domain.PlayerView, wasHost, empty bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[participantID]
	if !ok {
		return domain.PlayerView{}, false, false, domain.ErrParticipantNotFound
	}
	removed = r.playerViewLocked(p)
	wasHost = p.IsHost

	delete(r.participants, participantID)
	delete(r.scores, participantID)
	delete(r.pending, participantID)

	if len(r.participants) == 0 {
		r.state = domain.StateAbandoned
		return removed, wasHost, true, nil
	}
	if wasHost {
		next := r.earliestParticipantLocked()
		next.IsHost = true
		r.hostID = next.ID
	}
	return removed, wasHost, false, nil
}

// Start marks the game as accepted. It deliberately does not begin question
// zero; the orchestrator advances after a uniform lead-in delay.
func (r *Room) Start(callerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if callerID != r.hostID {
		return domain.ErrNotHost
	}
	if r.state != domain.StateWaiting {
		return domain.ErrGameAlreadyStarted
	}
	if len(r.participants) < 2 {
		return domain.ErrNotEnoughPlayers
	}

	r.state = domain.StateStarting
	r.startedAt = r.now()
	return nil
}

// AdvanceQuestion moves the cursor to the next question, clears collected
// answers, and opens the answer window. Returns the client-safe projection
// and the 1-based question number. Exhausting the sequence transitions the
// room to Finished and reports ErrNoMoreQuestions.
func (r *Room) AdvanceQuestion() (domain.QuestionView, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == domain.StateWaiting {
		return domain.QuestionView{}, 0, domain.ErrGameNotStarted
	}
	if r.state == domain.StateFinished || r.state == domain.StateAbandoned {
		return domain.QuestionView{}, 0, domain.ErrNoMoreQuestions
	}
	if r.cursor+1 >= len(r.questions) {
		r.cursor = len(r.questions)
		r.state = domain.StateFinished
		return domain.QuestionView{}, 0, domain.ErrNoMoreQuestions
	}

	r.cursor++
	r.pending = make(map[string]*domain.AnswerSubmission)
	r.questionStartedAt = r.now()
	r.state = domain.StateQuestion
	return r.questions[r.cursor].View(), r.cursor + 1, nil
}

// SubmitAnswer records a participant's answer for the active question.
// The authoritative cutoff is the room leaving the Question state, not a
// wall-clock comparison: a submission racing the deadline is accepted as
// long as it is processed before the transition.
func (r *Room) SubmitAnswer(participantID string, optionIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[participantID]; !ok {
		return domain.ErrParticipantNotFound
	}
	if r.state != domain.StateQuestion {
		return domain.ErrNoActiveQuestion
	}
	if _, ok := r.pending[participantID]; ok {
		return domain.ErrAlreadyAnswered
	}

	now := r.now()
	r.pending[participantID] = &domain.AnswerSubmission{
		ParticipantID: participantID,
		OptionIndex:   optionIndex,
		SubmittedAt:   now,
		ElapsedMillis: now.Sub(r.questionStartedAt).Milliseconds(),
	}
	return nil
}

// EndQuestion scores every participant for the current question, including
// non-submitters at zero, accumulates into the score map, and transitions
// to Results. Scores never decrease.
func (r *Room) EndQuestion() (domain.QuestionResult, []domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StateQuestion {
		return domain.QuestionResult{}, nil, domain.ErrNoActiveQuestion
	}

	question := r.questions[r.cursor]
	results := make([]domain.PlayerQuestionResult, 0, len(r.participants))
	for _, p := range r.sortedParticipantsLocked() {
		answer := r.pending[p.ID]
		correct, points := domain.ScoreAnswer(answer, question, r.settings)
		r.scores[p.ID] += points

		pr := domain.PlayerQuestionResult{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			OptionIndex:   -1,
			Correct:       correct,
			Points:        points,
			ElapsedMillis: int64(r.settings.QuestionTimeLimitSeconds) * 1000,
		}
		if answer != nil {
			pr.OptionIndex = answer.OptionIndex
			pr.ElapsedMillis = answer.ElapsedMillis
		}
		results = append(results, pr)
	}

	r.state = domain.StateResults
	return domain.QuestionResult{
		QuestionID:    question.ID,
		CorrectIndex:  question.CorrectIndex,
		PlayerResults: results,
		TotalAnswers:  len(r.pending),
	}, domain.RankScores(r.scores, r.participants), nil
}

// Finish transitions the room to Finished and returns the final leaderboard
// plus aggregate game stats.
func (r *Room) Finish() ([]domain.LeaderboardEntry, domain.GameStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = domain.StateFinished
	stats := domain.GameStats{TotalQuestions: len(r.questions)}
	if !r.startedAt.IsZero() {
		stats.DurationMillis = r.now().Sub(r.startedAt).Milliseconds()
	}
	return domain.RankScores(r.scores, r.participants), stats
}

// ForceState overrides the lifecycle state directly, bypassing transition
// rules. Test-only: reproduces half-transitioned rooms (e.g. Starting with
// no question ever opened).
func (r *Room) ForceState(s domain.RoomState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

// Code returns the room's join code.
func (r *Room) Code() string { return r.code }

// Settings returns the room's fixed settings.
func (r *Room) Settings() domain.Settings { return r.settings }

// State returns the current lifecycle state.
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// HostID returns the current host's participant id.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// CurrentQuestionIndex returns the zero-based cursor (-1 before question 1).
func (r *Room) CurrentQuestionIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// OnLastQuestion reports whether the cursor has reached the final question.
func (r *Room) OnLastQuestion() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor >= len(r.questions)-1
}

// AllAnswered reports whether every participant has answered the active question.
func (r *Room) AllAnswered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == domain.StateQuestion && len(r.pending) == len(r.participants)
}

// ParticipantCount returns the number of live participants.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// ParticipantIDs returns the ids of all current participants.
func (r *Room) ParticipantIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	return ids
}

// Player returns the view of a single participant.
func (r *Room) Player(participantID string) (domain.PlayerView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantID]
	if !ok {
		return domain.PlayerView{}, false
	}
	return r.playerViewLocked(p), true
}

// Players returns all participants with scores, ordered by join time.
func (r *Room) Players() []domain.PlayerView {
	r.mu.Lock()
	defer r.mu.Unlock()
	views := make([]domain.PlayerView, 0, len(r.participants))
	for _, p := range r.sortedParticipantsLocked() {
		views = append(views, r.playerViewLocked(p))
	}
	return views
}

// CreatedAt returns the creation timestamp, used by reclamation.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Info returns the read-only admin projection.
func (r *Room) Info() domain.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RoomInfo{
		Code:             r.code,
		ParticipantCount: len(r.participants),
		State:            r.state,
		QuestionNumber:   r.cursor + 1,
		TotalQuestions:   len(r.questions),
		CreatedAt:        r.createdAt,
		StartedAt:        r.startedAt,
	}
}

func (r *Room) playerViewLocked(p *domain.Participant) domain.PlayerView {
	return domain.PlayerView{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Score:       r.scores[p.ID],
		IsHost:      p.IsHost,
		IsActive:    p.IsActive,
		JoinedAt:    p.JoinedAt,
	}
}

func (r *Room) sortedParticipantsLocked() []*domain.Participant {
	out := make([]*domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *Room) earliestParticipantLocked() *domain.Participant {
	sorted := r.sortedParticipantsLocked()
	return sorted[0]
}
