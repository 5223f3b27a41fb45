package domain

import "time"

// Difficulty buckets determine the base points a question is worth.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// RoomState is the lifecycle state of a trivia room.
type RoomState string

const (
	StateWaiting   RoomState = "waiting"
	StateStarting  RoomState = "starting"
	StateQuestion  RoomState = "question"
	StateResults   RoomState = "results"
	StateFinished  RoomState = "finished"
	StateAbandoned RoomState = "abandoned"
)

// Question models an MCQ question; immutable once drawn into a room.
type Question struct {
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correctIndex"`
	Difficulty   Difficulty `json:"difficulty"`
	Category     string     `json:"category"`
}

// QuestionView is the client-facing projection with the answer key withheld.
type QuestionView struct {
	ID         string     `json:"id"`
	Prompt     string     `json:"prompt"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
}

// View strips the correct option index for broadcast to clients.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		Category:   q.Category,
	}
}

// Participant is a member of a room.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
	IsActive    bool      `json:"isActive"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// PlayerView is a participant plus their accumulated score, as sent in
// players-update broadcasts.
type PlayerView struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	IsHost      bool      `json:"isHost"`
	IsActive    bool      `json:"isActive"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// AnswerSubmission records a participant's answer to the current question.
// At most one exists per participant per question; never mutated.
type AnswerSubmission struct {
	ParticipantID string    `json:"participantId"`
	OptionIndex   int       `json:"optionIndex"`
	SubmittedAt   time.Time `json:"submittedAt"`
	ElapsedMillis int64     `json:"elapsedMillis"`
}

// Settings are fixed at room creation.
type Settings struct {
	MaxParticipants          int  `json:"maxParticipants"`
	QuestionTimeLimitSeconds int  `json:"questionTimeLimit"`
	TotalQuestions           int  `json:"totalQuestions"`
	TimeBonus                bool `json:"timeBonus"`
}

// PlayerQuestionResult is one participant's outcome for a single question.
// OptionIndex is -1 when the participant never submitted.
type PlayerQuestionResult struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	OptionIndex   int    `json:"optionIndex"`
	Correct       bool   `json:"isCorrect"`
	Points        int    `json:"pointsEarned"`
	ElapsedMillis int64  `json:"elapsedMillis"`
}

// QuestionResult is broadcast when a question ends; it reveals the answer key.
type QuestionResult struct {
	QuestionID    string                 `json:"questionId"`
	CorrectIndex  int                    `json:"correctIndex"`
	PlayerResults []PlayerQuestionResult `json:"playerResults"`
	TotalAnswers  int                    `json:"totalAnswers"`
}

// LeaderboardEntry is one row of the ranked scoreboard.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
}

// GameStats summarizes a finished game.
type GameStats struct {
	TotalQuestions int   `json:"totalQuestions"`
	DurationMillis int64 `json:"durationMillis"`
}

// RoomInfo is the read-only admin projection of a room.
type RoomInfo struct {
	Code             string    `json:"roomCode"`
	ParticipantCount int       `json:"participantCount"`
	State            RoomState `json:"state"`
	QuestionNumber   int       `json:"currentQuestion"`
	TotalQuestions   int       `json:"totalQuestions"`
	CreatedAt        time.Time `json:"createdAt"`
	StartedAt        time.Time `json:"startedAt,omitempty"`
}

// RegistryStats aggregates counts across all live rooms.
type RegistryStats struct {
	TotalRooms        int `json:"totalRooms"`
	ActiveRooms       int `json:"activeRooms"`
	TotalParticipants int `json:"totalParticipants"`
}
