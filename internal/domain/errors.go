package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no live room matches the given code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a participant id maps to no room.
	ErrParticipantNotFound = errors.New("participant not in any room")
	// ErrRoomFull is returned when a join would exceed the participant limit.
	ErrRoomFull = errors.New("room is full")
	// ErrNameTaken is returned when the display name is already used in the room.
	ErrNameTaken = errors.New("display name already taken")
	// ErrGameAlreadyStarted is returned on join or start once the game left Waiting.
	ErrGameAlreadyStarted = errors.New("game already started")
	// ErrNotHost is returned when a non-host attempts a host-only action.
	ErrNotHost = errors.New("only the host may do that")
	// ErrNotEnoughPlayers is returned when starting with fewer than two participants.
	ErrNotEnoughPlayers = errors.New("need at least 2 players to start")
	// ErrGameNotStarted is returned when advancing a game still in Waiting.
	ErrGameNotStarted = errors.New("game not started yet")
	// ErrNoMoreQuestions is returned when the question sequence is exhausted.
	ErrNoMoreQuestions = errors.New("no more questions")
	// ErrNoActiveQuestion is returned when no question is currently accepting answers.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrAlreadyAnswered is returned on a duplicate submission for the same question.
	ErrAlreadyAnswered = errors.New("answer already submitted")
	// ErrCodeSpaceExhausted means code generation kept colliding; this indicates
	// a misconfigured deployment, not a recoverable runtime condition.
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
)
