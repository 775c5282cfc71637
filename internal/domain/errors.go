package domain

import "errors"

// Room errors
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomExists    = errors.New("room id already taken")
	ErrRoomFull      = errors.New("room is full")
	ErrTeamFull      = errors.New("team is full")
	ErrTeamNotFound  = errors.New("team not found")
	ErrAlreadyInRoom = errors.New("player is already in room")
	ErrNotInRoom     = errors.New("player is not in room")
	ErrNotRoomOwner  = errors.New("only the room owner can start the game")
	ErrRoomNotJoinable = errors.New("room is not accepting players")
)

// Round errors
var (
	ErrEmptyAnswer     = errors.New("answer is empty")
	ErrNotPlaying      = errors.New("room is not in the playing state")
	ErrAlreadyAnswered = errors.New("player has already answered this round")
	ErrNoQuestions     = errors.New("no questions available for round kind")
)

// Session errors
var (
	ErrNoActiveSession = errors.New("no active game session")
	ErrInSession       = errors.New("session already has an active room")
)
