package domain

import (
	"time"
)

type RoomMode string

const (
	RoomModeAutoMatch RoomMode = "auto_match"
	RoomModePrivate   RoomMode = "private"
)

type RoomState string

const (
	RoomStateWaiting  RoomState = "waiting"
	RoomStateStarting RoomState = "starting"
	RoomStatePlaying  RoomState = "playing"
	RoomStateScoring  RoomState = "scoring"
	RoomStateFinished RoomState = "finished"
)

// RoomCapacity is the number of seats in a room: two teams of two.
const (
	RoomCapacity = 4
	TeamSize     = 2
)

// Room is the unit of a game session. It is persisted as a single
// document and always written whole; updates compose the full value
// locally from a fresh read first.
type Room struct {
	ID              string            `json:"id"`
	Mode            RoomMode          `json:"mode"`
	OwnerID         string            `json:"ownerId,omitempty"`
	State           RoomState         `json:"state"`
	RoundNumber     int               `json:"roundNumber"`
	Players         []Player          `json:"players"`
	Teams           []Team            `json:"teams"`
	Scores          map[string]int    `json:"scores"`
	CurrentQuestion *Question         `json:"currentQuestion,omitempty"`
	Answers         map[string]string `json:"answers"`
	HasAnswered     map[string]bool   `json:"hasAnswered"`
	RoundResults    []RoundResult     `json:"roundResults"`
	CreatedAt       time.Time         `json:"createdAt"`
	StartedAt       *time.Time        `json:"startedAt,omitempty"`
}

type Player struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	TeamID   string    `json:"teamId"`
	IsBot    bool      `json:"isBot"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	PlayerIDs []string `json:"playerIds"`
	Color     string   `json:"color"`
}

// TeamRoundResult records one team's outcome for a round, including the
// raw answers so the result screen can show them verbatim.
type TeamRoundResult struct {
	Score       int               `json:"score"`
	Similarity  float64           `json:"similarity"`
	Answers     map[string]string `json:"answers"`
	PlayerNames map[string]string `json:"playerNames"`
}

type RoundResult struct {
	RoundNumber int                        `json:"roundNumber"`
	Question    string                     `json:"question"`
	TeamScores  map[string]TeamRoundResult `json:"teamScores"`
}

// NewRoom builds a waiting room with two empty teams.
func NewRoom(id string, mode RoomMode, ownerID string) *Room {
	return &Room{
		ID:          id,
		Mode:        mode,
		OwnerID:     ownerID,
		State:       RoomStateWaiting,
		RoundNumber: 1,
		Players:     []Player{},
		Teams: []Team{
			{ID: "team-1", Name: "Kırmızı Takım", PlayerIDs: []string{}, Color: "#EF4444"},
			{ID: "team-2", Name: "Mavi Takım", PlayerIDs: []string{}, Color: "#3B82F6"},
		},
		Scores:       map[string]int{},
		Answers:      map[string]string{},
		HasAnswered:  map[string]bool{},
		RoundResults: []RoundResult{},
		CreatedAt:    time.Now(),
	}
}

func (r *Room) IsFull() bool {
	return len(r.Players) >= RoomCapacity
}

func (r *Room) PlayerByID(id string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

func (r *Room) TeamByID(id string) *Team {
	for i := range r.Teams {
		if r.Teams[i].ID == id {
			return &r.Teams[i]
		}
	}
	return nil
}

// Humans returns the non-bot players.
func (r *Room) Humans() []Player {
	var humans []Player
	for _, p := range r.Players {
		if !p.IsBot {
			humans = append(humans, p)
		}
	}
	return humans
}

// AllHumansAnswered reports whether every human player has a recorded
// answer. Bot answers arrive asynchronously and are excluded here.
func (r *Room) AllHumansAnswered() bool {
	humans := r.Humans()
	if len(humans) == 0 {
		return false
	}
	for _, p := range humans {
		if !r.HasAnswered[p.ID] {
			return false
		}
	}
	return true
}

// AddPlayer seats a player on the team with strictly fewer members;
// ties go to the first team.
func (r *Room) AddPlayer(p Player) error {
	if r.IsFull() {
		return ErrRoomFull
	}
	if r.PlayerByID(p.ID) != nil {
		return ErrAlreadyInRoom
	}
	team := &r.Teams[0]
	if len(r.Teams[1].PlayerIDs) < len(r.Teams[0].PlayerIDs) {
		team = &r.Teams[1]
	}
	return r.addToTeam(p, team)
}

// AddPlayerToTeam seats a player on a specific team, bypassing the
// balance rule. Used for the forced placement of the first backfill bot.
func (r *Room) AddPlayerToTeam(p Player, teamID string) error {
	if r.IsFull() {
		return ErrRoomFull
	}
	if r.PlayerByID(p.ID) != nil {
		return ErrAlreadyInRoom
	}
	team := r.TeamByID(teamID)
	if team == nil {
		return ErrTeamNotFound
	}
	return r.addToTeam(p, team)
}

func (r *Room) addToTeam(p Player, team *Team) error {
	if len(team.PlayerIDs) >= TeamSize {
		return ErrTeamFull
	}
	p.TeamID = team.ID
	p.JoinedAt = time.Now()
	team.PlayerIDs = append(team.PlayerIDs, p.ID)
	r.Players = append(r.Players, p)
	return nil
}

// RemovePlayer drops a player from the roster and their team. No-op for
// ids not present.
func (r *Room) RemovePlayer(id string) {
	for i := range r.Players {
		if r.Players[i].ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			break
		}
	}
	for t := range r.Teams {
		ids := r.Teams[t].PlayerIDs
		for i := range ids {
			if ids[i] == id {
				r.Teams[t].PlayerIDs = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}
