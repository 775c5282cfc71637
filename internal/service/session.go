package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
)

const (
	updateBuffer      = 64
	createCodeRetries = 3
)

// RoomUpdate is one message on a session's snapshot stream: the full
// current room document, plus the matchmaking countdown while seats
// are being searched, or a tombstone once the room is gone.
type RoomUpdate struct {
	Room              *domain.Room `json:"room,omitempty"`
	Searching         bool         `json:"searching"`
	SearchSecondsLeft int          `json:"searchSecondsLeft,omitempty"`
	Deleted           bool         `json:"deleted,omitempty"`
}

// Session is the narrow surface one signed-in user drives the game
// through. It owns at most one room controller at a time and exposes
// the room reactively as a stream of updates.
type Session struct {
	user domain.UserInfo
	game *GameService
	log  zerolog.Logger

	mu      sync.Mutex
	ctrl    *roomController
	streams int
	updates chan RoomUpdate
}

func newSession(user domain.UserInfo, game *GameService) *Session {
	return &Session{
		user:    user,
		game:    game,
		log:     game.log.With().Str("user_id", user.ID).Logger(),
		updates: make(chan RoomUpdate, updateBuffer),
	}
}

// Updates is the session's reactive room snapshot stream. Slow readers
// miss intermediate snapshots, never the latest state, because every
// update carries the whole document.
func (s *Session) Updates() <-chan RoomUpdate {
	return s.updates
}

func (s *Session) User() domain.UserInfo {
	return s.user
}

// RegisterStream marks a reader as attached to the update stream. A
// session with an attached stream survives leaving its room.
func (s *Session) RegisterStream() {
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
}

// UnregisterStream detaches a reader; the session is evicted once it
// has neither a room nor a reader left.
func (s *Session) UnregisterStream() {
	s.mu.Lock()
	s.streams--
	s.mu.Unlock()
	s.game.release(s)
}

// CurrentRoom re-reads the session's room, if any.
func (s *Session) CurrentRoom(ctx context.Context) (*domain.Room, error) {
	ctrl := s.controller()
	if ctrl == nil {
		return nil, domain.ErrNoActiveSession
	}
	return s.game.rooms.GetByID(ctx, ctrl.roomID)
}

// JoinAutoMatch places the user in a waiting public room, creating one
// when none has a free seat, and starts the matchmaking countdown.
func (s *Session) JoinAutoMatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		return domain.ErrInSession
	}

	room, err := s.game.findOrCreateAutoRoom(ctx, s.user)
	if err != nil {
		return err
	}
	ctrl := s.game.newController(room.ID, s.user, s.push)
	s.ctrl = ctrl
	ctrl.start()
	if room.IsFull() {
		ctrl.tryBeginStarting("room full")
	} else {
		ctrl.beginSearch()
	}
	s.log.Info().Str("room_id", room.ID).Msg("joined auto-match room")
	return nil
}

// CreatePrivateRoom creates an invite-code room owned by this user and
// returns the code. The room waits for an explicit start.
func (s *Session) CreatePrivateRoom(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		return "", domain.ErrInSession
	}

	var room *domain.Room
	for i := 0; i < createCodeRetries; i++ {
		room = domain.NewRoom(generateInviteCode(), domain.RoomModePrivate, s.user.ID)
		if err := room.AddPlayer(domain.Player{ID: s.user.ID, Username: s.user.Username}); err != nil {
			return "", err
		}
		err := s.game.rooms.CreateWithID(ctx, room)
		if err == nil {
			break
		}
		if err != domain.ErrRoomExists || i == createCodeRetries-1 {
			return "", err
		}
	}

	ctrl := s.game.newController(room.ID, s.user, s.push)
	s.ctrl = ctrl
	ctrl.start()
	s.log.Info().Str("room_id", room.ID).Msg("created private room")
	return room.ID, nil
}

// JoinPrivateRoom joins an invite-code room. Codes are case-sensitive.
func (s *Session) JoinPrivateRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		return domain.ErrInSession
	}

	room, err := s.game.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.Mode != domain.RoomModePrivate || room.State != domain.RoomStateWaiting {
		return domain.ErrRoomNotJoinable
	}
	if err := room.AddPlayer(domain.Player{ID: s.user.ID, Username: s.user.Username}); err != nil {
		return err
	}
	if err := s.game.rooms.Save(ctx, room); err != nil {
		return err
	}

	ctrl := s.game.newController(room.ID, s.user, s.push)
	s.ctrl = ctrl
	ctrl.start()
	if room.IsFull() {
		ctrl.tryBeginStarting("room full")
	}
	s.log.Info().Str("room_id", room.ID).Msg("joined private room")
	return nil
}

// StartPrivateRoom begins the owner's private game: waiting humans from
// the public pool are absorbed into free seats first, bots fill the
// rest.
func (s *Session) StartPrivateRoom(ctx context.Context, roomID string) error {
	ctrl := s.controller()
	if ctrl == nil || ctrl.roomID != roomID {
		return domain.ErrNoActiveSession
	}

	room, err := s.game.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != s.user.ID {
		return domain.ErrNotRoomOwner
	}
	if room.State != domain.RoomStateWaiting {
		return domain.ErrRoomNotJoinable
	}

	if err := s.game.absorbWaitingPlayers(ctx, roomID); err != nil {
		s.log.Warn().Err(err).Msg("absorbing waiting players failed, continuing with bots")
	}
	ctrl.backfillBots()
	return nil
}

// SubmitAnswer records the user's answer for the current round.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) error {
	ctrl := s.controller()
	if ctrl == nil {
		return domain.ErrNoActiveSession
	}
	return ctrl.submitAnswer(ctx, answer)
}

// Leave exits the current room, cancelling every pending timer and the
// document subscription.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	ctrl := s.ctrl
	s.ctrl = nil
	s.mu.Unlock()
	if ctrl == nil {
		return domain.ErrNoActiveSession
	}
	defer s.game.release(s)
	if err := ctrl.leave(ctx); err != nil {
		return err
	}
	s.log.Info().Str("room_id", ctrl.roomID).Msg("left room")
	return nil
}

func (s *Session) controller() *roomController {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// attach swaps the session onto a different room. Used when the user is
// absorbed into a private room from the public matchmaking pool.
func (s *Session) attach(roomID string) {
	s.mu.Lock()
	old := s.ctrl
	ctrl := s.game.newController(roomID, s.user, s.push)
	s.ctrl = ctrl
	s.mu.Unlock()

	if old != nil {
		old.teardown()
	}
	ctrl.start()
	s.log.Info().Str("room_id", roomID).Msg("session moved to private room")
}

// push publishes an update without ever blocking a controller; when the
// buffer is full the oldest update is dropped in favor of the new one.
func (s *Session) push(update RoomUpdate) {
	for {
		select {
		case s.updates <- update:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// generateInviteCode returns a short, human-typable room code.
func generateInviteCode() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return strings.ToUpper(hex.EncodeToString(bytes))
}
