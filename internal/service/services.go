package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/config"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/oracle"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
)

// GameService hands out one Session per user and owns the pieces every
// room controller needs.
type GameService struct {
	rooms     repository.RoomRepository
	questions repository.QuestionRepository
	oracle    *oracle.Oracle
	cfg       config.Game
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewGameService(
	repos *repository.Repositories,
	o *oracle.Oracle,
	cfg config.Game,
	log zerolog.Logger,
) *GameService {
	return &GameService{
		rooms:     repos.Rooms,
		questions: repos.Questions,
		oracle:    o,
		cfg:       cfg,
		log:       log.With().Str("component", "game").Logger(),
		sessions:  make(map[string]*Session),
	}
}

// Session returns the user's session, creating it on first use.
func (g *GameService) Session(user domain.UserInfo) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[user.ID]; ok {
		return s
	}
	s := newSession(user, g)
	g.sessions[user.ID] = s
	return s
}

// release evicts a session that has neither an active room nor an
// attached stream, so the session map does not grow with every user
// ever seen.
func (g *GameService) release(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s.mu.Lock()
	idle := s.ctrl == nil && s.streams == 0
	s.mu.Unlock()
	if idle && g.sessions[s.user.ID] == s {
		delete(g.sessions, s.user.ID)
	}
}

func (g *GameService) sessionByUserID(id string) *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions[id]
}

func (g *GameService) newController(roomID string, user domain.UserInfo, emit func(RoomUpdate)) *roomController {
	return newRoomController(roomID, user, g.rooms, g.questions, g.oracle, g.cfg, g.log, emit)
}

// findOrCreateAutoRoom seats the user in a waiting public room with a
// free slot, or creates a fresh one. Two racing joins can still land on
// the same seat count; the store is last-write-wins and this is an
// accepted best-effort limitation.
func (g *GameService) findOrCreateAutoRoom(ctx context.Context, user domain.UserInfo) (*domain.Room, error) {
	player := domain.Player{ID: user.ID, Username: user.Username}

	candidates, err := g.rooms.FindByFields(ctx, map[string]string{
		"mode":  string(domain.RoomModeAutoMatch),
		"state": string(domain.RoomStateWaiting),
	})
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		// Query results may be stale; decide on a fresh read.
		room, err := g.rooms.GetByID(ctx, candidate.ID)
		if err != nil || room.State != domain.RoomStateWaiting || room.IsFull() {
			continue
		}
		if err := room.AddPlayer(player); err != nil {
			continue
		}
		if err := g.rooms.Save(ctx, room); err != nil {
			continue
		}
		return room, nil
	}

	room := domain.NewRoom("", domain.RoomModeAutoMatch, "")
	if err := room.AddPlayer(player); err != nil {
		return nil, err
	}
	if err := g.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// absorbWaitingPlayers moves humans out of waiting public rooms into
// the private room's free seats before its game starts. Their sessions
// are re-pointed at the private room; emptied public rooms are deleted.
func (g *GameService) absorbWaitingPlayers(ctx context.Context, privateRoomID string) error {
	sources, err := g.rooms.FindByFields(ctx, map[string]string{
		"mode":  string(domain.RoomModeAutoMatch),
		"state": string(domain.RoomStateWaiting),
	})
	if err != nil {
		return err
	}

	var moved []string
	for _, src := range sources {
		target, err := g.rooms.GetByID(ctx, privateRoomID)
		if err != nil {
			return err
		}
		if target.IsFull() {
			break
		}

		source, err := g.rooms.GetByID(ctx, src.ID)
		if err != nil || source.State != domain.RoomStateWaiting {
			continue
		}
		changed := false
		for _, p := range source.Humans() {
			if target.IsFull() {
				break
			}
			if err := target.AddPlayer(domain.Player{ID: p.ID, Username: p.Username}); err != nil {
				continue
			}
			source.RemovePlayer(p.ID)
			moved = append(moved, p.ID)
			changed = true
		}
		if !changed {
			continue
		}
		if err := g.rooms.Save(ctx, target); err != nil {
			return err
		}
		if len(source.Humans()) == 0 {
			if err := g.rooms.Delete(ctx, source.ID); err != nil {
				g.log.Warn().Err(err).Str("room_id", source.ID).Msg("failed to delete drained room")
			}
		} else if err := g.rooms.Save(ctx, source); err != nil {
			g.log.Warn().Err(err).Str("room_id", source.ID).Msg("failed to update drained room")
		}
	}

	for _, userID := range moved {
		if s := g.sessionByUserID(userID); s != nil {
			s.attach(privateRoomID)
		}
	}
	if len(moved) > 0 {
		g.log.Info().Int("count", len(moved)).Str("room_id", privateRoomID).
			Msg("absorbed waiting players into private room")
	}
	return nil
}

// Services bundles everything the transport layer needs.
type Services struct {
	Game *GameService
}

func NewServices(repos *repository.Repositories, o *oracle.Oracle, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Game: NewGameService(repos, o, cfg.Game, log),
	}
}
