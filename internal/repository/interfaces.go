package repository

import (
	"context"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
)

// RoomEvent is one change notification for a watched room. Deleted
// carries the tombstone when the document is removed; otherwise Room is
// the full current document.
type RoomEvent struct {
	Room    *domain.Room
	Deleted bool
}

// CancelFunc tears down a watch. Safe to call more than once.
type CancelFunc func()

// RoomRepository is the narrow document-store surface the game engine
// uses. All room mutations funnel through it; nothing else touches the
// store. Writes are whole-document and last-write-wins, so callers must
// re-read the freshest document immediately before composing an update.
type RoomRepository interface {
	// Create stores a new room, generating an id when room.ID is empty.
	Create(ctx context.Context, room *domain.Room) error
	// CreateWithID stores a room under an explicitly chosen id and
	// fails with domain.ErrRoomExists when the id is taken.
	CreateWithID(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	// Save replaces the stored document. Fails with
	// domain.ErrRoomNotFound if the room was deleted concurrently.
	Save(ctx context.Context, room *domain.Room) error
	// Delete removes the room. Deleting an absent room is not an error.
	Delete(ctx context.Context, id string) error
	// FindByFields returns rooms whose document fields equal the given
	// values, e.g. {"mode": "auto_match", "state": "waiting"}.
	FindByFields(ctx context.Context, filters map[string]string) ([]*domain.Room, error)
	// Watch delivers the current document immediately, then every
	// subsequent change, then a tombstone on deletion. The channel is
	// closed after the tombstone or when the watch is cancelled.
	Watch(id string) (<-chan RoomEvent, CancelFunc)
}

// QuestionRepository stores the question pool.
type QuestionRepository interface {
	CreateMany(ctx context.Context, questions []*domain.Question) error
	GetByRoundKind(ctx context.Context, roundKind string) ([]*domain.Question, error)
	Count(ctx context.Context) (int64, error)
}

type Repositories struct {
	Rooms     RoomRepository
	Questions QuestionRepository
}
