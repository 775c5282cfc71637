package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
)

// roomRecord is the stored shape of a room: an opaque id plus the whole
// document as JSON. Queries go through JSON field matching, never
// through relational columns, to keep document semantics.
type roomRecord struct {
	ID   string         `gorm:"primaryKey"`
	Data datatypes.JSON `gorm:"type:jsonb;not null"`
}

func (roomRecord) TableName() string { return "rooms" }

type roomRepository struct {
	db       *gorm.DB
	notifier *notifier
}

func NewRoomRepository(db *gorm.DB) *roomRepository {
	return &roomRepository{db: db, notifier: newNotifier()}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	rec, err := encodeRoom(room)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	r.publish(rec)
	return nil
}

func (r *roomRepository) CreateWithID(ctx context.Context, room *domain.Room) error {
	rec, err := encodeRoom(room)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrRoomExists
		}
		return fmt.Errorf("create room %s: %w", room.ID, err)
	}
	r.publish(rec)
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var rec roomRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return decodeRoom(&rec)
}

func (r *roomRepository) Save(ctx context.Context, room *domain.Room) error {
	rec, err := encodeRoom(room)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&roomRecord{}).
		Where("id = ?", room.ID).
		Update("data", rec.Data)
	if res.Error != nil {
		return fmt.Errorf("save room %s: %w", room.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRoomNotFound
	}
	r.publish(rec)
	return nil
}

func (r *roomRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&roomRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete room %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		r.notifier.publish(id, repository.RoomEvent{Deleted: true})
	}
	return nil
}

func (r *roomRepository) FindByFields(ctx context.Context, filters map[string]string) ([]*domain.Room, error) {
	q := r.db.WithContext(ctx).Model(&roomRecord{})
	for field, value := range filters {
		q = q.Where(datatypes.JSONQuery("data").Equals(value, field))
	}

	var recs []roomRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}

	rooms := make([]*domain.Room, 0, len(recs))
	for i := range recs {
		room, err := decodeRoom(&recs[i])
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *roomRepository) Watch(id string) (<-chan repository.RoomEvent, repository.CancelFunc) {
	ch, cancel := r.notifier.subscribe(id)

	// Initial snapshot after registration so no change between the two
	// is missed; duplicates are harmless because events carry the full
	// document.
	room, err := r.GetByID(context.Background(), id)
	switch {
	case err == nil:
		select {
		case ch <- repository.RoomEvent{Room: room}:
		default:
		}
	case errors.Is(err, domain.ErrRoomNotFound):
		select {
		case ch <- repository.RoomEvent{Deleted: true}:
		default:
		}
	default:
		// A transient read failure is not a deletion; skip the initial
		// snapshot and let the next write deliver the document.
		log.Warn().Err(err).Str("room_id", id).Msg("initial watch snapshot unavailable")
	}
	return ch, cancel
}

// publish decodes the stored bytes back into a fresh document per
// watcher delivery, so subscribers never share memory with the writer.
func (r *roomRepository) publish(rec *roomRecord) {
	room, err := decodeRoom(rec)
	if err != nil {
		return
	}
	r.notifier.publish(rec.ID, repository.RoomEvent{Room: room})
}

func encodeRoom(room *domain.Room) (*roomRecord, error) {
	data, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("encode room: %w", err)
	}
	return &roomRecord{ID: room.ID, Data: datatypes.JSON(data)}, nil
}

func decodeRoom(rec *roomRecord) (*domain.Room, error) {
	var room domain.Room
	if err := json.Unmarshal(rec.Data, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", rec.ID, err)
	}
	return &room, nil
}
