// Package memory holds map-backed repositories with the same contract
// as the docstore ones. They back the service tests and keep the watch
// semantics (immediate snapshot, change fan-out, tombstone) intact.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/domain"
	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
)

type RoomStore struct {
	mu       sync.Mutex
	rooms    map[string][]byte
	watchers map[string]map[chan repository.RoomEvent]struct{}

	// SaveHook, when set, runs before a save and can fail it. Used to
	// inject write failures in tests.
	SaveHook func(room *domain.Room) error
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:    make(map[string][]byte),
		watchers: make(map[string]map[chan repository.RoomEvent]struct{}),
	}
}

func (s *RoomStore) Create(ctx context.Context, room *domain.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	return s.put(room, false)
}

func (s *RoomStore) CreateWithID(ctx context.Context, room *domain.Room) error {
	s.mu.Lock()
	_, exists := s.rooms[room.ID]
	s.mu.Unlock()
	if exists {
		return domain.ErrRoomExists
	}
	return s.put(room, false)
}

func (s *RoomStore) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	s.mu.Lock()
	data, ok := s.rooms[id]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return decode(data)
}

func (s *RoomStore) Save(ctx context.Context, room *domain.Room) error {
	if s.SaveHook != nil {
		if err := s.SaveHook(room); err != nil {
			return err
		}
	}
	return s.put(room, true)
}

func (s *RoomStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.rooms[id]
	delete(s.rooms, id)
	if !existed {
		return nil
	}
	for ch := range s.watchers[id] {
		select {
		case ch <- repository.RoomEvent{Deleted: true}:
		default:
		}
		close(ch)
	}
	delete(s.watchers, id)
	return nil
}

func (s *RoomStore) FindByFields(ctx context.Context, filters map[string]string) ([]*domain.Room, error) {
	s.mu.Lock()
	snapshots := make([][]byte, 0, len(s.rooms))
	for _, data := range s.rooms {
		snapshots = append(snapshots, data)
	}
	s.mu.Unlock()

	var result []*domain.Room
	for _, data := range snapshots {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		match := true
		for k, v := range filters {
			if str, _ := fields[k].(string); str != v {
				match = false
				break
			}
		}
		if match {
			room, err := decode(data)
			if err != nil {
				return nil, err
			}
			result = append(result, room)
		}
	}
	return result, nil
}

func (s *RoomStore) Watch(id string) (<-chan repository.RoomEvent, repository.CancelFunc) {
	ch := make(chan repository.RoomEvent, 32)

	s.mu.Lock()
	if s.watchers[id] == nil {
		s.watchers[id] = make(map[chan repository.RoomEvent]struct{})
	}
	s.watchers[id][ch] = struct{}{}
	data, ok := s.rooms[id]
	s.mu.Unlock()

	if ok {
		if room, err := decode(data); err == nil {
			ch <- repository.RoomEvent{Room: room}
		}
	} else {
		ch <- repository.RoomEvent{Deleted: true}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if set, ok := s.watchers[id]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *RoomStore) put(room *domain.Room, mustExist bool) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if mustExist {
		if _, ok := s.rooms[room.ID]; !ok {
			s.mu.Unlock()
			return domain.ErrRoomNotFound
		}
	}
	s.rooms[room.ID] = data
	var chans []chan repository.RoomEvent
	for ch := range s.watchers[room.ID] {
		chans = append(chans, ch)
	}
	s.mu.Unlock()

	for _, ch := range chans {
		room, err := decode(data)
		if err != nil {
			continue
		}
		select {
		case ch <- repository.RoomEvent{Room: room}:
		default:
		}
	}
	return nil
}

func decode(data []byte) (*domain.Room, error) {
	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// QuestionStore is a fixed in-memory question pool.
type QuestionStore struct {
	mu        sync.Mutex
	questions []*domain.Question
}

func NewQuestionStore(questions ...*domain.Question) *QuestionStore {
	return &QuestionStore{questions: questions}
}

func (s *QuestionStore) CreateMany(ctx context.Context, questions []*domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		s.questions = append(s.questions, q)
	}
	return nil
}

func (s *QuestionStore) GetByRoundKind(ctx context.Context, roundKind string) ([]*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Question
	for _, q := range s.questions {
		if q.RoundKind == roundKind {
			result = append(result, q)
		}
	}
	return result, nil
}

func (s *QuestionStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.questions)), nil
}
