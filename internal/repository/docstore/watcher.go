package docstore

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Bayrak-tar/ciftler-yarisiyor-1/internal/repository"
)

const watchBuffer = 32

// notifier fans change events out to per-document watchers. Every
// mutation goes through the repository, so publishing from the write
// paths observes every change.
type notifier struct {
	mu       sync.Mutex
	watchers map[string]map[chan repository.RoomEvent]struct{}
}

func newNotifier() *notifier {
	return &notifier{watchers: make(map[string]map[chan repository.RoomEvent]struct{})}
}

func (n *notifier) subscribe(id string) (chan repository.RoomEvent, repository.CancelFunc) {
	ch := make(chan repository.RoomEvent, watchBuffer)

	n.mu.Lock()
	if n.watchers[id] == nil {
		n.watchers[id] = make(map[chan repository.RoomEvent]struct{})
	}
	n.watchers[id][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			if set, ok := n.watchers[id]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(n.watchers, id)
				}
			}
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

func (n *notifier) publish(id string, ev repository.RoomEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	set := n.watchers[id]
	for ch := range set {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("room_id", id).Msg("watcher channel full, dropping snapshot")
		}
		if ev.Deleted {
			delete(set, ch)
			close(ch)
		}
	}
	if ev.Deleted {
		delete(n.watchers, id)
	}
}
