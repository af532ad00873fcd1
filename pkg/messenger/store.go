package messenger

import (
	"sync"

	"github.com/makini/darasa/pkg/model"
)

// Store holds the confirmed messages of one thread. The host fills it
// from the initial history fetch and from socket pushes; the messenger
// core only ever reads snapshots.
type Store struct {
	mu      sync.RWMutex
	msgs    map[int64]model.Message
	updates chan struct{}
}

func NewStore() *Store {
	return &Store{
		msgs:    make(map[int64]model.Message),
		updates: make(chan struct{}, 1),
	}
}

// ReplaceAll swaps the whole collection, as after a history refetch.
func (s *Store) ReplaceAll(msgs []model.Message) {
	s.mu.Lock()
	s.msgs = make(map[int64]model.Message, len(msgs))
	for _, m := range msgs {
		if m.Confirmed() {
			s.msgs[m.ID] = m
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Upsert adds or replaces one confirmed message, as from a socket push.
// Messages without a server ID are dropped.
func (s *Store) Upsert(m model.Message) {
	if !m.Confirmed() {
		return
	}
	s.mu.Lock()
	s.msgs[m.ID] = m
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the collection keyed by server ID.
func (s *Store) Snapshot() map[int64]model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]model.Message, len(s.msgs))
	for id, m := range s.msgs {
		out[id] = m
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Updates signals that the collection changed. Notifications coalesce:
// a slow consumer sees at least one signal for any burst of changes.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

func (s *Store) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
