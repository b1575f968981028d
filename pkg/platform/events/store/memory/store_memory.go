package memory

import (
	"context"
	"sync"

	id "kitties/pkg/domain"
	"kitties/pkg/platform/events"
)

// InMemoryStore keeps every event in arrival order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []events.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Publish implements events.Sink.
func (s *InMemoryStore) Publish(_ context.Context, batch ...events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

// Emit records a single event synchronously.
func (s *InMemoryStore) Emit(ctx context.Context, event events.Event) error {
	return s.Publish(ctx, event)
}

// ListByAccount returns events the account acted in or received from.
func (s *InMemoryStore) ListByAccount(_ context.Context, account id.AccountID) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []events.Event
	for _, e := range s.events {
		if e.Involves(account) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event{}, s.events...), nil
}

// ListRecent returns the last limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(len(s.events)-limit, 0)
	return append([]events.Event{}, s.events[start:]...), nil
}
