// Package memory provides an in-memory event store with the same conflict
// semantics as the PostgreSQL repository. It backs tests and the
// dependency-free demo mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sagarsharma2004/event-admission/internal/model"
	"github.com/sagarsharma2004/event-admission/internal/repository"
)

// Store keeps events in a mutex-guarded map. Version checks happen under
// the lock, so concurrent CompareAndSwap calls observe the same conflicts
// they would against the database.
type Store struct {
	mu     sync.RWMutex
	events map[string]model.Event
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{events: make(map[string]model.Event)}
}

// Create inserts a new event.
func (s *Store) Create(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = clone(event)
	return nil
}

// List returns all events ordered by creation time descending.
func (s *Store) List(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, clone(&e))
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// Get returns a snapshot of a single event or repository.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := clone(&e)
	return &out, nil
}

// CompareAndSwap commits a new status and roster if the stored version still
// equals expectedVersion, mirroring the conditional UPDATE of the database
// repository.
func (s *Store) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, status model.EventStatus, attendees []model.Attendee) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	e.Status = status
	e.Attendees = append([]model.Attendee(nil), attendees...)
	e.Version++
	s.events[id] = e
	out := clone(&e)
	return &out, nil
}

func clone(e *model.Event) model.Event {
	out := *e
	out.Attendees = append([]model.Attendee(nil), e.Attendees...)
	return out
}
