// Package service implements the registration core: admission control for
// capacity-bounded events, plus the narrow admin surface that creates events
// and drives their status lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sagarsharma2004/event-admission/internal/model"
	"github.com/sagarsharma2004/event-admission/internal/repository"
)

// ErrNotAvailable is returned when the event status forbids registration.
var ErrNotAvailable = errors.New("event is not open for registration")

// ErrAlreadyRegistered is returned on a duplicate registration attempt.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrNotRegistered is returned when unregistering a user who is not on the
// roster.
var ErrNotRegistered = errors.New("user is not registered for this event")

// ErrBusy is returned when a roster commit keeps losing the race against
// concurrent commits and the retry budget is exhausted.
var ErrBusy = errors.New("event is busy, try again")

// ErrInvalidTransition is returned for a status change the lifecycle does
// not permit.
var ErrInvalidTransition = errors.New("invalid status transition")

// commitAttempts bounds how often a lost conditional write is retried
// before surfacing ErrBusy. Only the commit race is ever retried; a
// business-rule rejection is final.
const commitAttempts = 5

// retryDelay spaces out commit retries under contention.
const retryDelay = 5 * time.Millisecond

// transitions is the event lifecycle as it bears on registration:
// draft -> published -> {cancelled, completed}. Terminal states accept
// nothing.
var transitions = map[model.EventStatus][]model.EventStatus{
	model.StatusDraft:     {model.StatusPublished},
	model.StatusPublished: {model.StatusCancelled, model.StatusCompleted},
}

func transitionAllowed(from, to model.EventStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EventStore is the persistence contract the service needs: consistent
// snapshots plus a version-guarded conditional write. Implemented by
// repository.EventRepository and memory.Store.
type EventStore interface {
	Create(ctx context.Context, event *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, status model.EventStatus, attendees []model.Attendee) (*model.Event, error)
}

// EventService orchestrates event admission and lifecycle operations.
type EventService struct {
	store EventStore
	log   *log.Logger
	now   func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store EventStore, logger *log.Logger) *EventService {
	return &EventService{
		store: store,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent validates the request and persists a new event with an empty
// roster. Events start in draft unless the request asks for published.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if req.MaxAttendees <= 0 {
		return nil, fmt.Errorf("max_attendees must be a positive integer")
	}
	if req.MaxAttendees > 100_000 {
		return nil, fmt.Errorf("max_attendees cannot exceed 100,000")
	}
	status := req.Status
	if status == "" {
		status = model.StatusDraft
	}
	if status != model.StatusDraft && status != model.StatusPublished {
		return nil, fmt.Errorf("initial status must be draft or published")
	}

	event := &model.Event{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Status:       status,
		MaxAttendees: req.MaxAttendees,
		Attendees:    []model.Attendee{},
		Version:      1,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.log.WithFields(log.Fields{
		"event_id": event.ID,
		"status":   event.Status,
		"capacity": event.MaxAttendees,
	}).Info("event created")
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.List(ctx)
}

// GetEvent returns a read-side snapshot of a single event. The derived
// capacity fields come from the same snapshot as the roster.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventResponse, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	event, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return model.Snapshot(event), nil
}

// TransitionStatus moves an event through its lifecycle. Transitions are
// committed with the same conditional write as roster changes, so a
// transition never clobbers a concurrent registration.
func (s *EventService) TransitionStatus(ctx context.Context, id string, next model.EventStatus) (*model.Event, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("unknown status %q", next)
	}
	commit := func(event *model.Event) (model.EventStatus, []model.Attendee, error) {
		if !transitionAllowed(event.Status, next) {
			return "", nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, event.Status, next)
		}
		return next, event.Attendees, nil
	}
	event, err := s.commitWithRetry(ctx, id, commit)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{
		"event_id": event.ID,
		"status":   event.Status,
	}).Info("event status changed")
	return event, nil
}

// Register admits userID to the event. Preconditions are checked in order
// (exists, published, not already registered, not full), each with its own
// error, and the roster append commits atomically against concurrent
// commits on the same event.
func (s *EventService) Register(ctx context.Context, eventID, userID string) (*model.RegistrationResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	commit := func(event *model.Event) (model.EventStatus, []model.Attendee, error) {
		if !event.Status.CanRegister() {
			return "", nil, ErrNotAvailable
		}
		if event.HasAttendee(userID) {
			return "", nil, ErrAlreadyRegistered
		}
		if event.IsFull() {
			return "", nil, ErrEventFull
		}
		roster := append(append([]model.Attendee(nil), event.Attendees...), model.Attendee{
			UserID:           userID,
			RegisteredAt:     s.now(),
			AttendanceStatus: model.AttendanceRegistered,
		})
		return event.Status, roster, nil
	}

	event, err := s.commitWithRetry(ctx, eventID, commit)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{
		"event_id":  eventID,
		"user_id":   userID,
		"remaining": event.AvailableSpots(),
	}).Info("user registered")
	return &model.RegistrationResponse{
		Attendees:      event.Attendees,
		AvailableSpots: event.AvailableSpots(),
	}, nil
}

// Unregister removes userID's single roster entry. It is accepted in every
// event status so users can always leave, including cancelled and completed
// events.
func (s *EventService) Unregister(ctx context.Context, eventID, userID string) (*model.UnregistrationResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	commit := func(event *model.Event) (model.EventStatus, []model.Attendee, error) {
		if !event.HasAttendee(userID) {
			return "", nil, ErrNotRegistered
		}
		return event.Status, event.WithoutAttendee(userID), nil
	}

	event, err := s.commitWithRetry(ctx, eventID, commit)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{
		"event_id": eventID,
		"user_id":  userID,
	}).Info("user unregistered")
	return &model.UnregistrationResponse{Attendees: event.Attendees}, nil
}

// commitWithRetry runs the load-validate-commit sequence for one event.
// The commit callback inspects a fresh snapshot and either rejects with a
// domain error (final, never retried) or returns the status and roster to
// write. Only a version conflict re-runs the sequence; after commitAttempts
// losses the caller gets ErrBusy.
func (s *EventService) commitWithRetry(ctx context.Context, eventID string, commit func(*model.Event) (model.EventStatus, []model.Attendee, error)) (*model.Event, error) {
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		event, err := s.store.Get(ctx, eventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, repository.ErrNotFound
			}
			return nil, fmt.Errorf("load event: %w", err)
		}

		status, roster, err := commit(event)
		if err != nil {
			return nil, err
		}

		updated, err := s.store.CompareAndSwap(ctx, eventID, event.Version, status, roster)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("commit event: %w", err)
		}

		s.log.WithFields(log.Fields{
			"event_id": eventID,
			"attempt":  attempt,
		}).Debug("commit lost the race, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, ErrBusy
}
