// Package repository implements all database queries for the event admission
// system. It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarsharma2004/event-admission/internal/model"
)

// ErrNotFound is returned when a requested event does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when a conditional write loses the race
// against a concurrent commit on the same event. Callers retry the whole
// load-validate-commit sequence.
var ErrVersionConflict = errors.New("version conflict")

// EventRepository handles persistence for events and their rosters.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	attendees := event.Attendees
	if attendees == nil {
		attendees = []model.Attendee{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, status, max_attendees, attendees, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Name, event.Status, event.MaxAttendees, attendees, event.Version, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, status, max_attendees, attendees, version, created_at
		 FROM events
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Status, &e.MaxAttendees, &e.Attendees, &e.Version, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Get returns a consistent snapshot of a single event or ErrNotFound.
func (r *EventRepository) Get(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, status, max_attendees, attendees, version, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Status, &e.MaxAttendees, &e.Attendees, &e.Version, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// CompareAndSwap commits a new status and roster for the event, but only if
// the stored version still equals expectedVersion. The single conditional
// UPDATE makes the commit all-or-nothing: a concurrent commit on the same
// event bumps the version first, the WHERE clause then matches no row, and
// the caller gets ErrVersionConflict instead of silently losing its read.
// Writes to different events never contend.
func (r *EventRepository) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, status model.EventStatus, attendees []model.Attendee) (*model.Event, error) {
	if attendees == nil {
		attendees = []model.Attendee{}
	}
	var e model.Event
	err := r.db.QueryRow(ctx,
		`UPDATE events
		 SET status = $3, attendees = $4, version = version + 1
		 WHERE id = $1 AND version = $2
		 RETURNING id, name, status, max_attendees, attendees, version, created_at`,
		id, expectedVersion, status, attendees,
	).Scan(&e.ID, &e.Name, &e.Status, &e.MaxAttendees, &e.Attendees, &e.Version, &e.CreatedAt)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("commit event: %w", err)
	}

	// No row matched: either the event is gone or the version moved on.
	var exists bool
	if checkErr := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id,
	).Scan(&exists); checkErr != nil {
		return nil, fmt.Errorf("check event after conflict: %w", checkErr)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrVersionConflict
}
