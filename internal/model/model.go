// Package model defines the core domain types for the event admission system.
package model

import "time"

// EventStatus is the lifecycle state of an event. Only published events
// accept registrations.
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

// IsValid reports whether s is one of the known statuses.
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanRegister reports whether an event in this status accepts new
// registrations.
func (s EventStatus) CanRegister() bool {
	return s == StatusPublished
}

// AttendanceStatus is the stored per-attendee state. Registration only ever
// writes "registered"; the other values are kept so stored rosters stay
// compatible with a future check-in flow.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "registered"
	AttendanceAttended   AttendanceStatus = "attended"
	AttendanceCancelled  AttendanceStatus = "cancelled"
)

// Attendee is one entry in an event's roster.
type Attendee struct {
	UserID           string           `json:"user_id"`
	RegisteredAt     time.Time        `json:"registered_at"`
	AttendanceStatus AttendanceStatus `json:"attendance_status"`
}

// Event is an admission-controlled event. The roster is embedded in the
// event document; insertion order is registration order.
type Event struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Status       EventStatus `json:"status"`
	MaxAttendees int         `json:"max_attendees"`
	Attendees    []Attendee  `json:"attendees"`
	Version      int64       `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return len(e.Attendees) >= e.MaxAttendees
}

// AvailableSpots returns the number of remaining seats, never negative.
func (e *Event) AvailableSpots() int {
	if n := e.MaxAttendees - len(e.Attendees); n > 0 {
		return n
	}
	return 0
}

// HasAttendee reports whether userID is already on the roster.
func (e *Event) HasAttendee(userID string) bool {
	for _, a := range e.Attendees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// WithoutAttendee returns a copy of the roster with the entry for userID
// removed. At most one entry matches; the rest keep their order.
func (e *Event) WithoutAttendee(userID string) []Attendee {
	out := make([]Attendee, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		if a.UserID == userID {
			continue
		}
		out = append(out, a)
	}
	return out
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name         string      `json:"name"`
	MaxAttendees int         `json:"max_attendees"`
	Status       EventStatus `json:"status,omitempty"`
}

// TransitionRequest is the payload for an event status transition.
type TransitionRequest struct {
	Status EventStatus `json:"status"`
}

// RegistrationResponse is returned after a successful registration.
type RegistrationResponse struct {
	Attendees      []Attendee `json:"attendees"`
	AvailableSpots int        `json:"available_spots"`
}

// UnregistrationResponse is returned after a successful unregistration.
type UnregistrationResponse struct {
	Attendees []Attendee `json:"attendees"`
}

// EventResponse is the read-side snapshot of an event, with derived
// capacity fields computed from the same snapshot as the roster.
type EventResponse struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Status         EventStatus `json:"status"`
	MaxAttendees   int         `json:"max_attendees"`
	Attendees      []Attendee  `json:"attendees"`
	AvailableSpots int         `json:"available_spots"`
	IsFull         bool        `json:"is_full"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Snapshot builds the read-side view of an event.
func Snapshot(e *Event) *EventResponse {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []Attendee{}
	}
	return &EventResponse{
		ID:             e.ID,
		Name:           e.Name,
		Status:         e.Status,
		MaxAttendees:   e.MaxAttendees,
		Attendees:      attendees,
		AvailableSpots: e.AvailableSpots(),
		IsFull:         e.IsFull(),
		CreatedAt:      e.CreatedAt,
	}
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
