// Package event defines the scheduled event domain model.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/Gladowsky-Labs/brane/internal/domain"
)

// Type classifies an event.
type Type string

const (
	TypeMeeting     Type = "meeting"
	TypeAppointment Type = "appointment"
	TypeAssignment  Type = "assignment"
	TypeReminder    Type = "reminder"
	TypeTask        Type = "task"
)

// ValidTypes is the set of all valid event types.
var ValidTypes = map[Type]bool{
	TypeMeeting:     true,
	TypeAppointment: true,
	TypeAssignment:  true,
	TypeReminder:    true,
	TypeTask:        true,
}

// Status is the lifecycle state of an event.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ValidStatuses is the set of all valid event statuses.
var ValidStatuses = map[Status]bool{
	StatusUpcoming:  true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// Event is a scheduled occurrence owned by a single user.
type Event struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Type        Type      `json:"event_type"`
	Status      Status    `json:"status"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
}

// Scored is an event annotated with its similarity to a search query.
type Scored struct {
	Event
	Similarity float64 `json:"similarity"`
}

// EmbeddingText composes the text that is embedded for an event: title,
// description, start time, location and type, space-joined in that order.
func EmbeddingText(title, description string, start time.Time, location string, typ Type) string {
	return fmt.Sprintf("%s %s %s %s %s",
		title, description, start.UTC().Format(time.RFC3339), location, typ)
}

// CreateRequest is the input for storing a new event. Date doubles as both
// start and end time of the stored row.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location,omitempty"`
	Type        string `json:"event_type,omitempty"`
}

// Validate checks required fields and that Date parses as RFC 3339.
func (r *CreateRequest) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("title is required: %w", domain.ErrValidation)
	}
	if r.Description == "" {
		return fmt.Errorf("description is required: %w", domain.ErrValidation)
	}
	if _, err := ParseTime(r.Date); err != nil {
		return fmt.Errorf("date must be an ISO timestamp: %w", domain.ErrValidation)
	}
	if r.Type != "" && !ValidTypes[Type(r.Type)] {
		return fmt.Errorf("event_type must be one of meeting, appointment, assignment, reminder, task: %w", domain.ErrValidation)
	}
	return nil
}

// Normalize returns an Event populated from the request with insert
// defaults applied: start and end both take Date, the type falls back to
// reminder and the location to "none".
func (r *CreateRequest) Normalize(userID string) Event {
	start, _ := ParseTime(r.Date)

	typ := Type(r.Type)
	if r.Type == "" {
		typ = TypeReminder
	}
	location := r.Location
	if location == "" {
		location = "none"
	}

	return Event{
		UserID:      userID,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   start,
		EndTime:     start,
		Type:        typ,
		Status:      StatusUpcoming,
		Location:    location,
	}
}

// UpdateRequest is a partial update of an event. Nil fields are untouched.
type UpdateRequest struct {
	ID          int64   `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	StartTime   *string `json:"startTime,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
	Location    *string `json:"location,omitempty"`
	Type        *string `json:"eventType,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// Validate checks the id, that at least one field is being updated, and
// that every supplied field is well formed.
func (r *UpdateRequest) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("id must be a positive integer: %w", domain.ErrValidation)
	}
	if !r.HasUpdates() {
		return fmt.Errorf("no updates provided: %w", domain.ErrValidation)
	}
	if r.StartTime != nil {
		if _, err := ParseTime(*r.StartTime); err != nil {
			return fmt.Errorf("startTime must be an ISO timestamp: %w", domain.ErrValidation)
		}
	}
	if r.EndTime != nil {
		if _, err := ParseTime(*r.EndTime); err != nil {
			return fmt.Errorf("endTime must be an ISO timestamp: %w", domain.ErrValidation)
		}
	}
	if r.Type != nil && !ValidTypes[Type(*r.Type)] {
		return fmt.Errorf("event_type must be one of meeting, appointment, assignment, reminder, task: %w", domain.ErrValidation)
	}
	if r.Status != nil && !ValidStatuses[Status(*r.Status)] {
		return fmt.Errorf("status must be one of upcoming, completed, cancelled: %w", domain.ErrValidation)
	}
	return nil
}

// HasUpdates reports whether any optional field is present.
func (r *UpdateRequest) HasUpdates() bool {
	return r.Title != nil || r.Description != nil || r.StartTime != nil ||
		r.EndTime != nil || r.Location != nil || r.Type != nil || r.Status != nil
}

// NeedsReembed reports whether this update regenerates the stored
// embedding. Only title and description changes trigger regeneration;
// start time, location and type feed the embedding text but do not force
// a refresh on their own. The asymmetry is deliberate and load-bearing
// for the partial-update guarantees.
func (r *UpdateRequest) NeedsReembed() bool {
	return r.Title != nil || r.Description != nil
}

// Apply merges this update into a copy of cur and returns the result.
func (r *UpdateRequest) Apply(cur Event) Event {
	if r.Title != nil {
		cur.Title = *r.Title
	}
	if r.Description != nil {
		cur.Description = *r.Description
	}
	if r.StartTime != nil {
		t, _ := ParseTime(*r.StartTime)
		cur.StartTime = t
	}
	if r.EndTime != nil {
		t, _ := ParseTime(*r.EndTime)
		cur.EndTime = t
	}
	if r.Location != nil {
		cur.Location = *r.Location
	}
	if r.Type != nil {
		cur.Type = Type(*r.Type)
	}
	if r.Status != nil {
		cur.Status = Status(*r.Status)
	}
	return cur
}

// SearchRequest is the input for a vector similarity search over events.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks that the SearchRequest has all required fields.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if r.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %w", domain.ErrValidation)
	}
	return nil
}

// ParseTime parses an ISO timestamp, accepting both RFC 3339 and the
// date-only form a model tends to emit.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
