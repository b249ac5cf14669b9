package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Model is implemented by every persisted entity.
type Model interface {
	Identifier() string // Identifier returns the primary key
	Validate() error    // Validate checks the entity before it is written
}

// Repository defines the data access operations for a persisted entity.
type Repository[T Model] interface {
	Create(model T) error                      // Create assigns an ID and inserts the model
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Delete(id string) error                    // Delete removes a model by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

var ErrValidation = errors.New("validation failed")

// CalendarEvent is a single calendar entry. Only title and times are read aloud.
type CalendarEvent struct {
	ID       string
	Calendar string
	Title    string
	Start    time.Time
	End      time.Time
}

func (e *CalendarEvent) Identifier() string { return e.ID }

func (e *CalendarEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: event title is required", ErrValidation)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: event start and end are required", ErrValidation)
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("%w: event ends before it starts", ErrValidation)
	}
	return nil
}

// RequestStatus is the outcome of a music request.
type RequestStatus string

const (
	RequestSucceeded RequestStatus = "succeeded"
	RequestFailed    RequestStatus = "failed"
)

// Request records one text-to-playback attempt.
type Request struct {
	ID         string
	Input      string
	Genre      string
	PlaylistID string
	DeviceName string
	TrackCount int
	Status     RequestStatus
	Error      string
	CreatedAt  time.Time
}

func (r *Request) Identifier() string { return r.ID }

func (r *Request) Validate() error {
	if strings.TrimSpace(r.Input) == "" {
		return fmt.Errorf("%w: request input is required", ErrValidation)
	}
	switch r.Status {
	case RequestSucceeded, RequestFailed:
	default:
		return fmt.Errorf("%w: unknown request status %q", ErrValidation, r.Status)
	}
	return nil
}
