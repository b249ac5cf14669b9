package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// EventRepository implements [models.Repository] for [models.CalendarEvent].
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new [EventRepository] with the given database connection
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create validates and inserts an event, assigning a new ID.
func (r *EventRepository) Create(event *models.CalendarEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.Calendar == "" {
		event.Calendar = "Calendar"
	}
	event.ID = shared.GenerateID()

	query := `INSERT INTO calendar_events (id, calendar, title, starts_at, ends_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.Exec(query, event.ID, event.Calendar, event.Title, dbTime(event.Start), dbTime(event.End)); err != nil {
		return fmt.Errorf("failed to insert calendar event: %w", err)
	}
	return nil
}

// Get retrieves an event by ID, excluding soft-deleted events
func (r *EventRepository) Get(id string) (*models.CalendarEvent, error) {
	row := r.db.QueryRow(`
		SELECT id, calendar, title, starts_at, ends_at
		FROM calendar_events
		WHERE id = ? AND deleted_at IS NULL
	`, id)

	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("calendar event %s: %w", id, ErrNotFound)
	}
	return event, err
}

// Delete soft-deletes an event by ID
func (r *EventRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE calendar_events SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return expectOne(result, "calendar event", id)
}

// List returns live events ordered by start time.
//
// Supported criteria: "from" and "to" ([time.Time], events starting in [from, to)),
// "calendars" ([]string, exact names) and "title" (case-insensitive substring).
func (r *EventRepository) List(criteria map[string]any) ([]*models.CalendarEvent, error) {
	query := `
		SELECT id, calendar, title, starts_at, ends_at
		FROM calendar_events
		WHERE deleted_at IS NULL
	`
	args := []any{}

	if from, ok := criteria["from"].(time.Time); ok && !from.IsZero() {
		query += " AND starts_at >= ?"
		args = append(args, dbTime(from))
	}
	if to, ok := criteria["to"].(time.Time); ok && !to.IsZero() {
		query += " AND starts_at < ?"
		args = append(args, dbTime(to))
	}
	if calendars, ok := criteria["calendars"].([]string); ok && len(calendars) > 0 {
		query += " AND calendar IN (?" + strings.Repeat(", ?", len(calendars)-1) + ")"
		for _, c := range calendars {
			args = append(args, c)
		}
	}
	if title, ok := criteria["title"].(string); ok && title != "" {
		query += " AND instr(lower(title), lower(?)) > 0"
		args = append(args, title)
	}

	query += " ORDER BY starts_at ASC, title ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	var events []*models.CalendarEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	if err := s.Scan(&event.ID, &event.Calendar, &event.Title, &event.Start, &event.End); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan calendar event: %w", err)
	}
	event.Start = event.Start.Local()
	event.End = event.End.Local()
	return &event, nil
}
