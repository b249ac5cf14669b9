// package calendar looks up today's events and reads them aloud as timed messages
package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// Status is the calendar authorization state.
type Status int

const (
	NotDetermined Status = iota
	Granted
	WriteOnly
	Denied
)

func (s Status) String() string {
	switch s {
	case Granted:
		return "granted"
	case WriteOnly:
		return "write_only"
	case Denied:
		return "denied"
	default:
		return "not_determined"
	}
}

// ParseStatus reads a config value such as "granted" or "write_only".
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "granted", "full_access", "authorized":
		return Granted, nil
	case "write_only", "writeonly":
		return WriteOnly, nil
	case "denied", "restricted":
		return Denied, nil
	case "", "not_determined", "notdetermined":
		return NotDetermined, nil
	default:
		return NotDetermined, fmt.Errorf("%w: unknown calendar authorization %q", shared.ErrInvalidConfig, s)
	}
}

// Provider is the source of calendar events.
type Provider interface {
	AuthorizationStatus() Status
	RequestAccess(ctx context.Context) (bool, error)
	// Events returns events starting in [start, end). Empty calendars means
	// every calendar; title is a case-insensitive substring filter.
	Events(ctx context.Context, start, end time.Time, calendars []string, title string) ([]models.CalendarEvent, error)
}

// EventStore is the persistence used by [StoreProvider].
type EventStore interface {
	List(criteria map[string]any) ([]*models.CalendarEvent, error)
}

// StoreProvider serves events from the local store. Its authorization state
// comes from config; a request for access is answered by grantOnRequest.
type StoreProvider struct {
	store          EventStore
	grantOnRequest bool

	mu     sync.Mutex
	status Status
}

func NewStoreProvider(store EventStore, status Status, grantOnRequest bool) *StoreProvider {
	return &StoreProvider{store: store, status: status, grantOnRequest: grantOnRequest}
}

func (p *StoreProvider) AuthorizationStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// RequestAccess prompts for full access. A denied provider is never re-prompted.
func (p *StoreProvider) RequestAccess(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.status {
	case Granted:
		return true, nil
	case Denied:
		return false, nil
	}

	if p.grantOnRequest {
		p.status = Granted
	} else {
		p.status = Denied
	}
	return p.status == Granted, nil
}

func (p *StoreProvider) Events(ctx context.Context, start, end time.Time, calendars []string, title string) ([]models.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := p.store.List(map[string]any{"from": start, "to": end, "calendars": calendars, "title": title})
	if err != nil {
		return nil, err
	}

	events := make([]models.CalendarEvent, 0, len(rows))
	for _, e := range rows {
		events = append(events, *e)
	}
	return events, nil
}
