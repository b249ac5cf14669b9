package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// Service applies the access policy in front of a [Provider].
type Service struct {
	provider  Provider
	calendars []string
	logger    *log.Logger
}

// NewService limits every search to calendars; nil searches all of them.
func NewService(provider Provider, calendars []string, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{provider: provider, calendars: calendars, logger: logger}
}

// Access reports whether events can be read, asking for access when the
// status is undetermined or write-only. Denied is final.
func (s *Service) Access(ctx context.Context) (bool, error) {
	status := s.provider.AuthorizationStatus()
	s.logger.Debug("calendar authorization", "status", status)

	switch status {
	case Granted:
		return true, nil
	case Denied:
		return false, nil
	default:
		granted, err := s.provider.RequestAccess(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to request calendar access: %w", err)
		}
		s.logger.Info("calendar access requested", "granted", granted)
		return granted, nil
	}
}

// Search returns events starting in [start, end) whose title contains title.
//
// Access is checked first, so an undetermined or write-only status prompts
// once. Refusal fails with [shared.ErrCalendarDenied].
func (s *Service) Search(ctx context.Context, start, end time.Time, title string) ([]models.CalendarEvent, error) {
	granted, err := s.Access(ctx)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, fmt.Errorf("%w: access was not granted", shared.ErrCalendarDenied)
	}

	events, err := s.provider.Events(ctx, start, end, s.calendars, title)
	if err != nil {
		return nil, fmt.Errorf("failed to search calendar: %w", err)
	}
	s.logger.Debug("calendar search", "start", start, "end", end, "found", len(events))
	return events, nil
}

// Today returns the events of the local day containing now.
func (s *Service) Today(ctx context.Context, now time.Time) ([]models.CalendarEvent, error) {
	start, end := DayBounds(now)
	return s.Search(ctx, start, end, "")
}

// DayBounds returns local midnight of now's day and the midnight after it.
func DayBounds(now time.Time) (time.Time, time.Time) {
	now = now.Local()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}
