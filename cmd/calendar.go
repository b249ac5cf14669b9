package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/casper/internal/calendar"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/urfave/cli/v3"
)

// localLayout is accepted by --start/--end alongside RFC3339.
const localLayout = "2006-01-02 15:04"

// CalendarToday lists today's events, or reads them out with --read.
func (r *Runner) CalendarToday(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	start, end := calendar.DayBounds(time.Now())
	events, err := r.calendar.Search(ctx, start, end, cmd.String("title"))
	if err != nil {
		return err
	}

	if cmd.Bool("read") {
		return r.announcer.Run(ctx, events, func(msg string) {
			r.writePlain("%s\n", msg)
		})
	}

	if len(events) == 0 {
		return r.writePlain("No events today.\n")
	}

	r.writePlain("Today (%s):\n\n", start.Format("Monday, January 2"))
	for _, e := range events {
		r.writePlain("• %s\n", calendar.EventMessage(e))
		if e.Calendar != "" {
			r.writePlain("  %s\n", e.Calendar)
		}
	}
	return nil
}

// CalendarAdd stores an event in the local calendar.
func (r *Runner) CalendarAdd(ctx context.Context, cmd *cli.Command) error {
	start, err := parseEventTime(cmd.String("start"))
	if err != nil {
		return err
	}
	end, err := parseEventTime(cmd.String("end"))
	if err != nil {
		return err
	}

	if err := r.open(); err != nil {
		return err
	}

	event := &models.CalendarEvent{
		Calendar: cmd.String("calendar"),
		Title:    cmd.String("title"),
		Start:    start,
		End:      end,
	}
	if err := r.events.Create(event); err != nil {
		return err
	}

	r.logger.Info("calendar event added", "id", event.ID, "calendar", event.Calendar)
	return r.writePlain("✓ Added %s\n", calendar.EventMessage(*event))
}

func parseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: time %q (want RFC3339 or %q)", shared.ErrInvalidArgument, s, localLayout)
}
