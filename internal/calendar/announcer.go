package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/casper/internal/models"
)

// clockLayout is the short time style, e.g. "3:04 PM".
const clockLayout = "3:04 PM"

const (
	IntroMessage = "I just checked your calendar and here's what I found"
	OutroMessage = "That's all for today's events."
)

// Announcer emits calendar messages one per interval, then waits settle
// before returning.
type Announcer struct {
	interval time.Duration
	settle   time.Duration
}

func NewAnnouncer(interval, settle time.Duration) *Announcer {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if settle < 0 {
		settle = 0
	}
	return &Announcer{interval: interval, settle: settle}
}

// Messages is what Run emits for events, in order.
func Messages(events []models.CalendarEvent) []string {
	msgs := make([]string, 0, len(events)+2)
	msgs = append(msgs, IntroMessage)
	for _, e := range events {
		msgs = append(msgs, EventMessage(e))
	}
	return append(msgs, OutroMessage)
}

// EventMessage reads an event as "<title> from 3:04 PM to 4:00 PM".
func EventMessage(e models.CalendarEvent) string {
	return fmt.Sprintf("%s from %s to %s", e.Title, e.Start.Local().Format(clockLayout), e.End.Local().Format(clockLayout))
}

// Run emits [Messages] for events on every tick. It returns nil after the
// settle delay that follows the last message, or ctx's error if stopped first.
func (a *Announcer) Run(ctx context.Context, events []models.CalendarEvent, emit func(string)) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for _, msg := range Messages(events) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			emit(msg)
		}
	}

	settle := time.NewTimer(a.settle)
	defer settle.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-settle.C:
		return nil
	}
}
