package state

import (
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/models"
)

// Snapshot is an immutable copy of everything the UI renders.
type Snapshot struct {
	State   State
	Message string
	Alert   bool
	Input   string
	Events  []models.CalendarEvent
}

// Machine owns the live [Snapshot]. It is safe for concurrent use.
type Machine struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
	logger *log.Logger
}

// NewMachine creates a machine in [LoggedOut].
func NewMachine(logger *log.Logger) *Machine {
	return &Machine{
		snap:   Snapshot{State: LoggedOut},
		subs:   make(map[int]chan Snapshot),
		logger: logger,
	}
}

// Current returns the live state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.State
}

// Snapshot returns a copy of the live snapshot.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.clone()
}

// Dispatch applies e and returns the resulting snapshot.
func (m *Machine) Dispatch(e Event) Snapshot {
	m.mu.Lock()
	prev := m.snap.State
	m.snap = reduce(m.snap, e)
	snap := m.snap.clone()
	m.publish(snap)
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("state transition", "event", e.Type, "from", prev, "to", snap.State, "alert", snap.Alert)
	}
	return snap
}

// Submit records text typed in [AwaitingTextInput]. It reports false, leaving
// the machine untouched, for blank text or when no input is awaited. The
// returned text is trimmed; the state itself only changes when the playback
// result is dispatched.
func (m *Machine) Submit(text string) (string, bool) {
	text = strings.TrimSpace(text)
	m.mu.Lock()
	defer m.mu.Unlock()

	if text == "" || m.snap.State != AwaitingTextInput {
		return "", false
	}
	m.snap.Input = text
	m.snap.Alert = false
	m.publish(m.snap.clone())
	return text, true
}

// SetMessage replaces the system message without changing state.
func (m *Machine) SetMessage(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Message = msg
	m.publish(m.snap.clone())
}

// Subscribe returns a channel of snapshots and a cancel func. Snapshots are
// dropped for a subscriber whose buffer is full.
func (m *Machine) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publish must be called with m.mu held.
func (m *Machine) publish(snap Snapshot) {
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s Snapshot) clone() Snapshot {
	s.Events = slices.Clone(s.Events)
	return s
}

// reduce applies e to the whole snapshot. The state component always equals
// Transition(s.State, e).
func reduce(s Snapshot, e Event) Snapshot {
	next := s
	next.State = Transition(s.State, e)

	if next.State != AwaitingTextInput {
		next.Alert = false
	}
	if next.State != s.State && next.State != SystemReply && next.State != InputConfirmed {
		next.Message = ""
	}

	switch e.Type {
	case EventMusicSelected:
		if s.State == FunctionSelection && !e.OK {
			next.Message = failureText(e, "Unable to sign in to Spotify.")
		}
	case EventPlaybackFailed:
		if s.State != AwaitingTextInput {
			break
		}
		next.Message = failureText(e, "Playback failed.")
		next.Alert = next.State == AwaitingTextInput
	case EventPlaybackSucceeded:
		if s.State == AwaitingTextInput {
			next.Message = e.Message
		}
	case EventAlertDismissed:
		next.Alert = false
	case EventCalendarSubmitted:
		if s.State != CalendarPrompt {
			break
		}
		if e.OK {
			next.Events = slices.Clone(e.Events)
		} else {
			next.Message = failureText(e, "Calendar access denied.")
		}
	case EventShow, EventHide:
		next.Input = ""
	}

	if next.State != CalendarReply {
		next.Events = nil
	}
	return next
}

func failureText(e Event, fallback string) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fallback
	}
}
