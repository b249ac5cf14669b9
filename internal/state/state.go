package state

import (
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// State is one of the application's closed set of states.
type State int

const (
	LoggedOut State = iota
	Idle
	FunctionSelection
	AwaitingTextInput
	InputConfirmed
	AutoMonitoring
	Hidden
	CalendarPrompt
	CalendarReply
	SystemReply
)

var stateNames = [...]string{
	LoggedOut:         "logged_out",
	Idle:              "idle",
	FunctionSelection: "function_selection",
	AwaitingTextInput: "awaiting_text_input",
	InputConfirmed:    "input_confirmed",
	AutoMonitoring:    "auto_monitoring",
	Hidden:            "hidden",
	CalendarPrompt:    "calendar_prompt",
	CalendarReply:     "calendar_reply",
	SystemReply:       "system_reply",
}

func (s State) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return stateNames[s]
}

// Valid reports whether s is a member of the closed state set.
func (s State) Valid() bool {
	return s >= LoggedOut && s <= SystemReply
}

// States returns every state in declaration order.
func States() []State {
	states := make([]State, 0, len(stateNames))
	for s := LoggedOut; s <= SystemReply; s++ {
		states = append(states, s)
	}
	return states
}

// EventType identifies what happened.
type EventType int

const (
	EventLoginComplete EventType = iota
	EventTap
	EventMusicSelected
	EventAutoMonitorSelected
	EventCalendarSelected
	EventPlaybackSucceeded
	EventPlaybackFailed
	EventAlertDismissed
	EventCancel
	EventConfirmationComplete
	EventCalendarSubmitted
	EventCalendarDelivered
	EventHide
	EventShow
	EventMenuCalendar
	EventMenuAutoMonitor
)

var eventNames = [...]string{
	EventLoginComplete:        "login_complete",
	EventTap:                  "tap",
	EventMusicSelected:        "music_selected",
	EventAutoMonitorSelected:  "auto_monitor_selected",
	EventCalendarSelected:     "calendar_selected",
	EventPlaybackSucceeded:    "playback_succeeded",
	EventPlaybackFailed:       "playback_failed",
	EventAlertDismissed:       "alert_dismissed",
	EventCancel:               "cancel",
	EventConfirmationComplete: "confirmation_complete",
	EventCalendarSubmitted:    "calendar_submitted",
	EventCalendarDelivered:    "calendar_delivered",
	EventHide:                 "hide",
	EventShow:                 "show",
	EventMenuCalendar:         "menu_calendar",
	EventMenuAutoMonitor:      "menu_auto_monitor",
}

func (t EventType) String() string {
	if t < 0 || int(t) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[t]
}

// EventTypes returns every event type in declaration order.
func EventTypes() []EventType {
	types := make([]EventType, len(eventNames))
	for i := range eventNames {
		types[i] = EventType(i)
	}
	return types
}

// Event is an input to [Transition].
//
// OK carries the outcome of MusicSelected (authentication) and
// CalendarSubmitted (access granted). Err carries the failure for
// PlaybackFailed and negative outcomes.
type Event struct {
	Type    EventType
	OK      bool
	Err     error
	Message string
	Events  []models.CalendarEvent
}

// Transition returns the state that follows s when e occurs.
func Transition(s State, e Event) State {
	switch e.Type {
	case EventHide:
		return Hidden
	case EventShow:
		return LoggedOut
	case EventMenuCalendar:
		return CalendarPrompt
	case EventMenuAutoMonitor:
		return AutoMonitoring
	}

	switch s {
	case LoggedOut:
		if e.Type == EventLoginComplete {
			return Idle
		}
	case Idle, AutoMonitoring, SystemReply:
		if e.Type == EventTap {
			return FunctionSelection
		}
	case FunctionSelection:
		switch e.Type {
		case EventTap:
			return Idle
		case EventMusicSelected:
			if e.OK {
				return AwaitingTextInput
			}
			return SystemReply
		case EventAutoMonitorSelected:
			return AutoMonitoring
		case EventCalendarSelected:
			return CalendarPrompt
		}
	case AwaitingTextInput:
		switch e.Type {
		case EventPlaybackSucceeded:
			return InputConfirmed
		case EventPlaybackFailed:
			if shared.IsDeviceError(e.Err) {
				return AwaitingTextInput
			}
			return SystemReply
		case EventCancel:
			return FunctionSelection
		}
	case InputConfirmed:
		if e.Type == EventConfirmationComplete {
			return Idle
		}
	case CalendarPrompt:
		switch e.Type {
		case EventCalendarSubmitted:
			if e.OK {
				return CalendarReply
			}
			return SystemReply
		case EventCancel:
			return FunctionSelection
		}
	case CalendarReply:
		if e.Type == EventCalendarDelivered {
			return CalendarPrompt
		}
	}
	return s
}
