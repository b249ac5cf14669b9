package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgLoginDone MsgKind = iota
	MsgConfirmDone
	MsgAuthenticated
	MsgProgress
	MsgPlaybackDone
	MsgCalendarFetched
	MsgCalendarLine
	MsgCalendarDone
)

type progressData struct {
	update tasks.ProgressUpdate
	ch     <-chan tasks.ProgressUpdate
}

type playbackData struct {
	result models.PlaybackResult
	err    error
}

type calendarData struct {
	events []models.CalendarEvent
	err    error
}

type lineData struct {
	run   int
	text  string
	lines <-chan string
}

// loginDoneMsg is the constructor for [MsgLoginDone]; tick is the generation that scheduled it.
func loginDoneMsg(tick int) Msg { return Msg{kind: MsgLoginDone, data: tick} }

// confirmDoneMsg is the constructor for [MsgConfirmDone]
func confirmDoneMsg(tick int) Msg { return Msg{kind: MsgConfirmDone, data: tick} }

// authenticatedMsg is the constructor for [MsgAuthenticated]
func authenticatedMsg(err error) Msg { return Msg{kind: MsgAuthenticated, data: err} }

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate, ch <-chan tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: progressData{update: update, ch: ch}}
}

// playbackDoneMsg is the constructor for [MsgPlaybackDone]
func playbackDoneMsg(result models.PlaybackResult, err error) Msg {
	return Msg{kind: MsgPlaybackDone, data: playbackData{result: result, err: err}}
}

// calendarFetchedMsg is the constructor for [MsgCalendarFetched]
func calendarFetchedMsg(events []models.CalendarEvent, err error) Msg {
	return Msg{kind: MsgCalendarFetched, data: calendarData{events: events, err: err}}
}

// calendarLineMsg is the constructor for [MsgCalendarLine]
func calendarLineMsg(run int, text string, lines <-chan string) Msg {
	return Msg{kind: MsgCalendarLine, data: lineData{run: run, text: text, lines: lines}}
}

// calendarDoneMsg is the constructor for [MsgCalendarDone]
func calendarDoneMsg(run int) Msg { return Msg{kind: MsgCalendarDone, data: run} }
