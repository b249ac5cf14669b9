package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/desertthunder/casper/internal/state"
	"github.com/desertthunder/casper/internal/tasks"
)

const (
	defaultLoginDelay   = 2 * time.Second
	defaultConfirmDelay = 3 * time.Second
)

// Player turns a free-text request into playback.
type Player interface {
	PlayFromText(ctx context.Context, text string, progress chan<- tasks.ProgressUpdate) (models.PlaybackResult, error)
}

// Authenticator yields a usable Spotify credential.
type Authenticator interface {
	Authenticate(ctx context.Context) (models.Credential, error)
}

// CalendarReader returns the events for the day containing now.
type CalendarReader interface {
	Today(ctx context.Context, now time.Time) ([]models.CalendarEvent, error)
}

// Announcer paces calendar messages out through emit.
type Announcer interface {
	Run(ctx context.Context, events []models.CalendarEvent, emit func(string)) error
}

// Options configures a [Model]. Machine, Player, Auth, Calendar and Announcer are required.
type Options struct {
	Machine      *state.Machine
	Player       Player
	Auth         Authenticator
	Calendar     CalendarReader
	Announcer    Announcer
	LoginDelay   time.Duration
	ConfirmDelay time.Duration
	Now          func() time.Time
	Logger       *log.Logger
}

// Model represents the TUI application state. Everything it renders comes
// from the machine's snapshot; async work reports back through [Msg] values
// and is dispatched from Update.
type Model struct {
	ctx          context.Context
	machine      *state.Machine
	player       Player
	auth         Authenticator
	calendar     CalendarReader
	announcer    Announcer
	loginDelay   time.Duration
	confirmDelay time.Duration
	now          func() time.Time
	logger       *log.Logger

	input     textinput.Model
	spinner   spinner.Model
	functions list.Model
	help      help.Model
	keys      keyMap
	width     int
	height    int

	busy         bool
	cancelPlay   context.CancelFunc
	cancelCal    context.CancelFunc
	calendarRun  int
	tickRun      int
	lastProgress tasks.ProgressUpdate
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.LoginDelay <= 0 {
		opts.LoginDelay = defaultLoginDelay
	}
	if opts.ConfirmDelay <= 0 {
		opts.ConfirmDelay = defaultConfirmDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Machine == nil {
		opts.Machine = state.NewMachine(opts.Logger)
	}

	input := textinput.New()
	input.Placeholder = "Play some chill lo-fi for studying"
	input.CharLimit = 280
	input.Width = 44

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ghost

	return &Model{
		ctx:          ctx,
		machine:      opts.Machine,
		player:       opts.Player,
		auth:         opts.Auth,
		calendar:     opts.Calendar,
		announcer:    opts.Announcer,
		loginDelay:   opts.LoginDelay,
		confirmDelay: opts.ConfirmDelay,
		now:          opts.Now,
		logger:       opts.Logger,
		input:        input,
		spinner:      s,
		functions:    newFunctionList(),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init starts the login animation.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loginTick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.functions.SetWidth(min(msg.Width-4, 60))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoginDone:
		if tick, _ := msg.data.(int); tick == m.tickRun {
			m.dispatch(state.Event{Type: state.EventLoginComplete})
		}
		return m, nil

	case MsgConfirmDone:
		if tick, _ := msg.data.(int); tick == m.tickRun {
			m.dispatch(state.Event{Type: state.EventConfirmationComplete})
		}
		return m, nil

	case MsgAuthenticated:
		m.busy = false
		err, _ := msg.data.(error)
		if m.machine.Current() != state.FunctionSelection {
			return m, nil
		}
		if err != nil {
			m.logger.Warn("spotify sign-in failed", "err", err)
			m.dispatch(state.Event{Type: state.EventMusicSelected, Err: err, Message: tasks.Reason(err)})
			return m, nil
		}
		m.dispatch(state.Event{Type: state.EventMusicSelected, OK: true})
		m.input.Reset()
		m.input.Focus()
		return m, nil

	case MsgProgress:
		data := msg.data.(progressData)
		m.lastProgress = data.update
		if m.machine.Current() == state.AwaitingTextInput && data.update.Message != "" {
			m.machine.SetMessage(data.update.Message)
		}
		return m, waitForProgress(data.ch)

	case MsgPlaybackDone:
		return m.finishPlayback(msg.data.(playbackData))

	case MsgCalendarFetched:
		return m.finishCalendar(msg.data.(calendarData))

	case MsgCalendarLine:
		data := msg.data.(lineData)
		if data.run != m.calendarRun {
			return m, nil
		}
		if m.machine.Current() == state.CalendarReply {
			m.machine.SetMessage(data.text)
		}
		return m, waitForLine(data.run, data.lines)

	case MsgCalendarDone:
		if run, _ := msg.data.(int); run != m.calendarRun {
			return m, nil
		}
		m.stopCalendar()
		m.dispatch(state.Event{Type: state.EventCalendarDelivered})
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		m.stopPlayback()
		m.stopCalendar()
		return m, tea.Quit
	}

	snap := m.machine.Snapshot()
	switch snap.State {
	case state.AwaitingTextInput:
		return m.handleTextKeys(msg, snap)
	case state.CalendarPrompt:
		return m.handleCalendarKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.hide):
		return m.hide()
	case key.Matches(msg, m.keys.show):
		return m.show()
	}

	switch snap.State {
	case state.Hidden, state.Idle, state.AutoMonitoring, state.SystemReply, state.InputConfirmed, state.CalendarReply:
		return m.handleMenuKeys(msg, snap.State)
	case state.FunctionSelection:
		return m.handleFunctionKeys(msg)
	}
	return m, nil
}

// handleMenuKeys covers the tap plus the shortcuts available from any state.
func (m *Model) handleMenuKeys(msg tea.KeyMsg, current state.State) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.tap):
		if current == state.Hidden {
			return m, nil
		}
		m.dispatch(state.Event{Type: state.EventTap})
	case key.Matches(msg, m.keys.calendar):
		m.stopCalendar()
		m.dispatch(state.Event{Type: state.EventMenuCalendar})
	case key.Matches(msg, m.keys.auto):
		m.stopCalendar()
		m.dispatch(state.Event{Type: state.EventMenuAutoMonitor})
	}
	return m, nil
}

func (m *Model) handleFunctionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.tap):
		m.dispatch(state.Event{Type: state.EventTap})
	case key.Matches(msg, m.keys.music):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.authenticate())
	case key.Matches(msg, m.keys.calendar):
		m.dispatch(state.Event{Type: state.EventCalendarSelected})
	case key.Matches(msg, m.keys.auto):
		m.dispatch(state.Event{Type: state.EventAutoMonitorSelected})
	case key.Matches(msg, m.keys.submit):
		if shortcut, ok := selectedKey(m.functions); ok {
			return m.handleFunctionKeys(shortcut)
		}
	case key.Matches(msg, m.keys.up, m.keys.down):
		var cmd tea.Cmd
		m.functions, cmd = m.functions.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleTextKeys(msg tea.KeyMsg, snap state.Snapshot) (tea.Model, tea.Cmd) {
	if snap.Alert {
		switch {
		case key.Matches(msg, m.keys.retry):
			return m.play(snap.Input)
		case key.Matches(msg, m.keys.back):
			m.dispatch(state.Event{Type: state.EventAlertDismissed})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.stopPlayback()
		m.input.Blur()
		m.dispatch(state.Event{Type: state.EventCancel})
		return m, nil
	case key.Matches(msg, m.keys.submit):
		if m.busy {
			return m, nil
		}
		return m.play(m.input.Value())
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.busy = false
		m.dispatch(state.Event{Type: state.EventCancel})
	case key.Matches(msg, m.keys.submit):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.fetchCalendar())
	case key.Matches(msg, m.keys.hide):
		return m.hide()
	case key.Matches(msg, m.keys.show):
		return m.show()
	case key.Matches(msg, m.keys.auto):
		m.dispatch(state.Event{Type: state.EventMenuAutoMonitor})
	}
	return m, nil
}

func (m *Model) hide() (tea.Model, tea.Cmd) {
	m.stopPlayback()
	m.stopCalendar()
	m.tickRun++
	m.busy = false
	m.input.Reset()
	m.input.Blur()
	m.dispatch(state.Event{Type: state.EventHide})
	return m, nil
}

func (m *Model) show() (tea.Model, tea.Cmd) {
	m.stopPlayback()
	m.stopCalendar()
	m.busy = false
	m.input.Reset()
	m.input.Blur()
	m.dispatch(state.Event{Type: state.EventShow})
	return m, tea.Batch(m.spinner.Tick, m.loginTick())
}

// play submits text to the machine and runs the playback chain.
func (m *Model) play(text string) (tea.Model, tea.Cmd) {
	text, ok := m.machine.Submit(text)
	if !ok {
		return m, nil
	}
	m.busy = true
	m.lastProgress = tasks.ProgressUpdate{}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelPlay = cancel
	progress := make(chan tasks.ProgressUpdate, 16)
	player := m.player

	run := func() tea.Msg {
		defer cancel()
		defer close(progress)
		result, err := player.PlayFromText(ctx, text, progress)
		return playbackDoneMsg(result, err)
	}
	return m, tea.Batch(m.spinner.Tick, run, waitForProgress(progress))
}

func (m *Model) finishPlayback(data playbackData) (tea.Model, tea.Cmd) {
	m.busy = false
	m.cancelPlay = nil
	if m.machine.Current() != state.AwaitingTextInput {
		return m, nil
	}

	if data.err != nil {
		m.logger.Warn("playback failed", "err", data.err)
		snap := m.dispatch(state.Event{Type: state.EventPlaybackFailed, Err: data.err, Message: tasks.Reason(data.err)})
		if snap.State != state.AwaitingTextInput {
			m.input.Blur()
		}
		return m, nil
	}

	m.logger.Info("playback started", "playlist", data.result.PlaylistName, "device", data.result.DeviceName)
	m.input.Reset()
	m.input.Blur()
	m.dispatch(state.Event{Type: state.EventPlaybackSucceeded, Message: NowPlaying(data.result)})
	return m, m.confirmTick()
}

func (m *Model) fetchCalendar() tea.Cmd {
	reader, ctx, now := m.calendar, m.ctx, m.now()
	return func() tea.Msg {
		events, err := reader.Today(ctx, now)
		return calendarFetchedMsg(events, err)
	}
}

func (m *Model) finishCalendar(data calendarData) (tea.Model, tea.Cmd) {
	m.busy = false
	if m.machine.Current() != state.CalendarPrompt {
		return m, nil
	}
	if data.err != nil {
		m.logger.Warn("calendar unavailable", "err", data.err)
		m.dispatch(state.Event{Type: state.EventCalendarSubmitted, Err: data.err, Message: calendarReason(data.err)})
		return m, nil
	}

	snap := m.dispatch(state.Event{Type: state.EventCalendarSubmitted, OK: true, Events: data.events})
	return m, m.announce(snap.Events)
}

// announce runs the announcer in the background; its lines come back as
// [MsgCalendarLine] values followed by one [MsgCalendarDone].
func (m *Model) announce(events []models.CalendarEvent) tea.Cmd {
	m.stopCalendar()
	m.calendarRun++
	run := m.calendarRun

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelCal = cancel
	lines := make(chan string)
	announcer, logger := m.announcer, m.logger

	go func() {
		defer close(lines)
		err := announcer.Run(ctx, events, func(text string) {
			select {
			case lines <- text:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("calendar announcement stopped", "err", err)
		}
	}()
	return waitForLine(run, lines)
}

func (m *Model) authenticate() tea.Cmd {
	auth, ctx := m.auth, m.ctx
	return func() tea.Msg {
		_, err := auth.Authenticate(ctx)
		return authenticatedMsg(err)
	}
}

// loginTick and confirmTick supersede any tick still pending.
func (m *Model) loginTick() tea.Cmd {
	m.tickRun++
	tick := m.tickRun
	return tea.Tick(m.loginDelay, func(time.Time) tea.Msg { return loginDoneMsg(tick) })
}

func (m *Model) confirmTick() tea.Cmd {
	m.tickRun++
	tick := m.tickRun
	return tea.Tick(m.confirmDelay, func(time.Time) tea.Msg { return confirmDoneMsg(tick) })
}

func waitForProgress(ch <-chan tasks.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg(update, ch)
	}
}

func waitForLine(run int, lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		text, ok := <-lines
		if !ok {
			return calendarDoneMsg(run)
		}
		return calendarLineMsg(run, text, lines)
	}
}

func (m *Model) stopPlayback() {
	if m.cancelPlay != nil {
		m.cancelPlay()
		m.cancelPlay = nil
	}
}

// stopCalendar cancels the running announcement and invalidates its messages.
func (m *Model) stopCalendar() {
	if m.cancelCal != nil {
		m.cancelCal()
		m.cancelCal = nil
		m.calendarRun++
	}
}

func (m *Model) dispatch(e state.Event) state.Snapshot {
	return m.machine.Dispatch(e)
}

func calendarReason(err error) string {
	if errors.Is(err, shared.ErrCalendarDenied) {
		return "I can't read your calendar. Allow access and try again."
	}
	return err.Error()
}

// NowPlaying is the confirmation shown after playback starts.
func NowPlaying(r models.PlaybackResult) string {
	if r.DeviceName == "" {
		return fmt.Sprintf("Now playing %q", r.PlaylistName)
	}
	return fmt.Sprintf("Now playing %q on %s", r.PlaylistName, r.DeviceName)
}

// View renders the UI based on the current machine state.
func (m *Model) View() string {
	snap := m.machine.Snapshot()

	var b strings.Builder
	b.WriteString(styles.title.Render("👻 Casper"))
	b.WriteString("\n")
	b.WriteString(m.renderState(snap))
	b.WriteString("\n\n")
	b.WriteString(m.help.ShortHelpView(m.bindings(snap)))
	return b.String()
}

func (m *Model) renderState(snap state.Snapshot) string {
	switch snap.State {
	case state.LoggedOut:
		return fmt.Sprintf("%s Signing in...", m.spinner.View())
	case state.Idle:
		return styles.help.Render("Tap me when you need something.")
	case state.FunctionSelection:
		if m.busy {
			return fmt.Sprintf("%s Connecting to Spotify...", m.spinner.View())
		}
		return m.functions.View()
	case state.AwaitingTextInput:
		return m.renderTextInput(snap)
	case state.InputConfirmed:
		return styles.bubble.Render(styles.ok.Render("✓ " + snap.Message))
	case state.AutoMonitoring:
		return styles.bubble.Render("Spotify DJ is on. I'll keep an eye on what's playing.")
	case state.Hidden:
		return styles.help.Render("Casper is hiding.")
	case state.CalendarPrompt:
		if m.busy {
			return fmt.Sprintf("%s Checking your calendar...", m.spinner.View())
		}
		return styles.bubble.Render("Want me to read today's calendar?")
	case state.CalendarReply:
		return m.renderCalendar(snap)
	case state.SystemReply:
		return styles.bubble.Render(styles.warn.Render(snap.Message))
	}
	return ""
}

func (m *Model) renderTextInput(snap state.Snapshot) string {
	var b strings.Builder
	b.WriteString("What would you like to listen to?\n\n")
	b.WriteString(m.input.View())

	switch {
	case snap.Alert:
		b.WriteString("\n\n")
		b.WriteString(styles.err.Render(snap.Message))
	case m.busy:
		b.WriteString("\n\n")
		progress := snap.Message
		if m.lastProgress.Total > 0 {
			progress = fmt.Sprintf("[%d/%d] %s", m.lastProgress.Step, m.lastProgress.Total, progress)
		}
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), progress))
	}
	return b.String()
}

func (m *Model) renderCalendar(snap state.Snapshot) string {
	msg := snap.Message
	if msg == "" {
		msg = fmt.Sprintf("%s Reading %d events...", m.spinner.View(), len(snap.Events))
	}
	return styles.bubble.Render(msg)
}

// bindings lists the keys that do something in the current state.
func (m *Model) bindings(snap state.Snapshot) []key.Binding {
	switch snap.State {
	case state.FunctionSelection:
		return []key.Binding{m.keys.up, m.keys.down, m.keys.submit, m.keys.tap, m.keys.hide, m.keys.quit}
	case state.AwaitingTextInput:
		if snap.Alert {
			return []key.Binding{m.keys.retry, m.keys.back, m.keys.quit}
		}
		return []key.Binding{m.keys.submit, m.keys.back, m.keys.quit}
	case state.CalendarPrompt:
		return []key.Binding{m.keys.submit, m.keys.back, m.keys.hide, m.keys.quit}
	case state.Hidden:
		return []key.Binding{m.keys.show, m.keys.calendar, m.keys.auto, m.keys.quit}
	case state.LoggedOut:
		return []key.Binding{m.keys.hide, m.keys.quit}
	default:
		return []key.Binding{m.keys.tap, m.keys.calendar, m.keys.auto, m.keys.hide, m.keys.quit}
	}
}
