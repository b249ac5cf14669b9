package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/casper/internal/calendar"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/desertthunder/casper/internal/state"
	"github.com/desertthunder/casper/internal/tasks"
	tu "github.com/desertthunder/casper/internal/testing"
)

type mockPlayer struct {
	mu     sync.Mutex
	texts  []string
	errs   []error
	result models.PlaybackResult
}

func (p *mockPlayer) PlayFromText(_ context.Context, text string, progress chan<- tasks.ProgressUpdate) (models.PlaybackResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	progress <- tasks.ProgressUpdate{Phase: tasks.StartPlayback, Step: 10, Total: 10, Message: "Attempting to start playback..."}
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return models.PlaybackResult{}, err
		}
	}
	return p.result, nil
}

func (p *mockPlayer) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.texts)
}

type mockAuth struct {
	mu    sync.Mutex
	err   error
	count int
}

func (a *mockAuth) Authenticate(context.Context) (models.Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	if a.err != nil {
		return models.Credential{}, a.err
	}
	return models.Credential{AccessToken: "token"}, nil
}

type mockCalendar struct {
	events []models.CalendarEvent
	err    error
}

func (c *mockCalendar) Today(context.Context, time.Time) ([]models.CalendarEvent, error) {
	return c.events, c.err
}

type eventList []*models.CalendarEvent

func (l eventList) List(map[string]any) ([]*models.CalendarEvent, error) { return l, nil }

type mockAnnouncer struct {
	lines []string
}

func (a *mockAnnouncer) Run(ctx context.Context, _ []models.CalendarEvent, emit func(string)) error {
	for _, line := range a.lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(line)
	}
	return nil
}

type harness struct {
	model     *Model
	machine   *state.Machine
	player    *mockPlayer
	auth      *mockAuth
	calendar  *mockCalendar
	announcer *mockAnnouncer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		machine:   state.NewMachine(tu.Discard()),
		player:    &mockPlayer{result: models.PlaybackResult{PlaylistName: "Casper's mix", DeviceName: "Desk"}},
		auth:      &mockAuth{},
		calendar:  &mockCalendar{},
		announcer: &mockAnnouncer{lines: []string{"intro", "standup from 9:00 AM to 9:15 AM", "outro"}},
	}
	h.model = NewModel(context.Background(), Options{
		Machine:      h.machine,
		Player:       h.player,
		Auth:         h.auth,
		Calendar:     h.calendar,
		Announcer:    h.announcer,
		LoginDelay:   time.Millisecond,
		ConfirmDelay: time.Millisecond,
		Logger:       tu.Discard(),
	})
	return h
}

// drive feeds msgs to the model and runs the resulting commands concurrently,
// like the bubbletea runtime, until none are pending. Only [Msg] values and
// batches are fed back; spinner ticks and the like are dropped.
func (h *harness) drive(t *testing.T, msgs ...tea.Msg) {
	t.Helper()
	results := make(chan tea.Msg, 64)
	pending := 0
	exec := func(cmd tea.Cmd) {
		if cmd == nil {
			return
		}
		pending++
		go func() { results <- cmd() }()
	}

	for _, msg := range msgs {
		_, cmd := h.model.Update(msg)
		exec(cmd)
	}

	timeout := time.After(5 * time.Second)
	for pending > 0 {
		select {
		case msg := <-results:
			pending--
			switch msg := msg.(type) {
			case tea.BatchMsg:
				for _, cmd := range msg {
					exec(cmd)
				}
			case Msg:
				_, cmd := h.model.Update(msg)
				exec(cmd)
			}
		case <-timeout:
			t.Fatalf("commands still pending after timeout (state %v)", h.machine.Current())
		}
	}
}

// to puts the machine in s through the regular event path.
func (h *harness) to(t *testing.T, s state.State) {
	t.Helper()
	h.machine.Dispatch(state.Event{Type: state.EventLoginComplete})
	switch s {
	case state.Idle:
	case state.FunctionSelection:
		h.machine.Dispatch(state.Event{Type: state.EventTap})
	case state.AwaitingTextInput:
		h.machine.Dispatch(state.Event{Type: state.EventTap})
		h.machine.Dispatch(state.Event{Type: state.EventMusicSelected, OK: true})
	case state.CalendarPrompt:
		h.machine.Dispatch(state.Event{Type: state.EventTap})
		h.machine.Dispatch(state.Event{Type: state.EventCalendarSelected})
	default:
		t.Fatalf("unsupported starting state %v", s)
	}
	if got := h.machine.Current(); got != s {
		t.Fatalf("setup reached %v, want %v", got, s)
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space = runes(" ")
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	quit  = tea.KeyMsg{Type: tea.KeyCtrlC}
)

func collect(ch <-chan state.Snapshot) []state.Snapshot {
	var snaps []state.Snapshot
	for {
		select {
		case s := <-ch:
			snaps = append(snaps, s)
		default:
			return snaps
		}
	}
}

func TestModel(t *testing.T) {
	t.Run("Init", func(t *testing.T) {
		t.Run("login tick completes sign in", func(t *testing.T) {
			h := newHarness(t)
			if cmd := h.model.Init(); cmd == nil {
				t.Fatal("Init() returned nil command")
			}
			h.drive(t, loginDoneMsg(h.model.tickRun))
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("state = %v, want %v", got, state.Idle)
			}
		})

		t.Run("superseded login tick is ignored", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.Idle)

			h.model.Update(runes("s"))
			first := h.model.tickRun
			h.model.Update(runes("h"))
			h.model.Update(runes("s"))
			second := h.model.tickRun
			if first == second {
				t.Fatal("expected a new tick generation after show")
			}

			h.model.Update(loginDoneMsg(first))
			if got := h.machine.Current(); got != state.LoggedOut {
				t.Fatalf("stale tick finished login: state = %v", got)
			}
			h.model.Update(loginDoneMsg(second))
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("state = %v, want %v", got, state.Idle)
			}
		})

		t.Run("tick pending at hide is ignored", func(t *testing.T) {
			h := newHarness(t)
			h.model.Init()
			pending := h.model.tickRun

			h.model.Update(runes("h"))
			h.model.Update(loginDoneMsg(pending))
			if got := h.machine.Current(); got != state.Hidden {
				t.Errorf("state = %v, want %v", got, state.Hidden)
			}
		})
	})

	t.Run("Menu", func(t *testing.T) {
		t.Run("tap toggles function selection", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.Idle)

			h.drive(t, space)
			if got := h.machine.Current(); got != state.FunctionSelection {
				t.Fatalf("after tap state = %v, want %v", got, state.FunctionSelection)
			}
			h.drive(t, space)
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("after second tap state = %v, want %v", got, state.Idle)
			}
		})

		t.Run("enter selects highlighted function", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.FunctionSelection)

			h.drive(t, down, enter)
			if got := h.machine.Current(); got != state.CalendarPrompt {
				t.Errorf("state = %v, want %v", got, state.CalendarPrompt)
			}
		})

		t.Run("auto monitor shortcut", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.FunctionSelection)

			h.drive(t, runes("a"))
			if got := h.machine.Current(); got != state.AutoMonitoring {
				t.Errorf("state = %v, want %v", got, state.AutoMonitoring)
			}
		})

		t.Run("hide then show restarts login", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.Idle)

			h.drive(t, runes("h"))
			if got := h.machine.Current(); got != state.Hidden {
				t.Fatalf("after hide state = %v, want %v", got, state.Hidden)
			}
			if view := h.model.View(); !strings.Contains(view, "hiding") {
				t.Errorf("hidden view = %q", view)
			}

			h.drive(t, runes("s"))
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("after show state = %v, want %v", got, state.Idle)
			}
		})

		t.Run("calendar shortcut from hidden", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.Idle)
			h.drive(t, runes("h"), runes("c"))

			if got := h.machine.Current(); got != state.CalendarPrompt {
				t.Errorf("state = %v, want %v", got, state.CalendarPrompt)
			}
		})

		t.Run("tap ignored while hidden", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.Idle)
			h.drive(t, runes("h"), space)

			if got := h.machine.Current(); got != state.Hidden {
				t.Errorf("state = %v, want %v", got, state.Hidden)
			}
		})

		t.Run("ctrl+c quits", func(t *testing.T) {
			h := newHarness(t)
			_, cmd := h.model.Update(quit)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
		})
	})

	t.Run("Music", func(t *testing.T) {
		t.Run("sign in awaits text", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.FunctionSelection)

			h.drive(t, runes("m"))
			if got := h.machine.Current(); got != state.AwaitingTextInput {
				t.Fatalf("state = %v, want %v", got, state.AwaitingTextInput)
			}
			if h.auth.count != 1 {
				t.Errorf("Authenticate called %d times, want 1", h.auth.count)
			}
			if view := h.model.View(); !strings.Contains(view, "What would you like to listen to?") {
				t.Errorf("view = %q", view)
			}
		})

		t.Run("sign in failure replies", func(t *testing.T) {
			h := newHarness(t)
			h.auth.err = shared.ErrNotAuthenticated
			h.to(t, state.FunctionSelection)

			h.drive(t, runes("m"))
			snap := h.machine.Snapshot()
			if snap.State != state.SystemReply {
				t.Fatalf("state = %v, want %v", snap.State, state.SystemReply)
			}
			if want := tasks.Reason(shared.ErrNotAuthenticated); snap.Message != want {
				t.Errorf("message = %q, want %q", snap.Message, want)
			}
		})

		t.Run("submit plays then confirms", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.AwaitingTextInput)
			updates, cancel := h.machine.Subscribe(32)
			defer cancel()

			h.model.input.SetValue("  jazz for a rainy day  ")
			h.drive(t, enter)

			if got := h.player.calls(); !slices.Equal(got, []string{"jazz for a rainy day"}) {
				t.Errorf("played %v", got)
			}
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("state = %v, want %v", got, state.Idle)
			}

			confirmed := false
			for _, snap := range collect(updates) {
				if snap.State == state.InputConfirmed {
					confirmed = true
					if want := NowPlaying(h.player.result); snap.Message != want {
						t.Errorf("confirmation = %q, want %q", snap.Message, want)
					}
				}
			}
			if !confirmed {
				t.Error("never reached InputConfirmed")
			}
			if h.model.input.Value() != "" {
				t.Errorf("input not reset: %q", h.model.input.Value())
			}
		})

		t.Run("superseded confirmation tick is ignored", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.AwaitingTextInput)
			h.machine.Dispatch(state.Event{Type: state.EventPlaybackSucceeded, Message: "Now playing"})

			h.model.confirmTick()
			stale := h.model.tickRun
			h.model.confirmTick()

			h.model.Update(confirmDoneMsg(stale))
			if got := h.machine.Current(); got != state.InputConfirmed {
				t.Fatalf("stale tick cut confirmation short: state = %v", got)
			}
			h.model.Update(confirmDoneMsg(h.model.tickRun))
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("state = %v, want %v", got, state.Idle)
			}
		})

		t.Run("blank submit ignored", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.AwaitingTextInput)
			h.model.input.SetValue("   ")
			h.drive(t, enter)

			if got := h.player.calls(); len(got) != 0 {
				t.Errorf("played %v", got)
			}
			if got := h.machine.Current(); got != state.AwaitingTextInput {
				t.Errorf("state = %v, want %v", got, state.AwaitingTextInput)
			}
		})

		t.Run("device failure alerts and retry replays", func(t *testing.T) {
			h := newHarness(t)
			h.player.errs = []error{shared.ErrNoDevice}
			h.to(t, state.AwaitingTextInput)

			h.model.input.SetValue("lofi")
			h.drive(t, enter)

			snap := h.machine.Snapshot()
			if snap.State != state.AwaitingTextInput || !snap.Alert {
				t.Fatalf("snapshot = %+v, want alert in text input", snap)
			}
			if want := tasks.Reason(shared.ErrNoDevice); snap.Message != want {
				t.Errorf("message = %q, want %q", snap.Message, want)
			}

			h.drive(t, runes("o"))
			if got := h.player.calls(); !slices.Equal(got, []string{"lofi", "lofi"}) {
				t.Errorf("played %v", got)
			}
			if got := h.machine.Current(); got != state.Idle {
				t.Errorf("state = %v, want %v", got, state.Idle)
			}
		})

		t.Run("esc dismisses alert", func(t *testing.T) {
			h := newHarness(t)
			h.player.errs = []error{shared.ErrTransferFailed}
			h.to(t, state.AwaitingTextInput)
			h.model.input.SetValue("lofi")
			h.drive(t, enter)
			h.drive(t, esc)

			snap := h.machine.Snapshot()
			if snap.State != state.AwaitingTextInput || snap.Alert {
				t.Errorf("snapshot = %+v, want text input without alert", snap)
			}
		})

		t.Run("other failure replies", func(t *testing.T) {
			h := newHarness(t)
			h.player.errs = []error{shared.ErrServiceUnavailable}
			h.to(t, state.AwaitingTextInput)
			h.model.input.SetValue("lofi")
			h.drive(t, enter)

			snap := h.machine.Snapshot()
			if snap.State != state.SystemReply {
				t.Errorf("state = %v, want %v", snap.State, state.SystemReply)
			}
			if snap.Message == "" {
				t.Error("expected failure message")
			}
		})

		t.Run("esc returns to functions", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.AwaitingTextInput)
			h.drive(t, esc)

			if got := h.machine.Current(); got != state.FunctionSelection {
				t.Errorf("state = %v, want %v", got, state.FunctionSelection)
			}
		})

		t.Run("progress updates message", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.AwaitingTextInput)
			ch := make(chan tasks.ProgressUpdate)
			close(ch)

			update := tasks.ProgressUpdate{Phase: tasks.CheckDevices, Step: 1, Total: 10, Message: "Checking devices"}
			_, cmd := h.model.Update(progressMsg(update, ch))
			if got := h.machine.Snapshot().Message; got != "Checking devices" {
				t.Errorf("message = %q", got)
			}
			if cmd == nil || cmd() != nil {
				t.Error("expected listener that ends on a closed channel")
			}
		})
	})

	t.Run("Calendar", func(t *testing.T) {
		t.Run("reads events then returns to prompt", func(t *testing.T) {
			h := newHarness(t)
			h.calendar.events = []models.CalendarEvent{{Title: "standup"}}
			h.to(t, state.CalendarPrompt)
			updates, cancel := h.machine.Subscribe(32)
			defer cancel()

			h.drive(t, enter)

			var messages []string
			for _, snap := range collect(updates) {
				if snap.State == state.CalendarReply && snap.Message != "" {
					messages = append(messages, snap.Message)
				}
			}
			if !slices.Equal(messages, h.announcer.lines) {
				t.Errorf("messages = %v, want %v", messages, h.announcer.lines)
			}

			snap := h.machine.Snapshot()
			if snap.State != state.CalendarPrompt {
				t.Errorf("state = %v, want %v", snap.State, state.CalendarPrompt)
			}
			if len(snap.Events) != 0 {
				t.Errorf("events not cleared: %v", snap.Events)
			}
		})

		t.Run("denied replies", func(t *testing.T) {
			h := newHarness(t)
			h.calendar.err = shared.ErrCalendarDenied
			h.to(t, state.CalendarPrompt)
			h.drive(t, enter)

			snap := h.machine.Snapshot()
			if snap.State != state.SystemReply {
				t.Errorf("state = %v, want %v", snap.State, state.SystemReply)
			}
			if want := calendarReason(shared.ErrCalendarDenied); snap.Message != want {
				t.Errorf("message = %q, want %q", snap.Message, want)
			}
		})

		t.Run("write-only access granted on request", func(t *testing.T) {
			h := newHarness(t)
			store := eventList{{Title: "standup", Start: time.Now(), End: time.Now().Add(15 * time.Minute)}}
			provider := calendar.NewStoreProvider(store, calendar.WriteOnly, true)
			h.model.calendar = calendar.NewService(provider, nil, tu.Discard())
			h.to(t, state.CalendarPrompt)
			updates, cancel := h.machine.Subscribe(32)
			defer cancel()

			h.drive(t, enter)

			var replied bool
			for _, snap := range collect(updates) {
				if snap.State == state.SystemReply {
					t.Fatalf("unexpected system reply %q", snap.Message)
				}
				replied = replied || snap.State == state.CalendarReply
			}
			if !replied {
				t.Error("expected CalendarReply after access was granted")
			}
			if got := h.machine.Current(); got != state.CalendarPrompt {
				t.Errorf("state = %v, want %v", got, state.CalendarPrompt)
			}
			if provider.AuthorizationStatus() != calendar.Granted {
				t.Errorf("status = %v, want granted", provider.AuthorizationStatus())
			}
		})

		t.Run("esc leaves prompt", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.CalendarPrompt)
			h.drive(t, esc)

			if got := h.machine.Current(); got != state.FunctionSelection {
				t.Errorf("state = %v, want %v", got, state.FunctionSelection)
			}
		})

		t.Run("stale lines ignored", func(t *testing.T) {
			h := newHarness(t)
			h.to(t, state.CalendarPrompt)
			h.model.calendarRun = 3

			_, cmd := h.model.Update(calendarLineMsg(2, "old", nil))
			if cmd != nil {
				t.Error("expected no follow-up for a stale run")
			}
			if got := h.machine.Snapshot().Message; got != "" {
				t.Errorf("message = %q, want empty", got)
			}
		})
	})
}

func TestNowPlaying(t *testing.T) {
	tests := []struct {
		name   string
		result models.PlaybackResult
		want   string
	}{
		{"with device", models.PlaybackResult{PlaylistName: "Mix", DeviceName: "Desk"}, `Now playing "Mix" on Desk`},
		{"without device", models.PlaybackResult{PlaylistName: "Mix"}, `Now playing "Mix"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NowPlaying(tt.result); got != tt.want {
				t.Errorf("NowPlaying() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalendarReason(t *testing.T) {
	if got := calendarReason(errors.New("boom")); got != "boom" {
		t.Errorf("calendarReason() = %q, want %q", got, "boom")
	}
}
