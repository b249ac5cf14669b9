// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI renders the application [state.Machine] rather than owning its own view enum:
//  1. LoggedOut : login animation, a timed tick that completes sign-in
//  2. Idle / FunctionSelection : tap Casper, then pick music, calendar or Spotify DJ
//  3. AwaitingTextInput : type a request; progress from the playback chain streams in
//  4. InputConfirmed : confirmation, followed by a timed return to Idle
//  5. CalendarPrompt / CalendarReply : today's events read out on a fixed cadence
//
// Async work (authentication, playback, calendar reads and announcements) runs in tea.Cmd
// functions and reports back via the Msg union type, so every machine mutation happens
// inside Update.
//
// Keyboard: space (tap), m/c/a (functions), h/s (hide/show), enter, esc, o (retry after a
// device alert) and ctrl+c, with contextual help displayed via charmbracelet/bubbles/help.
package ui
