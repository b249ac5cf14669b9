// Package state implements casper's application state machine.
//
// [Transition] is a pure function over ([State], [Event]) and is total: pairs
// without a rule leave the state unchanged. [Machine] owns the live
// [Snapshot] (state, system message, device alert, calendar events and the
// last submitted text) and fans updates out to subscribers without blocking.
//
// A Machine is created once per process and injected into the components that
// drive it; there is no package-level instance.
package state
