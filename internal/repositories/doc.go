// Package repositories implements SQLite persistence for casper.
//
// Key Implementations:
//   - [SecretRepository] : (service, account) keyed secret storage with last-write-wins semantics
//   - [EventRepository] : calendar events served by the local calendar provider, soft deleted
//   - [RequestRepository] : music request history with outcome
//
// Timestamps are written in UTC and returned in local time.
package repositories
