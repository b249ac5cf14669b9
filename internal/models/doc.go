// Package models defines the domain entities shared by casper's services, tasks and repositories.
//
// The package contains two categories of types:
//
// 1. Value types exchanged between components
//   - [Credential] : Spotify access/refresh token pair
//   - [Device] : a Spotify Connect playback target
//   - [Artist] : artist identity with genres, used as gateway context and recommendation seed
//   - [RecommendationParameters] : genre, audio feature ranges and artist names from the gateway
//   - [PlaybackResult] : summary of a completed text-to-playback request
//
// 2. Persistent entities
//   - [CalendarEvent] : an event served by the sqlite calendar provider
//   - [Request] : history of music requests and their outcome
//
// Persistent entities implement [Model]; [Repository] defines the operations their stores support.
package models
