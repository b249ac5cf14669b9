// Package tasks orchestrates a music request from free text to playback with
// real-time progress reporting.
//
// # The Playback Chain
//
// [PlaybackEngine.PlayFromText] runs these steps in order and stops at the
// first failure:
//
//  1. [PlaybackEngine.SelectDevice] : list devices, pick the first whose name
//     matches the preferred pattern, and transfer playback to it unless it is
//     already active
//  2. [PlaybackEngine.Suggest] : send the text and the user's top artists to
//     the recommendation gateway
//  3. [PlaybackEngine.Curate] : resolve the suggested artists, fetch
//     recommendations, resolve track URIs, then create and fill a private
//     playlist
//  4. start playback of the playlist on the selected device
//
// Device failures wrap the shared device sentinels so callers can tell an
// alert-worthy failure from a generic one. [Reason] turns any chain error into
// the sentence shown to the user.
//
// # Progress Reporting
//
// Every step sends a [ProgressUpdate] on an optional channel. Sends use select
// with default so a slow reader never stalls the chain.
//
// # History
//
// When a [HistoryRecorder] is configured, each request is recorded with its
// outcome whether it succeeded or not. Recording failures are logged and do not
// affect the result.
package tasks
