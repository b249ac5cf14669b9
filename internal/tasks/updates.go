package tasks

import (
	"fmt"

	"github.com/desertthunder/casper/internal/models"
)

// ProgressUpdate represents a progress event during a playback request.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Chain phase
	Step    int    // Position of the phase in the chain
	Total   int    // Number of phases in the chain
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase identifies a step of the playback chain.
type Phase int

const (
	CheckDevices Phase = iota
	TransferDevice
	FetchTopArtists
	SuggestParameters
	ResolveArtists
	FetchRecommendations
	ResolveTracks
	CreatePlaylist
	AddTracks
	StartPlayback
)

// totalPhases is the number of steps reported in [ProgressUpdate.Total].
const totalPhases = int(StartPlayback) + 1

func (p Phase) String() string {
	switch p {
	case CheckDevices:
		return "check_devices"
	case TransferDevice:
		return "transfer_device"
	case FetchTopArtists:
		return "fetch_top_artists"
	case SuggestParameters:
		return "suggest_parameters"
	case ResolveArtists:
		return "resolve_artists"
	case FetchRecommendations:
		return "fetch_recommendations"
	case ResolveTracks:
		return "resolve_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case StartPlayback:
		return "start_playback"
	default:
		return ""
	}
}

func phaseUpdate(p Phase, message string, data any) ProgressUpdate {
	return ProgressUpdate{Phase: p, Step: int(p) + 1, Total: totalPhases, Message: message, Data: data}
}

func checkDevicesUpdate() ProgressUpdate {
	return phaseUpdate(CheckDevices, "Looking for Spotify devices...", nil)
}

func transferUpdate(d models.Device) ProgressUpdate {
	return phaseUpdate(TransferDevice, fmt.Sprintf("Moving playback to %s...", d.Name), d)
}

func topArtistsUpdate() ProgressUpdate {
	return phaseUpdate(FetchTopArtists, "Reading your top artists...", nil)
}

func suggestUpdate(text string) ProgressUpdate {
	return phaseUpdate(SuggestParameters, fmt.Sprintf("Thinking about %q...", text), nil)
}

func resolveArtistsUpdate(params models.RecommendationParameters) ProgressUpdate {
	return phaseUpdate(ResolveArtists, fmt.Sprintf("Looking up %d artists for %s...", len(params.RecommendedArtists), params.Genre), params)
}

func recommendationsUpdate(seeds int) ProgressUpdate {
	return phaseUpdate(FetchRecommendations, fmt.Sprintf("Fetching recommendations from %d seed artists...", seeds), nil)
}

func resolveTracksUpdate(n int) ProgressUpdate {
	return phaseUpdate(ResolveTracks, fmt.Sprintf("Resolving %d tracks...", n), nil)
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return phaseUpdate(CreatePlaylist, fmt.Sprintf("Creating playlist %q...", name), nil)
}

func addTracksUpdate(n int, playlistID string) ProgressUpdate {
	return phaseUpdate(AddTracks, fmt.Sprintf("Adding %d tracks to playlist %s...", n, playlistID), nil)
}

func startPlaybackUpdate(result models.PlaybackResult) ProgressUpdate {
	return phaseUpdate(StartPlayback, "Attempting to start playback...", result)
}
