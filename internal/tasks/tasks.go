// package tasks turns a free-text music request into a playing Spotify playlist.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/services"
	"github.com/desertthunder/casper/internal/shared"
)

// MusicProvider is the subset of the Spotify client the playback chain uses.
type MusicProvider interface {
	Devices(ctx context.Context) ([]models.Device, error)
	TransferPlayback(ctx context.Context, deviceID string) error
	TopArtists(ctx context.Context, limit int) ([]models.Artist, error)
	ResolveArtistNames(ctx context.Context, names []string) ([]string, error)
	Recommendations(ctx context.Context, artistIDs []string, params models.RecommendationParameters) ([]string, error)
	TrackURIs(ctx context.Context, ids []string) ([]string, error)
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (string, error)
	AddTracks(ctx context.Context, playlistID string, uris []string) error
	StartPlayback(ctx context.Context, contextURI string) error
}

// Suggester derives recommendation parameters from text.
type Suggester interface {
	Suggest(ctx context.Context, text string, topArtists []models.Artist) (models.RecommendationParameters, error)
}

// HistoryRecorder persists the outcome of every request.
type HistoryRecorder interface {
	Record(req *models.Request) error
}

// EngineOptions configures [NewPlaybackEngine].
type EngineOptions struct {
	Provider        MusicProvider
	Suggester       Suggester
	History         HistoryRecorder // optional
	PreferredDevice string          // case-insensitive regular expression matched against device names
	TopArtistsLimit int
	Logger          *log.Logger
	Now             func() time.Time
}

// PlaybackEngine runs the text → playlist → playback chain.
type PlaybackEngine struct {
	provider  MusicProvider
	suggester Suggester
	history   HistoryRecorder
	preferred *regexp.Regexp
	topLimit  int
	logger    *log.Logger
	now       func() time.Time
}

// NewPlaybackEngine validates opts. An empty PreferredDevice matches any device.
func NewPlaybackEngine(opts EngineOptions) (*PlaybackEngine, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: music provider not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Suggester == nil {
		return nil, fmt.Errorf("%w: recommendation gateway not initialized", shared.ErrServiceUnavailable)
	}

	preferred, err := regexp.Compile("(?i)" + opts.PreferredDevice)
	if err != nil {
		return nil, fmt.Errorf("%w: preferred_device: %w", shared.ErrInvalidConfig, err)
	}

	e := &PlaybackEngine{
		provider:  opts.Provider,
		suggester: opts.Suggester,
		history:   opts.History,
		preferred: preferred,
		topLimit:  opts.TopArtistsLimit,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaybackEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// PlaylistName is the name given to every curated playlist.
func PlaylistName(genre string, at time.Time) string {
	return fmt.Sprintf("Casper's curated playlist for %s musics on %s", genre, at.Format("January 02"))
}

// PlaylistDescription quotes the request that produced the playlist.
func PlaylistDescription(text string) string {
	return fmt.Sprintf("Playlist created by Casper for %q", text)
}

// PlayFromText selects a device, builds a playlist from text and starts it.
//
// The first failing step ends the chain. Device failures wrap
// [shared.ErrNoDevice], [shared.ErrNoMatchingDevice] or
// [shared.ErrTransferFailed]; see [shared.IsDeviceError].
func (e *PlaybackEngine) PlayFromText(ctx context.Context, text string, progress chan<- ProgressUpdate) (models.PlaybackResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PlaybackResult{}, fmt.Errorf("%w: tell me what you'd like to hear", shared.ErrInvalidInput)
	}

	result, err := e.play(ctx, text, progress)
	e.record(text, result, err)
	if err != nil {
		e.logger.Error("playback request failed", "input", text, "err", err)
		return result, err
	}

	e.logger.Info("playback started", "playlist", result.PlaylistID, "device", result.DeviceName, "tracks", result.TrackCount)
	return result, nil
}

func (e *PlaybackEngine) play(ctx context.Context, text string, progress chan<- ProgressUpdate) (models.PlaybackResult, error) {
	device, err := e.SelectDevice(ctx, progress)
	if err != nil {
		return models.PlaybackResult{}, err
	}

	result, err := e.Curate(ctx, text, progress)
	result.DeviceName = device.Name
	if err != nil {
		return result, err
	}

	e.sendProgress(progress, startPlaybackUpdate(result))
	if err := e.provider.StartPlayback(ctx, "spotify:playlist:"+result.PlaylistID); err != nil {
		return result, fmt.Errorf("failed to start playback on %s: %w", device.Name, err)
	}
	return result, nil
}

// SelectDevice returns the first device matching the preferred pattern,
// transferring playback to it when it is not already active.
func (e *PlaybackEngine) SelectDevice(ctx context.Context, progress chan<- ProgressUpdate) (models.Device, error) {
	e.sendProgress(progress, checkDevicesUpdate())

	devices, err := e.provider.Devices(ctx)
	if err != nil {
		return models.Device{}, fmt.Errorf("failed to fetch devices: %w", err)
	}
	if len(devices) == 0 {
		return models.Device{}, fmt.Errorf("%w: open Spotify on one of your devices", shared.ErrNoDevice)
	}

	var device *models.Device
	for i := range devices {
		if e.preferred.MatchString(devices[i].Name) {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		return models.Device{}, fmt.Errorf("%w: none of %d devices match %q", shared.ErrNoMatchingDevice, len(devices), strings.TrimPrefix(e.preferred.String(), "(?i)"))
	}

	if device.IsActive {
		e.logger.Debug("device already active", "device", device.Name)
		return *device, nil
	}

	e.sendProgress(progress, transferUpdate(*device))
	if err := e.provider.TransferPlayback(ctx, device.ID); err != nil {
		return models.Device{}, fmt.Errorf("%w: %s: %w", shared.ErrTransferFailed, device.Name, err)
	}
	return *device, nil
}

// Suggest asks the gateway for parameters using the user's top artists.
func (e *PlaybackEngine) Suggest(ctx context.Context, text string, progress chan<- ProgressUpdate) (models.RecommendationParameters, error) {
	e.sendProgress(progress, topArtistsUpdate())
	artists, err := e.provider.TopArtists(ctx, e.topLimit)
	if err != nil {
		return models.RecommendationParameters{}, fmt.Errorf("failed to fetch top artists: %w", err)
	}

	e.sendProgress(progress, suggestUpdate(text))
	params, err := e.suggester.Suggest(ctx, text, artists)
	if err != nil {
		return models.RecommendationParameters{}, fmt.Errorf("couldn't work out what to play: %w", err)
	}
	return params, nil
}

// Curate builds and fills a private playlist for text. It does not start playback.
func (e *PlaybackEngine) Curate(ctx context.Context, text string, progress chan<- ProgressUpdate) (models.PlaybackResult, error) {
	var result models.PlaybackResult

	params, err := e.Suggest(ctx, text, progress)
	if err != nil {
		return result, err
	}
	result.Genre = params.Genre

	e.sendProgress(progress, resolveArtistsUpdate(params))
	artistIDs, err := e.provider.ResolveArtistNames(ctx, params.RecommendedArtists)
	if err != nil {
		return result, fmt.Errorf("failed to find recommended artists: %w", err)
	}

	e.sendProgress(progress, recommendationsUpdate(len(artistIDs)))
	trackIDs, err := e.provider.Recommendations(ctx, artistIDs, params)
	if err != nil {
		return result, fmt.Errorf("failed to fetch recommendations: %w", err)
	}

	e.sendProgress(progress, resolveTracksUpdate(len(trackIDs)))
	uris, err := e.provider.TrackURIs(ctx, trackIDs)
	if err != nil {
		return result, fmt.Errorf("failed to look up tracks: %w", err)
	}

	user, err := e.provider.UserProfile(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	name := PlaylistName(params.Genre, e.now())
	e.sendProgress(progress, createPlaylistUpdate(name))
	playlistID, err := e.provider.CreatePlaylist(ctx, user.ID, name, PlaylistDescription(text))
	if err != nil {
		return result, fmt.Errorf("failed to create playlist: %w", err)
	}
	result.PlaylistID = playlistID
	result.PlaylistName = name

	e.sendProgress(progress, addTracksUpdate(len(uris), playlistID))
	if err := e.provider.AddTracks(ctx, playlistID, uris); err != nil {
		return result, fmt.Errorf("failed to add tracks: %w", err)
	}
	result.TrackCount = len(uris)
	return result, nil
}

func (e *PlaybackEngine) record(text string, result models.PlaybackResult, err error) {
	if e.history == nil {
		return
	}

	req := &models.Request{
		Input:      text,
		Genre:      result.Genre,
		PlaylistID: result.PlaylistID,
		DeviceName: result.DeviceName,
		TrackCount: result.TrackCount,
		Status:     models.RequestSucceeded,
		CreatedAt:  e.now(),
	}
	if err != nil {
		req.Status = models.RequestFailed
		req.Error = err.Error()
	}

	if recErr := e.history.Record(req); recErr != nil {
		e.logger.Warn("failed to record request history", "err", recErr)
	}
}

// Reason turns a chain error into the sentence shown to the user.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrNoDevice):
		return "I couldn't find any Spotify devices. Open Spotify and try again."
	case errors.Is(err, shared.ErrNoMatchingDevice):
		return "I couldn't find your preferred Spotify device. Open Spotify on it and try again."
	case errors.Is(err, shared.ErrTransferFailed):
		return "I couldn't move playback to your device. Open Spotify and try again."
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return "I'm not signed in to Spotify anymore. Please log in again."
	case errors.Is(err, context.Canceled):
		return "Okay, I stopped."
	default:
		return err.Error()
	}
}
