package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/services"
	"github.com/desertthunder/casper/internal/shared"
	tu "github.com/desertthunder/casper/internal/testing"
)

type mockProvider struct {
	devices     []models.Device
	devicesErr  error
	transferErr error
	topErr      error
	resolveErr  error
	recsErr     error
	tracksErr   error
	userErr     error
	createErr   error
	addErr      error
	playErr     error

	calls       []string
	transferred string
	played      string
	created     struct{ user, name, description string }
	added       []string
}

func (m *mockProvider) call(name string) { m.calls = append(m.calls, name) }

func (m *mockProvider) called(name string) bool { return slices.Contains(m.calls, name) }

func (m *mockProvider) Devices(ctx context.Context) ([]models.Device, error) {
	m.call("devices")
	return m.devices, m.devicesErr
}

func (m *mockProvider) TransferPlayback(ctx context.Context, deviceID string) error {
	m.call("transfer")
	m.transferred = deviceID
	return m.transferErr
}

func (m *mockProvider) TopArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	m.call("top")
	return []models.Artist{{ID: "a0", Name: "Nujabes", Genres: []string{"jazz hop"}}}, m.topErr
}

func (m *mockProvider) ResolveArtistNames(ctx context.Context, names []string) ([]string, error) {
	m.call("resolve")
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = "id-" + n
	}
	return ids, nil
}

func (m *mockProvider) Recommendations(ctx context.Context, artistIDs []string, params models.RecommendationParameters) ([]string, error) {
	m.call("recommendations")
	return []string{"t1", "t2", "t3"}, m.recsErr
}

func (m *mockProvider) TrackURIs(ctx context.Context, ids []string) ([]string, error) {
	m.call("tracks")
	if m.tracksErr != nil {
		return nil, m.tracksErr
	}
	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = "spotify:track:" + id
	}
	return uris, nil
}

func (m *mockProvider) UserProfile(ctx context.Context) (*services.SpotifyUser, error) {
	m.call("user")
	if m.userErr != nil {
		return nil, m.userErr
	}
	return &services.SpotifyUser{ID: "user-1"}, nil
}

func (m *mockProvider) CreatePlaylist(ctx context.Context, userID, name, description string) (string, error) {
	m.call("create")
	m.created.user, m.created.name, m.created.description = userID, name, description
	return "pl1", m.createErr
}

func (m *mockProvider) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	m.call("add")
	m.added = uris
	return m.addErr
}

func (m *mockProvider) StartPlayback(ctx context.Context, contextURI string) error {
	m.call("play")
	m.played = contextURI
	return m.playErr
}

type mockSuggester struct {
	params models.RecommendationParameters
	err    error
	text   string
}

func (m *mockSuggester) Suggest(ctx context.Context, text string, topArtists []models.Artist) (models.RecommendationParameters, error) {
	m.text = text
	return m.params, m.err
}

type mockHistory struct {
	records []*models.Request
	err     error
}

func (m *mockHistory) Record(req *models.Request) error {
	m.records = append(m.records, req)
	return m.err
}

var fixedNow = time.Date(2024, time.March, 7, 18, 30, 0, 0, time.Local)

func newTestEngine(t *testing.T, provider *mockProvider, history HistoryRecorder) *PlaybackEngine {
	t.Helper()
	engine, err := NewPlaybackEngine(EngineOptions{
		Provider: provider,
		Suggester: &mockSuggester{params: models.RecommendationParameters{
			Genre:              "jazz",
			RecommendedArtists: []string{"Bill Evans", "Chet Baker"},
		}},
		History:         history,
		PreferredDevice: "Mac",
		Logger:          tu.Discard(),
		Now:             func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func TestNewPlaybackEngine(t *testing.T) {
	t.Run("Requires Provider", func(t *testing.T) {
		_, err := NewPlaybackEngine(EngineOptions{Suggester: &mockSuggester{}})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Requires Suggester", func(t *testing.T) {
		_, err := NewPlaybackEngine(EngineOptions{Provider: &mockProvider{}})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Invalid Device Pattern", func(t *testing.T) {
		_, err := NewPlaybackEngine(EngineOptions{Provider: &mockProvider{}, Suggester: &mockSuggester{}, PreferredDevice: "Mac("})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestPlaybackEngine_PlayFromText(t *testing.T) {
	inactiveMac := models.Device{ID: "mac", Name: "Jane's MacBook Pro", Type: "Computer"}
	activeMac := models.Device{ID: "mac", Name: "Jane's MacBook Pro", Type: "Computer", IsActive: true}
	phone := models.Device{ID: "phone", Name: "Pixel 8", Type: "Smartphone", IsActive: true}

	t.Run("Full Chain", func(t *testing.T) {
		provider := &mockProvider{devices: []models.Device{phone, inactiveMac}}
		history := &mockHistory{}
		engine := newTestEngine(t, provider, history)

		progress := make(chan ProgressUpdate, 32)
		result, err := engine.PlayFromText(context.Background(), " something mellow ", progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []string{"devices", "transfer", "top", "resolve", "recommendations", "tracks", "user", "create", "add", "play"}
		if !slices.Equal(provider.calls, want) {
			t.Errorf("expected calls %v, got %v", want, provider.calls)
		}
		if provider.transferred != "mac" {
			t.Errorf("expected transfer to mac, got %q", provider.transferred)
		}
		if provider.played != "spotify:playlist:pl1" {
			t.Errorf("unexpected context uri %q", provider.played)
		}
		if provider.created.user != "user-1" {
			t.Errorf("expected playlist owner user-1, got %q", provider.created.user)
		}
		if provider.created.name != "Casper's curated playlist for jazz musics on March 07" {
			t.Errorf("unexpected playlist name %q", provider.created.name)
		}
		if provider.created.description != `Playlist created by Casper for "something mellow"` {
			t.Errorf("unexpected playlist description %q", provider.created.description)
		}
		if len(provider.added) != 3 || provider.added[0] != "spotify:track:t1" {
			t.Errorf("unexpected added uris %v", provider.added)
		}

		expected := models.PlaybackResult{
			PlaylistID:   "pl1",
			PlaylistName: "Casper's curated playlist for jazz musics on March 07",
			DeviceName:   "Jane's MacBook Pro",
			Genre:        "jazz",
			TrackCount:   3,
		}
		if result != expected {
			t.Errorf("expected %+v, got %+v", expected, result)
		}

		if len(history.records) != 1 || history.records[0].Status != models.RequestSucceeded {
			t.Fatalf("expected one successful history record, got %+v", history.records)
		}
		if rec := history.records[0]; rec.Input != "something mellow" || rec.PlaylistID != "pl1" || rec.TrackCount != 3 {
			t.Errorf("unexpected history record %+v", rec)
		}

		close(progress)
		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
			if u.Total != totalPhases {
				t.Errorf("expected total %d, got %d", totalPhases, u.Total)
			}
		}
		if len(phases) != totalPhases || phases[0] != CheckDevices || phases[len(phases)-1] != StartPlayback {
			t.Errorf("unexpected phases %v", phases)
		}
	})

	t.Run("Active Device Is Not Transferred", func(t *testing.T) {
		provider := &mockProvider{devices: []models.Device{activeMac}}
		engine := newTestEngine(t, provider, nil)

		if _, err := engine.PlayFromText(context.Background(), "jazz", nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if provider.called("transfer") {
			t.Error("active device must not be transferred")
		}
		if !provider.called("play") {
			t.Error("expected playback to start")
		}
	})

	t.Run("Blocked Progress Channel", func(t *testing.T) {
		provider := &mockProvider{devices: []models.Device{activeMac}}
		engine := newTestEngine(t, provider, nil)

		if _, err := engine.PlayFromText(context.Background(), "jazz", make(chan ProgressUpdate)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name        string
		provider    *mockProvider
		wantErr     error
		deviceError bool
		notCalled   []string
	}{
		{
			name:        "no devices",
			provider:    &mockProvider{},
			wantErr:     shared.ErrNoDevice,
			deviceError: true,
			notCalled:   []string{"transfer", "create", "play"},
		},
		{
			name:        "no matching device",
			provider:    &mockProvider{devices: []models.Device{phone}},
			wantErr:     shared.ErrNoMatchingDevice,
			deviceError: true,
			notCalled:   []string{"transfer", "top", "create", "play"},
		},
		{
			name:        "transfer fails",
			provider:    &mockProvider{devices: []models.Device{inactiveMac}, transferErr: errors.New("restricted")},
			wantErr:     shared.ErrTransferFailed,
			deviceError: true,
			notCalled:   []string{"top", "create", "play"},
		},
		{
			name:      "devices request fails",
			provider:  &mockProvider{devicesErr: shared.ErrNetwork},
			wantErr:   shared.ErrNetwork,
			notCalled: []string{"transfer", "create", "play"},
		},
		{
			name:      "top artists fail",
			provider:  &mockProvider{devices: []models.Device{activeMac}, topErr: shared.ErrTokenExpired},
			wantErr:   shared.ErrTokenExpired,
			notCalled: []string{"resolve", "create", "play"},
		},
		{
			name:      "no artists resolve",
			provider:  &mockProvider{devices: []models.Device{activeMac}, resolveErr: shared.ErrEmptyResult},
			wantErr:   shared.ErrEmptyResult,
			notCalled: []string{"recommendations", "create", "play"},
		},
		{
			name:      "no tracks resolve",
			provider:  &mockProvider{devices: []models.Device{activeMac}, tracksErr: shared.ErrEmptyResult},
			wantErr:   shared.ErrEmptyResult,
			notCalled: []string{"user", "create", "play"},
		},
		{
			name:      "playlist creation fails",
			provider:  &mockProvider{devices: []models.Device{activeMac}, createErr: shared.ErrAPIRequest},
			wantErr:   shared.ErrAPIRequest,
			notCalled: []string{"add", "play"},
		},
		{
			name:      "adding tracks fails",
			provider:  &mockProvider{devices: []models.Device{activeMac}, addErr: shared.ErrAPIRequest},
			wantErr:   shared.ErrAPIRequest,
			notCalled: []string{"play"},
		},
		{
			name:     "playback fails",
			provider: &mockProvider{devices: []models.Device{activeMac}, playErr: shared.ErrAPIRequest},
			wantErr:  shared.ErrAPIRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &mockHistory{}
			engine := newTestEngine(t, tt.provider, history)

			_, err := engine.PlayFromText(context.Background(), "jazz", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if shared.IsDeviceError(err) != tt.deviceError {
				t.Errorf("IsDeviceError = %v, want %v", shared.IsDeviceError(err), tt.deviceError)
			}
			for _, name := range tt.notCalled {
				if tt.provider.called(name) {
					t.Errorf("%s must not be called after failure (calls: %v)", name, tt.provider.calls)
				}
			}
			if len(history.records) != 1 || history.records[0].Status != models.RequestFailed || history.records[0].Error == "" {
				t.Errorf("expected one failed history record, got %+v", history.records)
			}
		})
	}

	t.Run("Gateway Failure", func(t *testing.T) {
		provider := &mockProvider{devices: []models.Device{activeMac}}
		engine := newTestEngine(t, provider, nil)
		engine.suggester = &mockSuggester{err: fmt.Errorf("%w: gave up after 10 attempts", shared.ErrMalformedResponse)}

		_, err := engine.PlayFromText(context.Background(), "jazz", nil)
		if !errors.Is(err, shared.ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
		if provider.called("resolve") {
			t.Error("chain must stop at the gateway")
		}
	})

	t.Run("Empty Text", func(t *testing.T) {
		provider := &mockProvider{devices: []models.Device{activeMac}}
		history := &mockHistory{}
		engine := newTestEngine(t, provider, history)

		if _, err := engine.PlayFromText(context.Background(), "  ", nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if len(provider.calls) != 0 || len(history.records) != 0 {
			t.Error("empty text must not reach the provider or history")
		}
	})

	t.Run("History Failure Is Ignored", func(t *testing.T) {
		provider := &mockProvider{devices: []models.Device{activeMac}}
		engine := newTestEngine(t, provider, &mockHistory{err: errors.New("disk full")})

		if _, err := engine.PlayFromText(context.Background(), "jazz", nil); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestPlaylistNaming(t *testing.T) {
	if got := PlaylistName("lo-fi", time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)); got != "Casper's curated playlist for lo-fi musics on December 01" {
		t.Errorf("unexpected name %q", got)
	}
	if got := PlaylistDescription(`play "Blue" songs`); !strings.HasPrefix(got, "Playlist created by Casper for ") {
		t.Errorf("unexpected description %q", got)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: x", shared.ErrNoDevice), "I couldn't find any Spotify devices. Open Spotify and try again."},
		{fmt.Errorf("%w: x", shared.ErrNoMatchingDevice), "I couldn't find your preferred Spotify device. Open Spotify on it and try again."},
		{fmt.Errorf("%w: x", shared.ErrTransferFailed), "I couldn't move playback to your device. Open Spotify and try again."},
		{&shared.APIError{StatusCode: 401, Endpoint: "/me"}, "I'm not signed in to Spotify anymore. Please log in again."},
		{context.Canceled, "Okay, I stopped."},
		{errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	for p := CheckDevices; p <= StartPlayback; p++ {
		if p.String() == "" {
			t.Errorf("phase %d has no name", p)
		}
	}
	if Phase(99).String() != "" {
		t.Error("unknown phase should have an empty name")
	}
}
