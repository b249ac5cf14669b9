package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// maxSeeds is the Web API limit on seed_artists + seed_genres.
const maxSeeds = 5

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: /me returned no user id", shared.ErrMalformedResponse)
	}
	return &user, nil
}

// TopArtists returns the user's top artists. limit <= 0 uses the configured default.
func (s *SpotifyService) TopArtists(ctx context.Context, limit int) ([]models.Artist, error) {
	if limit <= 0 {
		limit = s.topArtistsLimit
	}

	var page artistPage
	if err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/me/top/artists?limit=%d", limit), nil, &page); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(page.Items))
	for _, a := range page.Items {
		artists = append(artists, toArtist(a))
	}
	return artists, nil
}

// Devices lists the user's available playback devices.
func (s *SpotifyService) Devices(ctx context.Context) ([]models.Device, error) {
	var resp devicesResponse
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &resp); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(resp.Devices))
	for _, d := range resp.Devices {
		devices = append(devices, models.Device{ID: d.ID, Name: d.Name, Type: d.Type, IsActive: d.IsActive})
	}
	return devices, nil
}

// TransferPlayback makes deviceID the active device without starting playback.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": false}
	return s.doRequest(ctx, http.MethodPut, "/me/player", body, nil)
}

// StartPlayback plays contextURI (e.g. spotify:playlist:<id>) on the active device.
func (s *SpotifyService) StartPlayback(ctx context.Context, contextURI string) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", map[string]string{"context_uri": contextURI}, nil)
}

// CreatePlaylist creates a private playlist owned by userID and returns its ID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (string, error) {
	body := map[string]any{"name": name, "description": description, "public": false}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return "", err
	}
	if playlist.ID == "" {
		return "", fmt.Errorf("%w: created playlist has no id", shared.ErrMalformedResponse)
	}
	return playlist.ID, nil
}

// AddTracks appends uris to a playlist. An empty list is rejected before any request is made.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track uris to add", shared.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string][]string{"uris": uris}, nil)
}

// TrackURI looks up the URI of a track by ID.
func (s *SpotifyService) TrackURI(ctx context.Context, trackID string) (string, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, http.MethodGet, "/tracks/"+url.PathEscape(trackID), nil, &track); err != nil {
		return "", err
	}
	if track.URI == "" {
		return "", fmt.Errorf("%w: track %s", shared.ErrEmptyResult, trackID)
	}
	return track.URI, nil
}

// TrackURIs resolves ids concurrently. Failed lookups are logged and dropped;
// the result keeps input order. It fails only when nothing resolves.
func (s *SpotifyService) TrackURIs(ctx context.Context, ids []string) ([]string, error) {
	return resolveAll(ctx, s, "track", ids, s.TrackURI)
}

// SearchArtist returns the best match for name.
func (s *SpotifyService) SearchArtist(ctx context.Context, name string) (models.Artist, error) {
	q := url.Values{"q": {name}, "type": {"artist"}, "limit": {"1"}}

	var resp searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+q.Encode(), nil, &resp); err != nil {
		return models.Artist{}, err
	}
	if len(resp.Artists.Items) == 0 {
		return models.Artist{}, fmt.Errorf("%w: no artist named %q", shared.ErrEmptyResult, name)
	}
	return toArtist(resp.Artists.Items[0]), nil
}

// ResolveArtistNames looks up every name concurrently and returns the IDs that
// resolved, in input order. It fails only when none resolve.
func (s *SpotifyService) ResolveArtistNames(ctx context.Context, names []string) ([]string, error) {
	return resolveAll(ctx, s, "artist", names, func(ctx context.Context, name string) (string, error) {
		a, err := s.SearchArtist(ctx, name)
		return a.ID, err
	})
}

// Recommendations returns track IDs seeded by artistIDs and params.Genre and
// bounded by the feature ranges in params.
func (s *SpotifyService) Recommendations(ctx context.Context, artistIDs []string, params models.RecommendationParameters) ([]string, error) {
	q := RecommendationQuery(artistIDs, params)

	var resp recommendationsResponse
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Tracks))
	for _, t := range resp.Tracks {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no recommendations for %s", shared.ErrEmptyResult, params.Genre)
	}
	return ids, nil
}

// RecommendationQuery builds the /recommendations query string. Artist seeds
// are truncated so artists plus genre stay within the seed limit.
func RecommendationQuery(artistIDs []string, params models.RecommendationParameters) url.Values {
	limit := maxSeeds
	if params.Genre != "" {
		limit--
	}
	if len(artistIDs) > limit {
		artistIDs = artistIDs[:limit]
	}

	q := url.Values{}
	if len(artistIDs) > 0 {
		q.Set("seed_artists", strings.Join(artistIDs, ","))
	}
	if params.Genre != "" {
		q.Set("seed_genres", params.Genre)
	}

	features := []struct {
		name string
		r    models.FeatureRange
	}{
		{"acousticness", params.Acousticness},
		{"energy", params.Energy},
		{"instrumentalness", params.Instrumentalness},
		{"danceability", params.Danceability},
		{"tempo", params.Tempo},
	}
	for _, f := range features {
		q.Set("min_"+f.name, strconv.FormatFloat(f.r.Min, 'f', -1, 64))
		q.Set("max_"+f.name, strconv.FormatFloat(f.r.Max, 'f', -1, 64))
	}
	return q
}

// resolveAll runs lookup for every key in its own goroutine and joins the results.
func resolveAll(ctx context.Context, s *SpotifyService, kind string, keys []string, lookup func(context.Context, string) (string, error)) ([]string, error) {
	results := make([]string, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			v, err := lookup(ctx, key)
			if err != nil {
				s.logger.Warn("lookup failed, skipping", "kind", kind, "key", key, "err", err)
				return
			}
			results[i] = v
		}(i, key)
	}
	wg.Wait()

	resolved := make([]string, 0, len(results))
	for _, v := range results {
		if v != "" {
			resolved = append(resolved, v)
		}
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: none of %d %s lookups succeeded", shared.ErrEmptyResult, len(keys), kind)
	}
	return resolved, nil
}

func toArtist(a SpotifyArtist) models.Artist {
	return models.Artist{ID: a.ID, Name: a.Name, Genres: a.Genres}
}
