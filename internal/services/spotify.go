// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// SpotifyDevice represents a Spotify Connect device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent int    `json:"volume_percent"`
}

// SpotifyPlaylist represents the subset of a created playlist casper reads.
type SpotifyPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type artistPage struct {
	Items []SpotifyArtist `json:"items"`
}

type searchResponse struct {
	Artists artistPage `json:"artists"`
}

type devicesResponse struct {
	Devices []SpotifyDevice `json:"devices"`
}

type recommendationsResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// SpotifyOptions configures [NewSpotifyService].
type SpotifyOptions struct {
	Config        shared.SpotifyConfig
	SecretService string
	Secrets       SecretStore
	Authorizer    Authorizer
	HTTPClient    *http.Client
	Logger        *log.Logger
}

// SpotifyService is the Spotify Web API client. It owns the current [models.Credential].
type SpotifyService struct {
	config          *oauth2.Config
	baseURL         string
	topArtistsLimit int
	secretService   string
	secrets         SecretStore
	authorizer      Authorizer
	httpClient      *http.Client
	limiter         *rate.Limiter
	logger          *log.Logger
	flight          singleflight.Group

	mu         sync.RWMutex
	credential *models.Credential
}

// NewSpotifyService creates a Spotify client for a public (PKCE) OAuth application.
func NewSpotifyService(opts SpotifyOptions) (*SpotifyService, error) {
	cfg := opts.Config
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}

	authURL, tokenURL, baseURL := cfg.AuthURL, cfg.TokenURL, cfg.APIBaseURL
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	topArtists := cfg.TopArtistsLimit
	if topArtists <= 0 {
		topArtists = 40
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL:         strings.TrimRight(baseURL, "/"),
		topArtistsLimit: topArtists,
		secretService:   opts.SecretService,
		secrets:         opts.Secrets,
		authorizer:      opts.Authorizer,
		httpClient:      client,
		limiter:         rate.NewLimiter(limit, 1),
		logger:          logger,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Credential returns the credential in use, if any.
func (s *SpotifyService) Credential() (models.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.credential == nil {
		return models.Credential{}, false
	}
	return *s.credential, true
}

func (s *SpotifyService) setCredential(c models.Credential) {
	s.mu.Lock()
	s.credential = &c
	s.mu.Unlock()
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body, when non-nil, is sent as JSON. result, when non-nil, receives the decoded response.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	cred, ok := s.Credential()
	if !ok {
		return shared.ErrNotAuthenticated
	}
	return s.requestWithToken(ctx, cred.AccessToken, method, endpoint, body, result)
}

func (s *SpotifyService) requestWithToken(ctx context.Context, token, method, endpoint string, body, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrNetwork, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &shared.APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: strings.TrimSpace(string(msg))}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrMalformedResponse, endpoint, err)
	}
	return nil
}
