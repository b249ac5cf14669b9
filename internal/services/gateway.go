package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
)

// tempoNoiseScale widens the noise window for tempo, which is measured in BPM rather than [0, 1].
const tempoNoiseScale = 50.0

type gatewayArtist struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type gatewayRequest struct {
	UserInput string `json:"user_input"`
	Artists   struct {
		Items []gatewayArtist `json:"items"`
	} `json:"artists"`
}

type gatewayFeatures struct {
	Genre            string    `json:"genre"`
	Acousticness     []float64 `json:"acousticness"`
	Energy           []float64 `json:"energy"`
	Instrumentalness []float64 `json:"instrumentalness"`
	Danceability     []float64 `json:"danceability"`
	Tempo            []float64 `json:"tempo"`
}

type gatewayResponse struct {
	Response *gatewayFeatures `json:"response"`
	Artists  json.RawMessage  `json:"artists"`
}

// GatewayOptions configures [NewGatewayClient]. Wait and Rand default to a
// context-aware sleep and [rand.Float64].
type GatewayOptions struct {
	Config     shared.GatewayConfig
	HTTPClient *http.Client
	Logger     *log.Logger
	Wait       func(ctx context.Context, d time.Duration) error
	Rand       func() float64
}

// GatewayClient talks to the recommendation gateway.
type GatewayClient struct {
	api         *APIService
	endpoint    string
	maxAttempts int
	retryDelay  time.Duration
	noise       float64
	wait        func(ctx context.Context, d time.Duration) error
	rand        func() float64
	logger      *log.Logger
}

// NewGatewayClient creates a gateway client posting to opts.Config.URL.
func NewGatewayClient(opts GatewayOptions) *GatewayClient {
	attempts := opts.Config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	g := &GatewayClient{
		api:         NewAPIService(opts.Config.URL, opts.HTTPClient),
		endpoint:    opts.Config.URL,
		maxAttempts: attempts,
		retryDelay:  opts.Config.RetryDelay(),
		noise:       opts.Config.Noise,
		wait:        opts.Wait,
		rand:        opts.Rand,
		logger:      opts.Logger,
	}
	if g.wait == nil {
		g.wait = sleepContext
	}
	if g.rand == nil {
		g.rand = rand.Float64
	}
	if g.logger == nil {
		g.logger = shared.NewLogger(nil)
	}
	return g
}

// Suggest turns text and the user's top artists into recommendation parameters.
//
// A malformed body is retried with the same request after the retry delay, up to
// the attempt budget; exhausting it yields [shared.ErrMalformedResponse].
// Network failures and non-2xx statuses are returned without retrying.
func (g *GatewayClient) Suggest(ctx context.Context, text string, topArtists []models.Artist) (models.RecommendationParameters, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.RecommendationParameters{}, fmt.Errorf("%w: empty request text", shared.ErrInvalidInput)
	}

	var payload gatewayRequest
	payload.UserInput = text
	payload.Artists.Items = make([]gatewayArtist, 0, len(topArtists))
	for _, a := range topArtists {
		genres := a.Genres
		if genres == nil {
			genres = []string{}
		}
		payload.Artists.Items = append(payload.Artists.Items, gatewayArtist{Name: a.Name, Genres: genres})
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := g.wait(ctx, g.retryDelay); err != nil {
				return models.RecommendationParameters{}, err
			}
		}

		resp, err := g.api.PostJSON(ctx, "", payload)
		if err != nil {
			return models.RecommendationParameters{}, fmt.Errorf("gateway request failed: %w", err)
		}
		if err := resp.Err(g.endpoint); err != nil {
			return models.RecommendationParameters{}, err
		}

		params, err := g.parse(resp.Body)
		if err == nil {
			g.logger.Debug("gateway suggestion", "genre", params.Genre, "artists", len(params.RecommendedArtists), "attempt", attempt)
			return params, nil
		}

		lastErr = err
		g.logger.Warn("malformed gateway response", "attempt", attempt, "max", g.maxAttempts, "err", err)
	}

	return models.RecommendationParameters{}, fmt.Errorf("%w: gave up after %d attempts: %v", shared.ErrMalformedResponse, g.maxAttempts, lastErr)
}

func (g *GatewayClient) parse(body []byte) (models.RecommendationParameters, error) {
	var resp gatewayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.RecommendationParameters{}, fmt.Errorf("invalid json: %w", err)
	}

	f := resp.Response
	if f == nil {
		return models.RecommendationParameters{}, errors.New("missing response object")
	}
	if strings.TrimSpace(f.Genre) == "" {
		return models.RecommendationParameters{}, errors.New("missing genre")
	}

	pairs := []struct {
		name   string
		values []float64
	}{
		{"acousticness", f.Acousticness},
		{"energy", f.Energy},
		{"instrumentalness", f.Instrumentalness},
		{"danceability", f.Danceability},
		{"tempo", f.Tempo},
	}
	for _, p := range pairs {
		if len(p.values) == 0 {
			return models.RecommendationParameters{}, fmt.Errorf("missing %s range", p.name)
		}
	}

	artists, err := ParseArtistList(resp.Artists)
	if err != nil {
		return models.RecommendationParameters{}, err
	}

	return models.RecommendationParameters{
		Genre:              strings.TrimSpace(f.Genre),
		Acousticness:       g.bounds(f.Acousticness, g.noise, true),
		Energy:             g.bounds(f.Energy, g.noise, true),
		Instrumentalness:   g.bounds(f.Instrumentalness, g.noise, true),
		Danceability:       g.bounds(f.Danceability, g.noise, true),
		Tempo:              g.bounds(f.Tempo, g.noise*tempoNoiseScale, false),
		RecommendedArtists: artists,
	}, nil
}

// bounds widens a [min, max] pair to whole numbers: the first value is floored
// and the last ceiled after adding noise, clamped to [0, 1] when clamp is set.
func (g *GatewayClient) bounds(values []float64, width float64, clamp bool) models.FeatureRange {
	jitter := func(v float64) float64 {
		if width > 0 {
			v += (2*g.rand() - 1) * width
		}
		if clamp {
			v = math.Min(1, math.Max(0, v))
		}
		return v
	}
	return models.FeatureRange{
		Min: math.Floor(jitter(values[0])),
		Max: math.Ceil(jitter(values[len(values)-1])),
	}
}

// ParseArtistList accepts a JSON array of names or the legacy bracketed
// string form such as "Output: ['A', \"B\"]".
func ParseArtistList(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errors.New("missing artists")
	}

	var names []string
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, fmt.Errorf("invalid artists array: %w", err)
		}
	} else {
		var legacy string
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("invalid artists value: %w", err)
		}
		var err error
		if names, err = parseLegacyArtists(legacy); err != nil {
			return nil, err
		}
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, errors.New("empty artist name")
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("empty artist list")
	}
	return out, nil
}

func parseLegacyArtists(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Output:"))
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("artists not bracketed: %q", s)
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, errors.New("empty artist list")
	}

	parts := strings.Split(inner, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.Trim(strings.TrimSpace(p), `'"`)
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("empty artist name in %q", s)
		}
		names = append(names, name)
	}
	return names, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
