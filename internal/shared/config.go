package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Gateway  GatewayConfig  `toml:"gateway"`
	Calendar CalendarConfig `toml:"calendar"`
	Database DatabaseConfig `toml:"database"`
	Secrets  SecretsConfig  `toml:"secrets"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains the public-client settings for the Spotify Web API.
type SpotifyConfig struct {
	ClientID        string   `toml:"client_id"`
	RedirectURI     string   `toml:"redirect_uri"`
	PreferredDevice string   `toml:"preferred_device"`
	APIBaseURL      string   `toml:"api_base_url"`
	AuthURL         string   `toml:"auth_url"`
	TokenURL        string   `toml:"token_url"`
	Scopes          []string `toml:"scopes"`
	TopArtistsLimit int      `toml:"top_artists_limit"`
	RateLimit       float64  `toml:"rate_limit"`
	TimeoutMS       int      `toml:"timeout_ms"`
	AuthTimeoutS    int      `toml:"auth_timeout_s"`
}

// Timeout is the HTTP client timeout. Zero means no client-level timeout.
func (c SpotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// AuthTimeout bounds how long the interactive login waits for the browser callback.
func (c SpotifyConfig) AuthTimeout() time.Duration {
	if c.AuthTimeoutS <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.AuthTimeoutS) * time.Second
}

// GatewayConfig contains the recommendation gateway settings.
type GatewayConfig struct {
	URL          string  `toml:"url"`
	MaxAttempts  int     `toml:"max_attempts"`
	RetryDelayMS int     `toml:"retry_delay_ms"`
	Noise        float64 `toml:"noise"`
}

func (c GatewayConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// CalendarConfig controls the calendar provider and the read-aloud cadence.
type CalendarConfig struct {
	Authorization     string   `toml:"authorization"`
	GrantOnRequest    bool     `toml:"grant_on_request"`
	MessageIntervalMS int      `toml:"message_interval_ms"`
	SettleDelayMS     int      `toml:"settle_delay_ms"`
	Calendars         []string `toml:"calendars"`
}

func (c CalendarConfig) MessageInterval() time.Duration {
	return time.Duration(c.MessageIntervalMS) * time.Millisecond
}

func (c CalendarConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SecretsConfig names the secret-store service that holds the Spotify tokens.
type SecretsConfig struct {
	Service string `toml:"service"`
}

// LogConfig controls the log level and the file used while the TUI owns the terminal.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv loads envPath (when it exists) into the process environment and
// applies CASPER_* overrides to config. Variables already set win over the file.
func ApplyEnv(config *Config, envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	overrides := map[string]*string{
		"CASPER_SPOTIFY_CLIENT_ID":    &config.Spotify.ClientID,
		"CASPER_SPOTIFY_REDIRECT_URI": &config.Spotify.RedirectURI,
		"CASPER_PREFERRED_DEVICE":     &config.Spotify.PreferredDevice,
		"CASPER_GATEWAY_URL":          &config.Gateway.URL,
		"CASPER_DATABASE_PATH":        &config.Database.Path,
		"CASPER_LOG_LEVEL":            &config.Log.Level,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*field = strings.TrimSpace(v)
		}
	}
	return nil
}

// Validate reports configuration that would make every request fail.
func (c *Config) Validate() error {
	switch {
	case c.Spotify.ClientID == "" || c.Spotify.ClientID == "your_spotify_client_id":
		return fmt.Errorf("%w: spotify.client_id is not set", ErrMissingCredentials)
	case c.Spotify.RedirectURI == "":
		return fmt.Errorf("%w: spotify.redirect_uri is required", ErrInvalidConfig)
	case c.Gateway.URL == "":
		return fmt.Errorf("%w: gateway.url is required", ErrInvalidConfig)
	case c.Gateway.MaxAttempts < 1:
		return fmt.Errorf("%w: gateway.max_attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}
