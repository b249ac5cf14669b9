package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./casper.db" {
			t.Errorf("expected database path ./casper.db, got %s", config.Database.Path)
		}

		if config.Spotify.RedirectURI != "http://127.0.0.1:8888/callback" {
			t.Errorf("expected loopback redirect URI, got %s", config.Spotify.RedirectURI)
		}

		if config.Spotify.PreferredDevice != "Mac" {
			t.Errorf("expected preferred device Mac, got %s", config.Spotify.PreferredDevice)
		}

		if config.Spotify.TopArtistsLimit != 40 {
			t.Errorf("expected top artists limit 40, got %d", config.Spotify.TopArtistsLimit)
		}

		if len(config.Spotify.Scopes) != 6 {
			t.Errorf("expected 6 scopes, got %d", len(config.Spotify.Scopes))
		}

		if config.Gateway.MaxAttempts != 10 || config.Gateway.RetryDelay() != time.Second {
			t.Errorf("unexpected gateway retry policy: %+v", config.Gateway)
		}

		if config.Calendar.MessageInterval() != 3*time.Second || config.Calendar.SettleDelay() != time.Second {
			t.Errorf("unexpected calendar cadence: %+v", config.Calendar)
		}

		if config.Secrets.Service != "com.example.Casper.SpotifyAccessToken" {
			t.Errorf("unexpected secrets service %s", config.Secrets.Service)
		}

		if config.Spotify.Timeout() != 0 {
			t.Errorf("expected zero client timeout, got %v", config.Spotify.Timeout())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig keeps defaults for missing keys", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[spotify]
client_id = "test_client_id"
preferred_device = "^Studio"

[gateway]
max_attempts = 3
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Spotify.ClientID)
		}
		if config.Gateway.MaxAttempts != 3 {
			t.Errorf("expected max attempts 3, got %d", config.Gateway.MaxAttempts)
		}
		if config.Gateway.RetryDelayMS != 1000 {
			t.Errorf("expected default retry delay to survive, got %d", config.Gateway.RetryDelayMS)
		}
		if config.Spotify.TokenURL != "https://accounts.spotify.com/api/token" {
			t.Errorf("expected default token url, got %s", config.Spotify.TokenURL)
		}
	})

	t.Run("SaveConfig round trips", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Spotify.ClientID = "abc123"
		config.Calendar.Calendars = []string{"Work", "Home"}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Spotify.ClientID != "abc123" {
			t.Errorf("expected client id abc123, got %s", loaded.Spotify.ClientID)
		}
		if len(loaded.Calendar.Calendars) != 2 || loaded.Calendar.Calendars[1] != "Home" {
			t.Errorf("unexpected calendars %v", loaded.Calendar.Calendars)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("CASPER_GATEWAY_URL=http://gateway.test/suggest\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("CASPER_SPOTIFY_CLIENT_ID", "from-env")
		t.Setenv("CASPER_GATEWAY_URL", "")
		os.Unsetenv("CASPER_GATEWAY_URL")

		config := DefaultConfig()
		if err := ApplyEnv(config, envPath); err != nil {
			t.Fatalf("ApplyEnv failed: %v", err)
		}

		if config.Spotify.ClientID != "from-env" {
			t.Errorf("expected client id from env, got %s", config.Spotify.ClientID)
		}
		if config.Gateway.URL != "http://gateway.test/suggest" {
			t.Errorf("expected gateway url from .env, got %s", config.Gateway.URL)
		}
	})

	t.Run("ApplyEnv ignores missing file", func(t *testing.T) {
		config := DefaultConfig()
		if err := ApplyEnv(config, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("missing .env should be ignored, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials for placeholder client id, got %v", err)
		}

		config.Spotify.ClientID = "real"
		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}

		config.Gateway.MaxAttempts = 0
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
