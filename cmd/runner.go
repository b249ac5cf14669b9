package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/calendar"
	"github.com/desertthunder/casper/internal/repositories"
	"github.com/desertthunder/casper/internal/server"
	"github.com/desertthunder/casper/internal/services"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/desertthunder/casper/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built on first use by [Runner.open] so that setup and help never touch the database.
type Runner struct {
	config     *shared.Config
	configPath string
	pinned     bool
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	authorizer services.Authorizer

	db        *sql.DB
	ownsDB    bool
	spotify   *services.SpotifyService
	gateway   *services.GatewayClient
	engine    *tasks.PlaybackEngine
	calendar  *calendar.Service
	announcer *calendar.Announcer
	events    *repositories.EventRepository
	requests  *repositories.RequestRepository
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as-is instead of reading --config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Authorizer services.Authorizer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	pinned := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		pinned:     pinned,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		authorizer: opts.Authorizer,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, devicesCommand, suggestCommand, playCommand, calendarCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the config file and .env overrides before any command runs.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.pinned {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
	default:
		return ctx, err
	}

	if err := shared.ApplyEnv(r.config, cmd.String("env")); err != nil {
		return ctx, err
	}

	if !cmd.Bool("verbose") && r.config.Log.Level != "" {
		level, err := log.ParseLevel(r.config.Log.Level)
		if err != nil {
			r.logger.Warn("unknown log level, keeping info", "level", r.config.Log.Level)
		} else {
			shared.SetLogLevel(r.logger, level)
		}
	}
	return ctx, nil
}

// open connects the database and wires the services. It is idempotent.
func (r *Runner) open() error {
	if r.engine != nil {
		return nil
	}

	if r.db == nil {
		path := r.config.Database.Path
		db, err := shared.NewDatabase(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if path != ":memory:" {
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db = db
		r.ownsDB = true
	}

	client := r.httpClient
	if client == http.DefaultClient && r.config.Spotify.Timeout() > 0 {
		client = &http.Client{Timeout: r.config.Spotify.Timeout()}
	}

	authorizer := r.authorizer
	if authorizer == nil {
		loopback, err := server.NewLoopback(server.LoopbackOptions{
			RedirectURI: r.config.Spotify.RedirectURI,
			Timeout:     r.config.Spotify.AuthTimeout(),
			Logger:      shared.WithLogger(r.logger, "component", "loopback"),
		})
		if err != nil {
			return err
		}
		authorizer = loopback
	}

	spotify, err := services.NewSpotifyService(services.SpotifyOptions{
		Config:        r.config.Spotify,
		SecretService: r.config.Secrets.Service,
		Secrets:       repositories.NewSecretRepository(r.db),
		Authorizer:    authorizer,
		HTTPClient:    client,
		Logger:        shared.WithLogger(r.logger, "service", "spotify"),
	})
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	gateway := services.NewGatewayClient(services.GatewayOptions{
		Config:     r.config.Gateway,
		HTTPClient: client,
		Logger:     shared.WithLogger(r.logger, "service", "gateway"),
	})

	requests := repositories.NewRequestRepository(r.db)
	engine, err := tasks.NewPlaybackEngine(tasks.EngineOptions{
		Provider:        spotify,
		Suggester:       gateway,
		History:         requests,
		PreferredDevice: r.config.Spotify.PreferredDevice,
		TopArtistsLimit: r.config.Spotify.TopArtistsLimit,
		Logger:          shared.WithLogger(r.logger, "component", "engine"),
	})
	if err != nil {
		return err
	}

	status, err := calendar.ParseStatus(r.config.Calendar.Authorization)
	if err != nil {
		return err
	}
	events := repositories.NewEventRepository(r.db)
	provider := calendar.NewStoreProvider(events, status, r.config.Calendar.GrantOnRequest)

	r.spotify = spotify
	r.gateway = gateway
	r.requests = requests
	r.events = events
	r.engine = engine
	r.calendar = calendar.NewService(provider, r.config.Calendar.Calendars, shared.WithLogger(r.logger, "component", "calendar"))
	r.announcer = calendar.NewAnnouncer(r.config.Calendar.MessageInterval(), r.config.Calendar.SettleDelay())
	return nil
}

// close releases a database opened by [Runner.open]; one passed in [RunnerOpts] is left open.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.ownsDB = false
	r.engine = nil
	return err
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
