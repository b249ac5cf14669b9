package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/desertthunder/casper/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Devices lists the user's Spotify Connect devices.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	if err := r.signIn(ctx); err != nil {
		return err
	}

	devices, err := r.spotify.Devices(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, true)
	}

	if len(devices) == 0 {
		return r.writePlain("No devices found. Open Spotify on a computer, phone or speaker.\n")
	}

	r.writePlain("Found %d devices:\n\n", len(devices))
	for i, d := range devices {
		active := ""
		if d.IsActive {
			active = " (active)"
		}
		r.writePlain("%d. %s%s\n", i+1, d.Name, active)
		r.writePlain("   Type: %s\n", d.Type)
		r.writePlain("   ID: %s\n", d.ID)
	}
	return nil
}

// Suggest prints the recommendation parameters the gateway derives from text.
func (r *Runner) Suggest(ctx context.Context, cmd *cli.Command) error {
	text, err := argText(cmd)
	if err != nil {
		return err
	}
	if err := r.signIn(ctx); err != nil {
		return err
	}

	topArtists, err := r.spotify.TopArtists(ctx, r.config.Spotify.TopArtistsLimit)
	if err != nil {
		return err
	}

	params, err := r.gateway.Suggest(ctx, text, topArtists)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(params, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Recommendation parameters")
	r.writePlain("Genre:            %s\n", params.Genre)
	for _, f := range []struct {
		name string
		r    models.FeatureRange
	}{
		{"Acousticness", params.Acousticness},
		{"Energy", params.Energy},
		{"Instrumentalness", params.Instrumentalness},
		{"Danceability", params.Danceability},
		{"Tempo", params.Tempo},
	} {
		r.writePlain("%-17s %g - %g\n", f.name+":", f.r.Min, f.r.Max)
	}
	if len(params.RecommendedArtists) > 0 {
		r.writePlain("Artists:          %s\n", strings.Join(params.RecommendedArtists, ", "))
	}
	return nil
}

// Play runs the text to playback chain, printing each step as it happens.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	text, err := argText(cmd)
	if err != nil {
		return err
	}
	if err := r.signIn(ctx); err != nil {
		return err
	}

	r.logger.Info("starting playback request", "text", text)

	progressCh := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := r.engine.PlayFromText(ctx, text, progressCh)
	close(progressCh)
	wg.Wait()

	if err != nil {
		r.writePlainln("✗ %s", tasks.Reason(err))
		return err
	}

	r.writePlainHeader("Now playing")
	r.writePlain("Playlist: %s\n", result.PlaylistName)
	r.writePlain("Genre: %s\n", result.Genre)
	r.writePlain("Tracks: %d\n", result.TrackCount)
	r.writePlain("Device: %s\n", result.DeviceName)
	return nil
}

// signIn wires the services and makes sure a usable credential is loaded.
func (r *Runner) signIn(ctx context.Context) error {
	if err := r.open(); err != nil {
		return err
	}
	if _, err := r.spotify.Authenticate(ctx); err != nil {
		return fmt.Errorf("spotify sign-in failed: %w", err)
	}
	return nil
}

func argText(cmd *cli.Command) (string, error) {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if text == "" {
		return "", fmt.Errorf("%w: text describing the music you want", shared.ErrMissingArgument)
	}
	return text, nil
}
