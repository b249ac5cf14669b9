package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/desertthunder/casper/internal/state"
	"github.com/desertthunder/casper/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.open(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Machine:   state.NewMachine(shared.WithLogger(r.logger, "component", "state")),
		Player:    r.engine,
		Auth:      r.spotify,
		Calendar:  r.calendar,
		Announcer: r.announcer,
		Logger:    shared.WithLogger(r.logger, "component", "ui"),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
