package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/casper/internal/formatter"
	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints or exports past music requests, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	switch status := models.RequestStatus(cmd.String("status")); status {
	case "":
	case models.RequestSucceeded, models.RequestFailed:
		criteria["status"] = status
	default:
		return fmt.Errorf("%w: status %q (want succeeded or failed)", shared.ErrInvalidArgument, status)
	}

	if err := r.open(); err != nil {
		return err
	}

	requests, err := r.requests.List(criteria)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(format, requests, output)
		if err != nil {
			return err
		}
		r.logger.Infof("history exported to %v with %v requests", path, len(requests))
		return r.writePlain("✓ Exported %d requests to %s\n", len(requests), path)
	}

	data, err := formatter.Export(format, requests)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
