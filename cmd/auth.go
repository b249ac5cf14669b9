package main

import (
	"context"
	"errors"

	"github.com/desertthunder/casper/internal/services"
	"github.com/desertthunder/casper/internal/shared"
	"github.com/urfave/cli/v3"
)

// Auth signs in to Spotify. A stored token is reused or refreshed; otherwise the browser flow runs.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	r.writePlain("→ Checking Spotify credentials...\n")
	if _, err := r.spotify.Authenticate(ctx); err != nil {
		return err
	}

	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", user.ID)
	r.writePlain("✓ Signed in to Spotify as %s\n", displayName(user))
	return r.writePlain("You can now use: casper play \"something mellow for a rainy afternoon\"\n")
}

// AuthStatus reports whether the stored credential works without starting a browser flow.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.authorizer = services.AuthorizerFunc(func(context.Context, string, string) (string, error) {
		return "", shared.ErrNotAuthenticated
	})
	if err := r.open(); err != nil {
		return err
	}

	if _, err := r.spotify.Authenticate(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrRefreshFailed) {
			return r.writePlain("Authentication: ✗ Not authenticated\nRun 'casper auth' to sign in.\n")
		}
		return err
	}

	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("User: %s\n", displayName(user))
	if user.Product != "" {
		r.writePlain("Plan: %s\n", user.Product)
	}
	return nil
}

func displayName(u *services.SpotifyUser) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}
