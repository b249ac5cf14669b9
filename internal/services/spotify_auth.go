package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/casper/internal/models"
	"github.com/desertthunder/casper/internal/shared"
	"golang.org/x/oauth2"
)

// Authenticate returns a usable credential.
//
// The stored access token is probed with GET /me. A rejected token is refreshed
// with the stored refresh token; without one, or with nothing stored at all,
// the interactive PKCE flow runs. Concurrent calls share a single attempt.
func (s *SpotifyService) Authenticate(ctx context.Context) (models.Credential, error) {
	v, err, joined := s.flight.Do("authenticate", func() (any, error) {
		return s.authenticate(ctx)
	})
	if joined {
		s.logger.Debug("joined in-flight authentication")
	}
	if err != nil {
		return models.Credential{}, err
	}
	return v.(models.Credential), nil
}

func (s *SpotifyService) authenticate(ctx context.Context) (models.Credential, error) {
	access, ok, err := s.loadSecret(AccessTokenAccount)
	if err != nil {
		return models.Credential{}, err
	}
	if !ok {
		s.logger.Info("no stored spotify credential, starting authorization")
		return s.Authorize(ctx)
	}

	refresh, _, err := s.loadSecret(RefreshTokenAccount)
	if err != nil {
		return models.Credential{}, err
	}
	cred := models.Credential{AccessToken: access, RefreshToken: refresh}

	err = s.probe(ctx, access)
	if err == nil {
		s.setCredential(cred)
		return cred, nil
	}

	var apiErr *shared.APIError
	if !errors.As(err, &apiErr) {
		return models.Credential{}, fmt.Errorf("failed to validate stored token: %w", err)
	}

	s.logger.Info("stored access token rejected", "status", apiErr.StatusCode)
	if refresh == "" {
		return s.Authorize(ctx)
	}
	return s.Refresh(ctx, refresh)
}

// probe checks token validity against GET /me.
func (s *SpotifyService) probe(ctx context.Context, token string) error {
	var user SpotifyUser
	return s.requestWithToken(ctx, token, http.MethodGet, "/me", nil, &user)
}

// Refresh exchanges refreshToken for a new pair. The stored pair is only
// replaced after the token endpoint succeeds; if it omits a new refresh token
// the old one is kept.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (models.Credential, error) {
	if refreshToken == "" {
		return models.Credential{}, shared.ErrNoRefreshToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	cred := models.Credential{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}

	if err := s.persist(cred); err != nil {
		return models.Credential{}, err
	}
	s.logger.Info("refreshed spotify access token")
	return cred, nil
}

// Authorize runs the interactive authorization-code flow with a PKCE S256 challenge.
func (s *SpotifyService) Authorize(ctx context.Context) (models.Credential, error) {
	if s.authorizer == nil {
		return models.Credential{}, fmt.Errorf("%w: interactive authorization unavailable", shared.ErrNotAuthenticated)
	}

	verifier := oauth2.GenerateVerifier()
	state, err := shared.GenerateState()
	if err != nil {
		return models.Credential{}, err
	}

	authURL := s.AuthURL(state, verifier)
	code, err := s.authorizer.Authorize(ctx, authURL, state)
	if err != nil {
		return models.Credential{}, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: code exchange: %w", shared.ErrAuthFailed, err)
	}

	cred := models.Credential{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if err := s.persist(cred); err != nil {
		return models.Credential{}, err
	}
	s.logger.Info("spotify authorization complete")
	return cred, nil
}

// AuthURL returns the authorization URL carrying state and the S256 challenge for verifier.
func (s *SpotifyService) AuthURL(state, verifier string) string {
	return s.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (s *SpotifyService) persist(cred models.Credential) error {
	if s.secrets != nil {
		if err := s.secrets.Save(s.secretService, AccessTokenAccount, cred.AccessToken); err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		if cred.RefreshToken != "" {
			if err := s.secrets.Save(s.secretService, RefreshTokenAccount, cred.RefreshToken); err != nil {
				return fmt.Errorf("failed to store refresh token: %w", err)
			}
		}
	}
	s.setCredential(cred)
	return nil
}

func (s *SpotifyService) loadSecret(account string) (string, bool, error) {
	if s.secrets == nil {
		return "", false, nil
	}
	v, ok, err := s.secrets.Load(s.secretService, account)
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s: %w", account, err)
	}
	return v, ok && v != "", nil
}
