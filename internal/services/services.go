package services

import "context"

// Secret store accounts used for the Spotify token pair.
const (
	AccessTokenAccount  = "accessToken"
	RefreshTokenAccount = "refreshToken"
)

// SecretStore persists opaque values keyed by service and account. Last write wins.
type SecretStore interface {
	Save(service, account, value string) error
	Load(service, account string) (value string, ok bool, err error)
}

// Authorizer sends the user to authURL and returns the authorization code
// delivered to the redirect URI. The state returned by the provider must equal state.
type Authorizer interface {
	Authorize(ctx context.Context, authURL, state string) (code string, err error)
}

// AuthorizerFunc adapts a function to [Authorizer].
type AuthorizerFunc func(ctx context.Context, authURL, state string) (string, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, authURL, state string) (string, error) {
	return f(ctx, authURL, state)
}
