// Package services implements the HTTP clients casper depends on.
//
// # Spotify
//
// [SpotifyService] is a public OAuth client (no client secret). [SpotifyService.Authenticate]
// loads the stored [models.Credential], probes it against GET /me, refreshes it
// with the stored refresh token when the probe is rejected, and otherwise runs
// the interactive authorization-code flow with a PKCE S256 challenge through an
// [Authorizer]. Concurrent callers share one flow.
//
// Every Web API call goes through a rate limiter and carries the bearer token.
// Non-2xx responses are returned as [*shared.APIError].
//
// # Recommendation gateway
//
// [GatewayClient] posts the user's text with their top artists and converts the
// response into [models.RecommendationParameters]. Malformed responses are
// retried with a fixed delay up to a bounded number of attempts; network and
// HTTP status failures are returned immediately.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no credential available
//   - [shared.ErrNetwork] : the request never produced a response
//   - [shared.ErrAPIRequest] : the server answered with a non-2xx status
//   - [shared.ErrMalformedResponse] : the body could not be decoded
//   - [shared.ErrEmptyResult] : a lookup matched nothing
package services
