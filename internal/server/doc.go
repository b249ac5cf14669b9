// Package server provides HTTP routing, middleware, and the loopback callback
// used by the Spotify authorization-code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] uses [http.ServeMux] internally with method filtering.
// Middleware added first wraps outermost.
//
// # Authorization Callback
//
// [CallbackHandler] validates the state parameter and hands the authorization
// code to whoever is waiting on [CallbackHandler.Result]. It only processes
// one callback.
//
// [Loopback] implements the services Authorizer: it binds the redirect URI's
// host and port, opens the authorization URL in the browser, and waits for the
// callback, a timeout, or cancellation. Starting a new session cancels the one
// already waiting so the port is released for it.
package server
