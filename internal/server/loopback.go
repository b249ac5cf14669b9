package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/casper/internal/shared"
)

// LoopbackOptions configures [NewLoopback].
type LoopbackOptions struct {
	RedirectURI string
	Timeout     time.Duration
	Open        func(url string) error // defaults to [shared.OpenBrowser]
	Logger      *log.Logger
}

// Loopback captures authorization codes on a local HTTP listener bound to the
// redirect URI's host and port. Only one session runs at a time; starting a
// new one cancels the previous session.
type Loopback struct {
	redirect *url.URL
	timeout  time.Duration
	open     func(string) error
	logger   *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	baseURL string
}

// NewLoopback validates the redirect URI, which must be an http URL with a host.
func NewLoopback(opts LoopbackOptions) (*Loopback, error) {
	u, err := url.Parse(opts.RedirectURI)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q must be an http loopback url", shared.ErrInvalidConfig, opts.RedirectURI)
	}

	l := &Loopback{redirect: u, timeout: opts.Timeout, open: opts.Open, logger: opts.Logger}
	if l.timeout <= 0 {
		l.timeout = 2 * time.Minute
	}
	if l.open == nil {
		l.open = shared.OpenBrowser
	}
	if l.logger == nil {
		l.logger = shared.NewLogger(nil)
	}
	return l, nil
}

// CallbackURL is where the running session listens, or "" between sessions.
func (l *Loopback) CallbackURL() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseURL
}

// Authorize opens authURL and waits for the redirect carrying state.
//
// It returns [shared.ErrTimeout] when no callback arrives in time and
// [shared.ErrAuthCancelled] when the user denies access, ctx is cancelled or
// a newer session supersedes this one.
func (l *Loopback) Authorize(ctx context.Context, authURL, state string) (string, error) {
	ctx, done, err := l.begin(ctx)
	if err != nil {
		return "", err
	}
	defer close(done)

	ln, err := net.Listen("tcp", l.redirect.Host)
	if err != nil {
		return "", fmt.Errorf("%w: failed to listen on %s: %w", shared.ErrAuthFailed, l.redirect.Host, err)
	}

	callback := NewCallbackHandler(l.redirect.Path, state)
	router := NewBasicRouter()
	router.Use(Recover(l.logger), RequestLogger(l.logger))
	router.Handler(callback)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("callback server stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		l.setBaseURL("")
	}()

	l.setBaseURL((&url.URL{Scheme: "http", Host: ln.Addr().String(), Path: l.redirect.Path}).String())
	l.logger.Info("waiting for spotify authorization", "callback", l.redirect.String())

	if err := l.open(authURL); err != nil {
		l.logger.Warn("could not open browser, visit the authorization url manually", "err", err)
		l.logger.Print(authURL)
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case res := <-callback.Result():
		return res.Code, res.Err
	case <-timer.C:
		return "", fmt.Errorf("%w: no authorization callback after %v", shared.ErrTimeout, l.timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", shared.ErrAuthCancelled, context.Cause(ctx))
	}
}

var errSuperseded = errors.New("superseded by a newer authorization session")

// begin cancels any running session, waits for it to release the port, and
// registers a new one.
func (l *Loopback) begin(parent context.Context) (context.Context, chan struct{}, error) {
	l.mu.Lock()
	prevCancel, prevDone := l.cancel, l.done
	l.mu.Unlock()

	if prevCancel != nil {
		l.logger.Debug("cancelling previous authorization session")
		prevCancel()
		select {
		case <-prevDone:
		case <-parent.Done():
			return nil, nil, parent.Err()
		}
	}

	ctx, cancel := context.WithCancelCause(parent)
	done := make(chan struct{})

	l.mu.Lock()
	l.cancel = func() { cancel(errSuperseded) }
	l.done = done
	l.mu.Unlock()

	go func() {
		<-done
		cancel(nil)
		l.mu.Lock()
		if l.done == done {
			l.cancel, l.done = nil, nil
		}
		l.mu.Unlock()
	}()
	return ctx, done, nil
}

func (l *Loopback) setBaseURL(u string) {
	l.mu.Lock()
	l.baseURL = u
	l.mu.Unlock()
}
