package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/casper/internal/shared"
)

// CallbackResult carries the authorization code, or why there is none.
type CallbackResult struct {
	Code string
	Err  error
}

// CallbackHandler receives the authorization redirect for one session.
//
// The first request decides the outcome; later requests get 400.
type CallbackHandler struct {
	path   string
	state  string
	result chan CallbackResult

	mu   sync.Mutex
	done bool
}

// NewCallbackHandler expects a redirect to path carrying state.
func NewCallbackHandler(path, state string) *CallbackHandler {
	if path == "" {
		path = "/"
	}
	return &CallbackHandler{path: path, state: state, result: make(chan CallbackResult, 1)}
}

func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.done = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(CallbackResult{Err: fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if e := q.Get("error"); e != "" {
		err := fmt.Errorf("%w: %s", shared.ErrAuthFailed, e)
		if e == "access_denied" {
			err = shared.ErrAuthCancelled
		}
		h.send(CallbackResult{Err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.send(CallbackResult{Err: fmt.Errorf("%w: callback carried no code", shared.ErrAuthFailed)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.send(CallbackResult{Code: code})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *CallbackHandler) send(res CallbackResult) {
	h.result <- res
	close(h.result)
}

// Result receives exactly one [CallbackResult] and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.result
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Casper is connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Casper is connected to Spotify</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
