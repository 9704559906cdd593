package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// CallbackError is a rejected OAuth callback. Status is the HTTP status to answer with.
type CallbackError struct {
	Status int
	Err    error
}

func (e *CallbackError) Error() string { return e.Err.Error() }
func (e *CallbackError) Unwrap() error { return e.Err }

// ExchangeCallback validates the state of an authorization callback and exchanges its code for a token.
func ExchangeCallback(ctx context.Context, config *oauth2.Config, r *http.Request, expectedState string) (*oauth2.Token, error) {
	query := r.URL.Query()

	if expectedState == "" || query.Get("state") != expectedState {
		return nil, &CallbackError{Status: http.StatusBadRequest, Err: fmt.Errorf("invalid state parameter")}
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("authorization failed: %s - %s", query.Get("error"), query.Get("error_description"))
		return nil, &CallbackError{Status: http.StatusBadRequest, Err: err}
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, &CallbackError{Status: http.StatusBadGateway, Err: fmt.Errorf("token exchange failed: %w", err)}
	}
	return token, nil
}

// OAuthHandler handles a single OAuth2 callback for the CLI authorization flow.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler with the given OAuth2 config and state token.
// The state token should be cryptographically random for CSRF protection.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP exchanges the callback's code and sends the outcome through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	token, err := ExchangeCallback(r.Context(), h.config, r, h.state)
	if err != nil {
		h.Send(OAuthResult{err: err})
		status := http.StatusInternalServerError
		if ce, ok := err.(*CallbackError); ok {
			status = ce.Status
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.Send(OAuthResult{Token: token})
	WriteAuthorized(w, "You can close this window and return to the terminal.")
}

// WriteAuthorized renders the authorization success page with message.
func WriteAuthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, authorizedPage, message)
}

const authorizedPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
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
        <h1>✓ Authorization Successful</h1>
        <p>%s</p>
    </div>
</body>
</html>
`

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
