// Package web serves the browser flow for importing a setlist into a playlist.
//
// The flow is three pages. The index form takes a setlist URL and either a new playlist name or
// one of the user's playlists. Resolve fetches the setlist, searches the catalog for every song and
// renders the candidates as checkboxes. Finalize turns the checked candidates into a
// [models.SelectionRequest] and reconciles it.
//
// No session is kept between resolve and finalize. What was offered travels in a hidden field,
// sealed by a [selection.Codec], and the reconciler rejects any submitted track that was not offered.
//
// With OAuth configured every visitor signs in with their own Spotify account. The visitor's token
// lives in a signed cookie and each request gets collaborators built from it by a [Connector].
// Without OAuth the handler drives one fixed engine.
//
// Routes
//
//	GET  /          → import form
//	POST /resolve   → candidate picker
//	POST /finalize  → reconciliation outcome
//	GET  /login     → redirect to Spotify authorization
//	GET  /callback  → authorization completion
//	GET  /logout    → forget the visitor's token
//	GET  /healthz   → liveness check
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/selection"
	"github.com/h4nsec/SpotiPlay/internal/server"
	"github.com/h4nsec/SpotiPlay/internal/setlist"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	stateCookie   = "spotiplay_oauth_state"
	sessionCookie = "spotiplay_session"
)

// Engine is the part of [tasks.Engine] the web flow drives.
type Engine interface {
	Prepare(ctx context.Context, url string, progress chan<- tasks.ProgressUpdate) (*models.SetlistPage, *models.Resolutions, error)
	Reconcile(ctx context.Context, sel models.SelectionRequest, progress chan<- tasks.ProgressUpdate) (*models.ReconciliationResult, error)
}

// PlaylistLister lists the user's playlists for the append target picker.
type PlaylistLister interface {
	UserPlaylists(ctx context.Context, limit int) ([]models.PlaylistSummary, error)
}

// HistoryRecorder stores reconciliation outcomes.
type HistoryRecorder interface {
	Create(record *models.ImportRecord) error
}

// Connector builds the engine and playlist listing for one visitor's token.
//
// onRefresh receives every token refreshed while the request is served.
type Connector func(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (Engine, PlaylistLister, error)

// SessionStore seals a visitor's token into the session cookie value.
type SessionStore interface {
	SealToken(token *oauth2.Token) (string, error)
	OpenToken(value string) (*oauth2.Token, error)
	TTL() time.Duration
}

// Opts configures a [Handler].
type Opts struct {
	Engine    Engine          // used when OAuth is nil
	Playlists PlaylistLister  // used when OAuth is nil
	Codec     selection.Codec // nil trusts the round trip
	History   HistoryRecorder // optional
	ListLimit int

	OAuth    *oauth2.Config // enables per-visitor sign in
	Connect  Connector      // required with OAuth
	Sessions SessionStore   // required with OAuth

	Logger *log.Logger
}

// Handler implements [server.Handler] for the import flow.
type Handler struct {
	engine    Engine
	playlists PlaylistLister
	codec     selection.Codec
	history   HistoryRecorder
	listLimit int
	oauth     *oauth2.Config
	connect   Connector
	sessions  SessionStore
	logger    *log.Logger

	tmpl *template.Template
	mux  *http.ServeMux
}

// New parses the embedded templates and returns a Handler.
func New(opts Opts) (*Handler, error) {
	if opts.OAuth == nil && opts.Engine == nil {
		return nil, errors.New("web: engine is required")
	}
	if opts.OAuth != nil && (opts.Connect == nil || opts.Sessions == nil) {
		return nil, errors.New("web: oauth requires a connector and a session store")
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 10
	}

	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	h := &Handler{
		engine:    opts.Engine,
		playlists: opts.Playlists,
		codec:     opts.Codec,
		history:   opts.History,
		listLimit: opts.ListLimit,
		oauth:     opts.OAuth,
		connect:   opts.Connect,
		sessions:  opts.Sessions,
		logger:    shared.WithLogger(opts.Logger, "component", "web"),
		tmpl:      tmpl,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /{$}", h.index)
	h.mux.HandleFunc("POST /resolve", h.resolve)
	h.mux.HandleFunc("POST /finalize", h.finalize)
	h.mux.HandleFunc("GET /login", h.login)
	h.mux.HandleFunc("GET /callback", h.callback)
	h.mux.HandleFunc("GET /logout", h.logout)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	return h, nil
}

// Routes returns the patterns served by the handler.
func (h *Handler) Routes() []string {
	return []string{"/", "/resolve", "/finalize", "/login", "/callback", "/logout", "/healthz"}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	_, lister, err := h.account(w, r)
	if err != nil {
		if shared.IsAuthError(err) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.fail(w, statusFor(err), err)
		return
	}

	view := indexView{SignedIn: h.oauth != nil}

	if lister != nil {
		playlists, err := lister.UserPlaylists(r.Context(), h.listLimit)
		switch {
		case err == nil:
			view.Playlists = playlists
		case shared.IsAuthError(err) && h.oauth != nil:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		default:
			h.logger.Warn("could not list playlists", "error", err)
			view.PlaylistError = "Your playlists could not be loaded. You can still create a new playlist."
		}
	}

	h.render(w, http.StatusOK, "index", view)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}

	setlistURL := strings.TrimSpace(r.PostForm.Get("setlist_url"))
	name := strings.TrimSpace(r.PostForm.Get("playlist_name"))
	target := strings.TrimSpace(r.PostForm.Get("playlist_id"))

	if setlistURL == "" {
		h.fail(w, http.StatusBadRequest, errors.New("a setlist URL is required"))
		return
	}
	if err := (models.SelectionRequest{NewPlaylistName: name, TargetPlaylistID: target}).Validate(); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}

	engine, _, err := h.account(w, r)
	if err != nil {
		h.fail(w, statusFor(err), err)
		return
	}

	start := time.Now()
	page, resolutions, err := engine.Prepare(r.Context(), setlistURL, nil)
	if err != nil {
		h.fail(w, statusFor(err), err)
		return
	}

	view := resolveView{
		Artist:       page.Artist,
		SetlistURL:   setlistURL,
		PlaylistName: name,
		PlaylistID:   target,
		IsUpdate:     target != "",
		Songs:        resolutions.All(),
		Unsearchable: resolutions.Unsearchable,
		Matched:      resolutions.MatchedCount(),
	}

	if h.codec != nil {
		token, err := h.codec.Seal(r.Context(), resolutions.Offer())
		if err != nil {
			h.fail(w, http.StatusInternalServerError, err)
			return
		}
		view.Offer = token
	}

	h.logger.Info("resolved setlist",
		"artist", page.Artist,
		"songs", resolutions.Len(),
		"matched", view.Matched,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	h.render(w, http.StatusOK, "resolve", view)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}

	form := r.PostForm
	ids := form["selected_tracks"]
	if len(ids) == 0 {
		h.fail(w, http.StatusBadRequest, errors.New("no tracks were selected"))
		return
	}

	sel := models.SelectionRequest{TrackIDs: ids}
	if form.Get("is_update") == "true" {
		sel.TargetPlaylistID = form.Get("playlist_id")
	} else {
		sel.NewPlaylistName = form.Get("playlist_name")
	}

	engine, _, err := h.account(w, r)
	if err != nil {
		h.fail(w, statusFor(err), err)
		return
	}

	offerToken := form.Get("offer")
	if h.codec != nil {
		offer, err := h.codec.Open(r.Context(), offerToken)
		if err != nil {
			h.fail(w, http.StatusBadRequest, err)
			return
		}
		sel.Offer = offer
	}

	setlistURL := form.Get("setlist_url")
	artist := form.Get("artist")
	if sel.Offer != nil {
		setlistURL, artist = sel.Offer.URL, sel.Offer.Artist
	}

	result, err := engine.Reconcile(r.Context(), sel, nil)
	if err != nil {
		if rerr, ok := tasks.AsReconcileError(err); ok && rerr.Kind == tasks.PartialAdd {
			h.discardOffer(r.Context(), offerToken)
			h.record(setlistURL, artist, &models.ReconciliationResult{
				Mode:         models.ModeCreated,
				PlaylistID:   rerr.PlaylistID,
				PlaylistName: strings.TrimSpace(sel.NewPlaylistName),
			})
			h.render(w, http.StatusBadGateway, "partial", partialView{
				PlaylistID:   rerr.PlaylistID,
				PlaylistName: strings.TrimSpace(sel.NewPlaylistName),
				Message:      err.Error(),
			})
			return
		}
		h.fail(w, statusFor(err), err)
		return
	}

	h.discardOffer(r.Context(), offerToken)
	h.record(setlistURL, artist, result)
	h.render(w, http.StatusOK, "result", resultView{Result: result, Artist: artist})
}

// discardOffer invalidates a used offer token when the codec supports it.
func (h *Handler) discardOffer(ctx context.Context, token string) {
	d, ok := h.codec.(selection.Discarder)
	if !ok || token == "" {
		return
	}
	if err := d.Discard(ctx, token); err != nil {
		h.logger.Warn("failed to discard offer", "error", err)
	}
}

// account returns the collaborators acting for the visitor of r.
//
// Tokens refreshed while serving r are written back to the session cookie, so callers must not
// have written the response header yet.
func (h *Handler) account(w http.ResponseWriter, r *http.Request) (Engine, PlaylistLister, error) {
	if h.oauth == nil {
		return h.engine, h.playlists, nil
	}

	var value string
	if c, err := r.Cookie(sessionCookie); err == nil {
		value = c.Value
	}
	token, err := h.sessions.OpenToken(value)
	if err != nil {
		return nil, nil, err
	}

	var mu sync.Mutex
	onRefresh := func(refreshed *oauth2.Token) {
		mu.Lock()
		defer mu.Unlock()
		h.setSession(w, r, refreshed)
	}
	return h.connect(r.Context(), token, onRefresh)
}

func (h *Handler) setSession(w http.ResponseWriter, r *http.Request, token *oauth2.Token) error {
	value, err := h.sessions.SealToken(token)
	if err != nil {
		h.logger.Warn("could not seal session", "error", err)
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) record(url, artist string, result *models.ReconciliationResult) {
	if h.history == nil {
		return
	}
	if err := h.history.Create(models.NewImportRecord(url, artist, result)); err != nil {
		h.logger.Warn("failed to record import", "playlist", result.PlaylistID, "error", err)
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.fail(w, http.StatusNotFound, errors.New("authorization is not configured"))
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.fail(w, http.StatusNotFound, errors.New("authorization is not configured"))
		return
	}

	var expected string
	if c, err := r.Cookie(stateCookie); err == nil {
		expected = c.Value
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	token, err := server.ExchangeCallback(r.Context(), h.oauth, r, expected)
	if err != nil {
		status := http.StatusBadRequest
		var ce *server.CallbackError
		if errors.As(err, &ce) {
			status = ce.Status
		}
		h.fail(w, status, err)
		return
	}

	if err := h.setSession(w, r, token); err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}

	h.logger.Info("visitor authorized with spotify")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("template failed", "template", name, "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	} else {
		h.logger.Warn("request rejected", "status", status, "error", err)
	}
	h.render(w, status, "error", errorView{
		Status:  status,
		Title:   http.StatusText(status),
		Message: err.Error(),
		Login:   status == http.StatusUnauthorized && h.oauth != nil,
	})
}

// statusFor maps engine and collaborator errors to HTTP status codes.
func statusFor(err error) int {
	if _, ok := setlist.IsParseError(err); ok {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return http.StatusNotFound
	}
	if rerr, ok := tasks.AsReconcileError(err); ok {
		switch rerr.Kind {
		case tasks.InvalidSelection:
			return http.StatusBadRequest
		case tasks.Upstream:
			if shared.IsAuthError(err) {
				return http.StatusUnauthorized
			}
			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, shared.ErrInvalidSelection),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case shared.IsAuthError(err):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrFetchFailed), errors.Is(err, shared.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
