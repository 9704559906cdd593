// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	maxSearchLimit = 50
	addTracksBatch = 100
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifySnapshot struct {
	SnapshotID string `json:"snapshot_id"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements [Catalog] and [OAuthService] for the Spotify Web API.
type SpotifyService struct {
	config         *oauth2.Config
	baseURL        string
	limiter        *rate.Limiter
	logger         *log.Logger
	mu             sync.RWMutex
	token          *oauth2.Token
	client         *resty.Client
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:  config,
		baseURL: spotifyBaseURL,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  shared.NewLogger(nil),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetLogger replaces the service logger.
func (s *SpotifyService) SetLogger(l *log.Logger) {
	s.logger = l
}

// SetBaseURL points API requests at another host. Call before OAuthenticate.
func (s *SpotifyService) SetBaseURL(u string) {
	s.baseURL = strings.TrimRight(u, "/")
}

// SetRateLimit caps requests per second. Zero or less disables the limit.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps <= 0 {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	burst := max(int(rps), 1)
	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// SetTokenRefreshCallback registers fn to receive every token the OAuth2 transport obtains by refreshing.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration used for the code exchange.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// OAuthenticate installs token and builds the refreshing HTTP client.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: no access token", shared.ErrNotAuthenticated)
	}

	// The token source outlives the request that created it.
	base := context.WithoutCancel(ctx)
	src := &notifyingTokenSource{
		base:   s.config.TokenSource(base, token),
		last:   token.AccessToken,
		notify: s.notifyRefresh,
	}
	httpClient := oauth2.NewClient(base, oauth2.ReuseTokenSource(token, src))

	client := resty.NewWithClient(httpClient).
		SetBaseURL(s.baseURL).
		SetHeader("Accept", "application/json")

	s.mu.Lock()
	s.token = token
	s.client = client
	s.mu.Unlock()
	return nil
}

// ForUser returns a service authorized with token that shares this service's client credentials,
// base URL, rate limiter and logger. Tokens refreshed by the returned service are passed to onRefresh
// and never change the receiver.
func (s *SpotifyService) ForUser(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (*SpotifyService, error) {
	user := &SpotifyService{
		config:         s.config,
		baseURL:        s.baseURL,
		limiter:        s.limiter,
		logger:         s.logger,
		onTokenRefresh: onRefresh,
	}
	if err := user.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SpotifyService) notifyRefresh(token *oauth2.Token) {
	s.mu.Lock()
	s.token = token
	fn := s.onTokenRefresh
	s.mu.Unlock()

	s.logger.Debug("spotify token refreshed", "expiry", token.Expiry)
	if fn != nil {
		fn(token)
	}
}

// notifyingTokenSource reports tokens that differ from the last one seen.
type notifyingTokenSource struct {
	base   oauth2.TokenSource
	mu     sync.Mutex
	last   string
	notify func(*oauth2.Token)
}

func (n *notifyingTokenSource) Token() (*oauth2.Token, error) {
	token, err := n.base.Token()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	changed := token.AccessToken != n.last
	n.last = token.AccessToken
	n.mu.Unlock()

	if changed && n.notify != nil {
		n.notify(token)
	}
	return token, nil
}

// request returns a request bound to ctx once the limiter admits it.
func (s *SpotifyService) request(ctx context.Context, op string) (*resty.Request, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return nil, &RequestError{Operation: op, Kind: shared.ErrNotAuthenticated}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &RequestError{Operation: op, Kind: shared.ErrTransport, Err: err}
	}

	return client.R().SetContext(ctx).SetError(&spotifyErrorBody{}), nil
}

// check converts a resty outcome into a [RequestError].
func (s *SpotifyService) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		s.logger.Debug("spotify request failed", "op", op, "error", err)
		return &RequestError{Operation: op, Kind: classifyTransport(err), Err: err}
	}

	if !resp.IsError() {
		return nil
	}

	reqErr := &RequestError{Operation: op, StatusCode: resp.StatusCode(), Kind: classifyStatus(resp.StatusCode())}
	if body, ok := resp.Error().(*spotifyErrorBody); ok && body.Error.Message != "" {
		reqErr.Err = fmt.Errorf("%s", body.Error.Message)
	}
	s.logger.Debug("spotify request rejected", "op", op, "status", resp.StatusCode())
	return reqErr
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	req, err := s.request(ctx, "profile")
	if err != nil {
		return nil, err
	}

	var user SpotifyUser
	resp, err := req.SetResult(&user).Get("/me")
	if err := s.check("profile", resp, err); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile returns the current user as a [models.UserProfile].
func (s *SpotifyService) Profile(ctx context.Context) (*models.UserProfile, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
}

// CurrentUserID returns the ID of the authenticated user.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// SearchTracks runs a track search and returns at most limit candidates in Spotify's order.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.TrackCandidate, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	req, err := s.request(ctx, "search")
	if err != nil {
		return nil, err
	}

	var result spotifySearchResponse
	resp, err := req.
		SetQueryParams(map[string]string{
			"q":     query,
			"type":  "track",
			"limit": fmt.Sprint(limit),
		}).
		SetResult(&result).
		Get("/search")
	if err := s.check("search", resp, err); err != nil {
		return nil, err
	}

	items := result.Tracks.Items
	if len(items) > limit {
		items = items[:limit]
	}

	candidates := make([]models.TrackCandidate, 0, len(items))
	for _, t := range items {
		candidates = append(candidates, toCandidate(t))
	}
	return candidates, nil
}

// CreatePlaylist creates an empty playlist for ownerID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (string, error) {
	req, err := s.request(ctx, "create playlist")
	if err != nil {
		return "", err
	}

	var playlist SpotifySimplePlaylist
	resp, err := req.
		SetPathParam("user_id", ownerID).
		SetBody(map[string]any{"name": name, "public": public}).
		SetResult(&playlist).
		Post("/users/{user_id}/playlists")
	if err := s.check("create playlist", resp, err); err != nil {
		return "", err
	}

	s.logger.Info("created playlist", "id", playlist.ID, "name", name, "public", public)
	return playlist.ID, nil
}

// AddTracks appends trackIDs in batches of 100 and returns the last snapshot ID.
//
// A failure part way leaves earlier batches in place.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (string, error) {
	var snapshot string
	for start := 0; start < len(trackIDs); start += addTracksBatch {
		end := min(start+addTracksBatch, len(trackIDs))

		uris := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			uris = append(uris, TrackURI(id))
		}

		req, err := s.request(ctx, "add tracks")
		if err != nil {
			return snapshot, err
		}

		var result spotifySnapshot
		resp, err := req.
			SetPathParam("playlist_id", playlistID).
			SetBody(map[string]any{"uris": uris}).
			SetResult(&result).
			Post("/playlists/{playlist_id}/tracks")
		if err := s.check("add tracks", resp, err); err != nil {
			return snapshot, err
		}
		snapshot = result.SnapshotID
	}

	s.logger.Info("added tracks", "playlist", playlistID, "count", len(trackIDs))
	return snapshot, nil
}

// UserPlaylists lists up to limit of the current user's playlists (Spotify caps a page at 50).
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit int) ([]models.PlaylistSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	req, err := s.request(ctx, "list playlists")
	if err != nil {
		return nil, err
	}

	var page SpotifyPaginatedPlaylists
	resp, err := req.
		SetQueryParams(map[string]string{"limit": fmt.Sprint(limit), "offset": "0"}).
		SetResult(&page).
		Get("/me/playlists")
	if err := s.check("list playlists", resp, err); err != nil {
		return nil, err
	}

	playlists := make([]models.PlaylistSummary, 0, len(page.Items))
	for _, p := range page.Items {
		playlists = append(playlists, models.PlaylistSummary{
			ID:         p.ID,
			Name:       p.Name,
			TrackCount: p.Tracks.Total,
			Public:     p.Public,
			Owner:      p.Owner.DisplayName,
		})
	}
	return playlists, nil
}

func toCandidate(t SpotifyTrack) models.TrackCandidate {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	id := t.URI
	if id == "" {
		id = TrackURI(t.ID)
	}

	meta := shared.FormatDuration(t.DurationMS / 1000)
	if t.Album.Name != "" {
		meta = t.Album.Name + " · " + meta
	}
	if t.Explicit {
		meta += " · explicit"
	}

	return models.TrackCandidate{
		ID:          id,
		Title:       t.Name,
		Artist:      strings.Join(names, ", "),
		DisplayMeta: meta,
	}
}

// TrackURI turns a track reference into a spotify:track: URI. It accepts bare IDs, URIs, and
// open.spotify.com/track links with or without a query string.
func TrackURI(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "spotify:") {
		return ref
	}
	if u, err := url.Parse(ref); err == nil && u.Host == "open.spotify.com" {
		if id, ok := strings.CutPrefix(u.Path, "/track/"); ok && id != "" {
			return "spotify:track:" + strings.TrimSuffix(id, "/")
		}
	}
	return "spotify:track:" + ref
}
