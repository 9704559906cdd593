package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/h4nsec/SpotiPlay/internal/shared"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"redirect_uri":  "http://127.0.0.1:3000/callback",
	}
}

// newTestService returns a service authenticated against handler.
func newTestService(t *testing.T, handler http.Handler) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testCredentials())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	srv.SetLogger(shared.NewLogger(io.Discard))
	srv.SetBaseURL(server.URL)

	token := &oauth2.Token{AccessToken: "test_access_token", Expiry: time.Now().Add(time.Hour)}
	if err := srv.OAuthenticate(context.Background(), token); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	return srv
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}

			scopes := strings.Join(srv.GetOAuthConfig().Scopes, " ")
			if !strings.Contains(scopes, "playlist-modify-public") {
				t.Errorf("expected playlist-modify-public scope, got %s", scopes)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://127.0.0.1:3000/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("OAuthenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if err := srv.OAuthenticate(context.Background(), nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated for nil token, got %v", err)
		}

		if _, err := srv.SearchTracks(context.Background(), "q", 5); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated before authentication, got %v", err)
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		var gotQuery, gotLimit, gotAuth string
		srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			gotLimit = r.URL.Query().Get("limit")
			gotAuth = r.Header.Get("Authorization")

			items := []map[string]any{}
			for i := range 7 {
				items = append(items, map[string]any{
					"id":          fmt.Sprintf("t%d", i),
					"name":        fmt.Sprintf("Song %d", i),
					"uri":         fmt.Sprintf("spotify:track:t%d", i),
					"duration_ms": 185000,
					"artists":     []map[string]any{{"name": "Test Band"}, {"name": "Guest"}},
					"album":       map[string]any{"name": "Live"},
				})
			}
			writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": items}})
		}))

		got, err := srv.SearchTracks(context.Background(), `Song A artist:"Test Band"`, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotQuery != `Song A artist:"Test Band"` {
			t.Errorf("unexpected query %q", gotQuery)
		}
		if gotLimit != "5" {
			t.Errorf("expected limit 5, got %s", gotLimit)
		}
		if gotAuth != "Bearer test_access_token" {
			t.Errorf("expected bearer token, got %q", gotAuth)
		}
		if len(got) != 5 {
			t.Fatalf("expected results truncated to 5, got %d", len(got))
		}
		if got[0].ID != "spotify:track:t0" {
			t.Errorf("expected track URI as ID, got %s", got[0].ID)
		}
		if got[0].Artist != "Test Band, Guest" {
			t.Errorf("unexpected artist %q", got[0].Artist)
		}
		if got[0].DisplayMeta != "Live · 3:05" {
			t.Errorf("unexpected display meta %q", got[0].DisplayMeta)
		}
	})

	t.Run("Error Classification", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			want   error
		}{
			{name: "unauthorized", status: http.StatusUnauthorized, want: shared.ErrTokenExpired},
			{name: "forbidden", status: http.StatusForbidden, want: shared.ErrAuthFailed},
			{name: "not found", status: http.StatusNotFound, want: shared.ErrPlaylistNotFound},
			{name: "rate limited", status: http.StatusTooManyRequests, want: shared.ErrTransport},
			{name: "server error", status: http.StatusBadGateway, want: shared.ErrTransport},
			{name: "bad request", status: http.StatusBadRequest, want: shared.ErrInvalidInput},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, tt.status, map[string]any{"error": map[string]any{"status": tt.status, "message": "nope"}})
				}))

				_, err := srv.SearchTracks(context.Background(), "q", 5)
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}

				var reqErr *RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("expected RequestError, got %T", err)
				}
				if reqErr.StatusCode != tt.status {
					t.Errorf("expected status %d, got %d", tt.status, reqErr.StatusCode)
				}
				if !strings.Contains(err.Error(), "nope") {
					t.Errorf("expected API message in error, got %q", err.Error())
				}
			})
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := server.URL
		server.Close()

		srv, _ := NewSpotifyService(testCredentials())
		srv.SetLogger(shared.NewLogger(io.Discard))
		srv.SetBaseURL(addr)
		_ = srv.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)})

		_, err := srv.CurrentUserID(context.Background())
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]any
		srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			writeJSON(w, http.StatusCreated, map[string]any{"id": "pl123", "name": gotBody["name"]})
		}))

		id, err := srv.CreatePlaylist(context.Background(), "user1", "Live 2024", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "pl123" {
			t.Errorf("expected pl123, got %s", id)
		}
		if gotPath != "/users/user1/playlists" {
			t.Errorf("unexpected path %s", gotPath)
		}
		if gotBody["name"] != "Live 2024" || gotBody["public"] != true {
			t.Errorf("unexpected body %v", gotBody)
		}
	})

	t.Run("AddTracks Batches", func(t *testing.T) {
		var calls atomic.Int32
		var sizes []int
		srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			var body struct {
				URIs []string `json:"uris"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			sizes = append(sizes, len(body.URIs))
			if !strings.HasPrefix(body.URIs[0], "spotify:track:") {
				t.Errorf("expected track URIs, got %s", body.URIs[0])
			}
			writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": fmt.Sprintf("snap%d", n)})
		}))

		ids := make([]string, 0, 150)
		for i := range 150 {
			ids = append(ids, fmt.Sprintf("t%d", i))
		}

		snapshot, err := srv.AddTracks(context.Background(), "pl1", ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 2 {
			t.Fatalf("expected 2 batches, got %d", calls.Load())
		}
		if sizes[0] != 100 || sizes[1] != 50 {
			t.Errorf("unexpected batch sizes %v", sizes)
		}
		if snapshot != "snap2" {
			t.Errorf("expected last snapshot, got %s", snapshot)
		}
	})

	t.Run("AddTracks Empty", func(t *testing.T) {
		var calls atomic.Int32
		srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))

		if _, err := srv.AddTracks(context.Background(), "pl1", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no request, got %d", calls.Load())
		}
	})

	t.Run("UserPlaylists", func(t *testing.T) {
		var gotLimit string
		srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotLimit = r.URL.Query().Get("limit")
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"id": "p1", "name": "Road Trip", "public": true, "tracks": map[string]any{"total": 12}, "owner": map[string]any{"display_name": "me"}},
					{"id": "p2", "name": "Private", "public": false, "tracks": map[string]any{"total": 3}},
				},
			})
		}))

		got, err := srv.UserPlaylists(context.Background(), 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotLimit != "10" {
			t.Errorf("expected limit 10, got %s", gotLimit)
		}
		if len(got) != 2 || got[0].Name != "Road Trip" || got[0].TrackCount != 12 || got[1].Public {
			t.Errorf("unexpected playlists %+v", got)
		}
	})

	t.Run("Token Refresh", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "refreshed",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "new_refresh",
			})
		}))
		defer tokenServer.Close()

		var gotAuth string
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, map[string]any{"id": "user1"})
		}))
		defer api.Close()

		srv, _ := NewSpotifyService(testCredentials())
		srv.SetLogger(shared.NewLogger(io.Discard))
		srv.SetBaseURL(api.URL)
		srv.config.Endpoint.TokenURL = tokenServer.URL

		var refreshed *oauth2.Token
		srv.SetTokenRefreshCallback(func(tok *oauth2.Token) { refreshed = tok })

		expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
		if err := srv.OAuthenticate(context.Background(), expired); err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		id, err := srv.CurrentUserID(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "user1" {
			t.Errorf("expected user1, got %s", id)
		}
		if gotAuth != "Bearer refreshed" {
			t.Errorf("expected refreshed token on request, got %q", gotAuth)
		}
		if refreshed == nil || refreshed.AccessToken != "refreshed" {
			t.Fatalf("expected refresh callback with new token, got %+v", refreshed)
		}
	})

	t.Run("ForUser", func(t *testing.T) {
		var seen []string
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			seen = append(seen, auth)
			writeJSON(w, http.StatusOK, map[string]any{"id": strings.TrimPrefix(auth, "Bearer ")})
		}))
		defer api.Close()

		base, _ := NewSpotifyService(testCredentials())
		base.SetLogger(shared.NewLogger(io.Discard))
		base.SetBaseURL(api.URL)

		expiry := time.Now().Add(time.Hour)
		alice, err := base.ForUser(context.Background(), &oauth2.Token{AccessToken: "alice", Expiry: expiry}, nil)
		if err != nil {
			t.Fatalf("failed to authorize alice: %v", err)
		}
		bob, err := base.ForUser(context.Background(), &oauth2.Token{AccessToken: "bob", Expiry: expiry}, nil)
		if err != nil {
			t.Fatalf("failed to authorize bob: %v", err)
		}

		if id, _ := alice.CurrentUserID(context.Background()); id != "alice" {
			t.Errorf("expected alice after bob authorized, got %q", id)
		}
		if id, _ := bob.CurrentUserID(context.Background()); id != "bob" {
			t.Errorf("expected bob, got %q", id)
		}

		if _, err := base.CurrentUserID(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected the shared service to stay unauthenticated, got %v", err)
		}
		if len(seen) != 2 {
			t.Errorf("expected 2 API calls, got %v", seen)
		}

		if _, err := base.ForUser(context.Background(), nil, nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated for nil token, got %v", err)
		}
	})

	t.Run("ForUser Refresh", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "carol-2", "token_type": "Bearer", "expires_in": 3600})
		}))
		defer tokenServer.Close()

		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "carol"})
		}))
		defer api.Close()

		base, _ := NewSpotifyService(testCredentials())
		base.SetLogger(shared.NewLogger(io.Discard))
		base.SetBaseURL(api.URL)
		base.config.Endpoint.TokenURL = tokenServer.URL

		var baseTok, own *oauth2.Token
		base.SetTokenRefreshCallback(func(tok *oauth2.Token) { baseTok = tok })

		expired := &oauth2.Token{AccessToken: "carol-1", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)}
		user, err := base.ForUser(context.Background(), expired, func(tok *oauth2.Token) { own = tok })
		if err != nil {
			t.Fatalf("failed to authorize: %v", err)
		}
		if _, err := user.CurrentUserID(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if own == nil || own.AccessToken != "carol-2" {
			t.Errorf("expected refreshed token on the user callback, got %+v", own)
		}
		if baseTok != nil {
			t.Errorf("expected the shared callback not to fire, got %+v", baseTok)
		}
	})

	t.Run("Refresh Failure", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
		}))
		defer tokenServer.Close()

		srv, _ := NewSpotifyService(testCredentials())
		srv.SetLogger(shared.NewLogger(io.Discard))
		srv.SetBaseURL("http://127.0.0.1:1")
		srv.config.Endpoint.TokenURL = tokenServer.URL

		expired := &oauth2.Token{AccessToken: "old", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)}
		_ = srv.OAuthenticate(context.Background(), expired)

		_, err := srv.SearchTracks(context.Background(), "q", 5)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if !shared.IsAuthError(err) {
			t.Error("refresh failure should count as an auth error")
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{}}})
		}))
		srv.SetRateLimit(1)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := srv.SearchTracks(ctx, "q", 5); err != nil {
			t.Fatalf("first request should pass: %v", err)
		}
		if _, err := srv.SearchTracks(ctx, "q", 5); !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected limiter wait to fail within deadline, got %v", err)
		}
	})
}

func TestTrackURI(t *testing.T) {
	tc := []struct {
		name string
		ref  string
		want string
	}{
		{name: "bare id", ref: "4uLU6hMCjMI75M1A2tKUQC", want: "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{name: "uri", ref: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", want: "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{name: "link with query", ref: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=1a2b", want: "spotify:track:4uLU6hMCjMI75M1A2tKUQC"},
		{name: "padded id", ref: " abc ", want: "spotify:track:abc"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrackURI(tt.ref); got != tt.want {
				t.Errorf("TrackURI(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}
