// package services defines the catalog collaborators used by the setlist import engine
package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// Catalog is the music service the engine searches and writes playlists to.
type Catalog interface {
	// SearchTracks returns at most limit tracks matching query, in the service's order.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.TrackCandidate, error)

	// CurrentUserID returns the ID of the authenticated user.
	CurrentUserID(ctx context.Context) (string, error)

	// CreatePlaylist creates an empty playlist owned by ownerID and returns its ID.
	CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (string, error)

	// AddTracks appends trackIDs to a playlist and returns the resulting snapshot ID.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) (string, error)

	// UserPlaylists lists up to limit playlists of the authenticated user.
	UserPlaylists(ctx context.Context, limit int) ([]models.PlaylistSummary, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService is implemented by catalogs that authorize with the OAuth2 code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	GetOAuthConfig() *oauth2.Config
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// RequestError is a failed catalog call, classified by Kind.
//
// Kind is one of [shared.ErrTokenExpired], [shared.ErrAuthFailed], [shared.ErrRefreshFailed],
// [shared.ErrPlaylistNotFound], [shared.ErrInvalidInput] or [shared.ErrTransport].
type RequestError struct {
	Operation  string
	StatusCode int
	Kind       error
	Err        error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("spotify %s: %v", e.Operation, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// classifyStatus maps an unsuccessful HTTP status to an error kind.
func classifyStatus(status int) error {
	switch {
	case status == 401:
		return shared.ErrTokenExpired
	case status == 403:
		return shared.ErrAuthFailed
	case status == 404:
		return shared.ErrPlaylistNotFound
	case status == 429 || status >= 500:
		return shared.ErrTransport
	default:
		return shared.ErrInvalidInput
	}
}

// classifyTransport maps a failure that produced no HTTP response to an error kind.
func classifyTransport(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return shared.ErrRefreshFailed
	}
	return shared.ErrTransport
}
