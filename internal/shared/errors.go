package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrTransport          = fmt.Errorf("transport failure")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrRecordNotFound     = fmt.Errorf("record not found")

	// Setlist page errors
	ErrNoArtist      = fmt.Errorf("setlist page has no artist")
	ErrNoSongs       = fmt.Errorf("setlist page has no songs")
	ErrMalformedPage = fmt.Errorf("malformed setlist page")
	ErrFetchFailed   = fmt.Errorf("setlist fetch failed")

	// Reconciliation errors
	ErrPartialAdd       = fmt.Errorf("playlist created but tracks were not added")
	ErrUpstream         = fmt.Errorf("upstream request failed")
	ErrInvalidSelection = fmt.Errorf("invalid selection")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsAuthError reports whether err was caused by an invalid, expired, or unrefreshable credential.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrRefreshFailed) ||
		errors.Is(err, ErrNotAuthenticated)
}
