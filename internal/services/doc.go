// Package services implements the [Catalog] collaborator for Spotify.
//
// # Catalog Interface
//
// The engine only needs search, playlist creation, track addition, and the append-target listing.
// Test doubles implement the same interface.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The [oauth2.Client] refreshes expired tokens using the refresh token, and the refreshed token
// is handed to the callback set with [SpotifyService.SetTokenRefreshCallback] so it can be saved.
//
// Requests go through a resty client over the OAuth2 transport and are paced by a token-bucket limiter.
//
// # Error Handling
//
// Every failed call returns a [RequestError] whose Kind is a sentinel from the shared package:
//   - [shared.ErrNotAuthenticated] : OAuthenticate() not called
//   - [shared.ErrTokenExpired] : 401, reauthorization needed
//   - [shared.ErrAuthFailed] : 403, missing scope or not the playlist owner
//   - [shared.ErrRefreshFailed] : the token endpoint rejected the refresh token
//   - [shared.ErrTransport] : network failure, 429 or 5xx
//
// Calls are never retried here.
package services
