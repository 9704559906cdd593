package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/h4nsec/SpotiPlay/internal/server"
	"github.com/h4nsec/SpotiPlay/internal/services"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// SpotifyReauth performs the full OAuth2 flow to get new tokens
func (r *Runner) SpotifyReauth(ctx context.Context, srv services.OAuthService) error {
	token, err := r.doOAuth(ctx, srv, "reauthorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Reauthorization successful")
	r.writePlain("✓ New tokens saved to %s\n", r.configPathOrDefault())
	return nil
}

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	config := r.config
	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrInvalidArgument, r.configPathOrDefault())
	}

	svc, ok := r.catalog.(services.OAuthService)
	if !ok {
		spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
		svc = spotifyService
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPathOrDefault())
	r.writePlain("You can now use: spotiplay setlist import <url> --name \"My Setlist\"\n")

	return nil
}

// SpotifyPlaylists lists the user's playlists with optional limit.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireEngine(); err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = r.config.Playlist.ListLimit
	}

	r.logger.Infof("listing spotify playlists with limit %v", limit)

	playlists, err := r.catalog.UserPlaylists(ctx, limit)
	if err != nil {
		if authErr := r.handleSpotifyAuthError(ctx, err); authErr != nil {
			return authErr
		}
		if playlists, err = r.catalog.UserPlaylists(ctx, limit); err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Owner != "" {
			r.writePlain("   Owner: %s\n", p.Owner)
		}
		r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.Public))
		r.writePlain("\n")
	}

	return nil
}

// SpotifyMe prints the authenticated user.
func (r *Runner) SpotifyMe(ctx context.Context, cmd *cli.Command) error {
	svc, ok := r.catalog.(*services.SpotifyService)
	if !ok {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	profile, err := svc.Profile(ctx)
	if err != nil {
		if authErr := r.handleSpotifyAuthError(ctx, err); authErr != nil {
			return authErr
		}
		if profile, err = svc.Profile(ctx); err != nil {
			return err
		}
	}

	r.writePlain("ID: %s\n", profile.ID)
	if profile.DisplayName != "" {
		r.writePlain("Name: %s\n", profile.DisplayName)
	}
	if profile.Email != "" {
		r.writePlain("Email: %s\n", profile.Email)
	}
	return nil
}

// saveTokens stores token in the runner's config and writes the config when a path is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// persistRefreshedTokens saves every token the service obtains by refreshing.
func (r *Runner) persistRefreshedTokens(svc *services.SpotifyService) {
	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("persisted refreshed token", "expiry", token.Expiry)
	})
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := router.Server(serverAddr)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// handleSpotifyAuthError reauthorizes when err is an authentication failure.
//
// Returns nil when the caller should retry, or the error to report.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error) error {
	if err == nil || !shared.IsAuthError(err) {
		return err
	}

	svc, ok := r.catalog.(services.OAuthService)
	if !ok {
		return err
	}

	r.writePlainln("⚠ Spotify authorization is missing or expired. Starting reauthorization...\n")

	if reauthErr := r.SpotifyReauth(ctx, svc); reauthErr != nil {
		return fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	if authErr := svc.OAuthenticate(ctx, r.config.Credentials.Spotify.Token()); authErr != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", authErr)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...\n")
	return nil
}
