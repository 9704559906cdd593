package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/h4nsec/SpotiPlay/internal/selection"
	"github.com/h4nsec/SpotiPlay/internal/server"
	"github.com/h4nsec/SpotiPlay/internal/services"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/web"
)

// Serve runs the web application until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireEngine(); err != nil {
		return err
	}

	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := int(cmd.Int("port"))
	if port == 0 {
		port = r.config.Server.Port
	}

	opts := web.Opts{
		Engine:    r.engine,
		Playlists: r.catalog,
		Codec:     r.codec,
		ListLimit: r.config.Playlist.ListLimit,
		Logger:    r.logger,
	}

	if svc, ok := r.catalog.(*services.SpotifyService); ok {
		sessions, err := r.sessionCodec()
		if err != nil {
			return err
		}
		opts.OAuth = svc.GetOAuthConfig()
		opts.Sessions = sessions
		opts.Connect = r.connectVisitor(svc)
	}

	if repo, closeDB, err := r.openHistory(); err != nil {
		r.logger.Warn("import history unavailable", "error", err)
	} else {
		defer closeDB()
		opts.History = repo
	}

	handler, err := web.New(opts)
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.RecoverMiddleware(r.logger), server.LoggingMiddleware(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := router.Server(addr)

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("serving setlist importer at http://%s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// sessionCodec signs visitor sessions with the configured secret, or a random one.
func (r *Runner) sessionCodec() (*selection.SessionCodec, error) {
	secret := r.config.Server.SessionSecret
	if secret == "" {
		generated, err := shared.GenerateState()
		if err != nil {
			return nil, err
		}
		r.logger.Warn("no session secret configured, visitors will be signed out on restart")
		secret = generated
	}
	return selection.NewSessionCodec([]byte(secret), r.config.Server.SessionTTLDuration()), nil
}

// connectVisitor builds a request-scoped engine on top of a visitor's own Spotify token.
// The config file token stays with the CLI.
func (r *Runner) connectVisitor(base *services.SpotifyService) web.Connector {
	return func(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) (web.Engine, web.PlaylistLister, error) {
		user, err := base.ForUser(ctx, token, onRefresh)
		if err != nil {
			return nil, nil, err
		}
		return r.engineFor(user), user, nil
	}
}
