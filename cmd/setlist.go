package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/h4nsec/SpotiPlay/internal/formatter"
	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/services"
	"github.com/h4nsec/SpotiPlay/internal/setlist"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/tasks"
)

// SetlistParse fetches a setlist page and prints its artist and raw song titles.
func (r *Runner) SetlistParse(ctx context.Context, cmd *cli.Command) error {
	url, err := urlArg(cmd)
	if err != nil {
		return err
	}

	page, err := r.fetcher.Load(ctx, url)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	r.writePlainHeader(page.Artist)
	for i, title := range page.RawTitles {
		normalized := setlist.Normalize(title)
		if normalized == "" {
			r.writePlain("%2d. %s (unsearchable)\n", i+1, title)
			continue
		}
		r.writePlain("%2d. %s\n", i+1, normalized)
	}
	return nil
}

// SetlistResolve searches the catalog for every song of a setlist and writes the candidates.
func (r *Runner) SetlistResolve(ctx context.Context, cmd *cli.Command) error {
	url, err := urlArg(cmd)
	if err != nil {
		return err
	}

	if n := int(cmd.Int("max")); n > 0 {
		r.config.Resolver.MaxCandidates = n
		r.buildEngine()
	}

	if err := r.requireEngine(); err != nil {
		return err
	}

	resolutions, err := r.prepare(ctx, url)
	if err != nil {
		return err
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteResolutions(resolutions, format, path)
		if err != nil {
			return err
		}
		r.writePlain("✓ Wrote %d songs to %s\n", resolutions.Len(), written)
		return nil
	}

	data, err := formatter.FormatResolutions(resolutions, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// SetlistImport resolves a setlist and reconciles the chosen tracks with a new or existing playlist.
//
// Without --track the first candidate of every matched song is used.
func (r *Runner) SetlistImport(ctx context.Context, cmd *cli.Command) error {
	url, err := urlArg(cmd)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(cmd.String("name"))
	playlistID := strings.TrimSpace(cmd.String("playlist-id"))

	if cmd.Bool("interactive") {
		return r.runTUI(ctx, url, name, playlistID)
	}

	if (name == "") == (playlistID == "") {
		return fmt.Errorf("%w: exactly one of --name or --playlist-id is required", shared.ErrMissingArgument)
	}

	if err := r.requireEngine(); err != nil {
		return err
	}

	resolutions, err := r.prepare(ctx, url)
	if err != nil {
		return err
	}

	for _, title := range resolutions.Unsearchable {
		r.writePlain("⚠ Skipping unsearchable title %q\n", title)
	}

	var trackIDs []string
	for _, ref := range cmd.StringSlice("track") {
		trackIDs = append(trackIDs, services.TrackURI(ref))
	}
	if len(trackIDs) == 0 {
		trackIDs = firstCandidates(resolutions)
	}

	sel := models.SelectionRequest{
		TrackIDs:         trackIDs,
		NewPlaylistName:  name,
		TargetPlaylistID: playlistID,
		Offer:            resolutions.Offer(),
	}
	if cmd.Bool("private") {
		public := false
		sel.Public = &public
	}

	result, err := r.reconcile(ctx, sel)
	if err != nil {
		if rerr, ok := tasks.AsReconcileError(err); ok && rerr.Kind == tasks.PartialAdd {
			r.recordImport(url, resolutions.Artist, &models.ReconciliationResult{
				Mode:         models.ModeCreated,
				PlaylistID:   rerr.PlaylistID,
				PlaylistName: name,
			})
			r.writePlain("⚠ Playlist %s was created but no tracks were added\n", rerr.PlaylistID)
		}
		return err
	}

	r.recordImport(url, resolutions.Artist, result)

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("%s\n", formatter.ResultToText(result))
	return nil
}

// prepare fetches and resolves url, printing progress as it goes.
func (r *Runner) prepare(ctx context.Context, url string) (*models.Resolutions, error) {
	run := func() (*models.Resolutions, error) {
		progressCh := make(chan tasks.ProgressUpdate, 50)
		done := r.printProgress(progressCh)
		_, resolutions, err := r.engine.Prepare(ctx, url, progressCh)
		close(progressCh)
		<-done
		return resolutions, err
	}

	resolutions, err := run()
	if err == nil {
		return resolutions, nil
	}

	if authErr := r.handleSpotifyAuthError(ctx, err); authErr != nil {
		return nil, authErr
	}
	return run()
}

// reconcile applies sel, printing progress as it goes.
//
// Authorization failures trigger one reauthorization and retry.
func (r *Runner) reconcile(ctx context.Context, sel models.SelectionRequest) (*models.ReconciliationResult, error) {
	run := func() (*models.ReconciliationResult, error) {
		progressCh := make(chan tasks.ProgressUpdate, 10)
		done := r.printProgress(progressCh)
		result, err := r.engine.Reconcile(ctx, sel, progressCh)
		close(progressCh)
		<-done
		return result, err
	}

	result, err := run()
	if err == nil || !shared.IsAuthError(err) || errors.Is(err, shared.ErrPartialAdd) {
		return result, err
	}

	if authErr := r.handleSpotifyAuthError(ctx, err); authErr != nil {
		return nil, authErr
	}
	return run()
}

// printProgress writes updates until progressCh is closed, then closes the returned channel.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSetlist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SearchTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.CreatePlaylist:
				r.writePlain("\n📝 %s\n", update.Message)
			case tasks.AddTracks:
				r.writePlain("➕ %s\n", update.Message)
			}
		}
	}()
	return done
}

// recordImport stores the outcome in the history database, warning on failure.
func (r *Runner) recordImport(url, artist string, result *models.ReconciliationResult) {
	repo, closeDB, err := r.openHistory()
	if err != nil {
		r.logger.Warn("import history unavailable", "error", err)
		return
	}
	defer closeDB()

	if err := repo.Create(models.NewImportRecord(url, artist, result)); err != nil {
		r.logger.Warn("failed to record import", "error", err)
	}
}

// firstCandidates returns the top candidate of every matched song in setlist order.
func firstCandidates(resolutions *models.Resolutions) []string {
	ids := make([]string, 0, resolutions.Len())
	for _, res := range resolutions.All() {
		if res.Matched() {
			ids = append(ids, res.Candidates[0].ID)
		}
	}
	return ids
}

func urlArg(cmd *cli.Command) (string, error) {
	url := strings.TrimSpace(cmd.StringArg("url"))
	if url == "" {
		return "", fmt.Errorf("%w: setlist URL is required", shared.ErrMissingArgument)
	}
	return url, nil
}
