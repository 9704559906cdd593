package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/setlist"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// PageLoader fetches and parses a setlist page.
type PageLoader interface {
	Load(ctx context.Context, url string) (*models.SetlistPage, error)
}

// Catalog is everything the engine needs from the music service.
type Catalog interface {
	Searcher
	PlaylistWriter
}

// Engine resolves setlists and reconciles selections.
type Engine struct {
	loader     PageLoader
	resolver   *Resolver
	reconciler *Reconciler
	workers    int
	logger     *log.Logger
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Loader        PageLoader // optional, needed only by Prepare
	Catalog       Catalog
	MaxCandidates int
	Workers       int  // concurrent searches, 1 when unset
	Public        bool // visibility of created playlists
	Logger        *log.Logger
}

// NewEngine creates an Engine over the given collaborators.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	return &Engine{
		loader:   opts.Loader,
		resolver: NewResolver(opts.Catalog, opts.MaxCandidates),
		reconciler: NewReconciler(opts.Catalog, ReconcilerOpts{
			Public: opts.Public,
			Logger: opts.Logger,
		}),
		workers: opts.Workers,
		logger:  opts.Logger,
	}
}

// Resolver returns the engine's resolver.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Reconciler returns the engine's reconciler.
func (e *Engine) Reconciler() *Reconciler { return e.reconciler }

// Prepare loads the setlist at url and resolves it.
func (e *Engine) Prepare(ctx context.Context, url string, progress chan<- ProgressUpdate) (*models.SetlistPage, *models.Resolutions, error) {
	if e.loader == nil {
		return nil, nil, fmt.Errorf("%w: no setlist loader configured", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchSetlistUpdate(url))
	page, err := e.loader.Load(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	sendProgress(progress, foundSetlistUpdate(page))

	resolutions, err := e.BuildResolutions(ctx, page, progress)
	if err != nil {
		return page, nil, err
	}
	return page, resolutions, nil
}

// BuildResolutions normalizes and resolves every raw title of page in setlist order.
//
// Titles that normalize to the same string are searched once and keep the position of their first occurrence.
// Titles that normalize to the empty string are listed in Unsearchable. The first search failure aborts the build.
func (e *Engine) BuildResolutions(ctx context.Context, page *models.SetlistPage, progress chan<- ProgressUpdate) (*models.Resolutions, error) {
	resolutions := models.NewResolutions(page.Artist, page.URL)

	var songs []string
	seen := make(map[string]bool)
	for _, raw := range page.RawTitles {
		title := setlist.Normalize(raw)
		if title == "" {
			resolutions.Unsearchable = append(resolutions.Unsearchable, strings.Join(strings.Fields(raw), " "))
			continue
		}
		if seen[title] {
			continue
		}
		seen[title] = true
		songs = append(songs, title)
	}

	candidates := make([][]models.TrackCandidate, len(songs))
	total := len(songs)
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, song := range songs {
		g.Go(func() error {
			found, err := e.resolver.Resolve(gctx, song, page.Artist, 0)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", song, err)
			}
			candidates[i] = found

			step := int(done.Add(1))
			sendProgress(progress, searchTracksUpdate(step, total, song, len(found)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Error("resolution failed", "artist", page.Artist, "error", err)
		return nil, err
	}

	for i, song := range songs {
		resolutions.Add(models.SongResolution{Song: song, Candidates: candidates[i]})
	}

	e.logger.Info("resolved setlist",
		"artist", page.Artist,
		"songs", resolutions.Len(),
		"matched", resolutions.MatchedCount(),
		"unsearchable", len(resolutions.Unsearchable),
	)
	return resolutions, nil
}

// Reconcile applies sel through the engine's reconciler.
func (e *Engine) Reconcile(ctx context.Context, sel models.SelectionRequest, progress chan<- ProgressUpdate) (*models.ReconciliationResult, error) {
	return e.reconciler.Reconcile(ctx, sel, progress)
}
