package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// PlaylistWriter is the playlist collaborator used by [Reconciler].
type PlaylistWriter interface {
	CurrentUserID(ctx context.Context) (string, error)
	CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (string, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) (string, error)
}

// ReconcileErrorKind classifies a failed reconciliation.
type ReconcileErrorKind int

const (
	// Upstream means a catalog call failed and nothing is known to have changed,
	// except that an append may have added earlier batches.
	Upstream ReconcileErrorKind = iota
	// PartialAdd means the playlist was created but adding tracks failed.
	PartialAdd
	// InvalidSelection means the request named neither or both targets, or tracks that were not offered.
	InvalidSelection
)

func (k ReconcileErrorKind) String() string {
	switch k {
	case PartialAdd:
		return "PartialAdd"
	case InvalidSelection:
		return "InvalidSelection"
	default:
		return "Upstream"
	}
}

func (k ReconcileErrorKind) sentinel() error {
	switch k {
	case PartialAdd:
		return shared.ErrPartialAdd
	case InvalidSelection:
		return shared.ErrInvalidSelection
	default:
		return shared.ErrUpstream
	}
}

// ReconcileError reports a failed reconciliation. PlaylistID is set for PartialAdd.
type ReconcileError struct {
	Kind       ReconcileErrorKind
	PlaylistID string
	Err        error
}

func (e *ReconcileError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.PlaylistID != "" {
		msg += fmt.Sprintf(" (playlist %s)", e.PlaylistID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause to [errors.Is].
func (e *ReconcileError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// AsReconcileError returns the [ReconcileError] in err's chain, if any.
func AsReconcileError(err error) (*ReconcileError, bool) {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Reconciler creates or appends to playlists.
type Reconciler struct {
	writer PlaylistWriter
	public bool
	logger *log.Logger
}

// ReconcilerOpts configures a [Reconciler].
type ReconcilerOpts struct {
	Public bool
	Logger *log.Logger
}

// NewReconciler returns a Reconciler writing through w.
func NewReconciler(w PlaylistWriter, opts ReconcilerOpts) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Reconciler{writer: w, public: opts.Public, logger: opts.Logger}
}

// Reconcile creates a playlist named sel.NewPlaylistName or appends to sel.TargetPlaylistID.
//
// Blank and repeated track IDs are dropped and counted in SkippedCount. When sel.Offer is set,
// any ID that was not offered rejects the whole request. Nothing is retried.
func (r *Reconciler) Reconcile(ctx context.Context, sel models.SelectionRequest, progress chan<- ProgressUpdate) (*models.ReconciliationResult, error) {
	if err := sel.Validate(); err != nil {
		return nil, &ReconcileError{Kind: InvalidSelection, Err: err}
	}

	ids, skipped := uniqueIDs(sel.TrackIDs)

	if sel.Offer != nil {
		var unknown []string
		for _, id := range ids {
			if !sel.Offer.Contains(id) {
				unknown = append(unknown, id)
			}
		}
		if len(unknown) > 0 {
			return nil, &ReconcileError{
				Kind: InvalidSelection,
				Err:  fmt.Errorf("tracks were not offered: %s", strings.Join(unknown, ", ")),
			}
		}
	}

	if sel.IsCreate() {
		public := r.public
		if sel.Public != nil {
			public = *sel.Public
		}
		return r.create(ctx, strings.TrimSpace(sel.NewPlaylistName), public, ids, skipped, progress)
	}
	return r.appendTo(ctx, strings.TrimSpace(sel.TargetPlaylistID), ids, skipped, progress)
}

func (r *Reconciler) create(ctx context.Context, name string, public bool, ids []string, skipped int, progress chan<- ProgressUpdate) (*models.ReconciliationResult, error) {
	owner, err := r.writer.CurrentUserID(ctx)
	if err != nil {
		return nil, &ReconcileError{Kind: Upstream, Err: err}
	}

	playlistID, err := r.writer.CreatePlaylist(ctx, owner, name, public)
	if err != nil {
		return nil, &ReconcileError{Kind: Upstream, Err: err}
	}
	sendProgress(progress, createPlaylistUpdate(name, playlistID))

	result := &models.ReconciliationResult{
		Mode:         models.ModeCreated,
		PlaylistID:   playlistID,
		PlaylistName: name,
		SkippedCount: skipped,
	}

	if len(ids) == 0 {
		r.logger.Info("created empty playlist", "id", playlistID, "name", name)
		return result, nil
	}

	sendProgress(progress, addTracksUpdate(playlistID, len(ids)))
	snapshot, err := r.writer.AddTracks(ctx, playlistID, ids)
	if err != nil {
		r.logger.Warn("playlist created but tracks were not added", "id", playlistID, "error", err)
		return nil, &ReconcileError{Kind: PartialAdd, PlaylistID: playlistID, Err: err}
	}

	result.AddedCount = len(ids)
	result.SnapshotID = snapshot
	r.logger.Info("created playlist", "id", playlistID, "name", name, "added", result.AddedCount, "skipped", skipped)
	return result, nil
}

func (r *Reconciler) appendTo(ctx context.Context, playlistID string, ids []string, skipped int, progress chan<- ProgressUpdate) (*models.ReconciliationResult, error) {
	result := &models.ReconciliationResult{
		Mode:         models.ModeAppended,
		PlaylistID:   playlistID,
		SkippedCount: skipped,
	}

	if len(ids) == 0 {
		return result, nil
	}

	sendProgress(progress, addTracksUpdate(playlistID, len(ids)))
	snapshot, err := r.writer.AddTracks(ctx, playlistID, ids)
	if err != nil {
		return nil, &ReconcileError{Kind: Upstream, PlaylistID: playlistID, Err: err}
	}

	result.AddedCount = len(ids)
	result.SnapshotID = snapshot
	r.logger.Info("appended to playlist", "id", playlistID, "added", result.AddedCount, "skipped", skipped)
	return result, nil
}

// uniqueIDs drops blank and repeated IDs, keeping first-seen order.
func uniqueIDs(in []string) ([]string, int) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, len(in) - len(out)
}
