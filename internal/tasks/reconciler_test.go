package tasks

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	tu "github.com/h4nsec/SpotiPlay/internal/testing"
)

func newTestReconciler(catalog *tu.MockCatalog) *Reconciler {
	return NewReconciler(catalog, ReconcilerOpts{Public: true, Logger: shared.NewLogger(io.Discard)})
}

func TestReconcileCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and adds", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		ids := []string{"spotify:track:1", "spotify:track:2", "spotify:track:3"}

		got, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:        ids,
			NewPlaylistName: "Test Band Live",
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, models.ModeCreated, got.Mode)
		assert.Equal(t, "new-playlist", got.PlaylistID)
		assert.Equal(t, 3, got.AddedCount)
		assert.Equal(t, 0, got.SkippedCount)
		assert.Equal(t, "snapshot-1", got.SnapshotID)

		require.Len(t, catalog.Created, 1)
		assert.Equal(t, tu.CreatedPlaylist{Owner: "test-user", Name: "Test Band Live", Public: true}, catalog.Created[0])
		assert.Equal(t, [][]string{ids}, catalog.Added["new-playlist"])
	})

	t.Run("empty selection creates an empty playlist", func(t *testing.T) {
		catalog := tu.NewMockCatalog()

		got, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{NewPlaylistName: "Empty"}, nil)
		require.NoError(t, err)

		assert.Equal(t, models.ModeCreated, got.Mode)
		assert.Equal(t, 0, got.AddedCount)
		assert.Len(t, catalog.Created, 1)
		assert.Equal(t, 0, catalog.AddCalls)
	})

	t.Run("add failure after create is PartialAdd", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddErr = fmt.Errorf("%w: 502", shared.ErrTransport)

		_, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:        []string{"spotify:track:1"},
			NewPlaylistName: "Live",
		}, nil)
		require.Error(t, err)

		re, ok := AsReconcileError(err)
		require.True(t, ok)
		assert.Equal(t, PartialAdd, re.Kind)
		assert.Equal(t, "new-playlist", re.PlaylistID)
		assert.ErrorIs(t, err, shared.ErrPartialAdd)
		assert.ErrorIs(t, err, shared.ErrTransport)
		assert.NotErrorIs(t, err, shared.ErrUpstream)
	})

	t.Run("create failure is Upstream", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.CreateErr = fmt.Errorf("%w: 401", shared.ErrTokenExpired)

		_, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:        []string{"spotify:track:1"},
			NewPlaylistName: "Live",
		}, nil)

		re, ok := AsReconcileError(err)
		require.True(t, ok)
		assert.Equal(t, Upstream, re.Kind)
		assert.Empty(t, re.PlaylistID)
		assert.True(t, shared.IsAuthError(err))
		assert.Equal(t, 0, catalog.AddCalls)
	})

	t.Run("user lookup failure is Upstream", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.UserErr = shared.ErrTransport

		_, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{NewPlaylistName: "Live"}, nil)
		assert.ErrorIs(t, err, shared.ErrUpstream)
		assert.Empty(t, catalog.Created)
	})

	t.Run("visibility override", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		private := false

		_, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{NewPlaylistName: "Live", Public: &private}, nil)
		require.NoError(t, err)
		assert.False(t, catalog.Created[0].Public)
	})
}

func TestReconcileAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("empty selection is a no-op", func(t *testing.T) {
		catalog := tu.NewMockCatalog()

		got, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{TargetPlaylistID: "existing"}, nil)
		require.NoError(t, err)

		assert.Equal(t, models.ModeAppended, got.Mode)
		assert.Equal(t, "existing", got.PlaylistID)
		assert.Equal(t, 0, got.AddedCount)
		assert.Equal(t, 0, catalog.AddCalls)
	})

	t.Run("appends without duplicate guard", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		r := newTestReconciler(catalog)
		sel := models.SelectionRequest{TrackIDs: []string{"spotify:track:1"}, TargetPlaylistID: "existing"}

		for range 2 {
			got, err := r.Reconcile(ctx, sel, nil)
			require.NoError(t, err)
			assert.Equal(t, 1, got.AddedCount)
		}
		assert.Len(t, catalog.Added["existing"], 2)
		assert.Empty(t, catalog.Created)
	})

	t.Run("blank and repeated ids are skipped", func(t *testing.T) {
		catalog := tu.NewMockCatalog()

		got, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:         []string{"spotify:track:1", "", "spotify:track:1", " spotify:track:2 "},
			TargetPlaylistID: "existing",
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, got.AddedCount)
		assert.Equal(t, 2, got.SkippedCount)
		assert.Equal(t, []string{"spotify:track:1", "spotify:track:2"}, catalog.Added["existing"][0])
	})

	t.Run("add failure is Upstream", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddErr = shared.ErrAuthFailed

		_, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:         []string{"spotify:track:1"},
			TargetPlaylistID: "not-mine",
		}, nil)

		re, ok := AsReconcileError(err)
		require.True(t, ok)
		assert.Equal(t, Upstream, re.Kind)
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})
}

func TestReconcileInvalidSelection(t *testing.T) {
	ctx := context.Background()

	tc := []struct {
		name string
		sel  models.SelectionRequest
	}{
		{name: "neither target", sel: models.SelectionRequest{TrackIDs: []string{"spotify:track:1"}}},
		{name: "both targets", sel: models.SelectionRequest{NewPlaylistName: "Live", TargetPlaylistID: "existing"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			catalog := tu.NewMockCatalog()

			_, err := newTestReconciler(catalog).Reconcile(ctx, tt.sel, nil)
			re, ok := AsReconcileError(err)
			require.True(t, ok)
			assert.Equal(t, InvalidSelection, re.Kind)
			assert.ErrorIs(t, err, shared.ErrInvalidSelection)
			assert.Empty(t, catalog.Created)
			assert.Equal(t, 0, catalog.AddCalls)
		})
	}

	t.Run("ids not offered are rejected", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		res := models.NewResolutions("Test Band", "")
		res.Add(models.SongResolution{Song: "Song A", Candidates: candidates("a", 2)})

		_, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:         []string{"spotify:track:a0", "spotify:track:forged"},
			TargetPlaylistID: "existing",
			Offer:            res.Offer(),
		}, nil)

		assert.ErrorIs(t, err, shared.ErrInvalidSelection)
		assert.Contains(t, err.Error(), "spotify:track:forged")
		assert.Equal(t, 0, catalog.AddCalls)
	})

	t.Run("offered ids pass", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		res := models.NewResolutions("Test Band", "")
		res.Add(models.SongResolution{Song: "Song A", Candidates: candidates("a", 2)})

		got, err := newTestReconciler(catalog).Reconcile(ctx, models.SelectionRequest{
			TrackIDs:         []string{"spotify:track:a1"},
			TargetPlaylistID: "existing",
			Offer:            res.Offer(),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, got.AddedCount)
	})
}
