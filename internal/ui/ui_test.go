package ui

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
	"github.com/h4nsec/SpotiPlay/internal/tasks"
)

func sampleResolutions() *models.Resolutions {
	r := models.NewResolutions("Test Band", "https://www.setlist.fm/setlist/x.html")
	r.Add(models.SongResolution{Song: "Song A", Candidates: []models.TrackCandidate{
		{ID: "spotify:track:a1", Title: "Song A", Artist: "Test Band"},
		{ID: "spotify:track:a2", Title: "Song A - Live", Artist: "Test Band"},
	}})
	r.Add(models.SongResolution{Song: "Song B"})
	r.Add(models.SongResolution{Song: "Song C", Candidates: []models.TrackCandidate{
		{ID: "spotify:track:c1", Title: "Song C", Artist: "Test Band"},
	}})
	return r
}

type fakeEngine struct {
	resolutions *models.Resolutions
	prepareErr  error
	got         *models.SelectionRequest
	result      *models.ReconciliationResult
	err         error
}

func (f *fakeEngine) Prepare(_ context.Context, url string, progress chan<- tasks.ProgressUpdate) (*models.SetlistPage, *models.Resolutions, error) {
	progress <- tasks.ProgressUpdate{Phase: tasks.SearchTracks, Step: 1, Total: 3, Message: "searching"}
	if f.prepareErr != nil {
		return nil, nil, f.prepareErr
	}
	return &models.SetlistPage{URL: url, Artist: "Test Band"}, f.resolutions, nil
}

func (f *fakeEngine) Reconcile(_ context.Context, sel models.SelectionRequest, _ chan<- tasks.ProgressUpdate) (*models.ReconciliationResult, error) {
	f.got = &sel
	return f.result, f.err
}

type memoryHistory struct{ records []*models.ImportRecord }

func (m *memoryHistory) Create(r *models.ImportRecord) error {
	m.records = append(m.records, r)
	return nil
}

// drain runs cmd and feeds its messages back into the model until a message other than progress arrives.
// Spinner ticks are dropped.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 20; i++ {
		msg := cmd()
		if batch, ok := msg.(tea.BatchMsg); ok {
			cmd = nil
			for _, c := range batch {
				if c == nil {
					continue
				}
				inner := c()
				if _, tick := inner.(spinner.TickMsg); tick || inner == nil {
					continue
				}
				cmd = func() tea.Msg { return inner }
			}
			continue
		}
		_, cmd = m.Update(msg)
		if mm, ok := msg.(Msg); ok && mm.kind != MsgProgressUpdate {
			return
		}
	}
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlaylistItem(t *testing.T) {
	assert.Equal(t, "+ New playlist", playlistItem{}.Title())
	assert.Equal(t, "1 track", playlistItem{playlist: models.PlaylistSummary{ID: "p1", TrackCount: 1}}.Description())
	assert.Equal(t, "1,204 tracks • dj", playlistItem{playlist: models.PlaylistSummary{ID: "p2", TrackCount: 1204, Owner: "dj"}}.Description())
}

func TestPicker(t *testing.T) {
	p := newPicker(sampleResolutions())

	require.Len(t, p.rows, 4)
	assert.Equal(t, []string{"spotify:track:a1", "spotify:track:c1"}, p.trackIDs())

	p.down()
	p.toggle()
	assert.Equal(t, []string{"spotify:track:a1", "spotify:track:a2", "spotify:track:c1"}, p.trackIDs())

	p.down()
	p.toggle()
	assert.Nil(t, p.candidate(2), "no match row has no candidate")
	assert.Len(t, p.trackIDs(), 3, "no match row cannot be selected")

	p.down()
	p.down()
	assert.Equal(t, 3, p.cursor)
	p.toggle()
	assert.Equal(t, []string{"spotify:track:a1", "spotify:track:a2"}, p.trackIDs())

	p.up()
	p.up()
	p.up()
	p.up()
	assert.Equal(t, 0, p.cursor)
}

func TestModelCreateFlow(t *testing.T) {
	engine := &fakeEngine{
		resolutions: sampleResolutions(),
		result:      &models.ReconciliationResult{Mode: models.ModeCreated, PlaylistID: "pl1", PlaylistName: "Live", AddedCount: 2},
	}
	history := &memoryHistory{}
	m := NewModel(context.Background(), Options{
		Engine:       engine,
		History:      history,
		PlaylistName: "Live",
		URL:          "https://www.setlist.fm/setlist/x.html",
		Logger:       log.New(io.Discard),
	})

	drain(t, m, m.Init())
	require.Equal(t, PickView, m.view)
	assert.Contains(t, m.View(), "2 of 3 songs matched")
	assert.Contains(t, m.View(), "no match")

	m.Update(press("enter"))
	require.Equal(t, ConfirmView, m.view)
	assert.Contains(t, m.View(), `Create playlist "Live" with 2 tracks?`)

	_, cmd := m.Update(press("y"))
	drain(t, m, cmd)
	require.Equal(t, ResultView, m.view)

	require.NotNil(t, engine.got)
	assert.Equal(t, "Live", engine.got.NewPlaylistName)
	assert.Equal(t, []string{"spotify:track:a1", "spotify:track:c1"}, engine.got.TrackIDs)
	assert.True(t, engine.got.Offer.Contains("spotify:track:a2"))

	result, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, "pl1", result.PlaylistID)
	require.Len(t, history.records, 1)
	assert.Equal(t, "Test Band", history.records[0].Artist)
}

func TestModelAppendFlow(t *testing.T) {
	engine := &fakeEngine{
		resolutions: sampleResolutions(),
		result:      &models.ReconciliationResult{Mode: models.ModeAppended, PlaylistID: "pl-9", AddedCount: 1},
	}
	m := NewModel(context.Background(), Options{
		Engine:     engine,
		PlaylistID: "pl-9",
		URL:        "https://www.setlist.fm/setlist/x.html",
		Logger:     log.New(io.Discard),
	})

	drain(t, m, m.Init())
	m.Update(press("j"))
	m.Update(press(" "))
	m.Update(press("enter"))
	require.Equal(t, ConfirmView, m.view)

	_, cmd := m.Update(press("y"))
	drain(t, m, cmd)

	require.NotNil(t, engine.got)
	assert.Equal(t, "pl-9", engine.got.TargetPlaylistID)
	assert.Empty(t, engine.got.NewPlaylistName)
	assert.Equal(t, []string{"spotify:track:a1", "spotify:track:a2", "spotify:track:c1"}, engine.got.TrackIDs)
}

func TestModelResolveFailure(t *testing.T) {
	engine := &fakeEngine{prepareErr: shared.ErrFetchFailed}
	m := NewModel(context.Background(), Options{Engine: engine, URL: "https://x", Logger: log.New(io.Discard)})

	drain(t, m, m.Init())
	require.Equal(t, ResultView, m.view)
	assert.Contains(t, m.View(), "Import failed")

	_, err := m.Result()
	assert.ErrorIs(t, err, shared.ErrFetchFailed)
}

func TestModelPartialAdd(t *testing.T) {
	engine := &fakeEngine{
		resolutions: sampleResolutions(),
		err:         &tasks.ReconcileError{Kind: tasks.PartialAdd, PlaylistID: "pl-new", Err: shared.ErrTransport},
	}
	history := &memoryHistory{}
	m := NewModel(context.Background(), Options{
		Engine:       engine,
		History:      history,
		PlaylistName: "Live",
		URL:          "https://x",
		Logger:       log.New(io.Discard),
	})

	drain(t, m, m.Init())
	m.Update(press("enter"))
	_, cmd := m.Update(press("y"))
	drain(t, m, cmd)

	assert.Contains(t, m.View(), "pl-new was created but tracks were not added")
	require.Len(t, history.records, 1)
	assert.Equal(t, "pl-new", history.records[0].PlaylistID)
	assert.Zero(t, history.records[0].AddedCount)
}
