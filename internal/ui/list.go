package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/h4nsec/SpotiPlay/internal/models"
)

var (
	_ list.Item = playlistItem{}
)

// playlistItem wraps [models.PlaylistSummary] to implement [list.Item].
//
// The zero playlist stands for "create a new playlist".
type playlistItem struct {
	playlist models.PlaylistSummary
}

func (i playlistItem) isNew() bool { return i.playlist.ID == "" }

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.isNew() {
		return "+ New playlist"
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	if i.isNew() {
		return "Create a playlist from the selected songs"
	}
	desc := fmt.Sprintf("%s %s", humanize.Comma(int64(i.playlist.TrackCount)), english.PluralWord(i.playlist.TrackCount, "track", "tracks"))
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

// pickRow is one line of the candidate picker: a candidate of a song, or the song's "no match" line.
type pickRow struct {
	song      int
	candidate int // -1 when the song has no candidates
}

// picker holds the candidate rows and which of them are selected.
type picker struct {
	songs    []models.SongResolution
	rows     []pickRow
	selected []bool
	cursor   int
}

// newPicker lays out the rows of r and preselects the first candidate of every song.
func newPicker(r *models.Resolutions) *picker {
	p := &picker{songs: r.All()}
	for i, s := range p.songs {
		if len(s.Candidates) == 0 {
			p.rows = append(p.rows, pickRow{song: i, candidate: -1})
			p.selected = append(p.selected, false)
			continue
		}
		for j := range s.Candidates {
			p.rows = append(p.rows, pickRow{song: i, candidate: j})
			p.selected = append(p.selected, j == 0)
		}
	}
	return p
}

func (p *picker) up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *picker) down() {
	if p.cursor < len(p.rows)-1 {
		p.cursor++
	}
}

func (p *picker) toggle() {
	if len(p.rows) == 0 || p.rows[p.cursor].candidate < 0 {
		return
	}
	p.selected[p.cursor] = !p.selected[p.cursor]
}

// candidate returns the candidate at row i, or nil for a "no match" row.
func (p *picker) candidate(i int) *models.TrackCandidate {
	row := p.rows[i]
	if row.candidate < 0 {
		return nil
	}
	return &p.songs[row.song].Candidates[row.candidate]
}

// trackIDs returns the selected candidate IDs in setlist order.
func (p *picker) trackIDs() []string {
	var ids []string
	for i, on := range p.selected {
		if on {
			ids = append(ids, p.candidate(i).ID)
		}
	}
	return ids
}
