package tasks

import (
	"fmt"

	"github.com/h4nsec/SpotiPlay/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSetlist Phase = iota
	SearchTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case FetchSetlist:
		return "fetch_setlist"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func fetchSetlistUpdate(url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSetlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching setlist %s...", url),
	}
}

func foundSetlistUpdate(page *models.SetlistPage) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSetlist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found setlist: %s (%d songs)", page.Artist, len(page.RawTitles)),
		Data:    page,
	}
}

func searchTracksUpdate(step, total int, song string, found int) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s (%d candidates)", step, total, song, found)
	if found == 0 {
		msg = fmt.Sprintf("[%d/%d] %s (no match)", step, total, song)
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func createPlaylistUpdate(name, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", name, id),
	}
}

func addTracksUpdate(playlistID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to %s...", count, playlistID),
	}
}
