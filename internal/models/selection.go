package models

import (
	"fmt"
	"strings"

	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// Offer records which candidate IDs were shown for each song so a later submission can be checked against it.
type Offer struct {
	Artist string              `json:"artist"`
	URL    string              `json:"url,omitempty"`
	Songs  map[string][]string `json:"songs"`
}

// NewOffer captures the candidate IDs in r.
func NewOffer(r *Resolutions) *Offer {
	o := &Offer{Songs: make(map[string][]string)}
	if r == nil {
		return o
	}
	o.Artist = r.Artist
	o.URL = r.URL
	for _, res := range r.All() {
		ids := make([]string, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			ids = append(ids, c.ID)
		}
		o.Songs[res.Song] = ids
	}
	return o
}

// Contains reports whether id was offered for any song.
func (o *Offer) Contains(id string) bool {
	if o == nil {
		return false
	}
	for _, ids := range o.Songs {
		for _, offered := range ids {
			if offered == id {
				return true
			}
		}
	}
	return false
}

// SelectionRequest is the user's confirmed tracks and exactly one of a new playlist name or a target playlist.
//
// Offer is optional. When set, every track ID must have been offered.
type SelectionRequest struct {
	TrackIDs         []string `json:"track_ids"`
	NewPlaylistName  string   `json:"new_playlist_name,omitempty"`
	TargetPlaylistID string   `json:"target_playlist_id,omitempty"`
	Offer            *Offer   `json:"-"`
	Public           *bool    `json:"public,omitempty"`
}

// IsCreate reports whether the request names a new playlist.
func (s SelectionRequest) IsCreate() bool {
	return strings.TrimSpace(s.NewPlaylistName) != ""
}

// Validate checks that exactly one of the create or append targets is set.
func (s SelectionRequest) Validate() error {
	name := strings.TrimSpace(s.NewPlaylistName)
	target := strings.TrimSpace(s.TargetPlaylistID)

	switch {
	case name != "" && target != "":
		return fmt.Errorf("%w: both a new playlist name and a target playlist were given", shared.ErrInvalidSelection)
	case name == "" && target == "":
		return fmt.Errorf("%w: a new playlist name or a target playlist is required", shared.ErrInvalidSelection)
	}
	return nil
}

// Mode is the branch a reconciliation took.
type Mode string

const (
	ModeCreated  Mode = "created"
	ModeAppended Mode = "appended"
)

// ReconciliationResult reports the playlist mutation performed for a [SelectionRequest].
type ReconciliationResult struct {
	Mode         Mode   `json:"mode"`
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name,omitempty"`
	AddedCount   int    `json:"added_count"`
	SkippedCount int    `json:"skipped_count"`
	SnapshotID   string `json:"snapshot_id,omitempty"`
}

// PlaylistSummary is a playlist offered as an append target.
type PlaylistSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
	Owner      string `json:"owner,omitempty"`
}

// UserProfile is the authenticated catalog user.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
