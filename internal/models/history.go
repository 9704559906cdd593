package models

import (
	"fmt"
	"time"

	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// ImportRecord is the stored outcome of one reconciliation.
type ImportRecord struct {
	RecordID     string    `json:"id"`
	Sequence     int64     `json:"sequence"`
	SetlistURL   string    `json:"setlist_url"`
	Artist       string    `json:"artist"`
	PlaylistID   string    `json:"playlist_id"`
	PlaylistName string    `json:"playlist_name"`
	Mode         Mode      `json:"mode"`
	AddedCount   int       `json:"added_count"`
	SkippedCount int       `json:"skipped_count"`
	SnapshotID   string    `json:"snapshot_id,omitempty"`
	Created      time.Time `json:"created_at"`
}

// NewImportRecord builds a record from a reconciliation result.
func NewImportRecord(url, artist string, result *ReconciliationResult) *ImportRecord {
	return &ImportRecord{
		RecordID:     shared.GenerateID(),
		SetlistURL:   url,
		Artist:       artist,
		PlaylistID:   result.PlaylistID,
		PlaylistName: result.PlaylistName,
		Mode:         result.Mode,
		AddedCount:   result.AddedCount,
		SkippedCount: result.SkippedCount,
		SnapshotID:   result.SnapshotID,
		Created:      time.Now().UTC(),
	}
}

func (r *ImportRecord) ID() string           { return r.RecordID }
func (r *ImportRecord) CreatedAt() time.Time { return r.Created }
func (r *ImportRecord) UpdatedAt() time.Time { return r.Created }

// Validate checks required fields.
func (r *ImportRecord) Validate() error {
	if r.RecordID == "" {
		return fmt.Errorf("%w: import id is required", shared.ErrInvalidInput)
	}
	if r.PlaylistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrInvalidInput)
	}
	if r.Mode != ModeCreated && r.Mode != ModeAppended {
		return fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidInput, r.Mode)
	}
	return nil
}
