package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

const importColumns = `id, sequence, setlist_url, artist, playlist_id, playlist_name, mode, added_count, skipped_count, snapshot_id, created_at`

// ImportRepository implements models.Repository[*models.ImportRecord].
type ImportRepository struct {
	db *sql.DB
}

// NewImportRepository creates a new ImportRepository with the given database connection
func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Create inserts record with the next sequence number, generating an ID when it has none.
func (r *ImportRepository) Create(record *models.ImportRecord) error {
	if record.RecordID == "" {
		record.RecordID = shared.GenerateID()
	}
	if record.Created.IsZero() {
		record.Created = time.Now().UTC()
	}

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "imports")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `INSERT INTO imports (` + importColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Exec(query,
		record.RecordID,
		sequence,
		record.SetlistURL,
		record.Artist,
		record.PlaylistID,
		record.PlaylistName,
		string(record.Mode),
		record.AddedCount,
		record.SkippedCount,
		record.SnapshotID,
		record.Created,
	)
	if err != nil {
		return fmt.Errorf("failed to insert import: %w", err)
	}

	record.Sequence = int64(sequence)
	return nil
}

// Get retrieves an import by ID
func (r *ImportRepository) Get(id string) (*models.ImportRecord, error) {
	row := r.db.QueryRow(`SELECT `+importColumns+` FROM imports WHERE id = ?`, id)
	record, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	return record, nil
}

// Update rewrites the counts and snapshot of an existing import.
func (r *ImportRepository) Update(record *models.ImportRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE imports SET playlist_name = ?, added_count = ?, skipped_count = ?, snapshot_id = ? WHERE id = ?`,
		record.PlaylistName, record.AddedCount, record.SkippedCount, record.SnapshotID, record.RecordID,
	)
	if err != nil {
		return fmt.Errorf("failed to update import: %w", err)
	}
	return requireAffected(result, record.RecordID)
}

// Delete removes an import by ID
func (r *ImportRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM imports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	return requireAffected(result, id)
}

// List returns imports newest first.
//
// Supported criteria: "playlist_id" (string), "artist" (string), "limit" (int).
func (r *ImportRepository) List(criteria map[string]any) ([]*models.ImportRecord, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE 1 = 1`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ? COLLATE NOCASE"
		args = append(args, artist)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer rows.Close()

	var records []*models.ImportRecord
	for rows.Next() {
		record, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImport(s scanner) (*models.ImportRecord, error) {
	var (
		record models.ImportRecord
		mode   string
	)
	err := s.Scan(
		&record.RecordID,
		&record.Sequence,
		&record.SetlistURL,
		&record.Artist,
		&record.PlaylistID,
		&record.PlaylistName,
		&mode,
		&record.AddedCount,
		&record.SkippedCount,
		&record.SnapshotID,
		&record.Created,
	)
	if err != nil {
		return nil, err
	}
	record.Mode = models.Mode(mode)
	return &record, nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: import %s", shared.ErrRecordNotFound, id)
	}
	return nil
}
