// package formatter renders resolutions, reconciliation results and import history as text, JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

// Format names accepted by [FormatResolutions].
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Formats lists the supported export formats.
var Formats = []string{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// resolutionsDoc is the serialized shape of [models.Resolutions].
type resolutionsDoc struct {
	Artist       string                  `json:"artist"`
	URL          string                  `json:"url,omitempty"`
	Songs        []models.SongResolution `json:"songs"`
	Unsearchable []string                `json:"unsearchable,omitempty"`
}

// FormatResolutions renders r in the named format.
func FormatResolutions(r *models.Resolutions, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return ResolutionsToText(r)
	case FormatJSON:
		return ResolutionsToJSON(r, true)
	case FormatCSV:
		return ResolutionsToCSV(r)
	case FormatMarkdown, "md":
		return ResolutionsToMarkdown(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// ResolutionsToJSON marshals r with songs in setlist order.
func ResolutionsToJSON(r *models.Resolutions, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(resolutionsDoc{
		Artist:       r.Artist,
		URL:          r.URL,
		Songs:        r.All(),
		Unsearchable: r.Unsearchable,
	}, pretty)
}

// ResolutionsToCSV writes one row per candidate with columns: Position, Song, Rank, TrackID, Title, Artist, Details.
//
// Songs without candidates get a single row with empty candidate columns.
func ResolutionsToCSV(r *models.Resolutions) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Song", "Rank", "TrackID", "Title", "Artist", "Details"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, res := range r.All() {
		pos := strconv.Itoa(i + 1)
		if len(res.Candidates) == 0 {
			if err := writer.Write([]string{pos, res.Song, "", "", "", "", ""}); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
			continue
		}
		for j, c := range res.Candidates {
			record := []string{pos, res.Song, strconv.Itoa(j + 1), c.ID, c.Title, c.Artist, c.DisplayMeta}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ResolutionsToMarkdown renders r as a numbered song list with candidates as nested items.
func ResolutionsToMarkdown(r *models.Resolutions) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", r.Artist))
	if r.URL != "" {
		buf.WriteString(fmt.Sprintf("**Setlist**: <%s>\n\n", r.URL))
	}
	buf.WriteString(fmt.Sprintf("**Songs**: %d\n", r.Len()))
	buf.WriteString(fmt.Sprintf("**Matched**: %d\n\n", r.MatchedCount()))

	buf.WriteString("## Songs\n\n")
	for i, res := range r.All() {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, res.Song))
		if len(res.Candidates) == 0 {
			buf.WriteString("   - _no match_\n")
			continue
		}
		for _, c := range res.Candidates {
			meta := ""
			if c.DisplayMeta != "" {
				meta = fmt.Sprintf(" (%s)", c.DisplayMeta)
			}
			buf.WriteString(fmt.Sprintf("   - %s - %s%s `%s`\n", c.Artist, c.Title, meta, c.ID))
		}
	}

	if len(r.Unsearchable) > 0 {
		buf.WriteString("\n## Unsearchable\n\n")
		for _, raw := range r.Unsearchable {
			buf.WriteString(fmt.Sprintf("- %s\n", raw))
		}
	}

	return buf.Bytes(), nil
}

// ResolutionsToText renders r as plain text, one block per song.
func ResolutionsToText(r *models.Resolutions) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Artist: %s\n", r.Artist))
	if r.URL != "" {
		buf.WriteString(fmt.Sprintf("Setlist: %s\n", r.URL))
	}
	buf.WriteString(fmt.Sprintf("Songs: %d (%d matched)\n\n", r.Len(), r.MatchedCount()))

	for i, res := range r.All() {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, res.Song))
		if len(res.Candidates) == 0 {
			buf.WriteString("   no match\n")
		}
		for j, c := range res.Candidates {
			buf.WriteString(fmt.Sprintf("   [%d] %s - %s  %s\n", j+1, c.Artist, c.Title, c.ID))
		}
	}

	if len(r.Unsearchable) > 0 {
		buf.WriteString(fmt.Sprintf("\nUnsearchable: %s\n", strings.Join(r.Unsearchable, "; ")))
	}

	return buf.Bytes(), nil
}

// WriteResolutions renders r in format and writes it to path.
//
// Defaults to resolutions.{ext} when path is empty.
func WriteResolutions(r *models.Resolutions, format, path string) (string, error) {
	data, err := FormatResolutions(r, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = "resolutions." + extension(format)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatMarkdown, "md":
		return "md"
	default:
		return "txt"
	}
}

// ResultToText summarizes a reconciliation result in one line.
func ResultToText(result *models.ReconciliationResult) string {
	var b strings.Builder
	switch result.Mode {
	case models.ModeCreated:
		fmt.Fprintf(&b, "Created playlist %q (%s) with %s", result.PlaylistName, result.PlaylistID, songs(result.AddedCount))
	default:
		fmt.Fprintf(&b, "Added %s to playlist %s", songs(result.AddedCount), result.PlaylistID)
	}
	if result.SkippedCount > 0 {
		fmt.Fprintf(&b, ", skipped %d", result.SkippedCount)
	}
	return b.String()
}

func songs(n int) string {
	return humanize.Comma(int64(n)) + " " + english.PluralWord(n, "song", "songs")
}

// HistoryToText renders import records as a table with relative times measured from now.
func HistoryToText(records []*models.ImportRecord, now time.Time) []byte {
	var buf bytes.Buffer
	if len(records) == 0 {
		buf.WriteString("No imports recorded\n")
		return buf.Bytes()
	}

	buf.WriteString(fmt.Sprintf("%-5s %-16s %-9s %-24s %7s %7s  %s\n", "#", "WHEN", "MODE", "ARTIST", "ADDED", "SKIPPED", "PLAYLIST"))
	for _, r := range records {
		playlist := r.PlaylistID
		if r.PlaylistName != "" {
			playlist = fmt.Sprintf("%s (%s)", r.PlaylistName, r.PlaylistID)
		}
		buf.WriteString(fmt.Sprintf("%-5d %-16s %-9s %-24s %7s %7s  %s\n",
			r.Sequence,
			humanize.RelTime(r.Created, now, "ago", "from now"),
			r.Mode,
			truncate(r.Artist, 24),
			humanize.Comma(int64(r.AddedCount)),
			humanize.Comma(int64(r.SkippedCount)),
			playlist,
		))
	}
	return buf.Bytes()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
