package tasks

import (
	"context"
	"strings"

	"github.com/h4nsec/SpotiPlay/internal/models"
)

const (
	DefaultMaxCandidates = 5
	maxCandidatesLimit   = 50
)

// Searcher is the catalog search collaborator.
type Searcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]models.TrackCandidate, error)
}

// Resolver searches the catalog for one song at a time.
type Resolver struct {
	search        Searcher
	maxCandidates int
}

// NewResolver returns a Resolver that asks for at most maxCandidates results per song.
func NewResolver(search Searcher, maxCandidates int) *Resolver {
	return &Resolver{search: search, maxCandidates: clampCandidates(maxCandidates)}
}

// BuildQuery combines a title with a strict artist filter. The filter is omitted when artist is empty.
func BuildQuery(title, artist string) string {
	artist = strings.TrimSpace(strings.ReplaceAll(artist, `"`, ""))
	if artist == "" {
		return title
	}
	return title + ` artist:"` + artist + `"`
}

// Resolve returns up to maxCandidates results for title in the catalog's order.
//
// An empty title returns an empty list without searching. maxCandidates <= 0 uses the resolver's bound.
// Search errors are returned as is.
func (r *Resolver) Resolve(ctx context.Context, title, artist string, maxCandidates int) ([]models.TrackCandidate, error) {
	if strings.TrimSpace(title) == "" {
		return []models.TrackCandidate{}, nil
	}

	limit := r.maxCandidates
	if maxCandidates > 0 {
		limit = clampCandidates(maxCandidates)
	}

	results, err := r.search.SearchTracks(ctx, BuildQuery(title, artist), limit)
	if err != nil {
		return nil, err
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []models.TrackCandidate{}
	}
	return results, nil
}

func clampCandidates(n int) int {
	if n <= 0 {
		return DefaultMaxCandidates
	}
	return min(n, maxCandidatesLimit)
}
