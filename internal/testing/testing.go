// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/h4nsec/SpotiPlay/internal/models"
)

// MockCatalog is a test double for [services.Catalog]. It records every call.
type MockCatalog struct {
	mu sync.Mutex

	Results   map[string][]models.TrackCandidate // keyed by query
	Playlists []models.PlaylistSummary
	UserID    string

	SearchErr  error
	UserErr    error
	CreateErr  error
	AddErr     error
	ListErr    error
	CreatedID  string
	SnapshotID string

	Queries      []string
	Limits       []int
	Created      []CreatedPlaylist
	Added        map[string][][]string
	AddCalls     int
	ProfileCalls int
}

// CreatedPlaylist records one CreatePlaylist call.
type CreatedPlaylist struct {
	Owner  string
	Name   string
	Public bool
}

// NewMockCatalog returns a MockCatalog for user "test-user" that creates playlist "new-playlist".
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Results:    map[string][]models.TrackCandidate{},
		UserID:     "test-user",
		CreatedID:  "new-playlist",
		SnapshotID: "snapshot-1",
		Added:      map[string][][]string{},
	}
}

func (m *MockCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]models.TrackCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	m.Limits = append(m.Limits, limit)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return append([]models.TrackCandidate(nil), m.Results[query]...), nil
}

func (m *MockCatalog) CurrentUserID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileCalls++
	if m.UserErr != nil {
		return "", m.UserErr
	}
	return m.UserID, nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, ownerID, name string, public bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, CreatedPlaylist{Owner: ownerID, Name: name, Public: public})
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	return m.CreatedID, nil
}

func (m *MockCatalog) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddCalls++
	if m.AddErr != nil {
		return "", m.AddErr
	}
	if m.Added == nil {
		m.Added = map[string][][]string{}
	}
	m.Added[playlistID] = append(m.Added[playlistID], append([]string(nil), trackIDs...))
	return m.SnapshotID, nil
}

func (m *MockCatalog) UserPlaylists(ctx context.Context, limit int) ([]models.PlaylistSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if limit > 0 && limit < len(m.Playlists) {
		return m.Playlists[:limit], nil
	}
	return m.Playlists, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// SearchCount returns the number of SearchTracks calls.
func (m *MockCatalog) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
