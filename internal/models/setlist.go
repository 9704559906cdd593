package models

// SetlistPage is the artist and ordered raw song titles read from one setlist page.
type SetlistPage struct {
	URL       string   `json:"url,omitempty"`
	Artist    string   `json:"artist"`
	RawTitles []string `json:"raw_titles"`
}

// TrackCandidate is one catalog search result offered as a match for a song.
//
// ID is the catalog's track URI and must reach the playlist writer unchanged.
type TrackCandidate struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	DisplayMeta string `json:"display_meta,omitempty"`
}

// SongResolution pairs a normalized song title with its candidates, which may be empty.
type SongResolution struct {
	Song       string           `json:"song"`
	Candidates []TrackCandidate `json:"candidates"`
}

// Matched reports whether the search produced at least one candidate.
func (s SongResolution) Matched() bool {
	return len(s.Candidates) > 0
}

// Resolutions is an insertion-ordered mapping from normalized song title to its [SongResolution].
//
// Raw titles that normalize to the empty string cannot be searched and are kept in Unsearchable.
type Resolutions struct {
	Artist       string   `json:"artist"`
	URL          string   `json:"url,omitempty"`
	Unsearchable []string `json:"unsearchable,omitempty"`

	keys  []string
	songs map[string]SongResolution
}

// NewResolutions returns an empty mapping for artist.
func NewResolutions(artist, url string) *Resolutions {
	return &Resolutions{Artist: artist, URL: url, songs: make(map[string]SongResolution)}
}

// Add stores res under its song title. The first insertion fixes the position; later ones replace the value.
func (r *Resolutions) Add(res SongResolution) {
	if r.songs == nil {
		r.songs = make(map[string]SongResolution)
	}
	if _, ok := r.songs[res.Song]; !ok {
		r.keys = append(r.keys, res.Song)
	}
	r.songs[res.Song] = res
}

// Has reports whether song is already present.
func (r *Resolutions) Has(song string) bool {
	_, ok := r.songs[song]
	return ok
}

// Get returns the resolution for song.
func (r *Resolutions) Get(song string) (SongResolution, bool) {
	res, ok := r.songs[song]
	return res, ok
}

// Keys returns song titles in setlist order.
func (r *Resolutions) Keys() []string {
	return append([]string(nil), r.keys...)
}

// All returns the resolutions in setlist order.
func (r *Resolutions) All() []SongResolution {
	out := make([]SongResolution, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.songs[k])
	}
	return out
}

// Len returns the number of distinct songs.
func (r *Resolutions) Len() int {
	return len(r.keys)
}

// MatchedCount returns how many songs have at least one candidate.
func (r *Resolutions) MatchedCount() int {
	n := 0
	for _, k := range r.keys {
		if r.songs[k].Matched() {
			n++
		}
	}
	return n
}

// Offer returns the record of every candidate ID offered by r.
func (r *Resolutions) Offer() *Offer {
	return NewOffer(r)
}
