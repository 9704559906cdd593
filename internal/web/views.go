package web

import (
	"html/template"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/h4nsec/SpotiPlay/internal/models"
)

type indexView struct {
	Playlists     []models.PlaylistSummary
	PlaylistError string
	SignedIn      bool
}

type resolveView struct {
	Artist       string
	SetlistURL   string
	PlaylistName string
	PlaylistID   string
	IsUpdate     bool
	Songs        []models.SongResolution
	Unsearchable []string
	Matched      int
	Offer        string
}

type resultView struct {
	Result *models.ReconciliationResult
	Artist string
}

type partialView struct {
	PlaylistID   string
	PlaylistName string
	Message      string
}

type errorView struct {
	Status  int
	Title   string
	Message string
	Login   bool
}

var funcs = template.FuncMap{
	"ordinal": humanize.Ordinal,
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"plural": func(n int, singular, plural string) string {
		return english.PluralWord(n, singular, plural)
	},
	"trackURL": func(uri string) string {
		if id, ok := strings.CutPrefix(uri, "spotify:track:"); ok {
			return "https://open.spotify.com/track/" + id
		}
		return ""
	},
	"playlistURL": func(id string) string {
		return "https://open.spotify.com/playlist/" + id
	},
	"add": func(a, b int) int { return a + b },
}
