package setlist

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/h4nsec/SpotiPlay/internal/models"
	"github.com/h4nsec/SpotiPlay/internal/shared"
)

const (
	artistPrefix = "Get the "
	artistSuffix = " Setlist"

	descriptionSelector = `meta[name="description"]`
	songSelector        = "li.setlistParts.song"
)

// ParseErrorKind classifies why a page could not be parsed.
type ParseErrorKind int

const (
	Malformed ParseErrorKind = iota
	NoArtist
	NoSongs
)

func (k ParseErrorKind) String() string {
	switch k {
	case NoArtist:
		return "NoArtist"
	case NoSongs:
		return "NoSongs"
	default:
		return "Malformed"
	}
}

func (k ParseErrorKind) sentinel() error {
	switch k {
	case NoArtist:
		return shared.ErrNoArtist
	case NoSongs:
		return shared.ErrNoSongs
	default:
		return shared.ErrMalformedPage
	}
}

// ParseError reports a page that yielded no usable setlist.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind.sentinel(), e.Err)
	}
	return e.Kind.sentinel().Error()
}

// Unwrap exposes both the kind sentinel and the cause to [errors.Is].
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// IsParseError reports whether err is a [ParseError] and returns its kind.
func IsParseError(err error) (ParseErrorKind, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return Malformed, false
}

// Parse extracts the artist and ordered raw song titles from a setlist page.
func Parse(html []byte) (*models.SetlistPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &ParseError{Kind: Malformed, Err: err}
	}

	artist, err := parseArtist(doc)
	if err != nil {
		return nil, err
	}

	var titles []string
	doc.Find(songSelector).Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})

	if len(titles) == 0 {
		return nil, &ParseError{Kind: NoSongs}
	}

	return &models.SetlistPage{Artist: artist, RawTitles: titles}, nil
}

func parseArtist(doc *goquery.Document) (string, error) {
	content, ok := doc.Find(descriptionSelector).First().Attr("content")
	if !ok {
		return "", &ParseError{Kind: NoArtist}
	}

	artist := ArtistFromDescription(content)
	if artist == "" {
		return "", &ParseError{Kind: NoArtist, Err: fmt.Errorf("description %q names no artist", content)}
	}
	return artist, nil
}

// ArtistFromDescription cuts the description at the first " Setlist" and removes the "Get the " prefix.
func ArtistFromDescription(content string) string {
	if i := strings.Index(content, artistSuffix); i >= 0 {
		content = content[:i]
	}
	content = strings.ReplaceAll(content, artistPrefix, "")
	return strings.TrimSpace(content)
}
