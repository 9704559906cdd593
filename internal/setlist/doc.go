// Package setlist reads setlist pages: fetching them, extracting the artist and song titles, and cleaning titles into search terms.
package setlist
