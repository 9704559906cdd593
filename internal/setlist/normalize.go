package setlist

import (
	"regexp"
	"strings"
)

var parenthetical = regexp.MustCompile(`\([^)]*\)`)

const playVideo = "Play Video"

// Normalize turns a raw setlist title into a search term.
//
// Parenthesized spans are deleted first, then stray parentheses and the literal "Play Video", then
// whitespace is collapsed. Deletions leave no gap, so "Foo(Live)Bar" becomes "FooBar". Nested
// parentheses are not matched as a unit and may over-strip. The result may be empty.
func Normalize(raw string) string {
	s := parenthetical.ReplaceAllString(raw, "")
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	s = strings.ReplaceAll(s, playVideo, "")
	return strings.Join(strings.Fields(s), " ")
}
