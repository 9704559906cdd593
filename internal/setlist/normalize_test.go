package setlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tc := []struct {
		name string
		raw  string
		want string
	}{
		{name: "play video in parentheses", raw: "Hey Jude (Play Video)", want: "Hey Jude"},
		{name: "whitespace", raw: "  Let It   Be  ", want: "Let It Be"},
		{name: "entirely parenthetical", raw: "(Intro)", want: ""},
		{name: "bare play video token", raw: "Yesterday Play Video", want: "Yesterday"},
		{name: "play video is case sensitive", raw: "Yesterday play video", want: "Yesterday play video"},
		{name: "multiple spans", raw: "Song (Live) (with Guest)", want: "Song"},
		{name: "newlines and tabs", raw: "\n\tSong\n B \t", want: "Song B"},
		{name: "nested over-strips", raw: "Song (a (b) c) End", want: "Song c End"},
		{name: "unbalanced open", raw: "Song (unfinished", want: "Song unfinished"},
		{name: "span joins neighbours", raw: "Foo(Live)Bar", want: "FooBar"},
		{name: "play video joins neighbours", raw: "IntroPlay VideoOutro", want: "IntroOutro"},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeHasNoParentheses(t *testing.T) {
	inputs := []string{
		"A (b)", "(x) y (z)", "((double))", "a ) b ( c", "Song (a (b) c) End", "Play Video (Play Video)",
	}
	for _, in := range inputs {
		got := Normalize(in)
		assert.False(t, strings.ContainsAny(got, "()"), "Normalize(%q) = %q", in, got)
	}
}
