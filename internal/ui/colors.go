package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	cursor   lipgloss.Style
	song     lipgloss.Style
	selected lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		cursor:   NewBold(t),
		song:     lipgloss.NewStyle().Bold(true),
		selected: NewStyle(s),
	}
}

// As renders s in the foreground color c.
func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// On renders s over the background color c.
func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
