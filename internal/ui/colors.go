package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// styles is the package stylesheet: purple titles, green for the user and
// success states, red for errors, orange for in-flight status tags, gray
// for help text and video links.
var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Painter colors text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // background
	As(string, lipgloss.Color) string // foreground
}

// Palette holds the named [lipgloss.Style] fields the views render with.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a Palette from title, ok, error, warning, and help hex
// colors, in that order.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
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
