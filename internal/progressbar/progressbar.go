// Package progressbar renders a single-line console progress bar for countdemo.
//
// On a color terminal it draws a gradient bar (bubbles/progress) with a styled count;
// otherwise, or when asked to be plain, it falls back to an ASCII bar.
package progressbar

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	// DefaultWidth is the fallback width when the terminal's can't be determined.
	DefaultWidth = 80

	// MinWidth is the narrowest bar we'll draw.
	MinWidth = 20
)

// Renderer draws progress towards a fixed maximum.
type Renderer struct {
	total int
	width int
	plain bool
	bar   progress.Model
	label lipgloss.Style
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth fixes the total width in cells, instead of fitting the terminal.
func WithWidth(width int) Option {
	return func(r *Renderer) {
		r.width = width
	}
}

// WithPlain forces the ASCII bar.
func WithPlain(plain bool) Option {
	return func(r *Renderer) {
		r.plain = plain
	}
}

// WithColorProfile overrides terminal color detection.
func WithColorProfile(profile termenv.Profile) Option {
	return func(r *Renderer) {
		r.bar = progress.New(progress.WithDefaultGradient(), progress.WithColorProfile(profile))
		r.plain = r.plain || profile == termenv.Ascii
	}
}

// New returns a Renderer for progress from 0 to total.
func New(total int, opts ...Option) *Renderer {
	r := &Renderer{
		total: total,
		plain: !term.IsTerminal(int(os.Stdout.Fd())),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithColorProfile(termenv.ColorProfile())),
		label: lipgloss.NewStyle().Bold(true),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.width <= 0 {
		r.width = TerminalWidth()
	}
	if r.width < MinWidth {
		r.width = MinWidth
	}
	return r
}

// Render returns the bar for current, without any line terminator or carriage return.
func (r *Renderer) Render(current int) string {
	if r.plain {
		return Plain(current, r.total, r.width-2)
	}
	count := r.label.Render(fmt.Sprintf("%d/%d", current, r.total))
	bar := r.bar
	bar.Width = max(r.width-lipgloss.Width(count)-1, MinWidth)
	return bar.ViewAs(fraction(current, r.total)) + " " + count
}

// Plain renders an ASCII bar whose inside is width cells, framed by '|':
//
//	|=[50% (50/100)]=====                    |
//
// The bracketed prefix sits at the start of the fill, and leads with '=' once any progress is made.
func Plain(current, total, width int) string {
	percent := percentOf(current, total)
	lead := " ["
	if percent >= 1 {
		lead = "=["
	}
	prefix := fmt.Sprintf("%s%d%% (%d/%d)]", lead, percent, current, total)
	filled := percent * width / 100

	var b strings.Builder
	b.WriteString("|")
	b.WriteString(prefix)
	for i := len(prefix); i < filled; i++ {
		b.WriteByte('=')
	}
	for b.Len() < width+1 {
		b.WriteByte(' ')
	}
	b.WriteString("|")
	return b.String()
}

func percentOf(current, total int) int {
	if total <= 0 {
		return 0
	}
	return min(max(current*100/total, 0), 100)
}

func fraction(current, total int) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(current) / float64(total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// TerminalWidth returns stdout's width, or DefaultWidth if that can't be determined.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
