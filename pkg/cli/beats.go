package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
)

// Theme defines the colors of the beat view.
type Theme struct {
	Accent lipgloss.Color
	Beat   lipgloss.Color
	Dim    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Accent: lipgloss.Color("#00ff9f"),
	Beat:   lipgloss.Color("#c9d1d9"),
	Dim:    lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Accent  lipgloss.Style
	Beat    lipgloss.Style
	Sustain lipgloss.Style
	Label   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Accent:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Beat:    lipgloss.NewStyle().Foreground(t.Beat),
		Sustain: lipgloss.NewStyle().Foreground(t.Dim),
		Label:   lipgloss.NewStyle().Foreground(t.Dim).Width(4).Align(lipgloss.Right),
	}
}

// Beat marker glyphs.
const (
	AccentMark  = "●"
	BeatMark    = "○"
	SustainMark = "─"
	RestMark    = "·"
)

// cellsPerWhole is the horizontal resolution of the beat view: one cell is
// a sixteenth note.
const cellsPerWhole = 16

// RenderBeats draws one line per measure. Each note is a marker followed by
// sustain cells proportional to its length; rests are dotted.
func RenderBeats(r rhythm.Rhythm, s Styles) string {
	lines := make([]string, len(r.Measures))
	var cur strings.Builder
	measure := -1
	flush := func() {
		if measure >= 0 {
			ts := r.Measures[measure].TimeSignature
			lines[measure] = lipgloss.JoinHorizontal(lipgloss.Top,
				s.Label.Render(fmt.Sprint(measure+1)), " ", s.Sustain.Render(ts.String()), " │", cur.String(), "│")
		}
		cur.Reset()
	}
	for _, pos := range r.Positions() {
		if pos.Measure != measure {
			flush()
			measure = pos.Measure
		}
		a, _ := r.At(pos)
		cells := max(1, int(math.Round(a.Duration()*cellsPerWhole)))
		switch {
		case a.IsRest():
			cur.WriteString(s.Sustain.Render(strings.Repeat(RestMark, cells)))
		default:
			mark := s.Beat.Render(BeatMark)
			if n, ok := a.(rhythm.Note); ok && n.Stem == rhythm.StemUp {
				mark = s.Accent.Render(AccentMark)
			}
			cur.WriteString(mark)
			cur.WriteString(s.Sustain.Render(strings.Repeat(SustainMark, cells-1)))
		}
	}
	flush()
	for i, l := range lines {
		if l == "" {
			lines[i] = lipgloss.JoinHorizontal(lipgloss.Top,
				s.Label.Render(fmt.Sprint(i+1)), " ", s.Sustain.Render(r.Measures[i].TimeSignature.String()), " ││")
		}
	}
	return strings.Join(lines, "\n")
}
