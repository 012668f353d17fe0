package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colors of the transcript view.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Warn    lipgloss.Color
}

// DefaultTheme is a bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#ffb86c"),
}

// Styles holds the styles derived from a theme.
type Styles struct {
	Offset  lipgloss.Style
	Final   lipgloss.Style
	Interim lipgloss.Style
	Summary lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Offset:  lipgloss.NewStyle().Foreground(t.Dim),
		Final:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Interim: lipgloss.NewStyle().Italic(true).Foreground(t.Dim),
		Summary: lipgloss.NewStyle().Foreground(t.Warn),
	}
}

// Line is one piece of transcript to display.
type Line struct {
	Start float64
	Text  string
	Final bool
}

// TranscriptView prints a live transcript. On a terminal, interim text is
// redrawn in place on the last line until the final text replaces it; other
// writers only receive final lines.
type TranscriptView struct {
	mu      sync.Mutex
	w       io.Writer
	styles  Styles
	live    bool
	width   int
	pending bool
}

// NewTranscriptView returns a view writing to w. live enables in-place
// interim updates and should only be set for terminals. width bounds the
// interim line; zero disables truncation.
func NewTranscriptView(w io.Writer, styles Styles, live bool, width int) *TranscriptView {
	return &TranscriptView{w: w, styles: styles, live: live, width: width}
}

// Show displays one line.
func (v *TranscriptView) Show(l Line) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	text := strings.TrimSpace(l.Text)
	if !l.Final {
		if !v.live || text == "" {
			return nil
		}
		s := v.styles.Offset.Render(FormatOffset(l.Start)) + " " + v.styles.Interim.Render(v.fit(text))
		_, err := fmt.Fprint(v.w, "\r\x1b[K"+s)
		v.pending = true
		return err
	}

	prefix := ""
	if v.pending {
		prefix = "\r\x1b[K"
		v.pending = false
	}
	if text == "" {
		_, err := io.WriteString(v.w, prefix)
		return err
	}
	s := v.styles.Offset.Render(FormatOffset(l.Start)) + " " + v.styles.Final.Render(text)
	_, err := fmt.Fprintln(v.w, prefix+s)
	return err
}

// Summary clears any pending interim line and prints a closing note.
func (v *TranscriptView) Summary(format string, args ...any) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	prefix := ""
	if v.pending {
		prefix = "\r\x1b[K"
		v.pending = false
	}
	_, err := fmt.Fprintln(v.w, prefix+v.styles.Summary.Render(fmt.Sprintf(format, args...)))
	return err
}

// fit truncates text so that offset and text fit on one line.
func (v *TranscriptView) fit(text string) string {
	avail := v.width - len("00:00.0 ")
	if v.width <= 0 || avail <= 1 || lipgloss.Width(text) <= avail {
		return text
	}
	return "…" + truncateLeft(text, avail-1)
}

// truncateLeft keeps the rightmost runes of s that fit in width cells, so
// the newest words stay visible.
func truncateLeft(s string, width int) string {
	runes := []rune(s)
	cur := 0
	for i := len(runes) - 1; i >= 0; i-- {
		w := lipgloss.Width(string(runes[i]))
		if cur+w > width {
			return string(runes[i+1:])
		}
		cur += w
	}
	return s
}
