package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/tui/theme"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	Hints      string
	DataFile   string
	LoadTime   string
	CacheHit   bool
	Refreshing bool
	Streaming  bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface).Width(width)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	infoStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	liveStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)

	left := hintStyle.Render(" " + info.Hints)

	right := ""
	switch {
	case info.Streaming:
		right = liveStyle.Render("● yanıt yazılıyor ")
	case info.Refreshing:
		right = liveStyle.Render("↻ yenileniyor ")
	}
	if info.DataFile != "" {
		src := info.DataFile
		if info.LoadTime != "" {
			src += " · " + info.LoadTime
		}
		if info.CacheHit {
			src += " · cache"
		}
		right += infoStyle.Render(src + " ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return barStyle.Render(left)
	}
	return barStyle.Render(left + lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", gap)) + right)
}
