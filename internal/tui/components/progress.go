package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/tui/theme"
)

// ProgressBar renders the series-fitting progress shown while loading.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = clamp01(pct)

	barColor := t.Cyan
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	}

	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	return cells(pct, width, barColor, '█', '░') +
		lipgloss.NewStyle().Background(t.Surface).Render(" ") +
		pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// ColorForPct returns green, yellow, orange or red by how much of the
// budget is used.
func ColorForPct(pct float64) string {
	t := theme.Active
	switch {
	case pct >= 1:
		return string(t.Red)
	case pct >= 0.85:
		return string(t.Orange)
	case pct >= 0.6:
		return string(t.Yellow)
	default:
		return string(t.Green)
	}
}

// BudgetBar renders a labeled bar for the share of the wage a projected
// month would spend. pct may exceed 1; the bar is capped but the label is not.
func BudgetBar(label string, pct float64, labelW, barWidth int) string {
	t := theme.Active

	shown := clamp01(pct)

	bar := progress.New(
		progress.WithSolidFill(ColorForPct(pct)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorForPct(pct))).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		spaceStyle.Render(" ") +
		bar.ViewAs(shown) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct*100))
}

// ShareBar renders a plain horizontal bar of width*pct cells.
func ShareBar(pct float64, width int, color lipgloss.Color) string {
	return cells(pct, width, color, '█', ' ')
}

// cells fills round(pct*width) cells with full and pads with empty.
func cells(pct float64, width int, color lipgloss.Color, full, empty rune) string {
	t := theme.Active
	n := min(width, int(clamp01(pct)*float64(width)+0.5))
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(strings.Repeat(string(full), n)) +
		lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render(strings.Repeat(string(empty), width-n))
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}
