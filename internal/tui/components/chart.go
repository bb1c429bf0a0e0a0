package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/tui/theme"
)

var (
	sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	partBlocks  = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
)

// Sparkline renders values between their observed minimum and maximum,
// since monthly expenses never approach zero.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	runes := make([]rune, len(values))
	for i, v := range values {
		idx := int((v - lo) / span * float64(len(sparkBlocks)-1))
		runes[i] = sparkBlocks[max(0, min(idx, len(sparkBlocks)-1))]
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(string(runes))
}

// Bar is one column of a bar chart.
type Bar struct {
	Value     float64
	Label     string
	Projected bool
}

// BarChart renders values as bars on a zero-based axis.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	return SplitBarChart(values, labels, color, color, len(values), width, height)
}

// SplitBarChart renders values[:splitAt] as actuals and the rest in
// projColor, so history and forecast share one axis.
func SplitBarChart(values []float64, labels []string, color, projColor lipgloss.Color, splitAt, width, height int) string {
	bars := make([]Bar, len(values))
	for i, v := range values {
		bars[i] = Bar{Value: v, Projected: i >= splitAt}
		if len(labels) == len(values) {
			bars[i].Label = labels[i]
		}
	}
	return RenderBars(bars, color, projColor, width, height)
}

// yAxis is a zero-based value axis with evenly spaced ticks.
type yAxis struct {
	ceiling     float64
	step        float64
	intervals   int
	rowsPerTick int
}

func newYAxis(peak float64, height int) yAxis {
	if peak <= 0 {
		peak = 1
	}
	step := chartTickStep(peak)
	maxIntervals := max(2, height/2)
	for int(math.Ceil(peak/step)) > maxIntervals {
		step *= 2
	}
	ceiling := math.Ceil(peak/step) * step
	intervals := max(1, int(math.Round(ceiling/step)))
	return yAxis{
		ceiling:     ceiling,
		step:        step,
		intervals:   intervals,
		rowsPerTick: max(2, height/intervals),
	}
}

func (a yAxis) rows() int { return a.rowsPerTick * a.intervals }

// tick returns the label for a row, or "" between ticks.
func (a yAxis) tick(row int) string {
	if row%a.rowsPerTick != 0 {
		return ""
	}
	return formatChartLabel(a.step * float64(row/a.rowsPerTick))
}

// RenderBars draws bars with a y axis on the left and labels underneath.
// Projected bars use projColor. Too many bars for the width are sampled.
func RenderBars(bars []Bar, color, projColor lipgloss.Color, width, height int) string {
	if len(bars) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		values := make([]float64, len(bars))
		for i, b := range bars {
			values[i] = b.Value
		}
		return Sparkline(values, color)
	}

	t := theme.Active
	peak := 0.0
	for _, b := range bars {
		peak = max(peak, b.Value)
	}
	axis := newYAxis(peak, height)

	labelW := max(4, len(formatChartLabel(axis.ceiling))+1)
	chartW := max(5, width-labelW-1)

	gap := 1
	if len(bars) == 1 {
		gap = 0
	}
	barW := (chartW - (len(bars) - 1)) / len(bars)
	if len(bars) == 1 {
		barW = chartW
	}
	if barW < 2 && len(bars) > 1 {
		bars = sampleBars(bars, max(2, (chartW+1)/3))
		barW = 2
	}
	barW = min(barW, 6)
	axisLen := len(bars)*barW + (len(bars)-1)*gap

	bg := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	projStyle := lipgloss.NewStyle().Foreground(projColor).Background(t.Surface)
	blank := bg.Render(strings.Repeat(" ", barW))
	spacer := bg.Render(strings.Repeat(" ", gap))

	var sb strings.Builder
	chartH := axis.rows()
	for row := chartH; row >= 1; row-- {
		top := axis.ceiling * float64(row) / float64(chartH)
		bottom := axis.ceiling * float64(row-1) / float64(chartH)
		actual := lipgloss.NewStyle().Foreground(rowColor(float64(row)/float64(chartH), color)).Background(t.Surface)

		sb.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", labelW, axis.tick(row))))
		for i, b := range bars {
			if i > 0 && gap > 0 {
				sb.WriteString(spacer)
			}
			style := actual
			if b.Projected {
				style = projStyle
			}
			switch {
			case b.Value >= top:
				sb.WriteString(style.Render(strings.Repeat("█", barW)))
			case b.Value > bottom:
				idx := int((b.Value - bottom) / (top - bottom) * 8)
				sb.WriteString(style.Render(strings.Repeat(string(partBlocks[max(1, min(idx, 8))]), barW)))
			default:
				sb.WriteString(blank)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(axisStyle.Render(fmt.Sprintf("%*s└", labelW, "0") + strings.Repeat("─", axisLen)))

	if row := labelRow(bars, barW+gap, axisLen); row != "" {
		sb.WriteString("\n")
		sb.WriteString(bg.Render(strings.Repeat(" ", labelW+1)))
		sb.WriteString(axisStyle.Render(row))
	}
	return sb.String()
}

// rowColor shades actual bars brighter towards the top of the chart.
func rowColor(heightPct float64, color lipgloss.Color) lipgloss.Color {
	t := theme.Active
	switch {
	case heightPct > 0.8:
		return t.AccentBright
	case heightPct > 0.5:
		return color
	default:
		return t.Accent
	}
}

// sampleBars picks n evenly spaced bars, always keeping the first and last.
func sampleBars(bars []Bar, n int) []Bar {
	if n >= len(bars) {
		return bars
	}
	out := make([]Bar, n)
	for i := range out {
		out[i] = bars[i*(len(bars)-1)/(n-1)]
	}
	return out
}

// labelRow lays out bar labels under the axis without overlaps. The last
// label is always attempted so the newest month stays visible.
func labelRow(bars []Bar, pitch, axisLen int) string {
	hasLabels := false
	for _, b := range bars {
		if b.Label != "" {
			hasLabels = true
			break
		}
	}
	if !hasLabels {
		return ""
	}

	buf := []rune(strings.Repeat(" ", axisLen))
	step := max(1, len(bars)*8/(axisLen+1))
	lastEnd := -1
	place := func(pos int, lbl []rune) {
		if pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos < 0 || pos <= lastEnd {
			return
		}
		copy(buf[pos:], lbl)
		lastEnd = pos + len(lbl)
	}
	for i := 0; i < len(bars)-1; i += step {
		place(i*pitch, []rune(bars[i].Label))
	}
	place((len(bars)-1)*pitch, []rune(bars[len(bars)-1].Label))
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep picks a 1/2/5 step giving about five ticks.
func chartTickStep(peak float64) float64 {
	if peak <= 0 {
		return 1
	}
	rough := peak / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	switch frac := rough / base; {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel abbreviates an axis value, dropping ".0" on round ticks.
func formatChartLabel(v float64) string {
	for _, u := range []struct {
		div    float64
		suffix string
	}{{1e9, "B"}, {1e6, "M"}, {1e3, "k"}} {
		if v >= u.div {
			if v == math.Trunc(v/u.div)*u.div {
				return fmt.Sprintf("%.0f%s", v/u.div, u.suffix)
			}
			return fmt.Sprintf("%.1f%s", v/u.div, u.suffix)
		}
	}
	if v >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
