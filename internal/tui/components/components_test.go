package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/finassist/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowPadsShortCardsWithBackground(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Kısa", "Kira", 22)
	tallCard := ContentCard("Uzun", "1\n2\n3\n4\n5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes: %q", i, lines[i])
		}
	}
}

func TestCardRowKeepsWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	joined := CardRow([]string{
		ContentCard("A", "x\ny\nz", 20),
		ContentCard("B", "x", 30),
	})
	for i, line := range strings.Split(joined, "\n") {
		if w := lipgloss.Width(line); w != 50 {
			t.Errorf("line %d width = %d, want 50", i, w)
		}
	}
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, tc := range []struct{ total, n int }{{80, 3}, {81, 4}, {7, 7}} {
		sum := 0
		for _, w := range LayoutRow(tc.total, tc.n) {
			sum += w
		}
		if sum != tc.total {
			t.Errorf("LayoutRow(%d, %d) sums to %d", tc.total, tc.n, sum)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow with n=0 should be nil")
	}
}

func TestTabVisualWidthMatchesRender(t *testing.T) {
	theme.SetActive("flexoki-dark")
	for active := range Tabs {
		bar := strings.Split(RenderTabBar(active, 200), "\n")[0]
		want := 0
		for i, tab := range Tabs {
			want += TabVisualWidth(tab, i == active)
			if i < len(Tabs)-1 {
				want++
			}
		}
		if got := lipgloss.Width(strings.TrimRight(stripANSI(bar), " ")); got != want {
			t.Errorf("active=%d: rendered width %d, want %d", active, got, want)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('f'); got != 1 {
		t.Errorf("TabIdxByKey('f') = %d, want 1", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestSplitBarChartHeight(t *testing.T) {
	theme.SetActive("flexoki-dark")
	vals := []float64{100, 200, 300, 400, 500, 600}
	labels := []string{"Oca", "Şub", "Mar", "Nis", "May", "Haz"}
	out := SplitBarChart(vals, labels, theme.Active.Blue, theme.Active.Projected, 4, 60, 8)
	lines := strings.Split(out, "\n")
	// chart rows, x-axis, label row
	if len(lines) < 4 {
		t.Fatalf("chart too short: %d lines", len(lines))
	}
	if !strings.Contains(stripANSI(lines[len(lines)-1]), "Oca") {
		t.Errorf("label row missing first label: %q", stripANSI(lines[len(lines)-1]))
	}
}

func TestBudgetBarShowsUncappedPercent(t *testing.T) {
	theme.SetActive("flexoki-dark")
	out := stripANSI(BudgetBar("Bütçe", 1.25, 8, 20))
	if !strings.Contains(out, "125%") {
		t.Errorf("BudgetBar = %q, want 125%%", out)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TestSampleBarsKeepsEnds(t *testing.T) {
	bars := make([]Bar, 30)
	for i := range bars {
		bars[i] = Bar{Value: float64(i)}
	}
	got := sampleBars(bars, 7)
	if len(got) != 7 || got[0].Value != 0 || got[6].Value != 29 {
		t.Errorf("sampleBars = %+v", got)
	}
}

func TestLabelRowPlacesMultibyteLabels(t *testing.T) {
	bars := []Bar{{Label: "Şub"}, {Label: "Mar"}, {Label: "Nis"}}
	row := labelRow(bars, 5, 13)
	if row != "Şub  Mar  Nis" {
		t.Errorf("labelRow = %q", row)
	}
	if labelRow([]Bar{{Value: 1}}, 3, 3) != "" {
		t.Error("unlabelled bars should produce no row")
	}
}

func TestNewYAxisTicks(t *testing.T) {
	a := newYAxis(600, 8)
	if a.ceiling != 600 || a.intervals != 3 || a.rowsPerTick != 2 {
		t.Fatalf("axis = %+v", a)
	}
	if a.tick(2) != "200" || a.tick(6) != "600" || a.tick(3) != "" {
		t.Errorf("ticks = %q %q %q", a.tick(2), a.tick(6), a.tick(3))
	}
	if got := formatChartLabel(15000); got != "15k" {
		t.Errorf("formatChartLabel(15000) = %q", got)
	}
}
