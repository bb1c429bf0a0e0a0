// Package report renders forecasts and metrics as plain text for the CLI
// and for chat replies.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/model"
)

// EstimateHeader opens every quick-estimate reply.
const EstimateHeader = "Gelecek %d ay için kategorilere göre tahmini harcamalar (enflasyon dahil):"

var turkishMonths = [...]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

// TurkishMonth returns the Turkish name of a month.
func TurkishMonth(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return turkishMonths[m-1]
}

// Estimate renders the quick estimator output: one block per projected
// month listing every category with two decimals.
func Estimate(f model.Forecast) string {
	var b strings.Builder
	fmt.Fprintf(&b, EstimateHeader+"\n", f.Horizon())
	cats := f.Categories()
	for _, r := range f.Records {
		fmt.Fprintf(&b, "%s %d\n", TurkishMonth(r.Period.Month()), r.Period.Year())
		for _, c := range cats {
			fmt.Fprintf(&b, "%s: %.2f TL\n", c, r.Value(c))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Forecast renders the per-period listing followed by the metrics section.
func Forecast(f model.Forecast, m model.MetricsResult, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Forecast for the next %d months (using Exponential Smoothing):\n", f.Horizon())
	b.WriteString(strings.Repeat("-", 80))
	b.WriteString("\n")
	for _, r := range f.Records {
		fmt.Fprintf(&b, "\nDate: %s\n", cli.FormatPeriod(r.Period))
		for _, s := range f.Series {
			fmt.Fprintf(&b, "%s: %s\n", config.DisplayName(s), cli.FormatMoney(r.Value(s), currency))
		}
	}
	b.WriteString("\n")
	b.WriteString(Metrics(m, currency))
	return b.String()
}

// Metrics renders the metrics section on its own.
func Metrics(m model.MetricsResult, currency string) string {
	var b strings.Builder
	b.WriteString("Forecast Metrics:\n")
	b.WriteString(strings.Repeat("-", 80))
	b.WriteString("\n")
	for _, s := range m.Series {
		fmt.Fprintf(&b, "\n%s:\n", config.DisplayName(s.Series))
		fmt.Fprintf(&b, "Average Monthly Increase: %s\n", cli.FormatMoney(s.AvgMonthlyIncrease, currency))
		fmt.Fprintf(&b, "Total Expected Increase: %.1f%%\n", s.TotalIncreasePct)
		fmt.Fprintf(&b, "Recent Trend (last 6 months): %.1f%%\n", s.RecentTrend)
		if s.Err != nil {
			fmt.Fprintf(&b, "Note: %v\n", s.Err)
		}
	}
	return b.String()
}

// Fits lists the smoothing model chosen per series, for verbose output.
func Fits(f model.Forecast) string {
	var b strings.Builder
	for _, fit := range f.Fits {
		note := ""
		if fit.Fallback {
			note = " (fallback)"
		}
		fmt.Fprintf(&b, "%-24s %-12s a=%.3f b=%.3f g=%.3f phi=%.3f sse=%.1f%s\n",
			config.DisplayName(fit.Series), fit.Kind, fit.Alpha, fit.Beta, fit.Gamma, fit.Phi, fit.SSE, note)
	}
	return b.String()
}

// Reminder renders the body of a spending alarm.
func Reminder(b model.BudgetStats, currency string) string {
	var s strings.Builder
	s.WriteString("Aylık harcama hatırlatması\n\n")
	fmt.Fprintf(&s, "Son ay harcaması: %s\n", cli.FormatMoney(b.CurrentSpend, currency))
	fmt.Fprintf(&s, "Gelecek ay tahmini: %s\n", cli.FormatMoney(b.ProjectedSpend, currency))
	if b.Wage > 0 {
		fmt.Fprintf(&s, "Maaşın kullanılacak kısmı: %.1f%%\n", b.BudgetUsedPercent)
		if b.Headroom < 0 {
			fmt.Fprintf(&s, "Uyarı: tahmini harcama maaşı %s aşıyor.\n", cli.FormatMoney(-b.Headroom, currency))
		} else {
			fmt.Fprintf(&s, "Kalan bütçe: %s\n", cli.FormatMoney(b.Headroom, currency))
		}
	}
	return s.String()
}
