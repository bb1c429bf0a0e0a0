package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/tui/components"
	"github.com/theirongolddev/finassist/internal/tui/theme"
)

// chartHistoryMonths is how many actual months precede the projection.
const chartHistoryMonths = 12

func (a App) renderForecastTab(cw int) string {
	res := a.result
	if res == nil || res.Forecast == nil || res.Forecast.Horizon() == 0 {
		return a.renderUnavailable(cw)
	}
	t := theme.Active
	cur := a.currency()
	h := res.History
	f := *res.Forecast
	budget := pipeline.Budget(h, res.Forecast)

	var b strings.Builder

	// Row 1: metric cards
	next := f.Records[0]
	nextDelta := ""
	nextTrend := components.TrendNeutral
	if budget.CurrentSpend > 0 {
		change := (budget.ProjectedSpend - budget.CurrentSpend) / budget.CurrentSpend * 100
		nextDelta = cli.FormatSignedPercent(change) + " vs last month"
		if change > 0 {
			nextTrend = components.TrendRising
		} else if change < 0 {
			nextTrend = components.TrendFalling
		}
	}
	headroomTrend := components.TrendFalling
	if budget.Headroom < 0 {
		headroomTrend = components.TrendRising
	}
	cards := []components.Metric{
		{Label: "Next month (" + cli.FormatPeriod(next.Period) + ")", Value: cli.FormatMoney(budget.ProjectedSpend, cur), Delta: nextDelta, Trend: nextTrend},
		{Label: fmt.Sprintf("Next %d months", f.Horizon()), Value: cli.FormatMoney(budget.ProjectedHorizon, cur), Delta: cli.FormatMoney(budget.ProjectedHorizon/float64(f.Horizon()), cur) + "/mo"},
		{Label: "Headroom", Value: cli.FormatSignedMoney(budget.Headroom, cur), Delta: "wage " + cli.FormatMoney(budget.Wage, cur), Trend: headroomTrend},
	}
	if m, ok := res.Metrics.Get(model.TotalSeries); ok && m.Err == nil {
		trend := components.TrendFalling
		if m.RecentTrend > 0 {
			trend = components.TrendRising
		}
		cards = append(cards, components.Metric{Label: "Recent trend (6 mo)", Value: cli.FormatSignedPercent(m.RecentTrend), Trend: trend})
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Row 2: history + projection chart
	recent := pipeline.LastMonths(h, chartHistoryMonths)
	vals := make([]float64, 0, recent.Len()+f.Horizon())
	periods := make([]time.Time, 0, recent.Len()+f.Horizon())
	for _, r := range recent.Records {
		vals = append(vals, r.Total)
		periods = append(periods, r.Period)
	}
	for _, r := range f.Records {
		vals = append(vals, r.Total)
		periods = append(periods, r.Period)
	}
	chartH := 10
	if a.isCompactLayout() {
		chartH = 7
	}
	legend := lipgloss.NewStyle().Foreground(t.Blue).Background(t.Surface).Render("█ actual  ") +
		lipgloss.NewStyle().Foreground(t.Projected).Background(t.Surface).Render("█ forecast")
	b.WriteString(components.ContentCard(
		"Monthly Expense",
		components.SplitBarChart(vals, monthLabels(periods), t.Blue, t.Projected, recent.Len(),
			components.CardInnerWidth(cw), chartH)+"\n"+legend,
		cw,
	))
	b.WriteString("\n")

	// Row 3: budget bar + metrics table
	innerW := components.CardInnerWidth(cw)
	if a.isCompactLayout() {
		b.WriteString(a.renderBudgetCard(budget, cw))
		b.WriteString("\n")
		b.WriteString(a.renderMetricsCard(res.Metrics, cw))
	} else {
		halves := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{
			a.renderBudgetCard(budget, halves[0]),
			a.renderMetricsCard(res.Metrics, halves[1]),
		}))
	}
	b.WriteString("\n")
	b.WriteString(a.renderCategoryForecast(f, cw, innerW))
	return b.String()
}

func (a App) renderBudgetCard(budget model.BudgetStats, cw int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	cur := a.currency()

	barW := innerW - 10 - 6
	if barW < 10 {
		barW = 10
	}
	var body strings.Builder
	body.WriteString(components.BudgetBar("Projected", budget.BudgetUsedPercent/100, 10, barW))
	body.WriteString("\n")
	if budget.Wage > 0 {
		used := budget.CurrentSpend / budget.Wage
		body.WriteString(components.BudgetBar("This month", used, 10, barW))
		body.WriteString("\n")
	}
	body.WriteString("\n")
	body.WriteString(labelStyle.Render("Wage          ") + valueStyle.Render(cli.FormatMoney(budget.Wage, cur)) + "\n")
	body.WriteString(labelStyle.Render("Last month    ") + valueStyle.Render(cli.FormatMoney(budget.CurrentSpend, cur)) + "\n")
	body.WriteString(labelStyle.Render("Projected     ") + valueStyle.Render(cli.FormatMoney(budget.ProjectedSpend, cur)))
	return components.ContentCard("Budget", body.String(), cw)
}

func (a App) renderMetricsCard(m model.MetricsResult, cw int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	upStyle := lipgloss.NewStyle().Foreground(t.Rising).Background(t.Surface)
	downStyle := lipgloss.NewStyle().Foreground(t.Falling).Background(t.Surface)

	nameW := innerW - 9 - 9 - 2
	if nameW < 10 {
		nameW = 10
	}
	pct := func(v float64) string {
		s := fmt.Sprintf(" %8s", cli.FormatSignedPercent(v))
		if v > 0 {
			return upStyle.Render(s)
		}
		return downStyle.Render(s)
	}

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %8s %8s", nameW, "Series", "Horizon", "6 mo")))
	body.WriteString("\n")
	for _, s := range m.Series {
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(config.DisplayName(s.Series), nameW))))
		if s.Err != nil && s.TotalIncreasePct == 0 && s.RecentTrend == 0 {
			body.WriteString(mutedStyle.Render(fmt.Sprintf(" %8s %8s", "n/a", "n/a")))
		} else {
			body.WriteString(pct(s.TotalIncreasePct))
			body.WriteString(pct(s.RecentTrend))
		}
		body.WriteString("\n")
	}
	return components.ContentCard("Forecast Metrics", strings.TrimRight(body.String(), "\n"), cw)
}

// renderCategoryForecast shows one row per category and one column per
// projected month, as many as fit.
func (a App) renderCategoryForecast(f model.Forecast, cw, innerW int) string {
	t := theme.Active
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.Projected).Background(t.Surface)

	const nameW, colW = 20, 11
	cols := (innerW - nameW) / (colW + 1)
	if cols > f.Horizon() {
		cols = f.Horizon()
	}
	if cols < 1 {
		cols = 1
	}

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", nameW, "Category")))
	for _, r := range f.Records[:cols] {
		body.WriteString(headerStyle.Render(fmt.Sprintf(" %*s", colW, cli.FormatPeriod(r.Period))))
	}
	body.WriteString("\n")
	for _, c := range f.Categories() {
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s", nameW, truncStr(config.DisplayName(c), nameW))))
		for _, r := range f.Records[:cols] {
			body.WriteString(valueStyle.Render(fmt.Sprintf(" %*s", colW, cli.FormatCompactMoney(r.Categories[c]))))
		}
		body.WriteString("\n")
	}
	return components.ContentCard("Projected by Category", strings.TrimRight(body.String(), "\n"), cw)
}
