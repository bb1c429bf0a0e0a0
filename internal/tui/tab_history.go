package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/tui/components"
	"github.com/theirongolddev/finassist/internal/tui/theme"
)

// historyTableMonths caps the monthly table.
const historyTableMonths = 12

func (a App) renderHistoryTab(cw int) string {
	res := a.result
	if res == nil || res.History.Len() == 0 {
		return a.renderUnavailable(cw)
	}
	h := res.History
	cur := a.currency()
	sum := pipeline.Summarize(h)

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Months", Value: cli.FormatNumber(int64(sum.Months)), Delta: cli.FormatPeriod(sum.From) + " → " + cli.FormatPeriod(sum.To)},
		{Label: "Avg expense", Value: cli.FormatMoney(sum.AvgExpense, cur), Delta: cli.FormatMoney(sum.ExpensePerDay, cur) + "/day"},
		{Label: "Avg wage", Value: cli.FormatMoney(sum.AvgWage, cur), Delta: "last " + cli.FormatMoney(sum.LastWage, cur)},
		{Label: "Savings rate", Value: cli.FormatRatio(sum.SavingsRate)},
	}, cw))
	b.WriteString("\n")

	if a.isCompactLayout() {
		b.WriteString(a.renderCategoryShares(cw))
		b.WriteString("\n")
		b.WriteString(a.renderMonthlyTable(cw))
		return b.String()
	}
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		a.renderCategoryShares(halves[0]),
		a.renderMonthlyTable(halves[1]),
	}))
	return b.String()
}

func (a App) renderCategoryShares(cw int) string {
	t := theme.Active
	shares := pipeline.AggregateCategories(a.result.History)
	innerW := components.CardInnerWidth(cw)

	nameStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	shareStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)
	upStyle := lipgloss.NewStyle().Foreground(t.Rising).Background(t.Surface)
	downStyle := lipgloss.NewStyle().Foreground(t.Falling).Background(t.Surface)
	flatStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	colors := []lipgloss.Color{t.BlueBright, t.Cyan, t.AccentBright, t.Yellow, t.Green, t.Orange}

	const nameW, pctW = 18, 7
	barW := innerW - nameW - pctW - 4
	if barW < 5 {
		barW = 5
	}
	maxShare := 0.0
	for _, s := range shares {
		if s.SharePercent > maxShare {
			maxShare = s.SharePercent
		}
	}
	if maxShare == 0 {
		maxShare = 1
	}

	var body strings.Builder
	for i, s := range shares {
		body.WriteString(nameStyle.Render(fmt.Sprintf("%-*s ", nameW, truncStr(config.DisplayName(s.Category), nameW))))
		body.WriteString(components.ShareBar(s.SharePercent/maxShare, barW, colors[i%len(colors)]))
		body.WriteString(shareStyle.Render(fmt.Sprintf(" %*s", pctW, cli.FormatPercent(s.SharePercent))))
		arrow := cli.TrendArrow(s.TrendDirection)
		switch {
		case s.TrendDirection > 0:
			body.WriteString(upStyle.Render(" " + arrow))
		case s.TrendDirection < 0:
			body.WriteString(downStyle.Render(" " + arrow))
		default:
			body.WriteString(flatStyle.Render(" " + arrow))
		}
		body.WriteString("\n")
	}
	return components.ContentCard("Category Shares", strings.TrimRight(body.String(), "\n"), cw)
}

func (a App) renderMonthlyTable(cw int) string {
	t := theme.Active
	rows := pipeline.AggregateMonths(pipeline.LastMonths(a.result.History, historyTableMonths))

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	periodStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	saveStyle := lipgloss.NewStyle().Foreground(t.Falling).Background(t.Surface)
	overStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %10s %10s %10s", "Month", "Wage", "Expense", "Savings")))
	body.WriteString("\n")
	expenses := make([]float64, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		body.WriteString(periodStyle.Render(fmt.Sprintf("%-8s", cli.FormatPeriod(r.Period))))
		body.WriteString(rowStyle.Render(fmt.Sprintf(" %10s %10s", cli.FormatCompactMoney(r.Wage), cli.FormatCompactMoney(r.Expense))))
		style := saveStyle
		if r.Savings < 0 {
			style = overStyle
		}
		body.WriteString(style.Render(fmt.Sprintf(" %10s", cli.FormatCompactMoney(r.Savings))))
		body.WriteString("\n")
	}
	for _, r := range rows {
		expenses = append(expenses, r.Expense)
	}
	body.WriteString(components.Sparkline(expenses, t.Blue))
	return components.ContentCard(fmt.Sprintf("Last %d Months", len(rows)), body.String(), cw)
}
