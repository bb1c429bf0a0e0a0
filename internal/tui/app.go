// Package tui provides the interactive Bubble Tea chat and dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/finassist/internal/assistant"
	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/tui/components"
	"github.com/theirongolddev/finassist/internal/tui/theme"
)

// Tab indexes, matching components.Tabs.
const (
	tabChat = iota
	tabForecast
	tabHistory
	tabSettings
)

// DataLoadedMsg is sent when the forecast pipeline finishes.
type DataLoadedMsg struct {
	Result   *pipeline.Result
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports series fitting progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background refresh completes.
type RefreshDataMsg struct {
	Result   *pipeline.Result
	Err      error
	LoadTime time.Duration
}

// Options wires the app to its data and assistant.
type Options struct {
	Data      *pipeline.Provider
	Assistant *assistant.Assistant // nil disables the chat tab
	Config    config.Config
	NeedSetup bool
}

// App is the root Bubble Tea model.
type App struct {
	data      *pipeline.Provider
	assistant *assistant.Assistant
	cfg       config.Config

	// Data
	result   *pipeline.Result
	loadErr  error
	loaded   bool
	loadTime time.Duration

	refreshing bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	chat     chatState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals setupValues
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 60
	compactWidth     = 100
	maxContentWidth  = 160

	headerHeight     = 2
	statusHeight     = 1
	minContentHeight = 5
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	theme.SetActive(opts.Config.Appearance.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		data:      opts.Data,
		assistant: opts.Assistant,
		cfg:       opts.Config,
		needSetup: opts.NeedSetup,
		chat:      newChatState(opts.Assistant != nil),
		spinner:   sp,
		loadSub:   make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.data, a.loadSub),
		a.spinner.Tick,
		textarea.Blink,
	)
}

func (a App) currency() string {
	if a.cfg.General.Currency == "" {
		return cli.DefaultCurrency
	}
	return a.cfg.General.Currency
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.chat.resize(a.contentWidth(), a.contentHeight())
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				return a.switchTab(tab)
			}
			return a, nil
		}
		if a.activeTab == tabChat {
			var cmd tea.Cmd
			a.chat.view, cmd = a.chat.view.Update(msg)
			return a, cmd
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.result = msg.Result
		a.loadErr = msg.Err
		a.loadTime = msg.LoadTime
		if a.needSetup {
			a.setupForm = newSetupForm(a.cfg, a.data.Path(), &a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.loadTime = msg.LoadTime
		a.loadErr = msg.Err
		if msg.Result != nil {
			a.result = msg.Result
		}
		return a, nil

	case chatStartedMsg:
		return a.handleChatStarted(msg)

	case chatChunkMsg:
		return a.handleChatChunk(msg)

	case spinner.TickMsg:
		if !a.loaded || a.chat.streaming {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabChat {
		var cmd tea.Cmd
		a.chat.input, cmd = a.chat.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		if a.chat.stream != nil {
			a.chat.stream.Cancel()
		}
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	switch key {
	case "tab":
		return a.switchTab((a.activeTab + 1) % len(components.Tabs))
	case "shift+tab":
		return a.switchTab((a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs))
	}

	if a.activeTab == tabChat {
		return a.updateChatKey(msg)
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "?":
		a.showHelp = true
		return a, nil
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing && a.data != nil {
			a.refreshing = true
			return a, refreshDataCmd(a.data)
		}
		return a, nil
	case "left":
		return a.switchTab((a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs))
	case "right":
		return a.switchTab((a.activeTab + 1) % len(components.Tabs))
	}

	if a.activeTab == tabSettings {
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter":
			return a.settingsStartEdit()
		}
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			return a.switchTab(idx)
		}
	}
	return a, nil
}

func (a App) switchTab(idx int) (tea.Model, tea.Cmd) {
	a.activeTab = idx
	a.showHelp = false
	if idx == tabChat {
		return a, a.chat.input.Focus()
	}
	a.chat.input.Blur()
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.cfg = a.setupVals.apply(a.cfg)
		a.settings.saveErr = config.Save(a.cfg)
		theme.SetActive(a.cfg.Appearance.Theme)
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) contentHeight() int {
	h := a.height - headerHeight - statusHeight
	if h < minContentHeight {
		h = minContentHeight
	}
	return h
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  finassist needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ finassist"))
	b.WriteString(subtitleStyle.Render(" · Harcama Asistanı"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := 40
		if barW > a.width-30 {
			barW = a.width - 30
		}
		if barW < 20 {
			barW = 20
		}
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Fitting forecast models\n\n"))
		b.WriteString(components.ProgressBar(float64(a.progress)/float64(a.progressMax), barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
		b.WriteString(subtitleStyle.Render(" series"))
	} else {
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Loading expense history..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		name     string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"Tab ⇧Tab", "Next / Previous tab"},
			{"c f h x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move in settings"},
		}},
		{"Chat", []struct{ key, desc string }{
			{"Enter", "Send message"},
			{"Esc", "Stop the reply"},
			{"PgUp PgDn", "Scroll transcript"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"r", "Refresh forecast"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.name))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	contentH := a.contentHeight()

	header := components.RenderTabBar(a.activeTab, w)

	info := components.StatusInfo{
		Refreshing: a.refreshing,
		Streaming:  a.chat.streaming,
		LoadTime:   fmt.Sprintf("%.1fs", a.loadTime.Seconds()),
	}
	if a.data != nil {
		info.DataFile = a.data.Path()
	}
	if a.result != nil {
		info.CacheHit = a.result.CacheHit
	}
	if a.activeTab == tabChat {
		info.Hints = "[Enter]gönder  [Esc]durdur  [Tab]sekme  [^C]çık"
	} else {
		info.Hints = "[?]help  [r]efresh  [q]uit"
	}
	statusBar := components.RenderStatusBar(w, info)

	var content string
	switch a.activeTab {
	case tabChat:
		content = a.renderChatTab(cw, contentH)
	case tabForecast:
		content = a.renderForecastTab(cw)
	case tabHistory:
		content = a.renderHistoryTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// renderUnavailable is shown by data tabs while there is no result.
func (a App) renderUnavailable(cw int) string {
	t := theme.Active
	msgStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	body := "No forecast loaded yet."
	if a.loadErr != nil {
		body = a.loadErr.Error()
	}
	return components.ContentCard("Forecast unavailable", msgStyle.Render(body), cw)
}

// ─── Helpers ────────────────────────────────────────────────────

// loadDataCmd runs the pipeline in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(data *pipeline.Provider, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if data == nil {
			return DataLoadedMsg{}
		}
		go func() {
			start := time.Now()
			// Non-blocking send so fitting workers aren't stalled; the
			// next update catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			res, err := data.RefreshWithProgress(context.Background(), progressFn)
			sub <- DataLoadedMsg{Result: res, Err: err, LoadTime: time.Since(start)}
		}()
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd refreshes the forecast in the background (no progress UI).
func refreshDataCmd(data *pipeline.Provider) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := data.Refresh(context.Background())
		return RefreshDataMsg{Result: res, Err: err, LoadTime: time.Since(start)}
	}
}

// monthLabels builds compact X-axis labels: the month abbreviation, with
// the year on the first bar and on every January.
func monthLabels(periods []time.Time) []string {
	labels := make([]string, len(periods))
	for i, p := range periods {
		if i == 0 || p.Month() == time.January {
			labels[i] = p.Format("Jan06")
		} else {
			labels[i] = p.Format("Jan")
		}
	}
	return labels
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		placed := lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
		result.WriteString(placed)
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow components.TabVisualWidth, which RenderTabBar uses.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
