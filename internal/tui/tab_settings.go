package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robfig/cron/v3"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/tui/components"
	"github.com/theirongolddev/finassist/internal/tui/theme"
)

const (
	settingsFieldAPIKey = iota
	settingsFieldModel
	settingsFieldCurrency
	settingsFieldTheme
	settingsFieldDataFile
	settingsFieldAlarmSchedule
	settingsFieldAlarmTo
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message
	saveErr error // non-nil if the last save or validation failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldAPIKey:
		ti.Placeholder = "sk-..."
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
		ti.SetValue(a.cfg.LLM.APIKey)
	case settingsFieldModel:
		ti.Placeholder = "gpt-4o-mini"
		ti.SetValue(a.cfg.LLM.Model)
	case settingsFieldCurrency:
		ti.Placeholder = "TL"
		ti.SetValue(a.cfg.General.Currency)
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(a.cfg.Appearance.Theme)
	case settingsFieldDataFile:
		ti.Placeholder = "data.csv"
		ti.SetValue(a.cfg.General.DataFile)
	case settingsFieldAlarmSchedule:
		ti.Placeholder = "0 9 1 * * (cron)"
		ti.SetValue(a.cfg.Alarm.Schedule)
	case settingsFieldAlarmTo:
		ti.Placeholder = "you@example.com, other@example.com"
		ti.SetValue(a.cfg.Alarm.To)
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates the edited value, applies it to the live config
// and writes the config file.
func (a *App) settingsSave() {
	val := strings.TrimSpace(a.settings.input.Value())
	cfg := a.cfg

	switch a.settings.cursor {
	case settingsFieldAPIKey:
		cfg.LLM.APIKey = val
	case settingsFieldModel:
		if val == "" {
			a.settings.saveErr = fmt.Errorf("model cannot be empty")
			return
		}
		cfg.LLM.Model = val
	case settingsFieldCurrency:
		cfg.General.Currency = val
	case settingsFieldTheme:
		found := false
		for _, name := range theme.Names() {
			if name == val {
				found = true
				break
			}
		}
		if !found {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldDataFile:
		cfg.General.DataFile = val
	case settingsFieldAlarmSchedule:
		if _, err := cron.ParseStandard(val); err != nil {
			a.settings.saveErr = fmt.Errorf("invalid schedule: %w", err)
			return
		}
		cfg.Alarm.Schedule = val
	case settingsFieldAlarmTo:
		cfg.Alarm.To = val
	}

	a.cfg = cfg
	a.settings.saveErr = config.Save(cfg)
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) > 12:
		return s[:5] + "..." + s[len(s)-4:]
	default:
		return "****"
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.cfg

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	apiKey := maskSecret(cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" && config.GetAPIKey(cfg) != "" {
		apiKey = "(from OPENAI_API_KEY)"
	}

	fields := []struct{ label, value string }{
		{"OpenAI API Key", apiKey},
		{"Chat Model", cfg.LLM.Model},
		{"Currency", orUnset(cfg.General.Currency)},
		{"Theme", cfg.Appearance.Theme},
		{"Data File", cfg.General.DataFile},
		{"Alarm Schedule", cfg.Alarm.Schedule},
		{"Alarm Recipients", orUnset(cfg.Alarm.To)},
	}

	innerW := components.CardInnerWidth(cw)
	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker + label + value)
			if pad := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); pad > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved! Model and data file changes apply on next start."))
	}
	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var infoBody strings.Builder
	row := func(label, value string) {
		infoBody.WriteString(labelStyle.Render(fmt.Sprintf("%-17s", label)) + valueStyle.Render(value) + "\n")
	}
	row("Config file:", config.Path())
	if a.data != nil {
		row("History file:", a.data.Path())
	}
	if a.result != nil {
		row("Months loaded:", cli.FormatNumber(int64(a.result.History.Len())))
		cache := "miss"
		if a.result.CacheHit {
			cache = "hit"
		}
		row("Forecast cache:", cache)
		if fp := a.result.Fingerprint; len(fp) >= 12 {
			row("Fingerprint:", fp[:12])
		}
	}
	row("Load time:", fmt.Sprintf("%.1fs", a.loadTime.Seconds()))

	var b strings.Builder
	b.WriteString(components.ContentCard("Settings", formBody.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard("General", strings.TrimRight(infoBody.String(), "\n"), cw))
	return b.String()
}
