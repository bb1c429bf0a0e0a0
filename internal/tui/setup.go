package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/tui/theme"
)

// setupValues holds the form-bound values for the first-run wizard.
type setupValues struct {
	apiKey   string
	model    string
	currency string
	dataFile string
	theme    string
	alarmTo  string
}

// newSetupForm builds the first-run huh form.
func newSetupForm(cfg config.Config, dataPath string, vals *setupValues) *huh.Form {
	vals.model = cfg.LLM.Model
	vals.currency = cfg.General.Currency
	vals.dataFile = dataPath
	vals.theme = cfg.Appearance.Theme
	vals.alarmTo = cfg.Alarm.To

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to finassist").
				Description("Let's set up a few things. Settings are saved to\n"+config.Path()+"\n\nPress Enter to continue."),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API key").
				Description("Used by the chat. Leave blank to use OPENAI_API_KEY from the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.apiKey),
			huh.NewInput().
				Title("Chat model").
				Value(&vals.model).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("model is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Expense history file").
				Description("CSV with Date, Wage, Total_Expense and one column per category.").
				Value(&vals.dataFile),
			huh.NewInput().
				Title("Currency label").
				Value(&vals.currency),
			huh.NewInput().
				Title("Reminder e-mail recipients").
				Description("Comma separated. Leave blank to log reminders instead.").
				Value(&vals.alarmTo),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.theme),
		),
	).WithTheme(huh.ThemeDracula())
}

// apply copies the form values onto cfg.
func (v setupValues) apply(cfg config.Config) config.Config {
	if key := strings.TrimSpace(v.apiKey); key != "" {
		cfg.LLM.APIKey = key
	}
	if m := strings.TrimSpace(v.model); m != "" {
		cfg.LLM.Model = m
	}
	if f := strings.TrimSpace(v.dataFile); f != "" {
		cfg.General.DataFile = f
	}
	cfg.General.Currency = strings.TrimSpace(v.currency)
	cfg.Alarm.To = strings.TrimSpace(v.alarmTo)
	if v.theme != "" {
		cfg.Appearance.Theme = v.theme
	}
	return cfg
}

// RunSetup runs the setup form outside the dashboard and returns cfg with
// the answers applied. It does not save.
func RunSetup(cfg config.Config) (config.Config, error) {
	var vals setupValues
	form := newSetupForm(cfg, cfg.General.DataFile, &vals)
	if err := form.Run(); err != nil {
		return cfg, err
	}
	return vals.apply(cfg), nil
}
