package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/finassist/internal/assistant"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/synth"
	"github.com/theirongolddev/finassist/internal/tui/components"
)

type echoLLM struct{}

func (echoLLM) Complete(context.Context, []llm.Message) (string, error) { return "tamam", nil }

func (echoLLM) Stream(ctx context.Context, _ []llm.Message) (*llm.Stream, error) {
	return llm.NewStream(ctx, func(_ context.Context, emit func(string) error) error {
		for _, w := range []string{"Kira ", "en büyük ", "kalem."} {
			if err := emit(w); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

func newTestApp(t *testing.T, res *pipeline.Result) App {
	t.Helper()
	a, err := assistant.New(assistant.Deps{
		LLM: echoLLM{},
		Data: func(context.Context) (*pipeline.Result, error) {
			if res == nil {
				return nil, errors.New("no data")
			}
			return res, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	app := NewApp(Options{Assistant: a, Config: config.DefaultConfig()})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.(App).Update(DataLoadedMsg{Result: res})
	return m.(App)
}

func syntheticResult(t *testing.T) *pipeline.Result {
	t.Helper()
	p, err := synth.ParamsFromConfig(config.DefaultConfig().Generator)
	if err != nil {
		t.Fatal(err)
	}
	h, err := synth.Generate(p, synth.NewRand(3))
	if err != nil {
		t.Fatal(err)
	}
	res, err := pipeline.RunHistory(context.Background(), h, forecast.New(forecast.DefaultOptions(), nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// drive runs a sent message to completion without a Bubble Tea program.
func drive(t *testing.T, app App, text string) App {
	t.Helper()
	app.chat.input.SetValue(text)
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = m.(App)
	if !app.chat.streaming {
		t.Fatal("expected streaming after enter")
	}

	msg := respondCmd(app.assistant, app.chat.conv, text)()
	for i := 0; i < 20; i++ {
		var cmd tea.Cmd
		m, cmd = app.Update(msg)
		app = m.(App)
		if !app.chat.streaming {
			return app
		}
		if cmd == nil {
			t.Fatal("streaming without a follow-up command")
		}
		msg = cmd()
	}
	t.Fatal("reply did not finish")
	return app
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 50); got != -1 {
			t.Errorf("x past the last tab = %d, want -1", got)
		}
	}
}

func TestChat_FirstMessageIsGreeting(t *testing.T) {
	app := drive(t, newTestApp(t, nil), "selam")

	if len(app.chat.lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(app.chat.lines))
	}
	reply := app.chat.lines[1]
	if reply.text != assistant.Greeting {
		t.Errorf("reply = %q, want greeting", reply.text)
	}
	if reply.intent != "greeting" {
		t.Errorf("intent = %q", reply.intent)
	}
	if app.chat.input.Value() != "" {
		t.Error("input should be cleared after sending")
	}
}

func TestChat_StreamsGeneralReply(t *testing.T) {
	app := drive(t, newTestApp(t, nil), "selam")
	app = drive(t, app, "en çok neye harcıyorum?")

	reply := app.chat.lines[len(app.chat.lines)-1]
	if reply.text != "Kira en büyük kalem." || reply.failed {
		t.Errorf("reply = %+v", reply)
	}
	if got := app.chat.conv.Len(); got != 4 {
		t.Errorf("conversation turns = %d, want 4", got)
	}
}

func TestChat_IgnoresStaleChunks(t *testing.T) {
	app := newTestApp(t, nil)
	app.chat.lines = []chatLine{{role: llm.RoleUser, text: "x"}, {role: llm.RoleAssistant, text: "partial"}}
	app.chat.streaming = true
	app.chat.stream = llm.Text("current")

	m, cmd := app.Update(chatChunkMsg{stream: llm.Text("old"), text: "old", done: true})
	app = m.(App)
	if cmd != nil || !app.chat.streaming || app.chat.lines[1].text != "partial" {
		t.Error("a chunk from a replaced stream must be dropped")
	}
}

func TestChat_EmptyInputIsIgnored(t *testing.T) {
	app := newTestApp(t, nil)
	app.chat.input.SetValue("   ")
	m, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.(App).chat.streaming {
		t.Error("blank message should not be sent")
	}
}

func TestForecastTab_Renders(t *testing.T) {
	app := newTestApp(t, syntheticResult(t))
	m, _ := app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = m.(App)
	if app.activeTab != tabForecast {
		t.Fatalf("activeTab = %d, want forecast", app.activeTab)
	}
	out := app.View()
	for _, want := range []string{"Monthly Expense", "Forecast Metrics", "Budget"} {
		if !strings.Contains(out, want) {
			t.Errorf("forecast view missing %q", want)
		}
	}
}

func TestHistoryTab_Renders(t *testing.T) {
	app := newTestApp(t, syntheticResult(t))
	app.activeTab = tabHistory
	out := app.View()
	for _, want := range []string{"Category Shares", "Savings rate"} {
		if !strings.Contains(out, want) {
			t.Errorf("history view missing %q", want)
		}
	}
}

func TestDataTabs_ShowLoadError(t *testing.T) {
	app := newTestApp(t, nil)
	m, _ := app.Update(DataLoadedMsg{Err: errors.New("history file not found")})
	app = m.(App)
	app.activeTab = tabForecast
	if out := app.View(); !strings.Contains(out, "history file not found") {
		t.Error("forecast tab should surface the load error")
	}
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	got := setupValues{
		apiKey:   " sk-test ",
		model:    "gpt-4o",
		currency: "EUR",
		dataFile: "harcama.csv",
		theme:    "tokyo-night",
		alarmTo:  "a@example.com",
	}.apply(cfg)

	if got.LLM.APIKey != "sk-test" || got.LLM.Model != "gpt-4o" {
		t.Errorf("llm = %+v", got.LLM)
	}
	if got.General.Currency != "EUR" || got.General.DataFile != "harcama.csv" {
		t.Errorf("general = %+v", got.General)
	}
	if got.Appearance.Theme != "tokyo-night" || got.Alarm.To != "a@example.com" {
		t.Errorf("theme/alarm = %q %q", got.Appearance.Theme, got.Alarm.To)
	}

	kept := setupValues{}.apply(cfg)
	if kept.LLM.Model != cfg.LLM.Model || kept.General.DataFile != cfg.General.DataFile {
		t.Error("blank values must keep existing model and data file")
	}
}

func TestSettingsSave_RejectsBadSchedule(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	app := newTestApp(t, nil)
	app.settings.cursor = settingsFieldAlarmSchedule
	app.settings.input = newSettingsInput()
	app.settings.input.SetValue("every day")
	app.settingsSave()
	if app.settings.saveErr == nil {
		t.Fatal("expected validation error")
	}
	if app.cfg.Alarm.Schedule != config.DefaultConfig().Alarm.Schedule {
		t.Error("invalid schedule must not be applied")
	}

	app.settings.input.SetValue("30 8 * * 1")
	app.settingsSave()
	if app.settings.saveErr != nil {
		t.Fatalf("save: %v", app.settings.saveErr)
	}
	if app.cfg.Alarm.Schedule != "30 8 * * 1" {
		t.Errorf("schedule = %q", app.cfg.Alarm.Schedule)
	}
}
