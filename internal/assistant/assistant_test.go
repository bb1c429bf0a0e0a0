package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/notify"
	"github.com/theirongolddev/finassist/internal/pipeline"
)

type fakeLLM struct {
	reply string
	got   []llm.Message
}

func (f *fakeLLM) Complete(_ context.Context, msgs []llm.Message) (string, error) {
	f.got = msgs
	return f.reply, nil
}

func (f *fakeLLM) Stream(ctx context.Context, msgs []llm.Message) (*llm.Stream, error) {
	f.got = msgs
	words := strings.SplitAfter(f.reply, " ")
	return llm.NewStream(ctx, func(_ context.Context, emit func(string) error) error {
		for _, w := range words {
			if err := emit(w); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

// brokenLLM streams a partial reply, then fails.
type brokenLLM struct{}

func (brokenLLM) Complete(context.Context, []llm.Message) (string, error) {
	return "", errors.New("upstream closed")
}

func (brokenLLM) Stream(ctx context.Context, _ []llm.Message) (*llm.Stream, error) {
	return llm.NewStream(ctx, func(_ context.Context, emit func(string) error) error {
		if err := emit("Faturalarınız "); err != nil {
			return err
		}
		return errors.New("upstream closed")
	}), nil
}

type fakeAlarms struct {
	specs []string
	last  notify.Reminder
}

func (f *fakeAlarms) Schedule(spec string, r notify.Reminder) (string, error) {
	f.specs = append(f.specs, spec)
	f.last = r
	return "alarm-1", nil
}

func fixtureResult() *pipeline.Result {
	h := model.History{Categories: []string{"Faturalar"}}
	for i := 0; i < 6; i++ {
		h.Records = append(h.Records, model.ExpenseRecord{
			Period:     time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Wage:       30000,
			Total:      10000 + float64(i)*100,
			Categories: map[string]float64{"Faturalar": 2000},
		})
	}
	f := &model.Forecast{
		Series: []string{model.TotalSeries, "Faturalar"},
		Records: []model.ForecastRecord{{
			Period:     time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
			Total:      10600,
			Categories: map[string]float64{"Faturalar": 2050},
		}},
	}
	return &pipeline.Result{History: h, Forecast: f, Metrics: model.MetricsResult{Horizon: 1, Series: []model.SeriesMetrics{{Series: model.TotalSeries}}}}
}

func newTestAssistant(t *testing.T, l *fakeLLM, alarms AlarmScheduler) *Assistant {
	t.Helper()
	a, err := New(Deps{
		LLM:      l,
		Data:     func(context.Context) (*pipeline.Result, error) { return fixtureResult(), nil },
		Alarms:   alarms,
		Currency: "TL",
	})
	require.NoError(t, err)
	return a
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg   string
		prior int
		want  Intent
	}{
		{"tahmin", 0, Intent{Kind: IntentGreeting}},
		{"Gelecek ay için TAHMİN yapar mısın?", 2, Intent{Kind: IntentForecast}},
		{"Show me a Forecast", 2, Intent{Kind: IntentForecast}},
		{"future expense please", 2, Intent{Kind: IntentForecast}},
		{"Bana bir ALARM kur", 2, Intent{Kind: IntentAlarm}},
		{"HATIRLATMA istiyorum", 2, Intent{Kind: IntentAlarm}},
		{"Virman nedir?", 2, Intent{Kind: IntentTopic, Topic: "virman"}},
		{"kefil olmak riskli mi", 2, Intent{Kind: IntentTopic, Topic: "kefil"}},
		{"Geçen ay ne kadar harcadım?", 2, Intent{Kind: IntentGeneralQuery}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.msg, tt.prior), tt.msg)
	}
}

func TestRespond_FirstTurnGreets(t *testing.T) {
	a := newTestAssistant(t, &fakeLLM{}, nil)
	conv := NewConversation("c1")

	s, intent, err := a.Respond(context.Background(), conv, "selam")
	require.NoError(t, err)
	assert.Equal(t, IntentGreeting, intent.Kind)
	got, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, Greeting, got)
	assert.Equal(t, 2, conv.Len())
}

func TestRespond_ForecastSkipsLLM(t *testing.T) {
	l := &fakeLLM{reply: "should not be used"}
	a := newTestAssistant(t, l, nil)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"), llm.Assistant(Greeting))

	s, intent, err := a.Respond(context.Background(), conv, "harcama tahmini")
	require.NoError(t, err)
	assert.Equal(t, IntentForecast, intent.Kind)
	got, err := s.Collect()
	require.NoError(t, err)
	assert.Contains(t, got, "Date: 2024-07")
	assert.Contains(t, got, "Total Expense: 10,600.00 TL")
	assert.Nil(t, l.got)
}

func TestRespond_AlarmSchedules(t *testing.T) {
	alarms := &fakeAlarms{}
	a := newTestAssistant(t, &fakeLLM{}, alarms)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"), llm.Assistant(Greeting))

	s, _, err := a.Respond(context.Background(), conv, "bana bildirim gönder")
	require.NoError(t, err)
	got, _ := s.Collect()
	assert.Equal(t, AlarmConfirmation, got)
	assert.Equal(t, []string{"0 9 1 * *"}, alarms.specs)

	body, err := alarms.last.Render(context.Background())
	require.NoError(t, err)
	assert.Contains(t, body, "Gelecek ay tahmini: 10,600.00 TL")
}

func TestRespond_AlarmWithoutScheduler(t *testing.T) {
	a := newTestAssistant(t, &fakeLLM{}, nil)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"))
	_, _, err := a.Respond(context.Background(), conv, "alarm")
	assert.Error(t, err)
}

func TestRespond_GeneralQueryStreamsAndRecords(t *testing.T) {
	l := &fakeLLM{reply: "Faturalarınız sabit görünüyor."}
	a := newTestAssistant(t, l, nil)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"), llm.Assistant(Greeting))

	s, intent, err := a.Respond(context.Background(), conv, "Faturalarım nasıl gidiyor?")
	require.NoError(t, err)
	assert.Equal(t, IntentGeneralQuery, intent.Kind)

	var partials []string
	require.NoError(t, s.Partials(func(p string) { partials = append(partials, p) }))
	require.NotEmpty(t, partials)
	assert.Equal(t, l.reply, partials[len(partials)-1])

	require.Len(t, l.got, 4)
	assert.Equal(t, llm.RoleSystem, l.got[0].Role)
	assert.Contains(t, l.got[0].Content, "Harcama geçmişi (CSV):")
	assert.Contains(t, l.got[0].Content, "Harcama tahmini (CSV):")

	turns := conv.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, llm.Assistant(l.reply), turns[3])
}

func TestRespond_GeneralQueryWithoutData(t *testing.T) {
	l := &fakeLLM{reply: "Tamam."}
	a, err := New(Deps{
		LLM:  l,
		Data: func(context.Context) (*pipeline.Result, error) { return nil, errors.New("missing file") },
	})
	require.NoError(t, err)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"))

	s, _, err := a.Respond(context.Background(), conv, "Merhaba, nasılsın?")
	require.NoError(t, err)
	_, err = s.Collect()
	require.NoError(t, err)
	assert.NotContains(t, l.got[0].Content, "Harcama geçmişi (CSV):")
}

func TestRespond_ConcurrentFirstMessagesGreetOnce(t *testing.T) {
	a := newTestAssistant(t, &fakeLLM{reply: "Tamam."}, nil)
	conv := NewConversation("c1")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		intents []IntentKind
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, intent, err := a.Respond(context.Background(), conv, "selam")
			if !assert.NoError(t, err) {
				return
			}
			_, err = s.Collect()
			assert.NoError(t, err)
			mu.Lock()
			intents = append(intents, intent.Kind)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, intents, 2)
	assert.ElementsMatch(t, []IntentKind{IntentGreeting, IntentGeneralQuery}, intents)
	turns := conv.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, llm.Assistant(Greeting), turns[1])
	assert.Equal(t, llm.RoleUser, turns[2].Role)
	assert.Equal(t, llm.Assistant("Tamam."), turns[3])
}

func TestRespond_FailedReplyLeavesNoOrphanTurn(t *testing.T) {
	a, err := New(Deps{
		LLM:  brokenLLM{},
		Data: func(context.Context) (*pipeline.Result, error) { return fixtureResult(), nil },
	})
	require.NoError(t, err)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"), llm.Assistant(Greeting))

	s, _, err := a.Respond(context.Background(), conv, "Faturalarım nasıl?")
	require.NoError(t, err)
	_, err = s.Collect()
	require.Error(t, err)
	assert.Equal(t, 2, conv.Len())

	// The turn is released, so the conversation keeps working.
	s, intent, err := a.Respond(context.Background(), conv, "virman nedir")
	require.NoError(t, err)
	assert.Equal(t, IntentTopic, intent.Kind)
	_, err = s.Collect()
	require.NoError(t, err)
	assert.Equal(t, 4, conv.Len())
}

func TestRespond_CancelledReplyReleasesTurn(t *testing.T) {
	l := &fakeLLM{reply: strings.Repeat("uzun ", 200)}
	a := newTestAssistant(t, l, nil)
	conv := NewConversation("c1")
	conv.add(llm.User("selam"), llm.Assistant(Greeting))

	s, _, err := a.Respond(context.Background(), conv, "Geçen ay ne kadar harcadım?")
	require.NoError(t, err)
	s.Cancel()
	_, _ = s.Collect()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, _, err = a.Respond(ctx, conv, "kefil nedir")
	require.NoError(t, err)
	_, _ = s.Collect()
	turns := conv.Turns()
	assert.Equal(t, llm.User("kefil nedir"), turns[len(turns)-2])
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}
