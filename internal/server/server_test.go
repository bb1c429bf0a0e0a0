package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/finassist/internal/assistant"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/source"
	"github.com/theirongolddev/finassist/internal/synth"
)

type wordsLLM struct{ reply string }

func (f *wordsLLM) Complete(context.Context, []llm.Message) (string, error) { return f.reply, nil }

func (f *wordsLLM) Stream(ctx context.Context, _ []llm.Message) (*llm.Stream, error) {
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

func writeHistory(t *testing.T, months int) string {
	t.Helper()
	p, err := synth.ParamsFromConfig(config.DefaultConfig().Generator)
	require.NoError(t, err)
	p.Months = months
	h, err := synth.Generate(p, synth.NewRand(7))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, source.WriteHistoryFile(path, h))
	return path
}

func newTestService(t *testing.T, path string) *Service {
	t.Helper()
	provider := pipeline.NewProvider(path, forecast.New(forecast.DefaultOptions(), nil), "", nil)
	a, err := assistant.New(assistant.Deps{
		LLM:  &wordsLLM{reply: "Bu ay faturalar arttı."},
		Data: provider.Current,
	})
	require.NoError(t, err)
	return New(Config{Data: provider, Assistant: a, Currency: "TL"})
}

type sseEvent struct {
	Name string
	Data string
}

func readSSE(t *testing.T, r io.Reader) []sseEvent {
	t.Helper()
	var (
		out []sseEvent
		cur sseEvent
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.Name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.Data = strings.TrimPrefix(line, "data: ")
		case line == "" && cur.Name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, sc.Err())
	return out
}

func postMessage(t *testing.T, srv *httptest.Server, convID, text string) []sseEvent {
	t.Helper()
	body := strings.NewReader(`{"text":` + mustJSON(t, text) + `}`)
	resp, err := http.Post(srv.URL+"/v1/conversations/"+convID+"/messages", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return readSSE(t, resp.Body)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Months: 24, LastExpense: 10000, ProjectedNext: 11000}
	curr := Snapshot{Months: 25, LastExpense: 10500, ProjectedNext: 11200}

	d := diffSnapshots(prev, curr)
	assert.Equal(t, 1, d.Months)
	assert.InDelta(t, 500, d.LastExpense, 1e-9)
	assert.InDelta(t, 200, d.ProjectedNext, 1e-9)
	assert.True(t, diffSnapshots(curr, curr).isZero())
}

func TestPublishEventRingBuffer(t *testing.T) {
	svc := New(Config{EventsBuffer: 2})

	svc.publishEvent(Event{ID: 1})
	svc.publishEvent(Event{ID: 2})
	svc.publishEvent(Event{ID: 3})

	require.Len(t, svc.events, 2)
	assert.Equal(t, int64(2), svc.events[0].ID)
	assert.Equal(t, int64(3), svc.events[1].ID)
}

func TestApplySnapshot_PublishesOnlyOnChange(t *testing.T) {
	svc := New(Config{})
	ch := make(chan Event, 4)
	svc.addSubscriber(ch)

	snap := Snapshot{At: time.Now(), Months: 12, LastExpense: 9000, ProjectedNext: 9500}
	svc.applySnapshot(snap)
	svc.applySnapshot(snap)
	snap.ProjectedNext = 9700
	svc.applySnapshot(snap)

	require.Len(t, ch, 2)
	assert.Equal(t, "snapshot", (<-ch).Type)
	ev := <-ch
	assert.Equal(t, "forecast_delta", ev.Type)
	assert.InDelta(t, 200, ev.Delta.ProjectedNext, 1e-9)
	assert.Equal(t, int64(3), svc.snapshotStatus().RefreshCount)
}

func TestStatusFor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	provider := pipeline.NewProvider(path, forecast.New(forecast.DefaultOptions(), nil), "", nil)
	_, err := provider.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, statusFor(err))
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.EOF))
}

func TestRefreshOnce_RecordsSnapshot(t *testing.T) {
	svc := newTestService(t, writeHistory(t, 24))
	svc.refreshOnce(context.Background())

	st := svc.snapshotStatus()
	assert.Empty(t, st.LastError)
	assert.Equal(t, 24, st.Summary.Months)
	assert.NotEmpty(t, st.Summary.LastPeriod)
	assert.Greater(t, st.Summary.ProjectedNext, 0.0)
	assert.Equal(t, 1, st.EventCount)
}

func TestRefreshOnce_RecordsError(t *testing.T) {
	svc := newTestService(t, filepath.Join(t.TempDir(), "missing.csv"))
	svc.refreshOnce(context.Background())

	st := svc.snapshotStatus()
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, 0, st.EventCount)
}

func TestHandler_HealthStatusForecast(t *testing.T) {
	svc := newTestService(t, writeHistory(t, 24))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/forecast")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fc forecastResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Len(t, fc.Months, forecast.DefaultOptions().Horizon)
	assert.NotEmpty(t, fc.Metrics)
	assert.NotEmpty(t, fc.Fingerprint)

	resp, err = http.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, svc.cfg.Data.Path(), st.DataFile)
	assert.False(t, st.RAGEnabled)
}

func TestHandler_ForecastMissingData(t *testing.T) {
	svc := newTestService(t, filepath.Join(t.TempDir(), "missing.csv"))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/forecast")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_ConversationFlow(t *testing.T) {
	svc := newTestService(t, writeHistory(t, 24))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/conversations", "application/json", nil)
	require.NoError(t, err)
	var conv conversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conv))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, conv.ID)

	events := postMessage(t, srv, conv.ID, "merhaba")
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "done", last.Name)
	assert.Contains(t, last.Data, `"intent":"greeting"`)

	events = postMessage(t, srv, conv.ID, "faturalarım neden arttı?")
	var partials int
	for _, ev := range events {
		if ev.Name == "partial" {
			partials++
		}
	}
	assert.Greater(t, partials, 1)
	last = events[len(events)-1]
	assert.Equal(t, "done", last.Name)
	assert.Contains(t, last.Data, "Bu ay faturalar arttı.")

	resp, err = http.Get(srv.URL + "/v1/conversations/" + conv.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	var got conversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got.Turns, 4)
	assert.Equal(t, llm.RoleAssistant, got.Turns[3].Role)
	assert.Equal(t, "Bu ay faturalar arttı.", got.Turns[3].Content)
}

func TestHandler_MessageErrors(t *testing.T) {
	svc := newTestService(t, writeHistory(t, 24))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/conversations/nope/messages", "application/json", strings.NewReader(`{"text":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conv := svc.newConversation()
	resp, err = http.Post(srv.URL+"/v1/conversations/"+conv.ID+"/messages", "application/json", strings.NewReader(`{"text":"  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_AskWithoutKnowledgeBase(t *testing.T) {
	svc := newTestService(t, writeHistory(t, 24))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/ask", "application/json", strings.NewReader(`{"text":"virman nedir"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_MetricsCountRoutes(t *testing.T) {
	svc := newTestService(t, writeHistory(t, 24))
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `finassist_http_requests_total{code="200",route="/healthz"} 1`)
}
