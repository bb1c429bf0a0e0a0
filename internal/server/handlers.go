package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/llm"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/rag"
)

const maxBodyBytes = 64 << 10

// Handler returns the service's HTTP routes.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metrics.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleStream).Methods(http.MethodGet)
	v1.HandleFunc("/events/recent", s.handleEvents).Methods(http.MethodGet)
	v1.HandleFunc("/conversations", s.handleNewConversation).Methods(http.MethodPost)
	v1.HandleFunc("/conversations/{id}", s.handleConversation).Methods(http.MethodGet)
	v1.HandleFunc("/conversations/{id}/messages", s.handleMessage).Methods(http.MethodPost)
	v1.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, events)
}

type forecastMonth struct {
	Period     string             `json:"period"`
	Total      float64            `json:"total"`
	Categories map[string]float64 `json:"categories,omitempty"`
}

type seriesMetric struct {
	Series             string  `json:"series"`
	AvgMonthlyIncrease float64 `json:"avg_monthly_increase"`
	TotalIncreasePct   float64 `json:"total_increase_pct"`
	RecentTrend        float64 `json:"recent_trend_pct"`
	Error              string  `json:"error,omitempty"`
}

type forecastResponse struct {
	Series      []string        `json:"series"`
	Months      []forecastMonth `json:"months"`
	Metrics     []seriesMetric  `json:"metrics"`
	Fingerprint string          `json:"fingerprint"`
	CacheHit    bool            `json:"cache_hit"`
}

func (s *Service) handleForecast(w http.ResponseWriter, r *http.Request) {
	res, err := s.cfg.Data.Current(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	out := forecastResponse{
		Series:      res.Forecast.Series,
		Fingerprint: res.Fingerprint,
		CacheHit:    res.CacheHit,
	}
	for _, rec := range res.Forecast.Records {
		out.Months = append(out.Months, forecastMonth{
			Period:     rec.Period.Format("2006-01"),
			Total:      rec.Total,
			Categories: rec.Categories,
		})
	}
	for _, m := range res.Metrics.Series {
		sm := seriesMetric{
			Series:             m.Series,
			AvgMonthlyIncrease: m.AvgMonthlyIncrease,
			TotalIncreasePct:   m.TotalIncreasePct,
			RecentTrend:        m.RecentTrend,
		}
		if m.Err != nil {
			sm.Error = m.Err.Error()
		}
		out.Metrics = append(out.Metrics, sm)
	}
	writeJSON(w, http.StatusOK, out)
}

type conversationResponse struct {
	ID    string        `json:"id"`
	Turns []llm.Message `json:"turns"`
}

func (s *Service) handleNewConversation(w http.ResponseWriter, _ *http.Request) {
	c := s.newConversation()
	writeJSON(w, http.StatusCreated, conversationResponse{ID: c.ID, Turns: []llm.Message{}})
}

func (s *Service) handleConversation(w http.ResponseWriter, r *http.Request) {
	c, ok := s.conversation(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("conversation not found"))
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse{ID: c.ID, Turns: c.Turns()})
}

type messageRequest struct {
	Text string `json:"text"`
}

func decodeMessage(w http.ResponseWriter, r *http.Request) (string, error) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return "", fmt.Errorf("decoding request: %w", err)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", errors.New("text is required")
	}
	return text, nil
}

func (s *Service) handleMessage(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("assistant not configured"))
		return
	}
	c, ok := s.conversation(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("conversation not found"))
		return
	}
	text, err := decodeMessage(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stream, intent, err := s.cfg.Assistant.Respond(r.Context(), c, text)
	if err != nil {
		s.logger.Warn("respond failed", zap.String("conversation", c.ID), zap.Error(err))
		writeError(w, http.StatusBadGateway, err)
		return
	}
	s.metrics.messages.WithLabelValues(intent.Kind.String()).Inc()
	s.streamReply(w, r, stream, map[string]any{
		"conversation": c.ID,
		"intent":       intent.Kind.String(),
		"topic":        intent.Topic,
	})
}

func (s *Service) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Answerer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("knowledge base not configured"))
		return
	}
	text, err := decodeMessage(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stream, err := s.cfg.Answerer.Answer(r.Context(), text)
	if err != nil {
		writeError(w, statusForAsk(err), err)
		return
	}
	s.streamReply(w, r, stream, map[string]any{})
}

// streamReply relays a reply as SSE: one "partial" event per chunk with the
// growing text, then "done" or "error".
func (s *Service) streamReply(w http.ResponseWriter, r *http.Request, stream *llm.Stream, done map[string]any) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		stream.Cancel()
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	startSSE(w)

	go func() {
		select {
		case <-r.Context().Done():
			stream.Cancel()
		case <-stream.Done():
		}
	}()

	err := stream.Partials(func(partial string) {
		_ = writeSSE(w, "partial", map[string]string{"text": partial})
		flusher.Flush()
	})
	if err != nil {
		_ = writeSSE(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}
	done["text"] = stream.Text()
	_ = writeSSE(w, "done", done)
	flusher.Flush()
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	startSSE(w)

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	_ = writeSSE(w, "status", s.snapshotStatus())
	flusher.Flush()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			_ = writeSSE(w, ev.Type, ev)
			flusher.Flush()
		case <-ping.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func startSSE(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSSE(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps pipeline failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrMalformedInput), errors.Is(err, model.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func statusForAsk(err error) int {
	switch {
	case errors.Is(err, rag.ErrNotIndexed):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
