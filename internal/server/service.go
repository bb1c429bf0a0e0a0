// Package server provides the long-running chat service: an HTTP API with
// SSE streaming and a background forecast refresh loop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/assistant"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/rag"
)

// Config controls the service runtime behavior.
type Config struct {
	Addr         string
	Interval     time.Duration
	EventsBuffer int
	Currency     string

	Data      *pipeline.Provider
	Assistant *assistant.Assistant
	Answerer  *rag.Answerer // optional; /v1/ask answers 503 without it
	Logger    *zap.Logger
}

// Snapshot is a compact forecast state for status and event payloads.
type Snapshot struct {
	At               time.Time `json:"at"`
	Months           int       `json:"months"`
	LastPeriod       string    `json:"last_period"`
	LastExpense      float64   `json:"last_expense"`
	AvgExpense       float64   `json:"avg_expense"`
	ProjectedNext    float64   `json:"projected_next"`
	ProjectedHorizon float64   `json:"projected_horizon"`
	BudgetUsedPct    float64   `json:"budget_used_pct"`
	Fingerprint      string    `json:"fingerprint"`
	CacheHit         bool      `json:"cache_hit"`
}

// Delta captures snapshot changes between refreshes.
type Delta struct {
	Months        int     `json:"months"`
	LastExpense   float64 `json:"last_expense"`
	ProjectedNext float64 `json:"projected_next"`
}

func (d Delta) isZero() bool {
	return d.Months == 0 && d.LastExpense == 0 && d.ProjectedNext == 0
}

// Event is emitted whenever the forecast snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt          time.Time `json:"started_at"`
	LastRefreshAt      time.Time `json:"last_refresh_at"`
	RefreshIntervalSec int       `json:"refresh_interval_sec"`
	RefreshCount       int64     `json:"refresh_count"`
	DataFile           string    `json:"data_file"`
	Summary            Snapshot  `json:"summary"`
	LastError          string    `json:"last_error,omitempty"`
	EventCount         int       `json:"event_count"`
	SubscriberCount    int       `json:"subscriber_count"`
	Conversations      int       `json:"conversations"`
	RAGEnabled         bool      `json:"rag_enabled"`
}

// Service provides the chat runtime and HTTP API.
type Service struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics

	mu            sync.RWMutex
	startedAt     time.Time
	lastRefreshAt time.Time
	refreshCount  int64
	lastError     string
	hasSnapshot   bool
	snapshot      Snapshot
	nextEventID   int64
	events        []Event

	nextSubID int
	subs      map[int]chan Event

	convMu        sync.Mutex
	conversations map[string]*assistant.Conversation
}

// New returns a new service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:           cfg,
		logger:        logger.Named("server"),
		metrics:       newMetrics(),
		startedAt:     time.Now(),
		subs:          make(map[int]chan Event),
		conversations: make(map[string]*assistant.Conversation),
	}
}

// Run starts the HTTP endpoints and the refresh loop until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("listening", zap.String("addr", s.cfg.Addr), zap.Duration("refresh", s.cfg.Interval))

	// Seed initial snapshot so status is useful immediately.
	s.refreshOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.refreshOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}
	}
}

func (s *Service) refreshOnce(ctx context.Context) {
	start := time.Now()
	res, err := s.cfg.Data.Refresh(ctx)
	s.metrics.refreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.refreshes.WithLabelValues("error").Inc()
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastRefreshAt = time.Now()
		s.refreshCount++
		s.mu.Unlock()
		s.logger.Error("refresh failed", zap.Error(err))
		return
	}
	s.metrics.refreshes.WithLabelValues("ok").Inc()
	s.applySnapshot(snapshotFromResult(res, time.Now()))
}

// applySnapshot stores snap and publishes an event when it differs from
// the previous one.
func (s *Service) applySnapshot(snap Snapshot) {
	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastRefreshAt = snap.At
	s.refreshCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: snap.At, Snapshot: snap}
		publish = true
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "forecast_delta", Timestamp: snap.At, Snapshot: snap, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	s.metrics.projectedNext.Set(snap.ProjectedNext)
	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromResult(res *pipeline.Result, at time.Time) Snapshot {
	sum := pipeline.Summarize(res.History)
	budget := pipeline.Budget(res.History, res.Forecast)
	snap := Snapshot{
		At:               at,
		Months:           sum.Months,
		LastExpense:      sum.LastExpense,
		AvgExpense:       sum.AvgExpense,
		ProjectedNext:    budget.ProjectedSpend,
		ProjectedHorizon: budget.ProjectedHorizon,
		BudgetUsedPct:    budget.BudgetUsedPercent,
		Fingerprint:      res.Fingerprint,
		CacheHit:         res.CacheHit,
	}
	if !sum.To.IsZero() {
		snap.LastPeriod = sum.To.Format("2006-01")
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Months:        curr.Months - prev.Months,
		LastExpense:   curr.LastExpense - prev.LastExpense,
		ProjectedNext: curr.ProjectedNext - prev.ProjectedNext,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	st := Status{
		StartedAt:          s.startedAt,
		LastRefreshAt:      s.lastRefreshAt,
		RefreshIntervalSec: int(s.cfg.Interval.Seconds()),
		RefreshCount:       s.refreshCount,
		Summary:            s.snapshot,
		LastError:          s.lastError,
		EventCount:         len(s.events),
		SubscriberCount:    len(s.subs),
		RAGEnabled:         s.cfg.Answerer != nil,
	}
	s.mu.RUnlock()

	if s.cfg.Data != nil {
		st.DataFile = s.cfg.Data.Path()
	}
	s.convMu.Lock()
	st.Conversations = len(s.conversations)
	s.convMu.Unlock()
	return st
}

func (s *Service) newConversation() *assistant.Conversation {
	c := assistant.NewConversation(uuid.NewString())
	s.convMu.Lock()
	s.conversations[c.ID] = c
	n := len(s.conversations)
	s.convMu.Unlock()
	s.metrics.conversations.Set(float64(n))
	return c
}

func (s *Service) conversation(id string) (*assistant.Conversation, bool) {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	c, ok := s.conversations[id]
	return c, ok
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	s.metrics.subscribers.Set(float64(len(s.subs)))
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
	s.metrics.subscribers.Set(float64(len(s.subs)))
}
