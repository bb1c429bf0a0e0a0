package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/store"
)

// Provider keeps the latest pipeline result for long-running consumers
// (the chat server, the assistant and the TUI).
type Provider struct {
	path      string
	engine    *forecast.Engine
	cachePath string
	timeout   time.Duration
	logger    *zap.Logger

	mu     sync.RWMutex
	latest *Result

	// refreshMu serializes refreshes so concurrent callers share one fit.
	refreshMu sync.Mutex
}

// NewProvider creates a provider for the history at path. An empty
// cachePath disables the memo cache.
func NewProvider(path string, engine *forecast.Engine, cachePath string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{path: path, engine: engine, cachePath: cachePath, logger: logger.Named("pipeline")}
}

// SetFitTimeout bounds each refresh. Zero means no limit.
func (p *Provider) SetFitTimeout(d time.Duration) { p.timeout = d }

// Path returns the history file being tracked.
func (p *Provider) Path() string { return p.path }

// Latest returns the most recent result without refreshing, or nil.
func (p *Provider) Latest() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Current returns the latest result, loading it on first use.
func (p *Provider) Current(ctx context.Context) (*Result, error) {
	if r := p.Latest(); r != nil {
		return r, nil
	}
	return p.Refresh(ctx)
}

// Refresh reloads the history and forecasts it. The cache is used when it
// opens; otherwise the pipeline runs uncached.
func (p *Provider) Refresh(ctx context.Context) (*Result, error) {
	return p.RefreshWithProgress(ctx, nil)
}

// RefreshWithProgress is Refresh reporting per-series fitting progress.
// A cache hit reports nothing.
func (p *Provider) RefreshWithProgress(ctx context.Context, progressFn ProgressFunc) (*Result, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	res, err := p.load(ctx, progressFn)
	if err != nil {
		return nil, err
	}
	if res.CacheErr != nil {
		p.logger.Warn("forecast cache unavailable", zap.Error(res.CacheErr))
	}
	p.logger.Debug("forecast refreshed",
		zap.String("path", p.path),
		zap.Bool("cache_hit", res.CacheHit),
		zap.Duration("elapsed", res.Elapsed))

	p.mu.Lock()
	p.latest = res
	p.mu.Unlock()
	return res, nil
}

func (p *Provider) load(ctx context.Context, progressFn ProgressFunc) (*Result, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if p.cachePath != "" {
		cache, err := store.Open(p.cachePath)
		if err == nil {
			defer func() { _ = cache.Close() }()
			return RunWithCache(ctx, p.path, p.engine, cache, progressFn)
		}
		p.logger.Warn("opening forecast cache", zap.String("path", p.cachePath), zap.Error(err))
	}
	return Run(ctx, p.path, p.engine, progressFn)
}
