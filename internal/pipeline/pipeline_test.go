package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/source"
	"github.com/theirongolddev/finassist/internal/store"
	"github.com/theirongolddev/finassist/internal/synth"
)

func syntheticHistory(tb testing.TB, months int, seed uint64) model.History {
	tb.Helper()
	p, err := synth.ParamsFromConfig(config.DefaultConfig().Generator)
	if err != nil {
		tb.Fatal(err)
	}
	p.Months = months
	h, err := synth.Generate(p, synth.NewRand(seed))
	if err != nil {
		tb.Fatal(err)
	}
	return h
}

func writeSynthetic(tb testing.TB, months int) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "data.csv")
	if err := source.WriteHistoryFile(path, syntheticHistory(tb, months, 99)); err != nil {
		tb.Fatal(err)
	}
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	path := writeSynthetic(t, 36)
	res, err := Run(context.Background(), path, forecast.New(forecast.DefaultOptions(), nil), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Forecast.Horizon() != 6 {
		t.Fatalf("Horizon = %d, want 6", res.Forecast.Horizon())
	}
	if len(res.Metrics.Series) != 7 {
		t.Fatalf("metrics for %d series, want 7", len(res.Metrics.Series))
	}
	for _, m := range res.Metrics.Series {
		if m.Err != nil {
			t.Errorf("%s: %v", m.Series, m.Err)
		}
	}
	if res.Fingerprint == "" {
		t.Error("empty fingerprint")
	}
}

func TestRun_MissingFile(t *testing.T) {
	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"),
		forecast.New(forecast.DefaultOptions(), nil), nil)
	if !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestRunWithCache_HitAndInvalidate(t *testing.T) {
	path := writeSynthetic(t, 30)
	cache, err := store.Open(filepath.Join(t.TempDir(), "c.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cache.Close() }()
	engine := forecast.New(forecast.DefaultOptions(), nil)

	first, err := RunWithCache(context.Background(), path, engine, cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || first.CacheErr != nil {
		t.Fatalf("first run: hit=%t err=%v", first.CacheHit, first.CacheErr)
	}

	second, err := RunWithCache(context.Background(), path, engine, cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Fatal("second run should hit the cache")
	}
	a, b := first.Forecast.SeriesValues(model.TotalSeries), second.Forecast.SeriesValues(model.TotalSeries)
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("cached value %d = %v, fitted %v", i, b[i], a[i])
		}
	}

	// Changing the history changes the fingerprint.
	if err := source.WriteHistoryFile(path, syntheticHistory(t, 31, 5)); err != nil {
		t.Fatal(err)
	}
	third, err := RunWithCache(context.Background(), path, engine, cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit || third.Fingerprint == first.Fingerprint {
		t.Fatal("modified history should miss the cache")
	}
	if n, _ := cache.ForecastCount(); n != 1 {
		t.Fatalf("ForecastCount = %d, want stale entry replaced", n)
	}

	// A different horizon is a different key.
	opts := forecast.DefaultOptions()
	opts.Horizon = 3
	fourth, err := RunWithCache(context.Background(), path, forecast.New(opts, nil), cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fourth.CacheHit || fourth.Forecast.Horizon() != 3 {
		t.Fatalf("horizon change: hit=%t horizon=%d", fourth.CacheHit, fourth.Forecast.Horizon())
	}
}

func TestSummarize(t *testing.T) {
	h := model.History{Categories: []string{"A"}}
	for i, tot := range []float64{500, 600, 700} {
		h.Records = append(h.Records, model.ExpenseRecord{
			Period:     time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Wage:       1000,
			Total:      tot,
			Categories: map[string]float64{"A": tot},
		})
	}
	s := Summarize(h)
	if s.Months != 3 || s.AvgExpense != 600 || s.AvgWage != 1000 {
		t.Fatalf("Summarize = %+v", s)
	}
	if math.Abs(s.SavingsRate-0.4) > 1e-12 {
		t.Errorf("SavingsRate = %v, want 0.4", s.SavingsRate)
	}
	if s.LastExpense != 700 {
		t.Errorf("LastExpense = %v", s.LastExpense)
	}
}

func TestAggregateCategories_SortedShares(t *testing.T) {
	h := syntheticHistory(t, 12, 4)
	shares := AggregateCategories(h)
	if len(shares) != 6 {
		t.Fatalf("len = %d", len(shares))
	}
	if shares[0].Category != "Temel gıda" {
		t.Errorf("largest category = %s, want Temel gıda", shares[0].Category)
	}
	var sum float64
	for i, s := range shares {
		sum += s.SharePercent
		if i > 0 && s.Total > shares[i-1].Total {
			t.Errorf("not sorted at %d", i)
		}
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("shares sum to %v", sum)
	}
}

func TestFilterByTimeAndLastMonths(t *testing.T) {
	h := syntheticHistory(t, 24, 8)
	since := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := FilterByTime(h, since, until).Len(); got != 7 {
		t.Errorf("FilterByTime len = %d, want 7", got)
	}
	if got := LastMonths(h, 12); got.Len() != 12 || !got.Last().Period.Equal(h.Last().Period) {
		t.Errorf("LastMonths = %d records", got.Len())
	}
}

func TestBudget(t *testing.T) {
	h := syntheticHistory(t, 3, 1)
	f := &model.Forecast{
		Series: []string{"Temel gıda", "Diğer"},
		Records: []model.ForecastRecord{
			{Categories: map[string]float64{"Temel gıda": 100, "Diğer": 50}},
			{Categories: map[string]float64{"Temel gıda": 110, "Diğer": 60}},
		},
	}
	b := Budget(h, f)
	if b.ProjectedSpend != 150 || b.ProjectedHorizon != 320 {
		t.Fatalf("Budget = %+v", b)
	}
	if b.Headroom != b.Wage-150 {
		t.Errorf("Headroom = %v", b.Headroom)
	}
}

func TestProvider_CurrentLoadsOnceThenRefreshes(t *testing.T) {
	path := writeSynthetic(t, 30)
	engine := forecast.New(forecast.DefaultOptions(), nil)
	p := NewProvider(path, engine, filepath.Join(t.TempDir(), "cache.db"), nil)

	if p.Latest() != nil {
		t.Fatal("Latest before first load should be nil")
	}
	first, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	again, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if first != again {
		t.Error("Current should reuse the loaded result")
	}

	refreshed, err := p.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !refreshed.CacheHit {
		t.Error("second load of an unchanged file should hit the cache")
	}
	if p.Latest() != refreshed {
		t.Error("Latest should return the refreshed result")
	}
}

func TestProvider_MissingFile(t *testing.T) {
	p := NewProvider(filepath.Join(t.TempDir(), "none.csv"), forecast.New(forecast.DefaultOptions(), nil), "", nil)
	if _, err := p.Current(context.Background()); !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}
}

func TestHistoryFingerprint_SubCentDifference(t *testing.T) {
	build := func(v float64) model.History {
		h := model.History{Categories: []string{"A"}}
		for i := range 30 {
			h.Records = append(h.Records, model.ExpenseRecord{
				Period:     time.Date(2022, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
				Wage:       1000,
				Total:      v,
				Categories: map[string]float64{"A": v},
			})
		}
		return h
	}
	a, b := HistoryFingerprint(build(0.004)), HistoryFingerprint(build(0.001))
	if a == b {
		t.Fatal("histories differing by 0.003 share a fingerprint")
	}
	if HistoryFingerprint(build(0.004)) != a {
		t.Fatal("fingerprint is not deterministic")
	}
}
