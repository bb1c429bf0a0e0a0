package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/synth"
)

func syntheticHistory(t *testing.T, months int, seed uint64) model.History {
	t.Helper()
	p, err := synth.ParamsFromConfig(config.DefaultConfig().Generator)
	if err != nil {
		t.Fatal(err)
	}
	p.Months = months
	h, err := synth.Generate(p, synth.NewRand(seed))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func seriesHistory(values ...float64) model.History {
	h := model.History{Categories: []string{"A"}}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		h.Records = append(h.Records, model.ExpenseRecord{
			Period:     start.AddDate(0, i, 0),
			Total:      v,
			Categories: map[string]float64{"A": v},
		})
	}
	return h
}

func TestMonthEnds(t *testing.T) {
	got := MonthEnds(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), 3)
	want := []string{"2025-01-31", "2025-02-28", "2025-03-31"}
	for i, w := range want {
		if got[i].Format("2006-01-02") != w {
			t.Errorf("MonthEnds[%d] = %s, want %s", i, got[i].Format("2006-01-02"), w)
		}
	}
}

func TestForecast_HorizonAndContiguousDates(t *testing.T) {
	h := syntheticHistory(t, 30, 11)
	for _, horizon := range []int{1, 6, 13} {
		opts := DefaultOptions()
		opts.Horizon = horizon
		f, err := New(opts, nil).Forecast(context.Background(), h)
		if err != nil {
			t.Fatalf("horizon %d: %v", horizon, err)
		}
		if f.Horizon() != horizon {
			t.Fatalf("horizon %d: got %d records", horizon, f.Horizon())
		}

		last := h.Last().Period
		for k, r := range f.Records {
			wantMonth := last.AddDate(0, k+1, 0)
			if r.Period.Year() != wantMonth.Year() || r.Period.Month() != wantMonth.Month() {
				t.Fatalf("record %d period %v, want month of %v", k, r.Period, wantMonth)
			}
			if r.Period.AddDate(0, 0, 1).Day() != 1 {
				t.Fatalf("record %d period %v is not a month end", k, r.Period)
			}
		}
	}
}

func TestForecast_FiniteAndIndependentPerSeries(t *testing.T) {
	h := syntheticHistory(t, 36, 5)
	opts := DefaultOptions()
	full, err := New(opts, nil).Forecast(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range full.Records {
		for _, s := range full.Series {
			v := r.Value(s)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s: non-finite %v", s, v)
			}
		}
	}

	// Keep only one category, in a different position, and drop the total.
	target := h.Categories[3]
	reduced := model.History{Categories: []string{target}}
	for _, r := range h.Records {
		reduced.Records = append(reduced.Records, model.ExpenseRecord{
			Period:     r.Period,
			Total:      r.Total,
			Categories: map[string]float64{target: r.Categories[target]},
		})
	}
	opts.IncludeTotal = false
	opts.Workers = 1
	alone, err := New(opts, nil).Forecast(context.Background(), reduced)
	if err != nil {
		t.Fatal(err)
	}

	a, b := full.SeriesValues(target), alone.SeriesValues(target)
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			t.Fatalf("%s month %d: %v with other series, %v alone", target, i, a[i], b[i])
		}
	}
}

func TestForecast_SeededEndToEndIsSane(t *testing.T) {
	h := syntheticHistory(t, 36, 2024)
	f, err := New(DefaultOptions(), nil).Forecast(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	if f.Horizon() != 6 {
		t.Fatalf("Horizon = %d, want 6", f.Horizon())
	}

	for _, s := range f.Series {
		y, _ := h.Series(s)
		trailing := mean(y[len(y)-12:])
		for k, v := range f.SeriesValues(s) {
			if ratio := v / trailing; ratio < 0.2 || ratio > 5 {
				t.Errorf("%s month %d: %.2f is %.2fx the trailing average %.2f", s, k, v, ratio, trailing)
			}
		}
	}
	for _, fit := range f.Fits {
		if fit.Kind != "holt-winters" || fit.Fallback {
			t.Errorf("%s fitted as %s (fallback=%t), want seasonal", fit.Series, fit.Kind, fit.Fallback)
		}
		if fit.Phi < phiMin || fit.Phi > phiMax {
			t.Errorf("%s phi %.3f outside [%.2f, %.2f]", fit.Series, fit.Phi, phiMin, phiMax)
		}
		if fit.Beta > fit.Alpha || fit.Gamma > 1-fit.Alpha {
			t.Errorf("%s coefficients out of bounds: %+v", fit.Series, fit)
		}
	}
}

func TestForecast_ShortHistoryFallsBack(t *testing.T) {
	h := syntheticHistory(t, 10, 9)
	f, err := New(DefaultOptions(), nil).Forecast(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fit := range f.Fits {
		if !fit.Fallback || fit.Kind != "holt" {
			t.Errorf("%s: kind %s fallback %t, want non-seasonal fallback", fit.Series, fit.Kind, fit.Fallback)
		}
	}
}

func TestForecast_InsufficientHistory(t *testing.T) {
	_, err := New(DefaultOptions(), nil).Forecast(context.Background(), seriesHistory(100))
	if !errors.Is(err, model.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
	var se *model.SeriesError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want a SeriesError", err)
	}

	_, err = New(DefaultOptions(), nil).Forecast(context.Background(), model.History{})
	if !errors.Is(err, model.ErrInsufficientHistory) {
		t.Fatalf("empty history err = %v", err)
	}
}

func TestForecast_InvalidHorizon(t *testing.T) {
	opts := DefaultOptions()
	opts.Horizon = 0
	_, err := New(opts, nil).Forecast(context.Background(), seriesHistory(1, 2, 3))
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestForecast_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultOptions(), nil).Forecast(ctx, syntheticHistory(t, 36, 1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestForecast_ZeroValuesUseAdditiveTrend(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(100 + 5*i)
	}
	values[4] = 0
	f, err := New(DefaultOptions(), nil).Forecast(context.Background(), seriesHistory(values...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Fits[0].Fallback {
		t.Error("series with a zero should not be fitted multiplicatively")
	}
}

func TestEstimate_InflationCompoundsAfterFirstMonth(t *testing.T) {
	h := seriesHistory(3000, 3100, 3180, 3300, 3390, 3500)

	plain := EstimateOptions()
	plain.InflationRate = 0
	base, err := New(plain, nil).Forecast(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	est, err := Estimate(context.Background(), h, nil)
	if err != nil {
		t.Fatal(err)
	}

	if est.Horizon() != 3 {
		t.Fatalf("Horizon = %d, want 3", est.Horizon())
	}
	if len(est.Series) != 1 || est.Series[0] != "A" {
		t.Fatalf("Series = %v, want categories only", est.Series)
	}
	for k := 0; k < 3; k++ {
		want := base.Records[k].Value("A") * math.Pow(1.03, float64(k))
		if got := est.Records[k].Value("A"); math.Abs(got-want) > 1e-9 {
			t.Errorf("month %d = %v, want %v", k, got, want)
		}
	}
	if est.Records[2].Value("A") <= h.Last().Total {
		t.Errorf("rising series projected to %v", est.Records[2].Value("A"))
	}
}

func TestOptionsKey_IgnoresWorkers(t *testing.T) {
	a, b := DefaultOptions(), DefaultOptions()
	b.Workers = 8
	if a.Key() != b.Key() {
		t.Fatal("worker count should not change the key")
	}
	b.Horizon = 7
	if a.Key() == b.Key() {
		t.Fatal("horizon should change the key")
	}
}
