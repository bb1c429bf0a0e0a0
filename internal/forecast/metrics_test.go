package forecast

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/theirongolddev/finassist/internal/model"
)

func TestRecentTrend_ExactlySixPeriods(t *testing.T) {
	got, err := RecentTrend([]float64{100, 110, 90, 120, 95, 130})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-30.0) > 1e-12 {
		t.Fatalf("RecentTrend = %v, want 30.0", got)
	}
}

func TestRecentTrend_UsesTrailingWindow(t *testing.T) {
	got, err := RecentTrend([]float64{1, 2, 3, 200, 110, 90, 120, 95, 100})
	if err != nil {
		t.Fatal(err)
	}
	if got != -50 {
		t.Fatalf("RecentTrend = %v, want -50", got)
	}
}

func TestRecentTrend_Insufficient(t *testing.T) {
	_, err := RecentTrend([]float64{1, 2, 3, 4, 5})
	if !errors.Is(err, model.ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
}

func TestTotalIncreasePercentage_ZeroBaseline(t *testing.T) {
	_, err := TotalIncreasePercentage(0, 50)
	if !errors.Is(err, model.ErrDivisionByZero) {
		t.Fatalf("err = %v, want ErrDivisionByZero", err)
	}
	got, err := TotalIncreasePercentage(200, 250)
	if err != nil || got != 25 {
		t.Fatalf("TotalIncreasePercentage = %v, %v", got, err)
	}
}

func TestAvgMonthlyIncrease(t *testing.T) {
	got, err := AvgMonthlyIncrease(100, 160, 6)
	if err != nil || got != 10 {
		t.Fatalf("AvgMonthlyIncrease = %v, %v", got, err)
	}
}

func metricsFixture() (model.History, model.Forecast) {
	h := seriesHistory(100, 110, 90, 120, 95, 130)
	h.Categories = append(h.Categories, "Z")
	for i := range h.Records {
		h.Records[i].Categories["Z"] = 5
	}
	h.Records[len(h.Records)-1].Categories["Z"] = 0

	f := model.Forecast{Series: []string{model.TotalSeries, "A", "Z"}}
	for k := 1; k <= 3; k++ {
		f.Records = append(f.Records, model.ForecastRecord{
			Period:     time.Date(2024, time.Month(6+k), 1, 0, 0, 0, 0, time.UTC),
			Total:      130 + float64(10*k),
			Categories: map[string]float64{"A": 130 + float64(10*k), "Z": 1},
		})
	}
	return h, f
}

func TestComputeMetrics(t *testing.T) {
	h, f := metricsFixture()
	res := ComputeMetrics(h, f)

	if res.Horizon != 3 || len(res.Series) != 3 {
		t.Fatalf("result = %+v", res)
	}
	a, ok := res.Get("A")
	if !ok || a.Err != nil {
		t.Fatalf("A metrics = %+v", a)
	}
	if a.AvgMonthlyIncrease != 10 {
		t.Errorf("AvgMonthlyIncrease = %v, want 10", a.AvgMonthlyIncrease)
	}
	if math.Abs(a.TotalIncreasePct-(30.0/130*100)) > 1e-9 {
		t.Errorf("TotalIncreasePct = %v", a.TotalIncreasePct)
	}
	if a.RecentTrend != 30 {
		t.Errorf("RecentTrend = %v, want 30", a.RecentTrend)
	}

	z, _ := res.Get("Z")
	if !errors.Is(z.Err, model.ErrDivisionByZero) {
		t.Fatalf("Z err = %v, want ErrDivisionByZero", z.Err)
	}
	var se *model.SeriesError
	if !errors.As(z.Err, &se) || se.Series != "Z" {
		t.Fatalf("Z err not scoped to series: %v", z.Err)
	}
}

func TestComputeMetrics_IsPure(t *testing.T) {
	h, f := metricsFixture()
	first := ComputeMetrics(h, f)
	second := ComputeMetrics(h, f)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("metrics differ between calls:\n%+v\n%+v", first, second)
	}
}
