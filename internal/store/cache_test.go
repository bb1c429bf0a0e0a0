package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/finassist/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "finassist.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleForecast() model.Forecast {
	f := model.Forecast{
		Series: []string{model.TotalSeries, "Faturalar", "Diğer"},
		Fits: []model.FitSummary{
			{Series: model.TotalSeries, Kind: "holt-winters", Alpha: 0.4, Beta: 0.1, Gamma: 0.2, Phi: 0.95, SSE: 12.5},
			{Series: "Faturalar", Kind: "holt", Alpha: 0.5, Phi: 0.9, Fallback: true},
			{Series: "Diğer", Kind: "holt-winters", Alpha: 0.3, Phi: 0.98},
		},
	}
	for k := 0; k < 3; k++ {
		f.Records = append(f.Records, model.ForecastRecord{
			Period:     time.Date(2025, time.Month(k+2), 0, 0, 0, 0, 0, time.UTC),
			Total:      1000 + float64(k),
			Categories: map[string]float64{"Faturalar": 200 + float64(k), "Diğer": 80.25},
		})
	}
	return f
}

func TestForecastRoundTrip(t *testing.T) {
	c := openTestCache(t)
	want := sampleForecast()

	if err := c.SaveForecast("fp1", "h=3", want); err != nil {
		t.Fatalf("SaveForecast: %v", err)
	}
	got, ok, err := c.LoadForecast("fp1")
	if err != nil || !ok {
		t.Fatalf("LoadForecast = %v, %v", ok, err)
	}

	if len(got.Series) != 3 || got.Series[0] != model.TotalSeries || got.Series[2] != "Diğer" {
		t.Fatalf("Series = %v", got.Series)
	}
	if got.Horizon() != 3 {
		t.Fatalf("Horizon = %d", got.Horizon())
	}
	for k := range want.Records {
		if !got.Records[k].Period.Equal(want.Records[k].Period) {
			t.Errorf("step %d period = %v, want %v", k, got.Records[k].Period, want.Records[k].Period)
		}
		for _, s := range want.Series {
			if got.Records[k].Value(s) != want.Records[k].Value(s) {
				t.Errorf("step %d %s = %v, want %v", k, s, got.Records[k].Value(s), want.Records[k].Value(s))
			}
		}
	}
	if !got.Fits[1].Fallback || got.Fits[1].Kind != "holt" {
		t.Errorf("Fits[1] = %+v", got.Fits[1])
	}
}

func TestLoadForecast_Miss(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.LoadForecast("absent")
	if err != nil || ok {
		t.Fatalf("LoadForecast = %v, %v; want miss", ok, err)
	}
}

func TestSaveForecast_Replaces(t *testing.T) {
	c := openTestCache(t)
	f := sampleForecast()
	if err := c.SaveForecast("fp", "k", f); err != nil {
		t.Fatal(err)
	}
	f.Records = f.Records[:1]
	f.Records[0].Total = 42
	if err := c.SaveForecast("fp", "k", f); err != nil {
		t.Fatal(err)
	}

	got, _, err := c.LoadForecast("fp")
	if err != nil {
		t.Fatal(err)
	}
	if got.Horizon() != 1 || got.Records[0].Total != 42 {
		t.Fatalf("replaced forecast = %+v", got.Records)
	}
	if n, _ := c.ForecastCount(); n != 1 {
		t.Fatalf("ForecastCount = %d, want 1", n)
	}
}

func TestFileTracker(t *testing.T) {
	c := openTestCache(t)
	if _, ok, _ := c.GetTrackedFile("/data.csv"); ok {
		t.Fatal("untracked file reported as tracked")
	}

	fi := FileInfo{MtimeNs: 123, SizeBytes: 456, Fingerprint: "abc"}
	if err := c.TrackFile("/data.csv", fi); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.GetTrackedFile("/data.csv")
	if err != nil || !ok || got != fi {
		t.Fatalf("GetTrackedFile = %+v, %v, %v", got, ok, err)
	}

	if err := c.DeleteFileTracker("/data.csv"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.GetTrackedFile("/data.csv"); ok {
		t.Fatal("file still tracked after delete")
	}
}

func TestPurge(t *testing.T) {
	c := openTestCache(t)
	_ = c.SaveForecast("a", "k", sampleForecast())
	_ = c.SaveForecast("b", "k", sampleForecast())
	_ = c.TrackFile("/x", FileInfo{Fingerprint: "a"})

	if err := c.Purge(); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.ForecastCount(); n != 0 {
		t.Fatalf("ForecastCount after purge = %d", n)
	}
	if _, ok, _ := c.GetTrackedFile("/x"); ok {
		t.Fatal("file tracker survived purge")
	}
}
