package synth

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/finassist/internal/config"
)

func defaultParams(t *testing.T) Params {
	t.Helper()
	p, err := ParamsFromConfig(config.DefaultConfig().Generator)
	if err != nil {
		t.Fatalf("ParamsFromConfig: %v", err)
	}
	return p
}

func TestGenerate_SeededIsReproducible(t *testing.T) {
	p := defaultParams(t)
	a, err := Generate(p, NewRand(42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(p, NewRand(42))
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Records {
		if a.Records[i].Total != b.Records[i].Total {
			t.Fatalf("month %d total differs: %v vs %v", i, a.Records[i].Total, b.Records[i].Total)
		}
		for _, c := range a.Categories {
			if a.Records[i].Categories[c] != b.Records[i].Categories[c] {
				t.Fatalf("month %d %s differs", i, c)
			}
		}
	}
}

func TestGenerate_ShapeAndPeriods(t *testing.T) {
	p := defaultParams(t)
	h, err := Generate(p, NewRand(7))
	if err != nil {
		t.Fatal(err)
	}

	if h.Len() != 36 {
		t.Fatalf("Len = %d, want 36", h.Len())
	}
	if len(h.Categories) != 6 || h.Categories[0] != "Temel gıda" {
		t.Fatalf("Categories = %v", h.Categories)
	}
	first := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range h.Records {
		if want := first.AddDate(0, i, 0); !r.Period.Equal(want) {
			t.Fatalf("Records[%d].Period = %v, want %v", i, r.Period, want)
		}
		if r.Total <= 0 {
			t.Fatalf("Records[%d].Total = %v", i, r.Total)
		}
		for _, c := range h.Categories {
			v := r.Categories[c]
			if v < 0 || math.Abs(v*100-math.Round(v*100)) > 1e-6 {
				t.Fatalf("Records[%d][%s] = %v not rounded to cents", i, c, v)
			}
		}
	}
}

func TestGenerate_WageRaisesOncePerYear(t *testing.T) {
	p := defaultParams(t)
	h, err := Generate(p, NewRand(1))
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < h.Len(); i++ {
		prev, cur := h.Records[i-1].Wage, h.Records[i].Wage
		if i%12 == 0 {
			if math.Abs(cur-round2(prev*1.10)) > 0.02 {
				t.Errorf("month %d: wage %v, want raise from %v", i, cur, prev)
			}
		} else if cur != prev {
			t.Errorf("month %d: wage changed mid-year %v -> %v", i, prev, cur)
		}
	}
	if h.Records[0].Wage != 30000 {
		t.Errorf("first wage = %v, want 30000", h.Records[0].Wage)
	}
}

func TestGenerate_CategoriesTrackShares(t *testing.T) {
	p := defaultParams(t)
	h, err := Generate(p, NewRand(3))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range h.Records {
		for _, c := range p.Categories {
			ratio := r.Categories[c.Name] / (r.Total * c.Share)
			if ratio < 0.94 || ratio > 1.06 {
				t.Fatalf("%s %s ratio %.3f outside ±5%% band", r.Period.Format("2006-01"), c.Name, ratio)
			}
		}
	}
}

func TestGenerate_InvalidParams(t *testing.T) {
	p := defaultParams(t)
	p.Months = 0
	p.Categories = nil
	if _, err := Generate(p, NewRand(1)); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
}

func TestParamsFromConfig_BadStart(t *testing.T) {
	cfg := config.DefaultConfig().Generator
	cfg.Start = "January"
	if _, err := ParamsFromConfig(cfg); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
}
