package source

import (
	"errors"
	"testing"
	"time"

	"github.com/theirongolddev/finassist/internal/model"
)

const sampleRaw = `Ay,Market,Fatura,Ulaşım,Toplam Harcama
10,3000,1500,800,5300
11,3100,1550,820,5470
12,3200,1600,850,5650
1,3300,1650,870,5820
`

func TestParseRawExpenses(t *testing.T) {
	tbl, err := ParseRawExpenses(sampleRaw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tbl.Categories) != 3 || tbl.Categories[0] != "Market" || tbl.Categories[2] != "Ulaşım" {
		t.Fatalf("Categories = %v", tbl.Categories)
	}
	if tbl.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tbl.Len())
	}
	if tbl.Values[3][1] != 1650 || tbl.Totals[3] != 5820 {
		t.Errorf("last row = %v / %v", tbl.Values[3], tbl.Totals[3])
	}
}

func TestParseRawExpenses_Malformed(t *testing.T) {
	for name, text := range map[string]string{
		"empty":       "  \n",
		"short head":  "Ay,Toplam\n1,2\n",
		"bad month":   "Ay,A,T\n13,1,1\n",
		"bad value":   "Ay,A,T\n1,x,1\n",
		"field count": "Ay,A,B,T\n1,1,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRawExpenses(text); !errors.Is(err, model.ErrMalformedInput) {
				t.Fatalf("err = %v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestRawTableToHistory_YearRollover(t *testing.T) {
	tbl, err := ParseRawExpenses(sampleRaw)
	if err != nil {
		t.Fatal(err)
	}
	h := tbl.ToHistory(2025)

	want := []time.Time{
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, w := range want {
		if !h.Records[i].Period.Equal(w) {
			t.Errorf("Records[%d].Period = %v, want %v", i, h.Records[i].Period, w)
		}
	}
	if h.Records[0].Categories["Fatura"] != 1500 {
		t.Errorf("Fatura = %v", h.Records[0].Categories["Fatura"])
	}
}
