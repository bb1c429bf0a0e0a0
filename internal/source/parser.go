package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/finassist/internal/model"
)

// LoadHistory reads a history table from disk.
func LoadHistory(path string) (model.History, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied data path
	if err != nil {
		if os.IsNotExist(err) {
			return model.History{}, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
		}
		return model.History{}, err
	}
	defer func() { _ = f.Close() }()

	return ParseHistory(f)
}

type columnLayout struct {
	wage       int
	date       int
	total      int
	categories []int
	names      []string
}

func locateColumns(header []string) (columnLayout, error) {
	layout := columnLayout{wage: -1, date: -1, total: -1}
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		switch {
		case name == ColumnWage:
			layout.wage = i
		case name == ColumnDate:
			layout.date = i
		case name == ColumnTotal:
			layout.total = i
		case i == 0 && indexHeaders[name]:
		case name == "":
			return layout, fmt.Errorf("%w: unnamed column %d", model.ErrMalformedInput, i+1)
		default:
			for _, seen := range layout.names {
				if seen == name {
					return layout, fmt.Errorf("%w: duplicate column %q", model.ErrMalformedInput, name)
				}
			}
			layout.categories = append(layout.categories, i)
			layout.names = append(layout.names, name)
		}
	}
	if layout.date < 0 {
		return layout, fmt.Errorf("%w: missing %q column", model.ErrMalformedInput, ColumnDate)
	}
	if layout.total < 0 {
		return layout, fmt.Errorf("%w: missing %q column", model.ErrMalformedInput, ColumnTotal)
	}
	return layout, nil
}

// ParseHistory reads a history table. Columns are located by header name;
// anything that is not the index, wage, date or total is a category.
// Records are returned sorted by period.
func ParseHistory(r io.Reader) (model.History, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.History{}, fmt.Errorf("%w: empty table", model.ErrMalformedInput)
		}
		return model.History{}, fmt.Errorf("%w: %v", model.ErrMalformedInput, err)
	}
	layout, err := locateColumns(header)
	if err != nil {
		return model.History{}, err
	}

	h := model.History{Categories: layout.names}
	seen := make(map[time.Time]bool)
	line := 1

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return model.History{}, fmt.Errorf("%w: line %d: %v", model.ErrMalformedInput, line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) != len(header) {
			return model.History{}, fmt.Errorf("%w: line %d: %d fields, header has %d",
				model.ErrMalformedInput, line, len(row), len(header))
		}

		rec, err := parseRecord(row, layout)
		if err != nil {
			return model.History{}, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[rec.Period] {
			return model.History{}, fmt.Errorf("%w: line %d: duplicate period %s",
				model.ErrMalformedInput, line, rec.Period.Format(MonthLayout))
		}
		seen[rec.Period] = true
		h.Records = append(h.Records, rec)
	}

	sort.Slice(h.Records, func(i, j int) bool {
		return h.Records[i].Period.Before(h.Records[j].Period)
	})
	// Seasonal indices are positional, so months must be consecutive.
	for i := 1; i < len(h.Records); i++ {
		want := h.Records[i-1].Period.AddDate(0, 1, 0)
		if got := h.Records[i].Period; !got.Equal(want) {
			return model.History{}, fmt.Errorf("%w: missing period %s before %s",
				model.ErrMalformedInput, want.Format(MonthLayout), got.Format(MonthLayout))
		}
	}
	return h, nil
}

func parseRecord(row []string, layout columnLayout) (model.ExpenseRecord, error) {
	period, err := ParsePeriod(row[layout.date])
	if err != nil {
		return model.ExpenseRecord{}, err
	}
	rec := model.ExpenseRecord{
		Period:     period,
		Categories: make(map[string]float64, len(layout.names)),
	}

	if layout.wage >= 0 {
		if rec.Wage, err = parseAmount(ColumnWage, row[layout.wage]); err != nil {
			return rec, err
		}
	}
	if rec.Total, err = parseAmount(ColumnTotal, row[layout.total]); err != nil {
		return rec, err
	}
	for i, col := range layout.categories {
		v, err := parseAmount(layout.names[i], row[col])
		if err != nil {
			return rec, err
		}
		rec.Categories[layout.names[i]] = v
	}
	return rec, nil
}

func parseAmount(column, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: column %q: %q is not a number", model.ErrMalformedInput, column, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: column %q: negative amount %v", model.ErrMalformedInput, column, v)
	}
	return v, nil
}

// ParsePeriod parses a YYYY-MM or YYYY-MM-DD string into the first day of
// its month, UTC.
func ParsePeriod(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range []string{MonthLayout, DayLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad period %q, want YYYY-MM", model.ErrMalformedInput, raw)
}
