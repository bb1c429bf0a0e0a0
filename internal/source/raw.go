package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/finassist/internal/model"
)

// ParseRawExpenses parses the plain-text listing used by the quick
// estimator. The first line is a header whose first and last fields (month
// and total) are not categories; every other line is a comma-separated row
// of numbers starting with a month index and ending with the total.
func ParseRawExpenses(text string) (RawTable, error) {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return RawTable{}, fmt.Errorf("%w: empty listing", model.ErrMalformedInput)
	}

	header := splitFields(lines[0])
	if len(header) < 3 {
		return RawTable{}, fmt.Errorf("%w: header needs month, at least one category and total", model.ErrMalformedInput)
	}
	t := RawTable{Categories: header[1 : len(header)-1]}

	for i, l := range lines[1:] {
		lineNo := i + 2
		fields := splitFields(l)
		if len(fields) != len(header) {
			return RawTable{}, fmt.Errorf("%w: line %d: %d fields, header has %d",
				model.ErrMalformedInput, lineNo, len(fields), len(header))
		}

		month, err := strconv.Atoi(fields[0])
		if err != nil || month < 1 || month > 12 {
			return RawTable{}, fmt.Errorf("%w: line %d: month index %q", model.ErrMalformedInput, lineNo, fields[0])
		}

		row := make([]float64, len(t.Categories))
		for j := range t.Categories {
			if row[j], err = parseAmount(t.Categories[j], fields[j+1]); err != nil {
				return RawTable{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		total, err := parseAmount(header[len(header)-1], fields[len(fields)-1])
		if err != nil {
			return RawTable{}, fmt.Errorf("line %d: %w", lineNo, err)
		}

		t.Months = append(t.Months, month)
		t.Values = append(t.Values, row)
		t.Totals = append(t.Totals, total)
	}
	return t, nil
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ToHistory places the rows on the calendar. lastYear is the year of the
// final row; earlier rows step back a year whenever the month index does
// not decrease going backwards.
func (t RawTable) ToHistory(lastYear int) model.History {
	h := model.History{
		Categories: append([]string(nil), t.Categories...),
		Records:    make([]model.ExpenseRecord, t.Len()),
	}

	year := lastYear
	for i := t.Len() - 1; i >= 0; i-- {
		if i < t.Len()-1 && t.Months[i] >= t.Months[i+1] {
			year--
		}
		cats := make(map[string]float64, len(t.Categories))
		for j, c := range t.Categories {
			cats[c] = t.Values[i][j]
		}
		h.Records[i] = model.ExpenseRecord{
			Period:     time.Date(year, time.Month(t.Months[i]), 1, 0, 0, 0, 0, time.UTC),
			Total:      t.Totals[i],
			Categories: cats,
		}
	}
	return h
}
