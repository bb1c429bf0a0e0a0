package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/theirongolddev/finassist/internal/model"
)

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteHistory writes a history table: index, wage, date, total, then one
// column per category.
func WriteHistory(w io.Writer, h model.History) error {
	cw := csv.NewWriter(w)
	header := append([]string{"", ColumnWage, ColumnDate, ColumnTotal}, h.Categories...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range h.Records {
		row := []string{
			strconv.Itoa(i),
			formatAmount(r.Wage),
			r.Period.Format(MonthLayout),
			formatAmount(r.Total),
		}
		for _, c := range h.Categories {
			row = append(row, formatAmount(r.Categories[c]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecast writes a forecast table: month-end date, then one column per
// series in forecast order (total first when present).
func WriteForecast(w io.Writer, f model.Forecast) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{ColumnDate}, f.Series...)); err != nil {
		return err
	}
	for _, r := range f.Records {
		row := []string{r.Period.Format(DayLayout)}
		for _, s := range f.Series {
			row = append(row, formatAmount(r.Value(s)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHistoryFile writes a history table to path, replacing it atomically.
func WriteHistoryFile(path string, h model.History) error {
	return writeFileAtomic(path, func(w io.Writer) error { return WriteHistory(w, h) })
}

// WriteForecastFile writes a forecast table to path, replacing it atomically.
func WriteForecastFile(path string, f model.Forecast) error {
	return writeFileAtomic(path, func(w io.Writer) error { return WriteForecast(w, f) })
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".finassist-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
