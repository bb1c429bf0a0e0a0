// Package store provides a SQLite-backed memo cache for fitted forecasts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/finassist/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

const periodLayout = "2006-01-02"

// Cache stores forecasts keyed by a fingerprint of their inputs.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked state of a history file.
type FileInfo struct {
	MtimeNs     int64
	SizeBytes   int64
	Fingerprint string // content fingerprint at the time it was tracked
}

// GetTrackedFile returns the tracked state of one file.
func (c *Cache) GetTrackedFile(path string) (FileInfo, bool, error) {
	var fi FileInfo
	err := c.db.QueryRow("SELECT mtime_ns, size_bytes, fingerprint FROM file_tracker WHERE file_path = ?", path).
		Scan(&fi.MtimeNs, &fi.SizeBytes, &fi.Fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return FileInfo{}, false, nil
	}
	if err != nil {
		return FileInfo{}, false, err
	}
	return fi, true, nil
}

// TrackFile records a file's current state.
func (c *Cache) TrackFile(path string, fi FileInfo) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes, fingerprint)
		VALUES (?, ?, ?, ?)`, path, fi.MtimeNs, fi.SizeBytes, fi.Fingerprint)
	return err
}

// DeleteFileTracker removes a file tracking entry.
func (c *Cache) DeleteFileTracker(path string) error {
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", path)
	return err
}

// SaveForecast stores a forecast under a fingerprint, replacing any
// previous entry.
func (c *Cache) SaveForecast(fingerprint, optionsKey string, f model.Forecast) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Cascades to series and values
	if _, err := tx.Exec("DELETE FROM forecasts WHERE fingerprint = ?", fingerprint); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT INTO forecasts (fingerprint, options_key, horizon, created_at)
		VALUES (?, ?, ?, ?)`, fingerprint, optionsKey, f.Horizon(), now)
	if err != nil {
		return err
	}

	fits := make(map[string]model.FitSummary, len(f.Fits))
	for _, fit := range f.Fits {
		fits[fit.Series] = fit
	}
	for pos, name := range f.Series {
		fit := fits[name]
		fallback := 0
		if fit.Fallback {
			fallback = 1
		}
		_, err = tx.Exec(`INSERT INTO forecast_series
			(fingerprint, position, series, kind, alpha, beta, gamma, phi, sse, fallback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			fingerprint, pos, name, fit.Kind, fit.Alpha, fit.Beta, fit.Gamma, fit.Phi, fit.SSE, fallback,
		)
		if err != nil {
			return err
		}
	}

	// Insert projected values
	for step, r := range f.Records {
		period := r.Period.UTC().Format(periodLayout)
		for _, name := range f.Series {
			_, err = tx.Exec(`INSERT INTO forecast_values (fingerprint, step, period, series, value)
				VALUES (?, ?, ?, ?, ?)`, fingerprint, step, period, name, r.Value(name))
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadForecast reads a cached forecast. The second return is false on a miss.
func (c *Cache) LoadForecast(fingerprint string) (*model.Forecast, bool, error) {
	var horizon int
	err := c.db.QueryRow("SELECT horizon FROM forecasts WHERE fingerprint = ?", fingerprint).Scan(&horizon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	seriesRows, err := c.db.Query(`SELECT series, kind, alpha, beta, gamma, phi, sse, fallback
		FROM forecast_series WHERE fingerprint = ? ORDER BY position`, fingerprint)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = seriesRows.Close() }()

	f := &model.Forecast{Records: make([]model.ForecastRecord, horizon)}
	for seriesRows.Next() {
		var fit model.FitSummary
		var kind sql.NullString
		var fallback int
		if err := seriesRows.Scan(&fit.Series, &kind, &fit.Alpha, &fit.Beta, &fit.Gamma, &fit.Phi, &fit.SSE, &fallback); err != nil {
			return nil, false, err
		}
		fit.Kind = kind.String
		fit.Fallback = fallback != 0
		f.Series = append(f.Series, fit.Series)
		f.Fits = append(f.Fits, fit)
	}
	if err := seriesRows.Err(); err != nil {
		return nil, false, err
	}

	valueRows, err := c.db.Query(`SELECT step, period, series, value
		FROM forecast_values WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = valueRows.Close() }()

	for i := range f.Records {
		f.Records[i].Categories = make(map[string]float64, len(f.Series))
	}
	for valueRows.Next() {
		var step int
		var period, series string
		var value float64
		if err := valueRows.Scan(&step, &period, &series, &value); err != nil {
			return nil, false, err
		}
		if step < 0 || step >= horizon {
			return nil, false, fmt.Errorf("cached forecast %s: step %d out of range", fingerprint, step)
		}
		rec := &f.Records[step]
		if rec.Period, err = time.Parse(periodLayout, period); err != nil {
			return nil, false, fmt.Errorf("cached forecast %s: %w", fingerprint, err)
		}
		if series == model.TotalSeries {
			rec.Total = value
		} else {
			rec.Categories[series] = value
		}
	}
	if err := valueRows.Err(); err != nil {
		return nil, false, err
	}

	return f, true, nil
}

// DeleteForecast removes a cached forecast.
func (c *Cache) DeleteForecast(fingerprint string) error {
	_, err := c.db.Exec("DELETE FROM forecasts WHERE fingerprint = ?", fingerprint)
	return err
}

// Purge removes every cached forecast and tracked file.
func (c *Cache) Purge() error {
	if _, err := c.db.Exec("DELETE FROM forecasts"); err != nil {
		return err
	}
	_, err := c.db.Exec("DELETE FROM file_tracker")
	return err
}

// ForecastCount returns the number of cached forecasts.
func (c *Cache) ForecastCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM forecasts").Scan(&count)
	return count, err
}
