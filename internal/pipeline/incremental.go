package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/source"
	"github.com/theirongolddev/finassist/internal/store"
)

// RunWithCache is Run backed by the forecast memo cache. Fitting is a pure
// function of the history and options, so a fingerprint hit skips it.
func RunWithCache(
	ctx context.Context,
	path string,
	engine *forecast.Engine,
	cache *store.Cache,
	progressFn ProgressFunc,
) (*Result, error) {
	df, err := source.Discover(path)
	if err != nil {
		return nil, err
	}
	h, err := source.LoadHistory(df.Path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	historyFP := HistoryFingerprint(h)
	fp := Fingerprint(historyFP, engine.Options())

	var cacheErr error
	cached, ok, err := cache.LoadForecast(fp)
	if err != nil {
		cacheErr = fmt.Errorf("reading cache: %w", err)
	}
	if ok && cached.Horizon() == engine.Options().Horizon {
		return &Result{
			Path:        path,
			History:     h,
			Forecast:    cached,
			Metrics:     forecast.ComputeMetrics(h, *cached),
			Fingerprint: fp,
			CacheHit:    true,
			Elapsed:     time.Since(start),
		}, nil
	}

	res, err := RunHistory(ctx, h, engine, progressFn)
	if err != nil {
		return nil, err
	}
	res.Path = path
	res.CacheErr = cacheErr

	// A stale entry for this file is replaced rather than left to accumulate.
	if prev, tracked, _ := cache.GetTrackedFile(df.Path); tracked && prev.Fingerprint != historyFP {
		_ = cache.DeleteForecast(Fingerprint(prev.Fingerprint, engine.Options()))
	}
	if err := cache.SaveForecast(fp, engine.Options().Key(), *res.Forecast); err != nil {
		res.CacheErr = fmt.Errorf("writing cache: %w", err)
		return res, nil
	}
	if err := cache.TrackFile(df.Path, store.FileInfo{
		MtimeNs:     df.MtimeNs,
		SizeBytes:   df.Size,
		Fingerprint: historyFP,
	}); err != nil {
		res.CacheErr = fmt.Errorf("tracking %s: %w", df.Path, err)
	}
	return res, nil
}

// HistoryFingerprint hashes a history at full float64 precision. The CSV
// table rounds to cents, so it cannot serve as the key.
func HistoryFingerprint(h model.History) string {
	sum := sha256.New()
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		sum.Write(buf[:])
	}
	for _, c := range h.Categories {
		sum.Write([]byte(c))
		sum.Write([]byte{0})
	}
	for _, r := range h.Records {
		sum.Write([]byte(r.Period.Format(source.MonthLayout)))
		writeFloat(r.Wage)
		writeFloat(r.Total)
		for _, c := range h.Categories {
			writeFloat(r.Categories[c])
		}
	}
	return hex.EncodeToString(sum.Sum(nil))
}

// Fingerprint combines a history fingerprint with the options that affect
// fitted output.
func Fingerprint(historyFP string, opts forecast.Options) string {
	sum := sha256.Sum256([]byte(historyFP + "|" + opts.Key()))
	return hex.EncodeToString(sum[:])
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(config.CacheDir(), "forecasts.db")
}
