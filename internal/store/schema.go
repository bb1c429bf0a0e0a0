package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS forecasts (
    fingerprint          TEXT PRIMARY KEY,
    options_key          TEXT NOT NULL,
    horizon              INTEGER NOT NULL,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS forecast_series (
    fingerprint          TEXT NOT NULL REFERENCES forecasts(fingerprint) ON DELETE CASCADE,
    position             INTEGER NOT NULL,
    series               TEXT NOT NULL,
    kind                 TEXT,
    alpha                REAL,
    beta                 REAL,
    gamma                REAL,
    phi                  REAL,
    sse                  REAL,
    fallback             INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (fingerprint, series)
);

CREATE TABLE IF NOT EXISTS forecast_values (
    fingerprint          TEXT NOT NULL REFERENCES forecasts(fingerprint) ON DELETE CASCADE,
    step                 INTEGER NOT NULL,
    period               TEXT NOT NULL,
    series               TEXT NOT NULL,
    value                REAL NOT NULL,
    PRIMARY KEY (fingerprint, step, series)
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    fingerprint          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_forecasts_created ON forecasts(created_at);
`
