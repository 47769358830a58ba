// Package store archives forecast and sweep results in a SQLite database keyed by a run id.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/goccy/go-json"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrEmptyRunID  = errors.New("run id cannot be empty")
)

const schema = `
CREATE TABLE IF NOT EXISTS forecasts (
	run TEXT NOT NULL,
	ds INTEGER NOT NULL,
	yhat REAL NOT NULL,
	yhat_lower REAL NOT NULL,
	yhat_upper REAL NOT NULL,
	PRIMARY KEY (run, ds)
);
CREATE TABLE IF NOT EXISTS sweep_runs (
	run TEXT NOT NULL,
	position INTEGER NOT NULL,
	smoothness REAL NOT NULL,
	error TEXT NOT NULL,
	PRIMARY KEY (run, position)
);
CREATE TABLE IF NOT EXISTS sweep_forecasts (
	run TEXT NOT NULL,
	position INTEGER NOT NULL,
	ds INTEGER NOT NULL,
	yhat REAL NOT NULL,
	PRIMARY KEY (run, position, ds)
);
CREATE TABLE IF NOT EXISTS models (
	run TEXT PRIMARY KEY,
	model BLOB NOT NULL,
	created INTEGER NOT NULL
);
`

// Store is a SQLite archive of results
type Store struct {
	db   *sql.DB
	path string
}

// SweepRecord is one archived sweep member in sweep order. Err is empty for successful members.
type SweepRecord struct {
	Smoothness float64
	T          []time.Time
	Forecast   []float64
	Err        string
}

// Open opens or creates the database at path and sets up its tables
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database %s, %w", path, err)
	}
	// sqlite serializes writers so a single connection avoids busy errors
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping sqlite database %s, %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create tables, %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withTx runs fn in a transaction committing only when fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction, %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit transaction, %w", err)
	}
	return nil
}

// SaveForecast replaces the archived forecast of the run with res
func (s *Store) SaveForecast(ctx context.Context, run string, res *forecaster.Results) error {
	if run == "" {
		return ErrEmptyRunID
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM forecasts WHERE run = ?`, run); err != nil {
			return fmt.Errorf("unable to clear forecast %s, %w", run, err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO forecasts (run, ds, yhat, yhat_lower, yhat_upper) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("unable to prepare forecast insert, %w", err)
		}
		defer stmt.Close()

		for i := 0; i < res.Len(); i++ {
			if _, err := stmt.ExecContext(ctx, run, res.T[i].Unix(), res.Forecast[i], res.Lower[i], res.Upper[i]); err != nil {
				return fmt.Errorf("unable to insert forecast %s at %s, %w", run, res.T[i], err)
			}
		}
		return nil
	})
}

// LoadForecast returns the archived forecast of the run. Components are not archived.
func (s *Store) LoadForecast(ctx context.Context, run string) (*forecaster.Results, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ds, yhat, yhat_lower, yhat_upper FROM forecasts WHERE run = ? ORDER BY ds`, run)
	if err != nil {
		return nil, fmt.Errorf("unable to query forecast %s, %w", run, err)
	}
	defer rows.Close()

	res := &forecaster.Results{}
	for rows.Next() {
		var ds int64
		var yhat, lower, upper float64
		if err := rows.Scan(&ds, &yhat, &lower, &upper); err != nil {
			return nil, fmt.Errorf("unable to scan forecast %s, %w", run, err)
		}
		res.T = append(res.T, time.Unix(ds, 0).UTC())
		res.Forecast = append(res.Forecast, yhat)
		res.Lower = append(res.Lower, lower)
		res.Upper = append(res.Upper, upper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read forecast %s, %w", run, err)
	}
	if res.Len() == 0 {
		return nil, fmt.Errorf("forecast %s, %w", run, ErrRunNotFound)
	}
	return res, nil
}

// SaveSweep replaces the archived sweep of the run keeping the sweep order and member errors
func (s *Store) SaveSweep(ctx context.Context, run string, sweep *forecaster.SweepResult) error {
	if run == "" {
		return ErrEmptyRunID
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"sweep_runs", "sweep_forecasts"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run = ?`, run); err != nil {
				return fmt.Errorf("unable to clear %s for %s, %w", table, run, err)
			}
		}
		for pos, member := range sweep.Runs() {
			var errMsg string
			if member.Err != nil {
				errMsg = member.Err.Error()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sweep_runs (run, position, smoothness, error) VALUES (?, ?, ?, ?)`,
				run, pos, member.Smoothness, errMsg,
			); err != nil {
				return fmt.Errorf("unable to insert sweep run %s smoothness %v, %w", run, member.Smoothness, err)
			}
			for i := 0; i < member.Results.Len(); i++ {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO sweep_forecasts (run, position, ds, yhat) VALUES (?, ?, ?, ?)`,
					run, pos, member.Results.T[i].Unix(), member.Results.Forecast[i],
				); err != nil {
					return fmt.Errorf("unable to insert sweep forecast %s smoothness %v, %w", run, member.Smoothness, err)
				}
			}
		}
		return nil
	})
}

// LoadSweep returns the archived sweep members of the run in sweep order
func (s *Store) LoadSweep(ctx context.Context, run string) ([]SweepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT smoothness, error FROM sweep_runs WHERE run = ? ORDER BY position`, run)
	if err != nil {
		return nil, fmt.Errorf("unable to query sweep %s, %w", run, err)
	}
	var records []SweepRecord
	for rows.Next() {
		var rec SweepRecord
		if err := rows.Scan(&rec.Smoothness, &rec.Err); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("unable to scan sweep %s, %w", run, err)
		}
		records = append(records, rec)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("unable to read sweep %s, %w", run, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sweep %s, %w", run, ErrRunNotFound)
	}

	points, err := s.db.QueryContext(ctx,
		`SELECT position, ds, yhat FROM sweep_forecasts WHERE run = ? ORDER BY position, ds`, run)
	if err != nil {
		return nil, fmt.Errorf("unable to query sweep forecasts %s, %w", run, err)
	}
	defer points.Close()
	for points.Next() {
		var pos int
		var ds int64
		var yhat float64
		if err := points.Scan(&pos, &ds, &yhat); err != nil {
			return nil, fmt.Errorf("unable to scan sweep forecasts %s, %w", run, err)
		}
		if pos < 0 || pos >= len(records) {
			return nil, fmt.Errorf("sweep %s has a forecast for unknown position %d, %w", run, pos, ErrRunNotFound)
		}
		records[pos].T = append(records[pos].T, time.Unix(ds, 0).UTC())
		records[pos].Forecast = append(records[pos].Forecast, yhat)
	}
	if err := points.Err(); err != nil {
		return nil, fmt.Errorf("unable to read sweep forecasts %s, %w", run, err)
	}
	return records, nil
}

// SaveModel archives the json encoded model of the run
func (s *Store) SaveModel(ctx context.Context, run string, m forecaster.Model) error {
	if run == "" {
		return ErrEmptyRunID
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("unable to encode model %s, %w", run, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO models (run, model, created) VALUES (?, ?, ?)`,
		run, data, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("unable to insert model %s, %w", run, err)
	}
	return nil
}

// LoadModel returns the archived model of the run
func (s *Store) LoadModel(ctx context.Context, run string) (forecaster.Model, error) {
	var m forecaster.Model
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT model FROM models WHERE run = ?`, run).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("model %s, %w", run, ErrRunNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("unable to query model %s, %w", run, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("unable to decode model %s, %w", run, err)
	}
	return m, nil
}
