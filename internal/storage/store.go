// Package storage persists simulation runs in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/logger"
	"portfolio-frontier/internal/model"
	"portfolio-frontier/internal/simulation"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrTrialNotFound = errors.New("trial not found")
)

// Store wraps the SQLite database holding runs and their trials.
type Store struct {
	sql *sql.DB
	log *slog.Logger
}

// DefaultPath returns DB_PATH or data/frontier.db.
func DefaultPath() string {
	if p := os.Getenv("DB_PATH"); p != "" {
		return p
	}
	return filepath.Join("data", "frontier.db")
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &Store{sql: db, log: logger.Component("storage")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	s.log.Info("opened database", "path", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) migrate() error {
	version := 0
	_ = s.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS runs (
				id          TEXT PRIMARY KEY,
				created_at  TEXT NOT NULL,
				instruments TEXT NOT NULL,
				config      TEXT NOT NULL,
				seed        TEXT NOT NULL,
				requested   INTEGER NOT NULL,
				partial     INTEGER NOT NULL DEFAULT 0,
				elapsed_ms  INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

			CREATE TABLE IF NOT EXISTS trials (
				run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				trial_index     INTEGER NOT NULL,
				volatility      REAL NOT NULL,
				expected_return REAL NOT NULL,
				sharpe_ratio    REAL NOT NULL,
				weights         TEXT NOT NULL,
				converged       INTEGER NOT NULL,
				years           REAL NOT NULL DEFAULT 0,
				num_days        INTEGER NOT NULL DEFAULT 0,
				resamples       INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (run_id, trial_index)
			);
			CREATE INDEX IF NOT EXISTS idx_trials_sharpe ON trials(run_id, sharpe_ratio);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		s.log.Info("applied migration v1")
	}
	return nil
}

// Run is a persisted simulation run.
type Run struct {
	ID          string              `json:"id"`
	CreatedAt   time.Time           `json:"created_at"`
	Instruments []string            `json:"instruments"`
	Config      config.Config       `json:"config"`
	Seed        uint64              `json:"seed"`
	Requested   int                 `json:"requested"`
	Partial     bool                `json:"partial"`
	Elapsed     time.Duration       `json:"elapsed_ns"`
	Trials      []model.TrialResult `json:"trials,omitempty"`
}

// SaveRun stores res under a new id and returns it.
func (s *Store) SaveRun(ctx context.Context, cfg *config.Config, res *simulation.Result) (string, error) {
	id := uuid.NewString()
	instruments, err := json.Marshal(res.Instruments)
	if err != nil {
		return "", err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, created_at, instruments, config, seed, requested, partial, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(timeLayout),
		string(instruments),
		string(cfgJSON),
		strconv.FormatUint(res.Seed, 10),
		res.Requested,
		boolInt(res.Partial),
		res.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trials (
		run_id, trial_index, volatility, expected_return, sharpe_ratio,
		weights, converged, years, num_days, resamples
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare trials: %w", err)
	}
	defer stmt.Close()

	for _, t := range res.Trials {
		weights, err := json.Marshal(t.Weights)
		if err != nil {
			return "", err
		}
		if _, err := stmt.ExecContext(ctx,
			id, t.Index, t.Volatility, t.ExpectedReturn, t.SharpeRatio,
			string(weights), boolInt(t.Converged), t.Years, t.NumDays, t.Resamples,
		); err != nil {
			return "", fmt.Errorf("insert trial %d: %w", t.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	s.log.Info("saved run", "run_id", id, "trials", len(res.Trials))
	return id, nil
}

// GetRun loads a run. Trials are loaded when withTrials is set.
func (s *Store) GetRun(ctx context.Context, id string, withTrials bool) (*Run, error) {
	var (
		r                             Run
		created, instruments, cfgJSON string
		seed                          string
		partial                       int
		elapsedMS                     int64
	)
	err := s.sql.QueryRowContext(ctx, `SELECT id, created_at, instruments, config, seed, requested, partial, elapsed_ms
		FROM runs WHERE id = ?`, id).Scan(&r.ID, &created, &instruments, &cfgJSON, &seed, &r.Requested, &partial, &elapsedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("run %s created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(instruments), &r.Instruments); err != nil {
		return nil, fmt.Errorf("run %s instruments: %w", id, err)
	}
	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return nil, fmt.Errorf("run %s config: %w", id, err)
	}
	if r.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %s seed: %w", id, err)
	}
	r.Partial = partial != 0
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	if withTrials {
		if r.Trials, err = s.trials(ctx, `WHERE run_id = ? ORDER BY trial_index`, id); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// Trial looks up one trial of a run by its index.
func (s *Store) Trial(ctx context.Context, runID string, index int) (model.TrialResult, error) {
	trials, err := s.trials(ctx, `WHERE run_id = ? AND trial_index = ?`, runID, index)
	if err != nil {
		return model.TrialResult{}, err
	}
	if len(trials) == 0 {
		if _, err := s.GetRun(ctx, runID, false); err != nil {
			return model.TrialResult{}, err
		}
		return model.TrialResult{}, ErrTrialNotFound
	}
	return trials[0], nil
}

// TopTrials returns the limit highest-Sharpe trials of a run.
func (s *Store) TopTrials(ctx context.Context, runID string, limit int) ([]model.TrialResult, error) {
	if _, err := s.GetRun(ctx, runID, false); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	return s.trials(ctx, `WHERE run_id = ? ORDER BY sharpe_ratio DESC, trial_index ASC LIMIT ?`, runID, limit)
}

// RunInfo is a list entry.
type RunInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Instruments []string  `json:"instruments"`
	Trials      int       `json:"trials"`
	Partial     bool      `json:"partial"`
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sql.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.instruments, r.partial,
			(SELECT COUNT(*) FROM trials t WHERE t.run_id = r.id)
		FROM runs r ORDER BY r.created_at DESC, r.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunInfo{}
	for rows.Next() {
		var (
			info                 RunInfo
			created, instruments string
			partial              int
		)
		if err := rows.Scan(&info.ID, &created, &instruments, &partial, &info.Trials); err != nil {
			return nil, err
		}
		info.CreatedAt, _ = time.Parse(timeLayout, created)
		_ = json.Unmarshal([]byte(instruments), &info.Instruments)
		info.Partial = partial != 0
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its trials.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM trials WHERE run_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return tx.Commit()
}

func (s *Store) trials(ctx context.Context, where string, args ...any) ([]model.TrialResult, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT trial_index, volatility, expected_return, sharpe_ratio,
		weights, converged, years, num_days, resamples FROM trials `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TrialResult{}
	for rows.Next() {
		var (
			t         model.TrialResult
			weights   string
			converged int
		)
		if err := rows.Scan(&t.Index, &t.Volatility, &t.ExpectedReturn, &t.SharpeRatio,
			&weights, &converged, &t.Years, &t.NumDays, &t.Resamples); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(weights), &t.Weights); err != nil {
			return nil, fmt.Errorf("trial %d weights: %w", t.Index, err)
		}
		t.Converged = converged != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
