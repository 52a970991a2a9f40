// Package persistence records simulation runs: a SQLite database with
// per-run metadata, daily snapshots, and events, plus a zstd-compressed
// JSONL archive for full per-tick exports.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tanukai/factorytown/internal/engine"
)

// DB wraps a SQLite connection holding recorded runs.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		seed INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		collapsed INTEGER NOT NULL DEFAULT 0,
		collapse_tick INTEGER,
		final_tick INTEGER NOT NULL DEFAULT 0,
		days INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		day INTEGER NOT NULL,
		unemployed INTEGER NOT NULL,
		headcount INTEGER NOT NULL,
		average_wage REAL NOT NULL,
		average_happiness REAL NOT NULL,
		average_wealth REAL NOT NULL,
		inventory REAL NOT NULL,
		price REAL NOT NULL,
		demand REAL NOT NULL,
		supply REAL NOT NULL,
		sold REAL NOT NULL,
		phase TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_run_day ON snapshots(run_id, day);
	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRow is one recorded run's metadata.
type RunRow struct {
	ID           string  `db:"id" json:"id"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	Seed         int64   `db:"seed" json:"seed"`
	ConfigJSON   string  `db:"config_json" json:"-"`
	Collapsed    bool    `db:"collapsed" json:"collapsed"`
	CollapseTick *uint64 `db:"collapse_tick" json:"collapse_tick,omitempty"`
	FinalTick    uint64  `db:"final_tick" json:"final_tick"`
	Days         int     `db:"days" json:"days"`
}

// Config decodes the run's recorded configuration.
func (r RunRow) Config() (engine.Config, error) {
	var cfg engine.Config
	err := json.Unmarshal([]byte(r.ConfigJSON), &cfg)
	return cfg, err
}

// SnapshotRow mirrors engine.Snapshot with database column mapping.
type SnapshotRow struct {
	Tick             uint64  `db:"tick"`
	Day              int     `db:"day"`
	Unemployed       int     `db:"unemployed"`
	Headcount        int     `db:"headcount"`
	AverageWage      float64 `db:"average_wage"`
	AverageHappiness float64 `db:"average_happiness"`
	AverageWealth    float64 `db:"average_wealth"`
	Inventory        float64 `db:"inventory"`
	Price            float64 `db:"price"`
	Demand           float64 `db:"demand"`
	Supply           float64 `db:"supply"`
	Sold             float64 `db:"sold"`
	Phase            string  `db:"phase"`
}

// Snapshot converts the row back to the engine's boundary type.
func (r SnapshotRow) Snapshot() engine.Snapshot {
	return engine.Snapshot{
		Tick:             r.Tick,
		Day:              r.Day,
		Unemployed:       r.Unemployed,
		Headcount:        r.Headcount,
		AverageWage:      r.AverageWage,
		AverageHappiness: r.AverageHappiness,
		AverageWealth:    r.AverageWealth,
		Inventory:        r.Inventory,
		Price:            r.Price,
		Demand:           r.Demand,
		Supply:           r.Supply,
		Sold:             r.Sold,
		Phase:            r.Phase,
	}
}

// CreateRun inserts a new run row and returns its id.
func (db *DB) CreateRun(cfg engine.Config) (string, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}

	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, created_at, seed, config_json) VALUES (?, ?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339), cfg.Seed, string(configJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stores the terminal outcome on the run row.
func (db *DB) FinishRun(id string, res engine.Result) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET collapsed = ?, collapse_tick = ?, final_tick = ?, days = ? WHERE id = ?",
		res.Collapsed, res.CollapseTick, res.FinalTick, res.Days, id,
	)
	return err
}

// SaveSnapshots appends snapshots for a run in one transaction.
func (db *DB) SaveSnapshots(runID string, snaps []engine.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO snapshots
		(run_id, tick, day, unemployed, headcount, average_wage, average_happiness,
		 average_wealth, inventory, price, demand, supply, sold, phase)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range snaps {
		_, err := stmt.Exec(
			runID, s.Tick, s.Day, s.Unemployed, s.Headcount,
			s.AverageWage, s.AverageHappiness, s.AverageWealth,
			s.Inventory, s.Price, s.Demand, s.Supply, s.Sold, s.Phase,
		)
		if err != nil {
			return fmt.Errorf("insert snapshot tick %d: %w", s.Tick, err)
		}
	}

	return tx.Commit()
}

// SaveEvents appends events for a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Runs lists recorded runs, newest first.
func (db *DB) Runs() ([]RunRow, error) {
	var rows []RunRow
	err := db.conn.Select(&rows, "SELECT * FROM runs ORDER BY created_at DESC")
	return rows, err
}

// Run loads one run's metadata.
func (db *DB) Run(id string) (RunRow, error) {
	var row RunRow
	err := db.conn.Get(&row, "SELECT * FROM runs WHERE id = ?", id)
	return row, err
}

// SnapshotHistory returns recorded snapshots for a run within a tick
// range, oldest first.
func (db *DB) SnapshotHistory(runID string, fromTick, toTick uint64, limit int) ([]engine.Snapshot, error) {
	var rows []SnapshotRow
	err := db.conn.Select(&rows,
		`SELECT tick, day, unemployed, headcount, average_wage, average_happiness,
		        average_wealth, inventory, price, demand, supply, sold, phase
		 FROM snapshots
		 WHERE run_id = ? AND tick >= ? AND tick <= ?
		 ORDER BY tick ASC LIMIT ?`,
		runID, fromTick, toTick, limit,
	)
	if err != nil {
		return nil, err
	}

	snaps := make([]engine.Snapshot, len(rows))
	for i, r := range rows {
		snaps[i] = r.Snapshot()
	}
	return snaps, nil
}

// RecentEvents returns the most recent N events of a run.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

// Recorder buffers daily snapshots from a running simulation and writes
// them to the database in batches. It implements engine.Observer.
type Recorder struct {
	db       *DB
	runID    string
	dayTicks uint64

	buf     []engine.Snapshot
	pending int
	err     error // first write failure, surfaced at Finish
}

const recorderBatch = 128

// NewRecorder registers a run and returns an observer recording it.
func NewRecorder(db *DB, cfg engine.Config) (*Recorder, error) {
	runID, err := db.CreateRun(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("recording run", "run_id", runID, "seed", cfg.Seed)
	return &Recorder{
		db:       db,
		runID:    runID,
		dayTicks: uint64(cfg.DayTicks),
	}, nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// OnSnapshot keeps one snapshot per resolved day. Mid-day ticks repeat
// the previous day's figures and are skipped.
func (r *Recorder) OnSnapshot(s engine.Snapshot) {
	if s.Tick == 0 || s.Tick%r.dayTicks != 0 {
		return
	}
	r.buf = append(r.buf, s)
	if len(r.buf) >= recorderBatch {
		r.flush()
	}
}

func (r *Recorder) flush() {
	if len(r.buf) == 0 {
		return
	}
	if err := r.db.SaveSnapshots(r.runID, r.buf); err != nil && r.err == nil {
		r.err = err
	}
	r.pending += len(r.buf)
	r.buf = r.buf[:0]
}

// Finish flushes buffered snapshots and stores the run outcome.
func (r *Recorder) Finish(res engine.Result, events []engine.Event) error {
	r.flush()
	if r.err != nil {
		return fmt.Errorf("record snapshots: %w", r.err)
	}
	if err := r.db.SaveEvents(r.runID, events); err != nil {
		return fmt.Errorf("record events: %w", err)
	}
	if err := r.db.FinishRun(r.runID, res); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	slog.Info("run recorded", "run_id", r.runID, "snapshots", r.pending, "events", len(events))
	return nil
}
