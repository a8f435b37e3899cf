// ════════════════════════════════════════════════════════════════════════════════════════════════
// Telemetry Recorder - Statistics Persistence
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Unified Kernel Core
// Component: Scheduler & Dispatcher Statistics Capture
//
// Description:
//   Periodic persistence of scheduler and dispatcher counters into a local
//   SQLite database, plus JSON snapshot export for external consumers.
//   Recording runs off the hot path on a flush ticker; the hot paths only
//   ever touch their own atomic counters.
//
// Write model:
//   - One prepared INSERT per sample table, reused across flushes
//   - Journaling disabled: samples are cheap, the sink is disposable
//   - Single writer; the recorder owns its connection exclusively
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"

	"main/debug"
	"main/dispatch"
	"main/sched"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CORE DATA STRUCTURES
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Recorder persists statistics samples into one SQLite database.
type Recorder struct {
	db        *sql.DB
	insSched  *sql.Stmt
	insDisp   *sql.Stmt
	startedAt time.Time
}

// Snapshot is the JSON export shape for one combined sample.
type Snapshot struct {
	TakenAt           int64  `json:"taken_at"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	ContextSwitches   uint64 `json:"context_switches"`
	RunnableThreads   int    `json:"runnable_threads"`
	TotalQueueLen     int    `json:"total_queue_len"`
	MaxQueueLen       int    `json:"max_queue_len"`
	Steals            uint64 `json:"steals"`
	StealAttempts     uint64 `json:"steal_attempts"`
	TotalDispatches   uint64 `json:"total_dispatches"`
	FastPathHits      uint64 `json:"fast_path_hits"`
	RegularDispatches uint64 `json:"regular_dispatches"`
	DispatchFailures  uint64 `json:"dispatch_failures"`
	ElapsedCycles     uint64 `json:"elapsed_cycles"`
	Promotions        uint64 `json:"promotions"`
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION & TEARDOWN
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Open creates or reuses the telemetry database at path and prepares the
// sample INSERT statements.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}

	// Samples are disposable; trade durability for write throughput.
	pragmas := []string{
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("telemetry: %s: %w", pragma, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sched_samples (
		taken_at         INTEGER NOT NULL,
		context_switches INTEGER NOT NULL,
		runnable_threads INTEGER NOT NULL,
		total_queue_len  INTEGER NOT NULL,
		max_queue_len    INTEGER NOT NULL,
		steals           INTEGER NOT NULL,
		steal_attempts   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dispatch_samples (
		taken_at           INTEGER NOT NULL,
		total_dispatches   INTEGER NOT NULL,
		fast_path_hits     INTEGER NOT NULL,
		regular_dispatches INTEGER NOT NULL,
		failures           INTEGER NOT NULL,
		elapsed_cycles     INTEGER NOT NULL,
		promotions         INTEGER NOT NULL,
		registered_count   INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: schema: %w", err)
	}

	r := &Recorder{db: db, startedAt: time.Now()}

	r.insSched, err = db.Prepare(
		`INSERT INTO sched_samples VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: prepare sched insert: %w", err)
	}

	r.insDisp, err = db.Prepare(
		`INSERT INTO dispatch_samples VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		r.insSched.Close()
		db.Close()
		return nil, fmt.Errorf("telemetry: prepare dispatch insert: %w", err)
	}

	return r, nil
}

// Close releases the prepared statements and the database handle.
func (r *Recorder) Close() error {
	if r.insSched != nil {
		r.insSched.Close()
	}
	if r.insDisp != nil {
		r.insDisp.Close()
	}
	return r.db.Close()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SAMPLE RECORDING
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// RecordSchedulerStats appends one scheduler sample stamped with now.
func (r *Recorder) RecordSchedulerStats(st sched.Stats) error {
	_, err := r.insSched.Exec(
		time.Now().Unix(),
		int64(st.ContextSwitches),
		st.RunnableThreads,
		st.TotalQueueLen,
		st.MaxQueueLen,
		int64(st.Steals),
		int64(st.StealAttempts),
	)
	return err
}

// RecordDispatcherStats appends one dispatcher sample stamped with now.
func (r *Recorder) RecordDispatcherStats(st dispatch.DispatcherStats) error {
	_, err := r.insDisp.Exec(
		time.Now().Unix(),
		int64(st.TotalDispatches),
		int64(st.FastPathHits),
		int64(st.RegularDispatches),
		int64(st.Failures),
		int64(st.ElapsedCycles),
		int64(st.Promotions),
		st.RegisteredCount,
	)
	return err
}

// Flush records one combined sample from both subsystem snapshots.
// Errors are reported but never fatal; a lost sample is acceptable.
func (r *Recorder) Flush(ss sched.Stats, ds dispatch.DispatcherStats) {
	if err := r.RecordSchedulerStats(ss); err != nil {
		debug.DropError("TELEMETRY", err)
	}
	if err := r.RecordDispatcherStats(ds); err != nil {
		debug.DropError("TELEMETRY", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// JSON EXPORT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// ExportJSON writes a combined snapshot of both subsystems to path,
// replacing any previous export atomically via rename.
func (r *Recorder) ExportJSON(path string, ss sched.Stats, ds dispatch.DispatcherStats) error {
	snap := Snapshot{
		TakenAt:           time.Now().Unix(),
		UptimeSeconds:     int64(time.Since(r.startedAt).Seconds()),
		ContextSwitches:   ss.ContextSwitches,
		RunnableThreads:   ss.RunnableThreads,
		TotalQueueLen:     ss.TotalQueueLen,
		MaxQueueLen:       ss.MaxQueueLen,
		Steals:            ss.Steals,
		StealAttempts:     ss.StealAttempts,
		TotalDispatches:   ds.TotalDispatches,
		FastPathHits:      ds.FastPathHits,
		RegularDispatches: ds.RegularDispatches,
		DispatchFailures:  ds.Failures,
		ElapsedCycles:     ds.ElapsedCycles,
		Promotions:        ds.Promotions,
	}

	data, err := sonnet.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("telemetry: marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("telemetry: write snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}
