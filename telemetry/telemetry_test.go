// telemetry_test.go — sample persistence and snapshot export.

package telemetry

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"

	"main/dispatch"
	"main/sched"
)

func openTestRecorder(t *testing.T) (*Recorder, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.db")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, path
}

func TestRecordSchedulerSample(t *testing.T) {
	r, path := openTestRecorder(t)

	st := sched.Stats{
		ContextSwitches: 12,
		RunnableThreads: 3,
		TotalQueueLen:   5,
		MaxQueueLen:     4,
		Steals:          2,
		StealAttempts:   9,
	}
	if err := r.RecordSchedulerStats(st); err != nil {
		t.Fatalf("RecordSchedulerStats: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var switches, steals int64
	err = db.QueryRow(
		`SELECT context_switches, steals FROM sched_samples`).Scan(&switches, &steals)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if switches != 12 || steals != 2 {
		t.Fatalf("persisted (%d, %d), want (12, 2)", switches, steals)
	}
}

func TestRecordDispatcherSample(t *testing.T) {
	r, path := openTestRecorder(t)

	ds := dispatch.DispatcherStats{
		TotalDispatches: 100,
		FastPathHits:    60,
		Failures:        2,
		RegisteredCount: 7,
	}
	if err := r.RecordDispatcherStats(ds); err != nil {
		t.Fatalf("RecordDispatcherStats: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	var total, fast, registered int64
	err = db.QueryRow(
		`SELECT total_dispatches, fast_path_hits, registered_count FROM dispatch_samples`).
		Scan(&total, &fast, &registered)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 100 || fast != 60 || registered != 7 {
		t.Fatalf("persisted (%d, %d, %d)", total, fast, registered)
	}
}

func TestFlushAppendsBothTables(t *testing.T) {
	r, path := openTestRecorder(t)

	for i := 0; i < 3; i++ {
		r.Flush(sched.Stats{ContextSwitches: uint64(i)},
			dispatch.DispatcherStats{TotalDispatches: uint64(i)})
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"sched_samples", "dispatch_samples"} {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 3 {
			t.Fatalf("%s rows = %d, want 3", table, n)
		}
	}
}

func TestExportJSON(t *testing.T) {
	r, _ := openTestRecorder(t)
	out := filepath.Join(t.TempDir(), "stats.json")

	ss := sched.Stats{ContextSwitches: 42, Steals: 3}
	ds := dispatch.DispatcherStats{TotalDispatches: 77, FastPathHits: 50}
	if err := r.ExportJSON(out, ss, ds); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var snap Snapshot
	if err := sonnet.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.ContextSwitches != 42 || snap.TotalDispatches != 77 || snap.FastPathHits != 50 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.TakenAt == 0 {
		t.Fatal("snapshot missing timestamp")
	}

	// No leftover temp file from the atomic rename.
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.db")

	r1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	r1.Close()

	r2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen over existing schema: %v", err)
	}
	r2.Close()
}
