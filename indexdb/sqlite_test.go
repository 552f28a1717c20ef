package indexdb

import (
	"bytes"
	"database/sql"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/pond/telemetry"
)

func openTestIndex(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index", "pond.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return idx, path
}

func reopen(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteIndex_RecordsRunRows(t *testing.T) {
	idx, path := openTestIndex(t)

	runID, err := idx.BeginRun(RunInfo{Seed: 13, Width: 64, Height: 48, Depth: 512, OutputDir: "/tmp/run"})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	idx.RecordReport(telemetry.ReportStats{Clock: 1000, TotalEnergy: 5000, ActiveCells: 12, MaxGeneration: 4, Metabolism: 2.5})
	idx.RecordReport(telemetry.ReportStats{Clock: 2000, ActiveCells: 20})
	idx.RecordEvent(telemetry.Bookmark{Type: telemetry.BookmarkReplicatorsAppeared, Clock: 2000, Description: "3 viable replicators"})
	idx.RecordDump(2000, "/tmp/run/2000.dump.csv.zst", 3)
	idx.RecordSnapshot(2000, "/tmp/run/snapshot_2000.bin.zst", 40)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := reopen(t, path)

	var seed, depth int64
	var dir string
	if err := db.QueryRow(`SELECT seed,depth,output_dir FROM runs WHERE run_id=?`, runID).Scan(&seed, &depth, &dir); err != nil {
		t.Fatalf("runs Scan: %v", err)
	}
	if seed != 13 || depth != 512 || dir != "/tmp/run" {
		t.Errorf("run row mismatch: seed=%d depth=%d dir=%q", seed, depth, dir)
	}

	var reports int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reports WHERE run_id=?`, runID).Scan(&reports); err != nil {
		t.Fatalf("reports count: %v", err)
	}
	if reports != 2 {
		t.Errorf("reports = %d, want 2", reports)
	}

	var energy, active int64
	var metabolism float64
	row := db.QueryRow(`SELECT total_energy,active_cells,metabolism FROM reports WHERE run_id=? AND clock=1000`, runID)
	if err := row.Scan(&energy, &active, &metabolism); err != nil {
		t.Fatalf("report Scan: %v", err)
	}
	if energy != 5000 || active != 12 || metabolism != 2.5 {
		t.Errorf("report row mismatch: energy=%d active=%d metabolism=%v", energy, active, metabolism)
	}

	var typ, desc string
	if err := db.QueryRow(`SELECT type,description FROM events WHERE run_id=? AND seq=0`, runID).Scan(&typ, &desc); err != nil {
		t.Fatalf("event Scan: %v", err)
	}
	if typ != "replicators_appeared" || desc != "3 viable replicators" {
		t.Errorf("event row mismatch: %q %q", typ, desc)
	}

	var genomes int
	if err := db.QueryRow(`SELECT genomes FROM dumps WHERE run_id=? AND clock=2000`, runID).Scan(&genomes); err != nil {
		t.Fatalf("dump Scan: %v", err)
	}
	if genomes != 3 {
		t.Errorf("genomes = %d, want 3", genomes)
	}

	var cells int
	if err := db.QueryRow(`SELECT cells FROM snapshots WHERE run_id=? AND clock=2000`, runID).Scan(&cells); err != nil {
		t.Fatalf("snapshot Scan: %v", err)
	}
	if cells != 40 {
		t.Errorf("cells = %d, want 40", cells)
	}
}

func TestSQLiteIndex_SeparateRuns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pond.db")

	var ids []int64
	for i := 0; i < 2; i++ {
		idx, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		id, err := idx.BeginRun(RunInfo{Seed: uint64(i)})
		if err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
		ids = append(ids, id)
		idx.RecordReport(telemetry.ReportStats{Clock: 100})
		if err := idx.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if ids[0] == ids[1] {
		t.Fatalf("both runs got id %d", ids[0])
	}

	db := reopen(t, path)
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reports WHERE clock=100`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("reports at clock 100 = %d, want one per run", n)
	}
}

func TestSQLiteIndex_NilAndClosedAreNoOps(t *testing.T) {
	var idx *SQLiteIndex
	idx.RecordReport(telemetry.ReportStats{})
	if err := idx.Close(); err != nil {
		t.Error(err)
	}

	opened, _ := openTestIndex(t)
	if err := opened.Close(); err != nil {
		t.Fatal(err)
	}
	opened.RecordEvent(telemetry.Bookmark{}) // must not panic on a closed channel
	if err := opened.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteIndex_FailedWriteIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	// Without BeginRun the row references run 0, which the foreign key rejects.
	idx, path := openTestIndex(t)
	idx.RecordReport(telemetry.ReportStats{Clock: 1000})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"msg":"failed to index"`) || !strings.Contains(out, `"kind":"report"`) {
		t.Errorf("missing failure log, got %q", out)
	}

	var n int
	if err := reopen(t, path).QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("reports = %d, want 0", n)
	}
}
