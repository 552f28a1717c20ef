// Package indexdb keeps a queryable SQLite index of what a run produced:
// report rows, events, genome dumps and snapshots. The CSV and dump files
// remain the source of truth; the index is best effort.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/pond/telemetry"
)

// RunInfo describes the run rows are recorded under.
type RunInfo struct {
	Seed      uint64
	Width     int
	Height    int
	Depth     int
	OutputDir string
}

// SQLiteIndex writes index rows from a background goroutine.
type SQLiteIndex struct {
	db    *sql.DB
	runID int64

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqReport reqKind = iota + 1
	reqEvent
	reqDump
	reqSnapshot
)

func (k reqKind) String() string {
	switch k {
	case reqReport:
		return "report"
	case reqEvent:
		return "event"
	case reqDump:
		return "dump"
	case reqSnapshot:
		return "snapshot"
	}
	return fmt.Sprintf("reqKind(%d)", int(k))
}

type req struct {
	kind reqKind

	report   telemetry.ReportStats
	event    telemetry.Bookmark
	artifact artifactRow
}

type artifactRow struct {
	Clock uint64
	Path  string
	Cells int
}

// OpenSQLite opens (creating if needed) the index database at path.
func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			run_id INTEGER NOT NULL REFERENCES runs(run_id),
			clock INTEGER NOT NULL,
			total_energy INTEGER NOT NULL,
			active_cells INTEGER NOT NULL,
			viable_replicators INTEGER NOT NULL,
			max_generation INTEGER NOT NULL,
			viable_replaced INTEGER NOT NULL,
			viable_killed INTEGER NOT NULL,
			viable_shared INTEGER NOT NULL,
			metabolism REAL NOT NULL,
			energy_mean REAL NOT NULL,
			generation_mean REAL NOT NULL,
			active_lineages INTEGER NOT NULL,
			PRIMARY KEY (run_id, clock)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id INTEGER NOT NULL REFERENCES runs(run_id),
			seq INTEGER NOT NULL,
			clock INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_clock ON events(type, clock);`,
		`CREATE TABLE IF NOT EXISTS dumps (
			run_id INTEGER NOT NULL REFERENCES runs(run_id),
			clock INTEGER NOT NULL,
			path TEXT NOT NULL,
			genomes INTEGER NOT NULL,
			PRIMARY KEY (run_id, clock)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id INTEGER NOT NULL REFERENCES runs(run_id),
			clock INTEGER NOT NULL,
			path TEXT NOT NULL,
			cells INTEGER NOT NULL,
			PRIMARY KEY (run_id, clock)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// BeginRun records a new run; later rows are filed under it. Must be
// called before any Record method.
func (s *SQLiteIndex) BeginRun(info RunInfo) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.db.Exec(
		`INSERT INTO runs(seed,width,height,depth,output_dir,started_at) VALUES(?,?,?,?,?,?)`,
		int64(info.Seed), info.Width, info.Height, info.Depth, info.OutputDir,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	s.runID = id
	return id, nil
}

// Close drains pending rows and closes the database.
func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; the CSV files remain the source of truth.
	}
}

// RecordReport indexes a report row.
func (s *SQLiteIndex) RecordReport(stats telemetry.ReportStats) {
	s.enqueue(req{kind: reqReport, report: stats})
}

// RecordEvent indexes an event.
func (s *SQLiteIndex) RecordEvent(b telemetry.Bookmark) {
	s.enqueue(req{kind: reqEvent, event: b})
}

// RecordDump indexes a genome dump holding genomes eligible cells.
func (s *SQLiteIndex) RecordDump(clock uint64, path string, genomes int) {
	s.enqueue(req{kind: reqDump, artifact: artifactRow{Clock: clock, Path: path, Cells: genomes}})
}

// RecordSnapshot indexes a snapshot holding cells non-blank cells.
func (s *SQLiteIndex) RecordSnapshot(clock uint64, path string, cells int) {
	s.enqueue(req{kind: reqSnapshot, artifact: artifactRow{Clock: clock, Path: path, Cells: cells}})
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertReport, _ := s.db.Prepare(`INSERT OR REPLACE INTO reports(run_id,clock,total_energy,active_cells,viable_replicators,max_generation,viable_replaced,viable_killed,viable_shared,metabolism,energy_mean,generation_mean,active_lineages) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(run_id,seq,clock,type,description) VALUES(?,?,?,?,?)`)
	insertDump, _ := s.db.Prepare(`INSERT OR REPLACE INTO dumps(run_id,clock,path,genomes) VALUES(?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,clock,path,cells) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertReport, insertEvent, insertDump, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		eventSeq int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(kind reqKind, st *sql.Stmt, args ...any) {
		if st == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			// The pending batch is lost with the rollback.
			slog.Error("failed to index", "kind", kind.String(), "pending", opCount, "error", err)
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqReport:
			st := r.report
			exec(r.kind, insertReport,
				s.runID,
				int64(st.Clock),
				int64(st.TotalEnergy),
				st.ActiveCells,
				st.ViableReplicators,
				int64(st.MaxGeneration),
				int64(st.ViableReplaced),
				int64(st.ViableKilled),
				int64(st.ViableShared),
				st.Metabolism,
				st.EnergyMean,
				st.GenerationMean,
				st.ActiveLineages,
			)
		case reqEvent:
			exec(r.kind, insertEvent, s.runID, eventSeq, int64(r.event.Clock), string(r.event.Type), r.event.Description)
			eventSeq++
		case reqDump:
			a := r.artifact
			exec(r.kind, insertDump, s.runID, int64(a.Clock), a.Path, a.Cells)
		case reqSnapshot:
			a := r.artifact
			exec(r.kind, insertSnapshot, s.runID, int64(a.Clock), a.Path, a.Cells)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
