package telemetry

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/pond"
	"github.com/pthm-cable/pond/rng"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// SnapshotHeader is written as a JSON line ahead of the gob body so a
// snapshot can be identified without decoding the pond.
type SnapshotHeader struct {
	Version int    `json:"version"`
	Seed    uint64 `json:"seed"`
	Clock   uint64 `json:"clock"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Depth   int    `json:"depth"`
}

// Snapshot holds the complete simulation state needed to resume a run
// bit-identically.
type Snapshot struct {
	Header SnapshotHeader
	LastID uint64
	RNG    rng.State
	Cells  []CellState

	// Report state: counters accumulated since the last report and the
	// event detector, so reports after a resume match an unbroken run.
	Counters Counters
	Events   BookmarkState
}

// CellState holds one non-blank cell.
type CellState struct {
	Index      int
	ID         uint64
	ParentID   uint64
	Lineage    uint64
	Generation uint64
	Energy     uint64
	Genome     []uint64
}

// CaptureSnapshot copies the grid and random engine state. Cells that were
// never touched are left out.
func CaptureSnapshot(seed, clock uint64, grid *pond.Grid, r *rng.Engine) *Snapshot {
	snap := &Snapshot{
		Header: SnapshotHeader{
			Version: SnapshotVersion,
			Seed:    seed,
			Clock:   clock,
			Width:   grid.Width(),
			Height:  grid.Height(),
			Depth:   grid.Depth(),
		},
		LastID: grid.LastID(),
		RNG:    r.State(),
	}
	cells := grid.Cells()
	for i := range cells {
		c := &cells[i]
		if c.ID == 0 && c.Energy == 0 && c.Genome.IsEmpty() {
			continue
		}
		snap.Cells = append(snap.Cells, CellState{
			Index:      i,
			ID:         c.ID,
			ParentID:   c.ParentID,
			Lineage:    c.Lineage,
			Generation: c.Generation,
			Energy:     c.Energy,
			Genome:     append([]uint64(nil), c.Genome...),
		})
	}
	return snap
}

// Apply restores the snapshot into grid and r. The grid must have the
// snapshot's dimensions; cells absent from the snapshot are cleared.
func (s *Snapshot) Apply(grid *pond.Grid, r *rng.Engine) error {
	h := s.Header
	if h.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", h.Version, SnapshotVersion)
	}
	if h.Width != grid.Width() || h.Height != grid.Height() || h.Depth != grid.Depth() {
		return fmt.Errorf("snapshot is %dx%dx%d, pond is %dx%dx%d",
			h.Width, h.Height, h.Depth, grid.Width(), grid.Height(), grid.Depth())
	}

	cells := grid.Cells()
	for i := range cells {
		c := &cells[i]
		c.ID, c.ParentID, c.Lineage, c.Generation, c.Energy = 0, 0, 0, 0, 0
		c.Genome.Erase()
	}
	for _, cs := range s.Cells {
		if cs.Index < 0 || cs.Index >= len(cells) {
			return fmt.Errorf("snapshot cell index %d out of range", cs.Index)
		}
		if len(cs.Genome)*genome.SlotsPerWord != h.Depth {
			return fmt.Errorf("snapshot cell %d has %d genome words", cs.Index, len(cs.Genome))
		}
		c := &cells[cs.Index]
		c.ID, c.ParentID, c.Lineage, c.Generation, c.Energy = cs.ID, cs.ParentID, cs.Lineage, cs.Generation, cs.Energy
		copy(c.Genome, cs.Genome)
	}
	grid.SetLastID(s.LastID)
	r.Restore(s.RNG)
	return nil
}

// SnapshotFileName returns the file name of the snapshot taken at clock.
func SnapshotFileName(clock uint64) string {
	return fmt.Sprintf("snapshot_%d.bin.zst", clock)
}

// SaveSnapshot writes a zstd-compressed snapshot into dir.
// Returns the filepath where it was saved. The snapshot is written to a
// temporary file and renamed into place, so a failed save leaves no file
// under the snapshot name.
func SaveSnapshot(snap *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, SnapshotFileName(snap.Header.Clock))
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create snapshot: %w", err)
	}
	err = writeSnapshot(f, snap)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close snapshot: %w", cerr)
	}
	if err == nil {
		if rerr := os.Rename(tmp, path); rerr != nil {
			err = fmt.Errorf("rename snapshot: %w", rerr)
		}
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// writeSnapshot encodes the header line and gob body into a zstd stream on w.
func writeSnapshot(w io.Writer, snap *Snapshot) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("marshal snapshot header: %w", err)
	}
	hb = append(hb, '\n')
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if err := gob.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish zstd stream: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	var header SnapshotHeader
	if err := json.Unmarshal(line, &header); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot header: %w", err)
	}
	if header.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", header.Version, SnapshotVersion)
	}

	var snap Snapshot
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return &snap, nil
}
