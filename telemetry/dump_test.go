package telemetry

import (
	"bufio"
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/pond"
)

func TestDumpFileName(t *testing.T) {
	if got := DumpFileName(1200, false); got != "1200.dump.csv" {
		t.Errorf("plain name = %q", got)
	}
	if got := DumpFileName(1200, true); got != "1200.dump.csv.zst" {
		t.Errorf("compressed name = %q", got)
	}
}

func TestWriteDump_OnlyEligibleCells(t *testing.T) {
	grid := pond.NewGrid(2, 2, 32)

	// cell 0: active and viable
	c := grid.Cell(0)
	c.Energy, c.Generation = 10, 3
	c.Genome.Set(0, genome.OpZero)
	c.Genome.Set(1, genome.OpInc)
	// cell 1: viable but no energy
	grid.Cell(1).Generation = 5
	// cell 2: active but generation 2
	grid.Cell(2).Energy, grid.Cell(2).Generation = 10, 2
	// cell 3: active, viable, all STOP
	grid.Cell(3).Energy, grid.Cell(3).Generation = 1, 9

	var buf bytes.Buffer
	if err := WriteDump(&buf, grid); err != nil {
		t.Fatalf("WriteDump failed: %v", err)
	}

	want := "03ffff\n\n\nffff\n"
	if buf.String() != want {
		t.Errorf("dump = %q, want %q", buf.String(), want)
	}
	if n := CountDumpable(grid); n != 2 {
		t.Errorf("CountDumpable = %d, want 2", n)
	}
}

func TestSaveDump_RoundTrip(t *testing.T) {
	grid := pond.NewGrid(3, 1, 16)
	for i := 0; i < grid.Len(); i++ {
		c := grid.Cell(i)
		c.Energy, c.Generation = 5, 4
		c.Genome.Set(0, genome.Opcode(i))
	}

	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		path, err := SaveDump(dir, 77, grid, compress)
		if err != nil {
			t.Fatalf("SaveDump(compress=%v) failed: %v", compress, err)
		}
		if filepath.Base(path) != DumpFileName(77, compress) {
			t.Errorf("unexpected path %s", path)
		}

		r, err := OpenDump(path)
		if err != nil {
			t.Fatalf("OpenDump failed: %v", err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("reading dump: %v", err)
		}

		var lines []string
		sc := bufio.NewScanner(strings.NewReader(string(data)))
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		want := []string{"0ffff", "1ffff", "2ffff"}
		if len(lines) != len(want) {
			t.Fatalf("compress=%v: got %d lines", compress, len(lines))
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("compress=%v line %d = %q, want %q", compress, i, lines[i], want[i])
			}
		}
	}
}
