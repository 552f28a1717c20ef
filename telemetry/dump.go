package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/pond"
)

const (
	dumpSuffix     = ".dump.csv"
	compressSuffix = ".zst"
)

// DumpFileName returns the file name of the genome dump taken at clock.
func DumpFileName(clock uint64, compress bool) string {
	name := fmt.Sprintf("%d%s", clock, dumpSuffix)
	if compress {
		name += compressSuffix
	}
	return name
}

// WriteDump writes one line per cell in index order: the genome of cells
// that are active and viable, an empty line for every other cell.
func WriteDump(w io.Writer, grid *pond.Grid) error {
	bw := bufio.NewWriterSize(w, 256*1024)
	cells := grid.Cells()
	line := make([]byte, 0, grid.Depth()+1)
	for i := range cells {
		line = line[:0]
		if c := &cells[i]; c.Dumpable() {
			line = genome.AppendHex(line, c.Genome)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// CountDumpable returns the number of cells a dump would carry a genome for.
func CountDumpable(grid *pond.Grid) int {
	n := 0
	cells := grid.Cells()
	for i := range cells {
		if cells[i].Dumpable() {
			n++
		}
	}
	return n
}

// SaveDump writes the grid's genome dump for clock into dir, zstd
// compressed when compress is set. Returns the path written.
func SaveDump(dir string, clock uint64, grid *pond.Grid, compress bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}
	path := filepath.Join(dir, DumpFileName(clock, compress))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create dump: %w", err)
	}

	var w io.Writer = f
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			f.Close()
			return "", fmt.Errorf("zstd writer: %w", err)
		}
		w = enc
	}

	if err := WriteDump(w, grid); err != nil {
		if enc != nil {
			enc.Close()
		}
		f.Close()
		return "", fmt.Errorf("write dump: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			f.Close()
			return "", fmt.Errorf("finish zstd stream: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close dump: %w", err)
	}
	return path, nil
}

type dumpReader struct {
	f   *os.File
	dec *zstd.Decoder
	io.Reader
}

func (r *dumpReader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	return r.f.Close()
}

// OpenDump opens a dump file for reading, decompressing it when the name
// ends in .zst.
func OpenDump(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, compressSuffix) {
		return &dumpReader{f: f, Reader: f}, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &dumpReader{f: f, dec: dec, Reader: dec}, nil
}
