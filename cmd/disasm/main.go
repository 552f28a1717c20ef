// Command disasm prints the genomes in a pond dump file as mnemonics.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/pthm-cable/pond/config"
	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Config the dump was written with (empty = use defaults)")
	cell := flag.Int("cell", -1, "Only print the cell with this index")
	op := flag.String("op", "", "Only print genomes using this instruction (e.g. KILL)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: disasm [-config file] [-cell index] [-op mnemonic] <dump file>")
		os.Exit(2)
	}

	f := filter{cell: *cell}
	if *op != "" {
		o, ok := genome.ParseOpcode(strings.ToUpper(*op))
		if !ok {
			log.Fatalf("unknown instruction %q", *op)
		}
		f.op, f.hasOp = o, true
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	r, err := telemetry.OpenDump(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to open dump: %v", err)
	}
	defer r.Close()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	n, err := disassembleDump(w, r, cfg.Pond.Width, cfg.Pond.Depth, f)
	if err != nil {
		w.Flush()
		log.Fatalf("disassemble: %v", err)
	}
	fmt.Fprintf(w, "# %d genomes\n", n)
}

// filter selects the genomes to list.
type filter struct {
	cell  int // < 0 lists every cell
	op    genome.Opcode
	hasOp bool
}

func (f filter) keepOps(g genome.Genome) bool {
	return !f.hasOp || slices.Contains(genome.Disassemble(g), f.op)
}

// disassembleDump reads dump lines from r and writes a listing of every
// non-empty line f keeps to w. Line i holds the cell with index i.
// Returns the number of genomes listed.
func disassembleDump(w io.Writer, r io.Reader, width, depth int, f filter) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, depth+2), depth+2)

	listed := 0
	for idx := 0; sc.Scan(); idx++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || (f.cell >= 0 && idx != f.cell) {
			continue
		}
		g, err := genome.ParseHex(line, depth)
		if err != nil {
			return listed, fmt.Errorf("line %d: %w", idx+1, err)
		}
		if !f.keepOps(g) {
			continue
		}
		writeListing(w, idx, width, g)
		listed++
	}
	return listed, sc.Err()
}

// writeListing prints one genome, indenting loop bodies.
func writeListing(w io.Writer, idx, width int, g genome.Genome) {
	ops := genome.Disassemble(g)
	fmt.Fprintf(w, "# cell %d (x=%d, y=%d) %d instructions, kinship %d\n",
		idx, idx%width, idx/width, len(ops), genome.Kinship(g))

	indent := 0
	for slot, op := range ops {
		if op == genome.OpRep && indent > 0 {
			indent--
		}
		fmt.Fprintf(w, "%5d  %s%s\n", slot, strings.Repeat("  ", indent), op)
		if op == genome.OpLoop {
			indent++
		}
	}
}
