package genome

import (
	"fmt"
	"io"
)

// stopRun is the number of consecutive STOPs that ends a dumped genome.
const stopRun = 4

const hexDigits = "0123456789abcdef"

// AppendHex appends the dump encoding of g to dst: one hex digit per slot,
// ending after four STOPs in a row or at the last slot. No newline.
func AppendHex(dst []byte, g Genome) []byte {
	stops := 0
	for slot := 0; slot < g.Depth(); slot++ {
		op := g.Get(slot)
		dst = append(dst, hexDigits[op])
		if op == OpStop {
			stops++
			if stops >= stopRun {
				break
			}
		} else {
			stops = 0
		}
	}
	return dst
}

// WriteHex writes the dump line for g, newline included.
func WriteHex(w io.Writer, g Genome) error {
	buf := AppendHex(make([]byte, 0, g.Depth()+1), g)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// ParseHex decodes a dump line into a genome of the given depth. Slots not
// covered by the line are STOP.
func ParseHex(line string, depth int) (Genome, error) {
	g := New(depth)
	if len(line) > g.Depth() {
		return nil, fmt.Errorf("genome line has %d slots, depth is %d", len(line), g.Depth())
	}
	for i := 0; i < len(line); i++ {
		v, ok := hexValue(line[i])
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q at slot %d", line[i], i)
		}
		g.Set(i, Opcode(v))
	}
	return g, nil
}

// Disassemble returns the instructions a dump of g would contain.
func Disassemble(g Genome) []Opcode {
	line := AppendHex(nil, g)
	ops := make([]Opcode, len(line))
	for i, c := range line {
		v, _ := hexValue(c)
		ops[i] = Opcode(v)
	}
	return ops
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
