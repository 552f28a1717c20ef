// Package genome packs four-bit instructions into 64-bit words.
//
// Slot i lives in word i/16 at bit shift (i%16)*4. Slot 0 is the header
// nibble used by access control; execution starts at ExecStart.
package genome

import "fmt"

const (
	SlotBits     = 4
	WordBits     = 64
	SlotsPerWord = WordBits / SlotBits

	// ExecStart is the first slot executed, just past the header nibble.
	ExecStart = 1

	// EmptyWord is a word of sixteen STOP instructions.
	EmptyWord = ^uint64(0)
)

// Opcode is one four-bit instruction.
type Opcode uint8

const (
	OpZero   Opcode = iota // clear register, pointer and facing
	OpFwd                  // pointer forward
	OpBack                 // pointer back
	OpInc                  // register + 1
	OpDec                  // register - 1
	OpReadG                // register <- genome[pointer]
	OpWriteG               // genome[pointer] <- register
	OpReadB                // register <- buffer[pointer]
	OpWriteB               // buffer[pointer] <- register
	OpLoop                 // enter loop if register != 0
	OpRep                  // jump back to LOOP if register != 0
	OpTurn                 // facing <- register % 4
	OpXchg                 // swap register with the next slot
	OpKill                 // reset neighbour
	OpShare                // equalize energy with neighbour
	OpStop                 // end execution
)

// NumOpcodes is the size of the instruction set.
const NumOpcodes = 16

var mnemonics = [NumOpcodes]string{
	"ZERO", "FWD", "BACK", "INC", "DEC", "READG", "WRITEG", "READB",
	"WRITEB", "LOOP", "REP", "TURN", "XCHG", "KILL", "SHARE", "STOP",
}

// String returns the instruction mnemonic.
func (o Opcode) String() string {
	if int(o) < NumOpcodes {
		return mnemonics[o]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

// ParseOpcode looks up an opcode by mnemonic.
func ParseOpcode(s string) (Opcode, bool) {
	for i, m := range mnemonics {
		if m == s {
			return Opcode(i), true
		}
	}
	return 0, false
}

// Genome is a packed instruction stream. Its depth in slots is len*16.
type Genome []uint64

// New returns a genome of depth slots filled with STOP.
// depth is rounded up to a whole number of words.
func New(depth int) Genome {
	g := make(Genome, (depth+SlotsPerWord-1)/SlotsPerWord)
	g.Erase()
	return g
}

// Depth returns the number of slots.
func (g Genome) Depth() int {
	return len(g) * SlotsPerWord
}

// Get returns the instruction at slot.
func (g Genome) Get(slot int) Opcode {
	return Opcode((g[slot/SlotsPerWord] >> (uint(slot%SlotsPerWord) * SlotBits)) & 0xf)
}

// Set stores the low four bits of v at slot.
func (g Genome) Set(slot int, v Opcode) {
	shift := uint(slot%SlotsPerWord) * SlotBits
	w := &g[slot/SlotsPerWord]
	*w = (*w &^ (0xf << shift)) | (uint64(v&0xf) << shift)
}

// Header returns slot 0.
func (g Genome) Header() Opcode {
	return Opcode(g[0] & 0xf)
}

// Erase fills every slot with STOP.
func (g Genome) Erase() {
	for i := range g {
		g[i] = EmptyWord
	}
}

// IsEmpty reports whether every slot is STOP.
func (g Genome) IsEmpty() bool {
	for _, w := range g {
		if w != EmptyWord {
			return false
		}
	}
	return true
}

// NextExec advances an instruction pointer by one slot. Past the last slot
// execution resumes at ExecStart, skipping the header.
func NextExec(slot, depth int) int {
	slot++
	if slot >= depth {
		return ExecStart
	}
	return slot
}

// Forward advances a data pointer by one slot, wrapping to slot 0.
func Forward(slot, depth int) int {
	slot++
	if slot >= depth {
		return 0
	}
	return slot
}

// Back retreats a data pointer by one slot, wrapping to the last slot.
func Back(slot, depth int) int {
	if slot == 0 {
		return depth - 1
	}
	return slot - 1
}
