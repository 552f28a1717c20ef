// Package systems implements the per-tick simulation rules: the cell
// interpreter, access control and energy inflow.
package systems

import (
	"log/slog"

	"github.com/pthm-cable/pond/components"
	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/pond"
	"github.com/pthm-cable/pond/rng"
	"github.com/pthm-cable/pond/telemetry"
)

// VMParams holds the interpreter tunables.
type VMParams struct {
	MutationRate      uint32 // per-instruction mutation probability as a fraction of 2^32
	FailedKillPenalty uint64 // actor loses energy/FailedKillPenalty when a KILL on a viable cell fails
}

// vmFlags is the per-invocation flag set.
type vmFlags uint8

const (
	flagShared vmFlags = 1 << iota // SHARE used since the last TURN
	flagKilled                     // KILL used since the last TURN
	flagBuffer                     // output buffer written
)

func (f vmFlags) has(o vmFlags) bool { return f&o != 0 }

// Result summarises one interpreter invocation.
type Result struct {
	Executed  int  // instructions charged, skipped ones included
	Stopped   bool // ended by STOP or loop-stack overflow rather than exhaustion
	Offspring int  // index of the overwritten neighbour, -1 if none
}

// Reproduced reports whether the run produced offspring.
func (r Result) Reproduced() bool { return r.Offspring >= 0 }

// Gate decides whether an actor may KILL, SHARE with or overwrite a target.
type Gate interface {
	Allowed(target *components.Cell, guess uint8, sense Sense) bool
}

// Interpreter runs cell genomes against the grid. It keeps its registers
// between calls only so they can be inspected; every Execute starts from a
// clean state.
type Interpreter struct {
	grid     *pond.Grid
	rng      *rng.Engine
	access   Gate
	counters *telemetry.Counters
	params   VMParams
	trace    *slog.Logger

	reg            uint8
	ptr            int // data pointer, slot index
	ip             int // instruction pointer, slot index
	facing         pond.Direction
	loopStack      []int
	flags          vmFlags
	falseLoopDepth int
	stop           bool
	out            genome.Genome
}

// NewInterpreter creates an interpreter for grid. A nil counters gets a private set.
func NewInterpreter(grid *pond.Grid, r *rng.Engine, counters *telemetry.Counters, params VMParams) *Interpreter {
	if counters == nil {
		counters = &telemetry.Counters{}
	}
	if params.FailedKillPenalty == 0 {
		params.FailedKillPenalty = 1
	}
	return &Interpreter{
		grid:      grid,
		rng:       r,
		access:    NewAccessPolicy(r),
		counters:  counters,
		params:    params,
		loopStack: make([]int, 0, grid.Depth()),
		out:       genome.New(grid.Depth()),
	}
}

// SetGate replaces the access policy.
func (vm *Interpreter) SetGate(g Gate) { vm.access = g }

// SetTrace enables per-instruction debug logging. nil disables it.
func (vm *Interpreter) SetTrace(l *slog.Logger) { vm.trace = l }

// Register returns the register after the last run.
func (vm *Interpreter) Register() uint8 { return vm.reg }

// Pointer returns the data pointer after the last run.
func (vm *Interpreter) Pointer() int { return vm.ptr }

// Facing returns the facing direction after the last run.
func (vm *Interpreter) Facing() pond.Direction { return vm.facing }

// Output returns the output buffer of the last run.
func (vm *Interpreter) Output() genome.Genome { return vm.out }

// Counters returns the counters the interpreter reports into.
func (vm *Interpreter) Counters() *telemetry.Counters { return vm.counters }

// Execute runs the cell at idx until its energy is spent or it stops, then
// tries to place its output buffer into the faced neighbour.
func (vm *Interpreter) Execute(idx int) Result {
	cell := vm.grid.Cell(idx)
	depth := vm.grid.Depth()
	vm.reset()
	vm.counters.CellExecutions++

	res := Result{Offspring: -1}
	for cell.Energy > 0 && !vm.stop {
		op := cell.Genome.Get(vm.ip)

		if uint32(vm.rng.Uint64()) < vm.params.MutationRate {
			m := vm.rng.Uint64()
			if m&0x80 != 0 {
				op = genome.Opcode(m & 0xf)
			} else {
				vm.reg = uint8(m & 0xf)
			}
		}

		cell.Energy--
		res.Executed++

		if vm.falseLoopDepth > 0 {
			switch op {
			case genome.OpLoop:
				vm.falseLoopDepth++
			case genome.OpRep:
				vm.falseLoopDepth--
			}
		} else {
			if vm.trace != nil {
				vm.trace.Debug("exec", "cell", idx, "ip", vm.ip, "op", op.String(),
					"reg", vm.reg, "ptr", vm.ptr, "facing", vm.facing.String(), "energy", cell.Energy)
			}
			vm.counters.Instructions[op]++
			if vm.dispatch(idx, cell, op) {
				continue
			}
		}

		vm.ip = genome.NextExec(vm.ip, depth)
	}

	res.Stopped = vm.stop
	res.Offspring = vm.reproduce(idx, cell)
	return res
}

func (vm *Interpreter) reset() {
	if vm.flags.has(flagBuffer) {
		vm.out.Erase()
	}
	vm.reg = 0
	vm.ptr = 0
	vm.ip = genome.ExecStart
	vm.facing = pond.Left
	vm.loopStack = vm.loopStack[:0]
	vm.flags = 0
	vm.falseLoopDepth = 0
	vm.stop = false
}

// dispatch executes one instruction and reports whether it moved the
// instruction pointer itself.
func (vm *Interpreter) dispatch(idx int, cell *components.Cell, op genome.Opcode) bool {
	depth := vm.grid.Depth()

	switch op {
	case genome.OpZero:
		vm.reg = 0
		vm.ptr = 0
		vm.facing = pond.Left
	case genome.OpFwd:
		vm.ptr = genome.Forward(vm.ptr, depth)
	case genome.OpBack:
		vm.ptr = genome.Back(vm.ptr, depth)
	case genome.OpInc:
		vm.reg = (vm.reg + 1) & 0xf
	case genome.OpDec:
		vm.reg = (vm.reg - 1) & 0xf
	case genome.OpReadG:
		vm.reg = uint8(cell.Genome.Get(vm.ptr))
	case genome.OpWriteG:
		cell.Genome.Set(vm.ptr, genome.Opcode(vm.reg))
	case genome.OpReadB:
		vm.reg = uint8(vm.out.Get(vm.ptr))
	case genome.OpWriteB:
		vm.out.Set(vm.ptr, genome.Opcode(vm.reg))
		vm.flags |= flagBuffer
	case genome.OpLoop:
		vm.loop()
	case genome.OpRep:
		return vm.rep()
	case genome.OpTurn:
		vm.flags &^= flagShared | flagKilled
		vm.facing = pond.Direction(vm.reg & 3)
	case genome.OpXchg:
		vm.xchg(cell, depth)
	case genome.OpKill:
		if !vm.flags.has(flagKilled) {
			vm.flags |= flagKilled
			vm.kill(idx, cell)
		}
	case genome.OpShare:
		if !vm.flags.has(flagShared) {
			vm.flags |= flagShared
			vm.share(idx, cell)
		}
	case genome.OpStop:
		vm.stop = true
	}
	return false
}

// loop pushes the LOOP position, or starts skipping to the matching REP
// when the register is zero. Overflowing the stack stops the cell.
func (vm *Interpreter) loop() {
	if vm.reg == 0 {
		vm.falseLoopDepth = 1
		return
	}
	if len(vm.loopStack) >= vm.grid.Depth() {
		vm.stop = true
		return
	}
	vm.loopStack = append(vm.loopStack, vm.ip)
}

// rep pops the innermost LOOP and jumps back onto it while the register is
// nonzero, so the LOOP runs again.
func (vm *Interpreter) rep() bool {
	n := len(vm.loopStack)
	if n == 0 {
		return false
	}
	target := vm.loopStack[n-1]
	vm.loopStack = vm.loopStack[:n-1]
	if vm.reg == 0 {
		return false
	}
	vm.ip = target
	return true
}

// xchg steps over the next slot and swaps it with the register.
func (vm *Interpreter) xchg(cell *components.Cell, depth int) {
	vm.ip = genome.NextExec(vm.ip, depth)
	tmp := vm.reg
	vm.reg = uint8(cell.Genome.Get(vm.ip))
	cell.Genome.Set(vm.ip, genome.Opcode(tmp))
}

func (vm *Interpreter) kill(idx int, cell *components.Cell) {
	n := vm.grid.Neighbor(idx, vm.facing)
	target := vm.grid.Cell(n)

	if vm.access.Allowed(target, vm.reg, SenseNegative) {
		if target.Viable() {
			vm.counters.ViableKilled++
		}
		vm.grid.Reset(n)
		return
	}
	if target.Viable() {
		penalty := cell.Energy / vm.params.FailedKillPenalty
		if cell.Energy > penalty {
			cell.Energy -= penalty
		} else {
			cell.Energy = 0
		}
	}
}

func (vm *Interpreter) share(idx int, cell *components.Cell) {
	target := vm.grid.NeighborCell(idx, vm.facing)
	if !vm.access.Allowed(target, vm.reg, SensePositive) {
		return
	}
	if target.Viable() {
		vm.counters.ViableShared++
	}
	total := cell.Energy + target.Energy
	target.Energy = total / 2
	cell.Energy = total - target.Energy
}

// reproduce copies a written output buffer into the faced neighbour when it
// has energy and access is granted. Returns the neighbour index or -1.
func (vm *Interpreter) reproduce(idx int, cell *components.Cell) int {
	if !vm.flags.has(flagBuffer) || vm.out.Header() == genome.OpStop {
		return -1
	}
	n := vm.grid.Neighbor(idx, vm.facing)
	target := vm.grid.Cell(n)
	if target.Energy == 0 || !vm.access.Allowed(target, vm.reg, SenseNegative) {
		return -1
	}
	if target.Viable() {
		vm.counters.ViableReplaced++
	}

	parentID, lineage, generation := cell.ID, cell.Lineage, cell.Generation
	target.ID = vm.grid.NextID()
	target.ParentID = parentID
	target.Lineage = lineage
	target.Generation = generation + 1
	copy(target.Genome, vm.out)
	return n
}
