// Package rng provides the deterministic random engine that drives the pond.
//
// The generator is a 4-lane xorshift128+ stepped in batches. Values are
// handed out from an internal buffer; the refill size only changes how many
// lane steps are taken at once, never the order of the produced sequence.
package rng

// Lanes is the number of independent xorshift128+ streams stepped together.
const Lanes = 4

// DefaultBatchRounds is the number of lane steps taken per buffer refill.
const DefaultBatchRounds = 2

// seedRounds is the number of xorshift64* mixes applied to the seed before
// the lane states are drawn from it.
const seedRounds = 1024

// golden replaces a zero seed, which would otherwise collapse xorshift64*
// into the all-zero fixed point.
const golden = 0x9e3779b97f4a7c15

// Engine is a seeded, batched xorshift128+ generator.
// It implements math/rand/v2.Source. It is not safe for concurrent use.
type Engine struct {
	s0, s1 [Lanes]uint64

	buf []uint64
	idx int
}

// State is a serializable copy of the engine, buffer included.
type State struct {
	S0     [Lanes]uint64 `json:"s0"`
	S1     [Lanes]uint64 `json:"s1"`
	Buffer []uint64      `json:"buffer"`
	Index  int           `json:"index"`
}

// New creates an engine seeded with seed. batchRounds < 1 uses DefaultBatchRounds.
func New(seed uint64, batchRounds int) *Engine {
	if batchRounds < 1 {
		batchRounds = DefaultBatchRounds
	}
	e := &Engine{buf: make([]uint64, batchRounds*Lanes)}
	e.Seed(seed)
	return e
}

// Seed reinitializes the lane states from seed and empties the buffer.
func (e *Engine) Seed(seed uint64) {
	sd := seed
	if sd == 0 {
		sd = golden
	}
	for i := 0; i < seedRounds; i++ {
		sd = xorshift64Star(sd)
	}
	for i := 0; i < Lanes; i++ {
		sd = xorshift64Star(sd)
		e.s0[i] = sd
	}
	for i := 0; i < Lanes; i++ {
		sd = xorshift64Star(sd)
		e.s1[i] = sd
	}
	for i := 0; i < Lanes; i++ {
		if e.s0[i] == 0 && e.s1[i] == 0 {
			e.s0[i] = golden
		}
	}
	e.idx = len(e.buf)
}

// Uint64 returns the next 64-bit value.
func (e *Engine) Uint64() uint64 {
	if e.idx >= len(e.buf) {
		e.refill()
	}
	v := e.buf[e.idx]
	e.idx++
	return v
}

// Uint32 returns the high half of the next 64-bit value.
func (e *Engine) Uint32() uint32 {
	return uint32(e.Uint64() >> 32)
}

// Below returns the next value reduced modulo n. n must be nonzero.
func (e *Engine) Below(n uint64) uint64 {
	return e.Uint64() % n
}

// Discard draws and drops n values.
func (e *Engine) Discard(n int) {
	for i := 0; i < n; i++ {
		e.Uint64()
	}
}

// BatchRounds returns the number of lane steps per refill.
func (e *Engine) BatchRounds() int {
	return len(e.buf) / Lanes
}

// State captures the engine so a run can be resumed bit-identically.
func (e *Engine) State() State {
	buf := make([]uint64, len(e.buf))
	copy(buf, e.buf)
	return State{S0: e.s0, S1: e.s1, Buffer: buf, Index: e.idx}
}

// Restore replaces the engine state with s.
func (e *Engine) Restore(s State) {
	e.s0 = s.S0
	e.s1 = s.S1
	if len(s.Buffer) == 0 || len(s.Buffer)%Lanes != 0 {
		// Unbuffered state: start from an empty buffer of the current size.
		e.idx = len(e.buf)
		return
	}
	e.buf = make([]uint64, len(s.Buffer))
	copy(e.buf, s.Buffer)
	e.idx = s.Index
}

func (e *Engine) refill() {
	for r := 0; r < len(e.buf); r += Lanes {
		for l := 0; l < Lanes; l++ {
			e.buf[r+l] = e.step(l)
		}
	}
	e.idx = 0
}

// step advances lane l by one xorshift128+ iteration.
func (e *Engine) step(l int) uint64 {
	x := e.s0[l]
	y := e.s1[l]
	e.s0[l] = y
	x ^= x << 23
	z := x ^ y ^ (x >> 17) ^ (y >> 26)
	e.s1[l] = z
	return z + y
}

func xorshift64Star(state uint64) uint64 {
	x := state
	for i := 0; i < 32; i++ {
		x ^= x >> 12
		x ^= x << 25
		x ^= x >> 27
		x *= 2685821657736338717
	}
	return x
}
