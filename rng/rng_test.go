package rng

import (
	"testing"
)

// Method set of math/rand/v2.Source (not in std before Go 1.22).
var _ interface{ Uint64() uint64 } = (*Engine)(nil)

func TestEngineDeterministic(t *testing.T) {
	a := New(13, 0)
	b := New(13, 0)
	for i := 0; i < 1000; i++ {
		if va, vb := a.Uint64(), b.Uint64(); va != vb {
			t.Fatalf("draw %d: %x != %x", i, va, vb)
		}
	}
}

func TestEngineSeedsDiffer(t *testing.T) {
	a := New(1, 0)
	b := New(2, 0)
	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	if same > 1 {
		t.Errorf("seeds 1 and 2 produced %d identical draws out of 64", same)
	}
}

func TestEngineBatchSizeTransparent(t *testing.T) {
	rounds := []int{1, 2, 3, 16, 257}
	ref := New(42, 1)
	want := make([]uint64, 5000)
	for i := range want {
		want[i] = ref.Uint64()
	}

	for _, r := range rounds {
		e := New(42, r)
		if e.BatchRounds() != r {
			t.Fatalf("BatchRounds() = %d, want %d", e.BatchRounds(), r)
		}
		for i, w := range want {
			if got := e.Uint64(); got != w {
				t.Fatalf("rounds=%d draw %d: got %x, want %x", r, i, got, w)
			}
		}
	}
}

func TestEngineZeroSeedNotDegenerate(t *testing.T) {
	e := New(0, 0)
	zeros := 0
	for i := 0; i < 256; i++ {
		if e.Uint64() == 0 {
			zeros++
		}
	}
	if zeros > 0 {
		t.Errorf("zero seed produced %d zero draws", zeros)
	}
}

func TestEngineUint32HighHalf(t *testing.T) {
	a := New(7, 0)
	b := New(7, 0)
	for i := 0; i < 100; i++ {
		want := uint32(a.Uint64() >> 32)
		if got := b.Uint32(); got != want {
			t.Fatalf("draw %d: Uint32() = %x, want %x", i, got, want)
		}
	}
}

func TestEngineStateRestore(t *testing.T) {
	e := New(99, 3)
	e.Discard(17)
	saved := e.State()

	want := make([]uint64, 100)
	for i := range want {
		want[i] = e.Uint64()
	}

	r := New(1, 3)
	r.Restore(saved)
	for i, w := range want {
		if got := r.Uint64(); got != w {
			t.Fatalf("draw %d after restore: got %x, want %x", i, got, w)
		}
	}
}

func TestEngineBelow(t *testing.T) {
	e := New(5, 0)
	for i := 0; i < 1000; i++ {
		if v := e.Below(10); v >= 10 {
			t.Fatalf("Below(10) = %d", v)
		}
	}
}

func TestEngineUniformNibbles(t *testing.T) {
	e := New(2024, 0)
	var counts [16]int
	const n = 160000
	for i := 0; i < n; i++ {
		counts[e.Uint64()&0xf]++
	}
	for v, c := range counts {
		if c < n/16*9/10 || c > n/16*11/10 {
			t.Errorf("nibble %x drawn %d times, expected about %d", v, c, n/16)
		}
	}
}
