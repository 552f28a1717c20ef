package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/pond/components"
	"github.com/pthm-cable/pond/genome"
	"github.com/pthm-cable/pond/rng"
)

func cellWithHeader(h genome.Opcode, parent uint64) *components.Cell {
	c := &components.Cell{ParentID: parent, Genome: genome.New(16)}
	c.Genome.Set(0, h)
	return c
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		header genome.Opcode
		guess  uint8
		want   int
	}{
		{0x0, 0x0, 0},
		{0xf, 0xf, 0},
		{0x0, 0xf, 4},
		{0x5, 0xa, 4},
		{0x1, 0x3, 1},
		{0x6, 0x0, 2},
		{0x7, 0xf6, 1}, // only the low nibble of the guess counts
	}
	for _, tt := range tests {
		if got := Similarity(cellWithHeader(tt.header, 1), tt.guess); got != tt.want {
			t.Errorf("Similarity(%x, %x) = %d, want %d", tt.header, tt.guess, got, tt.want)
		}
	}
}

func TestAllowed_ParentlessAlwaysGranted(t *testing.T) {
	p := NewAccessPolicy(rng.New(8, 0))
	target := cellWithHeader(genome.OpZero, 0)
	for i := 0; i < 2000; i++ {
		if !p.Allowed(target, 0xf, SenseNegative) || !p.Allowed(target, 0x0, SensePositive) {
			t.Fatal("parentless target denied")
		}
	}
}

func TestAllowed_AlwaysDraws(t *testing.T) {
	a, b := rng.New(8, 0), rng.New(8, 0)
	p := NewAccessPolicy(a)
	p.Allowed(cellWithHeader(genome.OpZero, 0), 0, SenseNegative)
	b.Uint64()
	if a.Uint64() != b.Uint64() {
		t.Error("parentless check did not consume exactly one draw")
	}
}

func TestAllowed_GrantRates(t *testing.T) {
	const n = 32000
	tests := []struct {
		name   string
		header genome.Opcode
		guess  uint8
		sense  Sense
		want   float64 // expected fraction granted
	}{
		{"negative exact match", 0x3, 0x3, SenseNegative, 1.0 / 16},
		{"negative opposite", 0x0, 0xf, SenseNegative, 5.0 / 16},
		{"negative two bits", 0x3, 0x0, SenseNegative, 3.0 / 16},
		{"positive exact match", 0x3, 0x3, SensePositive, 1.0},
		{"positive opposite", 0x0, 0xf, SensePositive, 12.0 / 16},
		{"positive one bit", 0x1, 0x0, SensePositive, 15.0 / 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewAccessPolicy(rng.New(21, 0))
			target := cellWithHeader(tt.header, 7)
			granted := 0
			for i := 0; i < n; i++ {
				if p.Allowed(target, tt.guess, tt.sense) {
					granted++
				}
			}
			got := float64(granted) / n
			if math.Abs(got-tt.want) > 0.015 {
				t.Errorf("grant rate = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}
