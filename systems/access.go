package systems

import (
	"math/bits"

	"github.com/pthm-cable/pond/components"
	"github.com/pthm-cable/pond/rng"
)

// Sense is the polarity of an interaction.
type Sense uint8

const (
	// SenseNegative is used by KILL and reproduction: similar genomes are easier to access.
	SenseNegative Sense = iota
	// SensePositive is used by SHARE: dissimilar genomes are easier to access.
	SensePositive
)

// AccessPolicy decides whether one cell may act on another.
type AccessPolicy struct {
	rng *rng.Engine
}

// NewAccessPolicy creates a policy drawing from r.
func NewAccessPolicy(r *rng.Engine) *AccessPolicy {
	return &AccessPolicy{rng: r}
}

// Similarity returns the number of differing bits between the target's
// header nibble and guess, 0 through 4.
func Similarity(target *components.Cell, guess uint8) int {
	return bits.OnesCount8((uint8(target.Genome.Header()) ^ guess) & 0xf)
}

// Allowed reports whether an actor guessing guess may act on target.
// One random nibble is always drawn, even for parentless targets, so the
// random stream does not depend on the outcome.
func (p *AccessPolicy) Allowed(target *components.Cell, guess uint8, sense Sense) bool {
	draw := int(p.rng.Uint64() & 0xf)
	if target.Parentless() {
		return true
	}
	score := Similarity(target, guess)
	if sense == SensePositive {
		return draw >= score
	}
	return draw <= score
}
