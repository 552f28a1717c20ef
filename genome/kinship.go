package genome

// Kinship hashes a genome so that related genomes land on nearby values.
// STOPs are ignored so trailing padding does not shift the hash, and the
// operand following each XCHG is skipped. Scanning ends at the first
// all-STOP word. The result is in [64, 255].
func Kinship(g Genome) uint8 {
	var sum uint64
	skipNext := false
	for _, word := range g {
		if word == EmptyWord {
			break
		}
		for j := 0; j < SlotsPerWord; j++ {
			op := Opcode(word & 0xf)
			word >>= SlotBits
			if skipNext {
				skipNext = false
				continue
			}
			if op != OpStop {
				sum += uint64(op)
			}
			if op == OpXchg {
				skipNext = true
			}
		}
	}
	return uint8(sum%192 + 64)
}
