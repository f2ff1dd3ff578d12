package engine

// LFSR is the scripts' random source: the seed doubles each draw and is
// folded with a constant when its top bit shifts out. A zero seed stays zero.
type LFSR struct {
	Seed uint32
}

const lfsrTaps uint32 = 0x1D872B41

// Next advances the seed and returns its low 16 bits.
func (r *LFSR) Next() uint16 {
	n := r.Seed * 2
	if r.Seed&0x80000000 != 0 {
		n ^= lfsrTaps
	}
	r.Seed = n
	return uint16(n)
}
