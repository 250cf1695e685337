package ballfield

import (
	"math/rand/v2"
	"time"
)

// Source supplies uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// NewSource returns a PCG-backed source. A zero seed is replaced with the
// current time so unseeded fields differ between runs.
func NewSource(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}
