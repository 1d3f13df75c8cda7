package ink

import "math/rand/v2"

// RNG is the injectable randomness source DESIGN NOTES §9 asks for, so
// LIST_RANDOM is deterministic under test instead of depending on
// wall-clock reseeding the way the source implementation does. Shuffled
// Alts do not draw from it (see shufflePermutation).
type RNG interface {
	// Source returns a *rand.Rand seeded however the implementation sees
	// fit; SEED_RANDOM reseeds it via Reseed.
	Source() *rand.Rand
	Reseed(seed uint64) (previous uint64)
}

// defaultRNG is the RNG NewRNG returns: a single PCG source that can be
// reseeded, starting from the seed given to NewRNG so a session is
// reproducible unless the author calls SEED_RANDOM.
type defaultRNG struct {
	seed uint64
	src  *rand.Rand
}

// NewRNG returns an RNG seeded with seed.
func NewRNG(seed uint64) RNG {
	r := &defaultRNG{}
	r.Reseed(seed)
	return r
}

func (r *defaultRNG) Source() *rand.Rand { return r.src }

func (r *defaultRNG) Reseed(seed uint64) uint64 {
	previous := r.seed
	r.seed = seed
	r.src = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return previous
}
