package ink

import (
	"hash/fnv"
	"math/rand/v2"
)

// altIndex picks the 0-based index into a sequence of N alternatives
// given the 1-based visit count V of the label governing the Alts block
// (spec §4.4 "Alts"). ok is false for `once` once V has exhausted N,
// meaning the block should emit nothing.
func altIndex(seq AltSeq, v, n int) (idx int, ok bool) {
	if n <= 0 {
		return 0, false
	}
	switch seq {
	case Stopping:
		i := v
		if i > n {
			i = n
		}
		return i - 1, true
	case Cycle:
		return (v - 1) % n, true
	case Once:
		if v > n {
			return 0, false
		}
		return v - 1, true
	default:
		return 0, false
	}
}

// resolveAlts picks the content of an Alts block for the current visit
// count v (1-based) of its governing label, per spec §4.4's four
// sequencing modes. addr identifies the block (its `knot.stitch:label`,
// DESIGN NOTES §9) so shuffle permutations are seeded per address.
func resolveAlts(b *Block, addr string, v int, state *State) ([]Block, bool) {
	n := len(b.Alts)
	if n == 0 {
		return nil, false
	}
	if b.Seq != Shuffle {
		idx, ok := altIndex(b.Seq, v, n)
		if !ok {
			return nil, false
		}
		return b.Alts[idx], true
	}

	// Shuffle: deterministically permute `alts`, reseeding every N visits
	// (spec: "reseed when V mod N == 1"), then apply `stopping` within
	// the current epoch's permutation.
	epoch := (v - 1) / n
	localV := (v-1)%n + 1
	order := shufflePermutation(state, addr, epoch, n)
	idx, ok := altIndex(Stopping, localV, n)
	if !ok {
		return nil, false
	}
	return b.Alts[order[idx]], true
}

// shufflePermutation returns the deterministic permutation used for one
// shuffle epoch at addr: seeded from the per-address base seed kept in
// state.Seeds (an FNV-1a hash of addr, stored on first use and carried
// through Save/Load) combined with the epoch number, so each epoch
// reorders independently but reproducibly without wall-clock time. The
// session RNG and SEED_RANDOM do not affect it.
func shufflePermutation(state *State, addr string, epoch, n int) []int {
	base, ok := state.Seeds[addr]
	if !ok {
		base = addressSeed(addr)
		state.Seeds[addr] = base
	}
	seed := base ^ (uint64(epoch)+1)*0x9e3779b97f4a7c15
	src := rand.New(rand.NewPCG(seed, seed^0xff51afd7ed558ccd))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	src.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

func addressSeed(addr string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(addr))
	return h.Sum64()
}
