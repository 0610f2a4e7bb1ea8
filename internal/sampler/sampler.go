// Package sampler implements spec §4.3: selecting the working-set indices
// used to fit the palette. Sampling is a pure function of (n, rate) plus
// the RNG's call sequence, so it composes with the Initializer's own
// (seed, sequence) contract (spec §4.2).
package sampler

import "github.com/gogpu/colorcrunch/internal/rng"

// Draw returns a multiset S of pixel indices into [0, n), of size
// max(1, floor(rate*n)). When rate is 1.0, S is the identity sequence
// 0..n in order and no RNG draws are consumed (spec §4.3). Otherwise each
// entry is drawn independently and uniformly from [0, n) with replacement,
// consuming exactly len(S) draws from src in order.
func Draw(src *rng.Source, n int, rate float64) []int {
	if n <= 0 {
		return nil
	}
	if rate >= 1.0 {
		full := make([]int, n)
		for i := range full {
			full[i] = i
		}
		return full
	}

	m := int(rate * float64(n))
	if m < 1 {
		m = 1
	}

	s := make([]int, m)
	for i := range s {
		s[i] = int(src.UintN(uint64(n)))
	}
	return s
}
