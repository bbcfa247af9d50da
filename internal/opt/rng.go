package opt

import "math/rand"

// defaultSeed is used when callers pass seed == 0, so an unseeded run is still reproducible.
const defaultSeed int64 = 1

// rngFromSeed returns a deterministic source. seed == 0 selects defaultSeed.
func rngFromSeed(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// NewRand exposes the seeding policy to callers that construct a Colony directly.
func NewRand(seed int64) *rand.Rand { return rngFromSeed(seed) }
