package rng

import "sort"

// Source is the only randomness the simulation sees. Every roll in a turn is
// drawn from a Source handed in by the caller, so identical inputs replay
// bit-for-bit.
type Source interface {
	Uint64() uint64
	// Float64 returns a value in [0,1).
	Float64() float64
}

// Factory builds the stream for one subsystem in one week.
type Factory func(seed int64, week int, salt uint64) Source

// Stream salts. Each subsystem draws from its own stream so that, for
// example, the market walk does not shift when the player submits a
// different number of sales calls.
const (
	SaltActions     uint64 = 0xac71
	SaltPassive     uint64 = 0xba55
	SaltEvents      uint64 = 0xe7e7
	SaltMarket      uint64 = 0x3a2c
	SaltCompetitors uint64 = 0xc0b7
	SaltCustomers   uint64 = 0xc057
	SaltNewGame     uint64 = 0x0001
)

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash3 mixes a seed with three coordinates into a well distributed value.
func Hash3(seed int64, a, b, c uint64) uint64 {
	v := uint64(seed) ^ (a * 0x9e3779b97f4a7c15) ^ (b * 0xc2b2ae3d27d4eb4f) ^ (c * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Stream is a counter-based generator keyed by (seed, week, salt).
type Stream struct {
	seed int64
	week uint64
	salt uint64
	n    uint64
}

func New(seed int64, week int, salt uint64) *Stream {
	return &Stream{seed: seed, week: uint64(int64(week)), salt: salt}
}

// Hashed is the default Factory.
func Hashed(seed int64, week int, salt uint64) Source { return New(seed, week, salt) }

func (s *Stream) Uint64() uint64 {
	s.n++
	return Hash3(s.seed, s.week, s.salt, s.n)
}

func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) / float64(1<<53)
}

// Chance reports whether a roll lands under p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Range returns a value in [lo,hi).
func Range(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// Intn returns a value in [0,n). n <= 0 yields 0.
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	return int(src.Uint64() % uint64(n))
}

// SampleWeighted picks an id proportionally to its weight. Ids are walked in
// sorted order so the result only depends on the weights and the roll.
func SampleWeighted(weights map[string]float64, roll uint64) string {
	if len(weights) == 0 {
		return ""
	}
	ids := make([]string, 0, len(weights))
	var total float64
	for id, w := range weights {
		if w > 0 {
			ids = append(ids, id)
			total += w
		}
	}
	if total <= 0 || len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)

	r := float64(roll%1_000_000_000) / 1_000_000_000.0
	target := r * total

	var acc float64
	for _, id := range ids {
		acc += weights[id]
		if target <= acc {
			return id
		}
	}
	return ids[len(ids)-1]
}

// Fixed always rolls the same value. Useful to pin every probability check
// to one side in tests and tooling.
type Fixed float64

func (f Fixed) Uint64() uint64 { return uint64(float64(f) * float64(1<<53)) << 11 }
func (f Fixed) Float64() float64 { return float64(f) }

// FixedFactory hands out the same Fixed source for every stream.
func FixedFactory(v float64) Factory {
	return func(int64, int, uint64) Source { return Fixed(v) }
}
