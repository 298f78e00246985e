package engine

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"os"
	"time"
)

// Round is one played round seen from side "self".
type Round struct {
	Self    Move    `json:"move_self"`
	Opp     Move    `json:"move_opp"`
	Outcome Outcome `json:"outcome"`
}

// SampleMove draws one move from d by walking its cumulative weights.
// Weights need not sum to 1; negative entries count as zero and a distribution
// with no mass is sampled uniformly.
func SampleMove(rng *mrand.Rand, d Distribution) Move {
	var w [3]float64
	total := 0.0
	for i, m := range Moves {
		if p := d.P(m); p > 0 {
			w[i] = p
			total += p
		}
	}
	if total <= 0 {
		return Moves[rng.Intn(3)]
	}
	r := rng.Float64() * total
	cum := 0.0
	for i := 0; i < len(w)-1; i++ {
		cum += w[i]
		if r < cum {
			return Moves[i]
		}
	}
	return Moves[len(w)-1]
}

// PlayRound samples both sides independently and scores the result for self.
func PlayRound(rng *mrand.Rand, self, opp Distribution) Round {
	a := SampleMove(rng, self)
	b := SampleMove(rng, opp)
	return Round{Self: a, Opp: b, Outcome: Resolve(a, b)}
}

// NewRand returns a generator seeded with seed, or with a crypto-derived seed
// when seed is zero.
func NewRand(seed int64) *mrand.Rand {
	if seed == 0 {
		seed = int64(SecureSeed())
	}
	return mrand.New(mrand.NewSource(seed))
}

// SeedStream derives a reproducible sequence of seeds from one base (splitmix64).
type SeedStream struct{ state uint64 }

func NewSeedStream(base uint64) *SeedStream { return &SeedStream{state: base} }

func (s *SeedStream) Next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z ^= z >> 30
	z *= 0xBF58476D1CE4E5B9
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}

func SecureSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return binary.LittleEndian.Uint64(b[:]) ^ uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())
	}
	return uint64(time.Now().UnixNano()) ^ 0xA5A5A5A5A5A5A5A5
}
