package entropy

import "math/rand"

// Seeded is a reproducible Source backed by math/rand.
type Seeded struct {
	rng *rand.Rand
}

// NewSeeded returns a Source that yields the same sequence for the same seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewSource(seed))}
}

func (s *Seeded) Float() float64 {
	return s.rng.Float64()
}

// Sequence replays a fixed list of draws, cycling when exhausted.
// Tests use it to assert exact trajectories.
type Sequence struct {
	Draws []float64
	next  int
}

// NewSequence returns a Sequence over draws. An empty list always yields 0.
func NewSequence(draws ...float64) *Sequence {
	return &Sequence{Draws: draws}
}

func (s *Sequence) Float() float64 {
	if len(s.Draws) == 0 {
		return 0
	}
	v := s.Draws[s.next%len(s.Draws)]
	s.next++
	return v
}

// Used returns how many draws have been taken.
func (s *Sequence) Used() int {
	return s.next
}
