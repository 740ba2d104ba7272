package generator

import (
	"math"
	"math/rand"
	"time"
)

// Source is the single random source of a run. Every draw the generator makes
// goes through it, so a fixed seed reproduces a log exactly.
type Source struct {
	rng *rand.Rand
}

// NewSource creates a source seeded with seed.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Between returns a uniform integer in [lo, hi]. Inverted bounds are swapped.
func (s *Source) Between(lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Intn returns a uniform integer in [0, n).
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Date returns a uniform calendar day in [start, end], truncated to midnight.
func (s *Source) Date(start, end time.Time) time.Time {
	start = midnight(start)
	end = midnight(end)
	days := int(math.Round(end.Sub(start).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return start.AddDate(0, 0, s.Between(0, days))
}

// Shuffle permutes n elements with swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
