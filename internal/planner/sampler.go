package planner

import (
	"math/rand/v2"
	"sort"
)

// sampler draws weighted random picks (with replacement) from a fixed
// item set using cumulative weights and binary search. Items with a
// non-positive weight are never drawn.
type sampler struct {
	items []string
	cum   []float64
	total float64
	rng   *rand.Rand
}

func newSampler(items []string, weightOf func(string) float64, rng *rand.Rand) *sampler {
	s := &sampler{rng: rng}
	for _, item := range items {
		w := weightOf(item)
		if w <= 0 {
			continue
		}
		s.total += w
		s.items = append(s.items, item)
		s.cum = append(s.cum, s.total)
	}
	return s
}

func (s *sampler) empty() bool { return len(s.items) == 0 }

func (s *sampler) pick() string {
	r := s.rng.Float64() * s.total
	i := sort.SearchFloat64s(s.cum, r)
	if i >= len(s.items) {
		i = len(s.items) - 1
	}
	return s.items[i]
}
