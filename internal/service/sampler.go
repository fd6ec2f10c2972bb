package service

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"roulette-bot/internal/model"
)

// Sampler draws catalog items with probability proportional to their weight.
// Weights need not sum to 1.
type Sampler struct {
	items      []model.CatalogItem
	cumulative []float64
	total      float64
	uniform    func() float64
}

// NewSampler precomputes cumulative weights. uniform must return values in
// [0, 1); nil selects the goroutine-safe math/rand/v2 source.
func NewSampler(items []model.CatalogItem, uniform func() float64) (*Sampler, error) {
	if len(items) == 0 {
		return nil, &model.ConfigurationError{Source: "sampler", Reason: "catalog is empty"}
	}
	if uniform == nil {
		uniform = rand.Float64
	}

	s := &Sampler{
		items:      make([]model.CatalogItem, len(items)),
		cumulative: make([]float64, len(items)),
		uniform:    uniform,
	}
	copy(s.items, items)

	for i, item := range items {
		if !(item.Weight > 0) {
			return nil, &model.ConfigurationError{
				Source: "sampler",
				Row:    i + 1,
				Field:  "chance",
				Reason: fmt.Sprintf("weight of item %d must be positive, got %v", item.ID, item.Weight),
			}
		}
		s.total += item.Weight
		s.cumulative[i] = s.total
	}
	return s, nil
}

// Draw returns one item.
func (s *Sampler) Draw() model.CatalogItem {
	x := s.uniform() * s.total
	i := sort.Search(len(s.cumulative), func(i int) bool { return s.cumulative[i] > x })
	if i == len(s.items) {
		// x rounded up to total
		i = len(s.items) - 1
	}
	return s.items[i]
}

// Sequence draws n items, used for the decorative roulette strip.
func (s *Sampler) Sequence(n int) []model.CatalogItem {
	out := make([]model.CatalogItem, n)
	for i := range out {
		out[i] = s.Draw()
	}
	return out
}
