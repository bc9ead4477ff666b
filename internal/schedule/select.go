package schedule

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/pbaille/feynman/internal/domain"
)

// baselineOverdue keeps topics that are not yet due selectable: a zero
// weight would make a topic permanently unreachable.
const baselineOverdue = 1.0

// SelectorConfig configures a Selector. Zero values produce defaults.
type SelectorConfig struct {
	// Jitter is the upper bound of the multiplicative random
	// perturbation applied to each weight. Zero means the default 1.0;
	// negative is invalid.
	Jitter float64

	// Source seeds the selector's random stream. Nil means a
	// time-seeded source; tests pass a fixed seed for reproducibility.
	Source rand.Source
}

// Selector picks the next topic to review by weighted-random sampling.
// Weight grows with days overdue and with weakness (low mastery), and a
// bounded jitter keeps any single topic from deterministically
// dominating selection run after run.
type Selector struct {
	jitter float64
	rng    *rand.Rand
}

// NewSelector creates a Selector from the given config.
func NewSelector(cfg SelectorConfig) (*Selector, error) {
	jitter := cfg.Jitter
	if jitter == 0 {
		jitter = 1.0
	}
	if jitter < 0 {
		return nil, fmt.Errorf("schedule: jitter %f must be non-negative", jitter)
	}

	src := cfg.Source
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}

	return &Selector{jitter: jitter, rng: rand.New(src)}, nil
}

// Select picks one card from the candidates, or nil when none match.
// An empty tagFilter admits every card; otherwise a card must carry the
// tag exactly (case-sensitive). Each candidate's selection probability
// is proportional to its weight, so every eligible card has a nonzero
// chance on every call.
func (s *Selector) Select(cards []domain.Card, tagFilter string, now time.Time) *domain.Card {
	candidates := filterByTag(cards, tagFilter)
	if len(candidates) == 0 {
		return nil
	}

	// Cumulative weights plus a single uniform draw mapped via binary
	// search.
	cumulative := make([]float64, len(candidates))
	var total float64
	for i, c := range candidates {
		total += s.weight(c, now)
		cumulative[i] = total
	}

	point := s.rng.Float64() * total
	i := sort.SearchFloat64s(cumulative, point)
	if i >= len(candidates) {
		i = len(candidates) - 1
	}

	picked := candidates[i]
	return &picked
}

// weight computes the sampling weight for a card: overdue factor times
// weakness factor times a fresh jitter term. Always strictly positive.
func (s *Selector) weight(c domain.Card, now time.Time) float64 {
	w := overdueFactor(c.Progress.DueAt, now) * weaknessFactor(c.Progress.Mastery)
	return w * (1 + s.rng.Float64()*s.jitter)
}

// overdueFactor grows linearly with days past due. Not-yet-due topics
// get the positive baseline so they stay reachable, just unlikely.
func overdueFactor(dueAt, now time.Time) float64 {
	overdue := now.Sub(dueAt)
	if overdue <= 0 {
		return baselineOverdue
	}
	return baselineOverdue + overdue.Hours()/24
}

// weaknessFactor is strictly decreasing in mastery and strictly
// positive even at MaxMastery.
func weaknessFactor(mastery int) float64 {
	if mastery < MinMastery {
		mastery = MinMastery
	}
	if mastery > MaxMastery {
		mastery = MaxMastery
	}
	return float64(MaxMastery + 1 - mastery)
}

// filterByTag returns the cards matching the tag filter. This is a
// plain filter, separate from the stochastic step.
func filterByTag(cards []domain.Card, tagFilter string) []domain.Card {
	if tagFilter == "" {
		return cards
	}
	var matched []domain.Card
	for _, c := range cards {
		if c.Topic.HasTag(tagFilter) {
			matched = append(matched, c)
		}
	}
	return matched
}
