package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/feynman/internal/domain"
)

// Mastery level bounds. Levels outside this range never leave the
// engine; receiving one as input means the persisted state is corrupt.
const (
	MinMastery = 0
	MaxMastery = 5
)

// ErrMasteryOutOfRange reports persisted mastery outside [MinMastery,
// MaxMastery]. Check with errors.Is.
var ErrMasteryOutOfRange = errors.New("schedule: mastery out of range")

// intervals maps a mastery level to the days until the next review.
// Monotonically non-decreasing in level.
var intervals = [MaxMastery + 1]int{1, 2, 4, 7, 14, 30}

// Interval returns the review interval for a mastery level. Levels
// outside the table clamp to its nearest entry.
func Interval(mastery int) time.Duration {
	if mastery < MinMastery {
		mastery = MinMastery
	}
	if mastery > MaxMastery {
		mastery = MaxMastery
	}
	return time.Duration(intervals[mastery]) * 24 * time.Hour
}

// ApplyReview advances a topic's scheduling state after a review. The
// input progress is not mutated; the updated copy is returned.
//
// Success promotes one level (capped at MaxMastery), Partial keeps the
// level, Fail demotes one level (floored at MinMastery). The next due
// date is now plus the interval of the new level. The review counter
// always increments; the success counter only on Success.
//
// Input mastery outside [MinMastery, MaxMastery] returns
// ErrMasteryOutOfRange: it indicates corrupted persisted state, so it is
// rejected rather than silently clamped. Only the transition's output is
// clamped.
func ApplyReview(p domain.Progress, outcome domain.Outcome, now time.Time) (domain.Progress, error) {
	if p.Mastery < MinMastery || p.Mastery > MaxMastery {
		return domain.Progress{}, fmt.Errorf("%w: %d", ErrMasteryOutOfRange, p.Mastery)
	}

	switch outcome {
	case domain.Success:
		p.Mastery = min(p.Mastery+1, MaxMastery)
		p.SuccessCount++
	case domain.Partial:
		// Engagement without regression: level unchanged.
	case domain.Fail:
		p.Mastery = max(p.Mastery-1, MinMastery)
	}

	p.ReviewCount++
	p.LastReviewedAt = &now
	p.DueAt = now.Add(Interval(p.Mastery))
	return p, nil
}
