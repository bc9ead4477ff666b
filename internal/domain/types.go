package domain

import (
	"fmt"
	"strings"
	"time"
)

// Topic is a unit of knowledge being tracked.
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasTag reports whether the topic carries the given tag.
// Matching is a case-sensitive exact comparison.
func (t Topic) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Progress is the scheduling state of a topic. A new topic starts at
// mastery 0 and is due immediately.
type Progress struct {
	TopicID        string     `json:"topic_id"`
	Mastery        int        `json:"mastery"`
	ReviewCount    int        `json:"review_count"`
	SuccessCount   int        `json:"success_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	DueAt          time.Time  `json:"due_at"`
}

// MasteryLabel returns the human-readable name for the progress's
// mastery level.
func (p Progress) MasteryLabel() string {
	switch p.Mastery {
	case 0:
		return "New"
	case 1:
		return "Learning"
	case 2:
		return "Familiar"
	case 3:
		return "Comfortable"
	case 4:
		return "Proficient"
	case 5:
		return "Mastered"
	default:
		return "Unknown"
	}
}

// SuccessRate returns the percentage of reviews that succeeded,
// or 0 for a never-reviewed topic.
func (p Progress) SuccessRate() float64 {
	if p.ReviewCount == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(p.ReviewCount) * 100
}

// Due reports whether the topic is due for review at the given time.
func (p Progress) Due(now time.Time) bool {
	return !p.DueAt.After(now)
}

// Card pairs a topic with its scheduling state. It is the record shape
// the selector and the state machine operate on.
type Card struct {
	Topic    Topic    `json:"topic"`
	Progress Progress `json:"progress"`
}

// Review is an immutable record of a single review outcome. Reviews are
// only ever appended, never edited.
type Review struct {
	ID         string    `json:"id"`
	TopicID    string    `json:"topic_id"`
	Outcome    Outcome   `json:"outcome"`
	Notes      string    `json:"notes,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// Gap is an identified understanding gap, appended from review outcomes.
type Gap struct {
	ID          string    `json:"id"`
	TopicID     string    `json:"topic_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tag is a label with the number of topics carrying it.
type Tag struct {
	Name       string `json:"name"`
	TopicCount int    `json:"topic_count"`
}

// Stats aggregates learning state across all topics.
type Stats struct {
	TotalTopics  int     `json:"total_topics"`
	TotalReviews int     `json:"total_reviews"`
	Mastered     int     `json:"mastered"`
	DueNow       int     `json:"due_now"`
	AvgMastery   float64 `json:"avg_mastery"`
}

// Outcome is the user-reported result of a review session.
type Outcome int

const (
	Success Outcome = iota
	Partial
	Fail
)

// String returns the canonical lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Partial:
		return "partial"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler. Outcomes serialize as
// their canonical names.
func (o Outcome) MarshalText() ([]byte, error) {
	if o < Success || o > Fail {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome converts user input to an Outcome. It accepts the
// canonical names plus the shorthand forms the CLI has always taken.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "s", "yes", "y", "good":
		return Success, nil
	case "partial", "p", "maybe", "ok":
		return Partial, nil
	case "fail", "f", "no", "n", "bad":
		return Fail, nil
	default:
		return 0, fmt.Errorf("invalid outcome %q: use success, partial, or fail", s)
	}
}
