package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbaille/feynman/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTopic(t *testing.T, s *Store, title string, tags ...string) *domain.Topic {
	t.Helper()
	topic, err := s.AddTopic(title, "", tags)
	if err != nil {
		t.Fatalf("AddTopic(%q): %v", title, err)
	}
	return topic
}

func TestAddAndGetTopic(t *testing.T) {
	s := testStore(t)

	added := addTopic(t, s, "Goroutine scheduling", "go", "runtime")

	got, err := s.GetTopic(added.ID)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if got.Title != "Goroutine scheduling" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "runtime" {
		t.Errorf("Tags = %v, want [go runtime]", got.Tags)
	}

	// A new topic starts at mastery 0, due immediately.
	p, err := s.GetProgress(added.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p.Mastery != 0 || p.ReviewCount != 0 || p.SuccessCount != 0 {
		t.Errorf("fresh progress = %+v", p)
	}
	if p.LastReviewedAt != nil {
		t.Errorf("fresh LastReviewedAt = %v, want nil", p.LastReviewedAt)
	}
	if !p.Due(time.Now().UTC().Add(time.Minute)) {
		t.Error("fresh topic should be due")
	}
}

func TestGetTopicNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetTopic("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTopic(missing) err = %v, want ErrNotFound", err)
	}
}

func TestFindTopic(t *testing.T) {
	s := testStore(t)
	added := addTopic(t, s, "B-tree internals")

	byPrefix, err := s.FindTopic(added.ID[:8])
	if err != nil {
		t.Fatalf("FindTopic(prefix): %v", err)
	}
	if byPrefix.ID != added.ID {
		t.Errorf("FindTopic(prefix) = %q, want %q", byPrefix.ID, added.ID)
	}

	byTitle, err := s.FindTopic("B-tree internals")
	if err != nil {
		t.Fatalf("FindTopic(title): %v", err)
	}
	if byTitle.ID != added.ID {
		t.Errorf("FindTopic(title) = %q, want %q", byTitle.ID, added.ID)
	}

	if _, err := s.FindTopic("does not exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindTopic(missing) err = %v, want ErrNotFound", err)
	}
}

func TestListTopicsTagFilter(t *testing.T) {
	s := testStore(t)
	addTopic(t, s, "Raft", "distributed")
	addTopic(t, s, "Paxos", "distributed")
	addTopic(t, s, "Tries", "data-structures")

	all, err := s.ListTopics("")
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListTopics() returned %d topics, want 3", len(all))
	}

	dist, err := s.ListTopics("distributed")
	if err != nil {
		t.Fatalf("ListTopics(tag): %v", err)
	}
	if len(dist) != 2 {
		t.Errorf("ListTopics(distributed) returned %d topics, want 2", len(dist))
	}

	// Tag matching is case-sensitive.
	upper, err := s.ListTopics("Distributed")
	if err != nil {
		t.Fatalf("ListTopics(tag): %v", err)
	}
	if len(upper) != 0 {
		t.Errorf("ListTopics(Distributed) returned %d topics, want 0", len(upper))
	}
}

func TestRecordReviewAdvancesProgress(t *testing.T) {
	s := testStore(t)
	topic := addTopic(t, s, "TCP congestion control")
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	p, err := s.RecordReview(topic.ID, domain.Success, "went well", nil, now)
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if p.Mastery != 1 {
		t.Errorf("Mastery = %d, want 1", p.Mastery)
	}
	if p.ReviewCount != 1 || p.SuccessCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", p.ReviewCount, p.SuccessCount)
	}
	wantDue := now.Add(2 * 24 * time.Hour)
	if !p.DueAt.Equal(wantDue) {
		t.Errorf("DueAt = %v, want %v", p.DueAt, wantDue)
	}

	// Persisted state matches the returned state.
	stored, err := s.GetProgress(topic.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if stored.Mastery != 1 || stored.ReviewCount != 1 {
		t.Errorf("stored progress = %+v", stored)
	}
	if stored.LastReviewedAt == nil || !stored.LastReviewedAt.Equal(now) {
		t.Errorf("stored LastReviewedAt = %v, want %v", stored.LastReviewedAt, now)
	}

	reviews, err := s.ListReviews(topic.ID, 0)
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("ListReviews returned %d reviews, want 1", len(reviews))
	}
	if reviews[0].Outcome != domain.Success || reviews[0].Notes != "went well" {
		t.Errorf("review = %+v", reviews[0])
	}
}

func TestRecordReviewFailFloorsAtZero(t *testing.T) {
	s := testStore(t)
	topic := addTopic(t, s, "DNS resolution")
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	p, err := s.RecordReview(topic.ID, domain.Fail, "", nil, now)
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if p.Mastery != 0 {
		t.Errorf("Mastery = %d, want 0", p.Mastery)
	}
	if p.SuccessCount != 0 || p.ReviewCount != 1 {
		t.Errorf("counts = %d/%d, want 0 successes, 1 review", p.SuccessCount, p.ReviewCount)
	}
	if !p.DueAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("DueAt = %v, want 1 day out", p.DueAt)
	}
}

func TestRecordReviewGaps(t *testing.T) {
	s := testStore(t)
	topic := addTopic(t, s, "Memory ordering")
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	// Explicit gaps are recorded on any outcome.
	if _, err := s.RecordReview(topic.ID, domain.Success, "", []string{"fences vs barriers"}, now); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	// Notes on a non-success review become a gap too.
	if _, err := s.RecordReview(topic.ID, domain.Partial, "fuzzy on acquire/release", nil, now.Add(time.Hour)); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	// Notes on success do not.
	if _, err := s.RecordReview(topic.ID, domain.Success, "solid now", nil, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}

	gaps, err := s.ListGaps(topic.ID)
	if err != nil {
		t.Fatalf("ListGaps: %v", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("ListGaps returned %d gaps, want 2: %+v", len(gaps), gaps)
	}
	if gaps[0].Description != "fences vs barriers" {
		t.Errorf("gaps[0] = %q", gaps[0].Description)
	}
	if gaps[1].Description != "fuzzy on acquire/release" {
		t.Errorf("gaps[1] = %q", gaps[1].Description)
	}
}

func TestRecordReviewMissingTopic(t *testing.T) {
	s := testStore(t)
	_, err := s.RecordReview("missing", domain.Success, "", nil, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordReview(missing) err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTopicCascades(t *testing.T) {
	s := testStore(t)
	topic := addTopic(t, s, "Bloom filters", "probabilistic")
	now := time.Now().UTC()
	if _, err := s.RecordReview(topic.ID, domain.Fail, "false positive math", nil, now); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}

	deleted, err := s.DeleteTopic(topic.ID)
	if err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	if !deleted {
		t.Fatal("DeleteTopic reported nothing deleted")
	}

	if _, err := s.GetTopic(topic.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTopic after delete err = %v, want ErrNotFound", err)
	}
	if _, err := s.GetProgress(topic.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProgress after delete err = %v, want ErrNotFound", err)
	}
	reviews, err := s.ListReviews(topic.ID, 0)
	if err != nil {
		t.Fatalf("ListReviews: %v", err)
	}
	if len(reviews) != 0 {
		t.Errorf("reviews survived delete: %+v", reviews)
	}

	again, err := s.DeleteTopic(topic.ID)
	if err != nil {
		t.Fatalf("DeleteTopic(again): %v", err)
	}
	if again {
		t.Error("second DeleteTopic reported a deletion")
	}
}

func TestSetTopicTags(t *testing.T) {
	s := testStore(t)
	topic := addTopic(t, s, "Consistent hashing", "distributed")

	if err := s.SetTopicTags(topic.ID, []string{"hashing", "sharding"}); err != nil {
		t.Fatalf("SetTopicTags: %v", err)
	}

	got, err := s.GetTopic(topic.ID)
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "hashing" || got.Tags[1] != "sharding" {
		t.Errorf("Tags = %v, want [hashing sharding]", got.Tags)
	}
}

func TestListTagsCounts(t *testing.T) {
	s := testStore(t)
	addTopic(t, s, "Topic A", "go")
	addTopic(t, s, "Topic B", "go", "testing")

	tags, err := s.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	counts := make(map[string]int, len(tags))
	for _, tag := range tags {
		counts[tag.Name] = tag.TopicCount
	}
	if counts["go"] != 2 {
		t.Errorf("count(go) = %d, want 2", counts["go"])
	}
	if counts["testing"] != 1 {
		t.Errorf("count(testing) = %d, want 1", counts["testing"])
	}
}

func TestListCards(t *testing.T) {
	s := testStore(t)
	a := addTopic(t, s, "Topic A", "go")
	addTopic(t, s, "Topic B", "rust")

	cards, err := s.ListCards("")
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("ListCards returned %d cards, want 2", len(cards))
	}
	for _, c := range cards {
		if c.Progress.TopicID != c.Topic.ID {
			t.Errorf("card progress/topic mismatch: %q vs %q", c.Progress.TopicID, c.Topic.ID)
		}
	}

	goCards, err := s.ListCards("go")
	if err != nil {
		t.Fatalf("ListCards(go): %v", err)
	}
	if len(goCards) != 1 || goCards[0].Topic.ID != a.ID {
		t.Errorf("ListCards(go) = %+v, want just Topic A", goCards)
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)

	a := addTopic(t, s, "Topic A")
	addTopic(t, s, "Topic B")
	now := time.Now().UTC().Add(time.Second)

	// Push A to mastery 4 so it counts as mastered.
	for i := 0; i < 4; i++ {
		if _, err := s.RecordReview(a.ID, domain.Success, "", nil, now); err != nil {
			t.Fatalf("RecordReview: %v", err)
		}
	}

	st, err := s.Stats(now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalTopics != 2 {
		t.Errorf("TotalTopics = %d, want 2", st.TotalTopics)
	}
	if st.TotalReviews != 4 {
		t.Errorf("TotalReviews = %d, want 4", st.TotalReviews)
	}
	if st.Mastered != 1 {
		t.Errorf("Mastered = %d, want 1", st.Mastered)
	}
	// B is still due now; A was pushed 14 days out.
	if st.DueNow != 1 {
		t.Errorf("DueNow = %d, want 1", st.DueNow)
	}
	if st.AvgMastery != 2.0 {
		t.Errorf("AvgMastery = %f, want 2.0", st.AvgMastery)
	}
}

func TestDueSoonLimit(t *testing.T) {
	s := testStore(t)
	for _, title := range []string{"One", "Two", "Three"} {
		addTopic(t, s, title)
	}

	cards, err := s.DueSoon(2)
	if err != nil {
		t.Fatalf("DueSoon: %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("DueSoon(2) returned %d cards, want 2", len(cards))
	}
}
