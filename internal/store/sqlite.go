package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/feynman/internal/domain"
	"github.com/pbaille/feynman/internal/schedule"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when a topic does not exist.
var ErrNotFound = errors.New("store: topic not found")

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// AddTopic creates a topic with its initial scheduling state: mastery 0,
// empty history, due immediately.
func (s *Store) AddTopic(title, description string, tags []string) (*domain.Topic, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO topics (id, title, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, title, description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO progress (topic_id, mastery, review_count, success_count, due_at) VALUES (?, 0, 0, 0, ?)",
		id, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}

	if err := setTags(tx, id, tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &domain.Topic{
		ID:          id,
		Title:       title,
		Description: description,
		Tags:        normalizeTags(tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetTopic retrieves a topic by ID with its tags
func (s *Store) GetTopic(id string) (*domain.Topic, error) {
	var t domain.Topic
	err := s.db.QueryRow(
		"SELECT id, title, description, created_at, updated_at FROM topics WHERE id = ?",
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	tags, err := s.topicTags(t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags

	return &t, nil
}

// FindTopic resolves a user-supplied reference to a topic: an ID prefix
// or an exact title.
func (s *Store) FindTopic(ref string) (*domain.Topic, error) {
	var id string
	err := s.db.QueryRow(
		"SELECT id FROM topics WHERE id LIKE ? || '%' OR title = ? LIMIT 1",
		ref, ref,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find topic: %w", err)
	}
	return s.GetTopic(id)
}

// ListTopics returns all topics ordered by title, optionally restricted
// to a tag.
func (s *Store) ListTopics(tagFilter string) ([]domain.Topic, error) {
	query := "SELECT id, title, description, created_at, updated_at FROM topics ORDER BY title"
	args := []any{}
	if tagFilter != "" {
		query = `
			SELECT DISTINCT t.id, t.title, t.description, t.created_at, t.updated_at
			FROM topics t
			JOIN topic_tags tt ON t.id = tt.topic_id
			JOIN tags tg ON tt.tag_id = tg.id
			WHERE tg.name = ?
			ORDER BY t.title`
		args = append(args, tagFilter)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}

	for i := range topics {
		tags, err := s.topicTags(topics[i].ID)
		if err != nil {
			return nil, err
		}
		topics[i].Tags = tags
	}

	return topics, nil
}

// ListCards returns every topic joined with its scheduling state,
// ordered soonest-due first. This is the candidate set the selector
// samples from.
func (s *Store) ListCards(tagFilter string) ([]domain.Card, error) {
	query := `
		SELECT t.id, t.title, t.description, t.created_at, t.updated_at,
		       p.mastery, p.review_count, p.success_count, p.last_reviewed_at, p.due_at
		FROM topics t
		JOIN progress p ON t.id = p.topic_id`
	args := []any{}
	if tagFilter != "" {
		query += `
		JOIN topic_tags tt ON t.id = tt.topic_id
		JOIN tags tg ON tt.tag_id = tg.id
		WHERE tg.name = ?`
		args = append(args, tagFilter)
	}
	query += " ORDER BY p.due_at ASC, p.mastery ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		var lastReviewed sql.NullTime
		err := rows.Scan(
			&c.Topic.ID, &c.Topic.Title, &c.Topic.Description, &c.Topic.CreatedAt, &c.Topic.UpdatedAt,
			&c.Progress.Mastery, &c.Progress.ReviewCount, &c.Progress.SuccessCount,
			&lastReviewed, &c.Progress.DueAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Progress.TopicID = c.Topic.ID
		if lastReviewed.Valid {
			t := lastReviewed.Time
			c.Progress.LastReviewedAt = &t
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}

	for i := range cards {
		tags, err := s.topicTags(cards[i].Topic.ID)
		if err != nil {
			return nil, err
		}
		cards[i].Topic.Tags = tags
	}

	return cards, nil
}

// DueSoon returns up to limit cards ordered by due date, soonest first.
func (s *Store) DueSoon(limit int) ([]domain.Card, error) {
	cards, err := s.ListCards("")
	if err != nil {
		return nil, err
	}
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

// GetProgress returns the scheduling state for a topic.
func (s *Store) GetProgress(topicID string) (*domain.Progress, error) {
	p, err := scanProgress(s.db.QueryRow(
		"SELECT topic_id, mastery, review_count, success_count, last_reviewed_at, due_at FROM progress WHERE topic_id = ?",
		topicID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// RecordReview appends an immutable review record, advances the topic's
// scheduling state through the state machine, and appends any gap text,
// all within a single transaction. Gap entries come from the explicit
// gap list on every outcome; the review notes are also recorded as a
// gap on Partial and Fail.
func (s *Store) RecordReview(topicID string, outcome domain.Outcome, notes string, gapTexts []string, now time.Time) (*domain.Progress, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	current, err := scanProgress(tx.QueryRow(
		"SELECT topic_id, mastery, review_count, success_count, last_reviewed_at, due_at FROM progress WHERE topic_id = ?",
		topicID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}

	updated, err := schedule.ApplyReview(*current, outcome, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(
		"INSERT INTO reviews (id, topic_id, outcome, notes, reviewed_at) VALUES (?, ?, ?, ?, ?)",
		uuid.New().String(), topicID, outcome.String(), notes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	_, err = tx.Exec(
		"UPDATE progress SET mastery = ?, review_count = ?, success_count = ?, last_reviewed_at = ?, due_at = ? WHERE topic_id = ?",
		updated.Mastery, updated.ReviewCount, updated.SuccessCount, now, updated.DueAt, topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}

	gaps := append([]string{}, gapTexts...)
	if notes != "" && outcome != domain.Success {
		gaps = append(gaps, notes)
	}
	for _, g := range gaps {
		if strings.TrimSpace(g) == "" {
			continue
		}
		_, err = tx.Exec(
			"INSERT INTO gaps (id, topic_id, description, created_at) VALUES (?, ?, ?, ?)",
			uuid.New().String(), topicID, g, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert gap: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &updated, nil
}

// DeleteTopic removes a topic and all its review history atomically.
// It reports whether a topic was deleted.
func (s *Store) DeleteTopic(id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM topics WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete topic: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete topic: %w", err)
	}
	return n > 0, nil
}

// SetTopicTags replaces a topic's tag set.
func (s *Store) SetTopicTags(topicID string, tags []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM topic_tags WHERE topic_id = ?", topicID); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	if err := setTags(tx, topicID, tags); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE topics SET updated_at = ? WHERE id = ?", time.Now().UTC(), topicID); err != nil {
		return fmt.Errorf("touch topic: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListTags returns all tags with the number of topics carrying each.
func (s *Store) ListTags() ([]domain.Tag, error) {
	rows, err := s.db.Query(`
		SELECT tg.name, COUNT(tt.topic_id)
		FROM tags tg
		LEFT JOIN topic_tags tt ON tg.id = tt.tag_id
		GROUP BY tg.id, tg.name
		ORDER BY tg.name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.Name, &t.TopicCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListReviews returns a topic's review history, newest first. A limit
// of 0 means no limit.
func (s *Store) ListReviews(topicID string, limit int) ([]domain.Review, error) {
	query := "SELECT id, topic_id, outcome, notes, reviewed_at FROM reviews WHERE topic_id = ? ORDER BY reviewed_at DESC"
	args := []any{topicID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var r domain.Review
		var outcome string
		if err := rows.Scan(&r.ID, &r.TopicID, &outcome, &r.Notes, &r.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if r.Outcome, err = domain.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// ListGaps returns a topic's understanding gaps, oldest first.
func (s *Store) ListGaps(topicID string) ([]domain.Gap, error) {
	rows, err := s.db.Query(
		"SELECT id, topic_id, description, created_at FROM gaps WHERE topic_id = ? ORDER BY created_at ASC",
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("list gaps: %w", err)
	}
	defer rows.Close()

	var gaps []domain.Gap
	for rows.Next() {
		var g domain.Gap
		if err := rows.Scan(&g.ID, &g.TopicID, &g.Description, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan gap: %w", err)
		}
		gaps = append(gaps, g)
	}
	return gaps, rows.Err()
}

// Stats aggregates learning state across all topics as of now.
func (s *Store) Stats(now time.Time) (*domain.Stats, error) {
	var st domain.Stats
	row := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM topics),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM progress WHERE mastery >= 4),
			(SELECT COUNT(*) FROM progress WHERE due_at <= ?),
			(SELECT COALESCE(AVG(mastery), 0) FROM progress)`,
		now,
	)
	if err := row.Scan(&st.TotalTopics, &st.TotalReviews, &st.Mastered, &st.DueNow, &st.AvgMastery); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// setTags links the given tag names to a topic, creating tags as needed.
func setTags(tx *sql.Tx, topicID string, tags []string) error {
	for _, name := range normalizeTags(tags) {
		var tagID string
		err := tx.QueryRow("SELECT id FROM tags WHERE name = ?", name).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			tagID = uuid.New().String()
			if _, err := tx.Exec("INSERT INTO tags (id, name) VALUES (?, ?)", tagID, name); err != nil {
				return fmt.Errorf("insert tag: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("find tag: %w", err)
		}

		_, err = tx.Exec(
			"INSERT OR IGNORE INTO topic_tags (topic_id, tag_id) VALUES (?, ?)",
			topicID, tagID,
		)
		if err != nil {
			return fmt.Errorf("link tag: %w", err)
		}
	}
	return nil
}

// normalizeTags trims whitespace and drops empty names.
func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// topicTags returns the tag names for a topic, sorted.
func (s *Store) topicTags(topicID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT tg.name
		FROM tags tg
		JOIN topic_tags tt ON tg.id = tt.tag_id
		WHERE tt.topic_id = ?
		ORDER BY tg.name`, topicID)
	if err != nil {
		return nil, fmt.Errorf("get topic tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// scanProgress scans one progress row from a QueryRow result.
func scanProgress(row *sql.Row) (*domain.Progress, error) {
	var p domain.Progress
	var lastReviewed sql.NullTime
	err := row.Scan(&p.TopicID, &p.Mastery, &p.ReviewCount, &p.SuccessCount, &lastReviewed, &p.DueAt)
	if err != nil {
		return nil, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		p.LastReviewedAt = &t
	}
	return &p, nil
}
