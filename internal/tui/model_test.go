package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pbaille/feynman/internal/domain"
	"github.com/pbaille/feynman/internal/store"
)

func testModel(t *testing.T) AppModel {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "tui.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewAppModel(s, 5)
}

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m AppModel, key string) AppModel {
	next, _ := m.Update(keyMsg(key))
	return next.(AppModel)
}

func cardsFixture(n int) []domain.Card {
	now := time.Now().UTC()
	cards := make([]domain.Card, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, domain.Card{
			Topic:    domain.Topic{ID: string(rune('a' + i)), Title: "Topic " + string(rune('A'+i))},
			Progress: domain.Progress{Mastery: i % 6, DueAt: now},
		})
	}
	return cards
}

func TestCursorMovesWithinBounds(t *testing.T) {
	m := testModel(t)
	m.Screen = ViewTopics
	m.Cards = cardsFixture(3)

	m = press(m, "k")
	if m.Cursor != 0 {
		t.Errorf("cursor moved above first row: %d", m.Cursor)
	}

	m = press(m, "j")
	m = press(m, "j")
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor)
	}

	m = press(m, "j")
	if m.Cursor != 2 {
		t.Errorf("cursor moved past last row: %d", m.Cursor)
	}
}

func TestEnterOpensDetail(t *testing.T) {
	m := testModel(t)
	m.Screen = ViewTopics
	m.Cards = cardsFixture(2)
	m.Cursor = 1

	m = press(m, "enter")
	if m.Screen != ViewDetail {
		t.Fatalf("View = %v, want ViewDetail", m.Screen)
	}
	if m.Focused == nil || m.Focused.Topic.Title != "Topic B" {
		t.Errorf("Focused = %+v, want Topic B", m.Focused)
	}
}

func TestEscNavigatesBack(t *testing.T) {
	m := testModel(t)
	m.Screen = ViewDetail

	m = press(m, "esc")
	if m.Screen != ViewTopics {
		t.Errorf("View = %v, want ViewTopics", m.Screen)
	}
	m = press(m, "esc")
	if m.Screen != ViewDashboard {
		t.Errorf("View = %v, want ViewDashboard", m.Screen)
	}
	m = press(m, "esc")
	if m.Screen != ViewDashboard {
		t.Errorf("esc on dashboard should stay put, got %v", m.Screen)
	}
}

func TestSlashEntersFilterMode(t *testing.T) {
	m := testModel(t)
	m.Screen = ViewTopics

	m = press(m, "/")
	if !m.Filtering {
		t.Fatal("/ should enter filter mode")
	}

	// Keys now feed the filter input rather than navigation.
	m = press(m, "g")
	m = press(m, "o")
	if m.Filter.Value() != "go" {
		t.Errorf("filter value = %q, want go", m.Filter.Value())
	}
	if m.Screen != ViewTopics {
		t.Errorf("typing in filter changed view to %v", m.Screen)
	}

	m = press(m, "enter")
	if m.Filtering {
		t.Error("enter should commit and leave filter mode")
	}
	if m.Filter.Value() != "go" {
		t.Errorf("committed filter = %q, want go", m.Filter.Value())
	}
}

func TestEscClearsFilter(t *testing.T) {
	m := testModel(t)
	m.Screen = ViewTopics
	m = press(m, "/")
	m = press(m, "g")
	m = press(m, "esc")

	if m.Filtering {
		t.Error("esc should leave filter mode")
	}
	if m.Filter.Value() != "" {
		t.Errorf("esc should clear the filter, got %q", m.Filter.Value())
	}
}

func TestQuitKey(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should produce a quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("q produced %v, want tea.Quit", msg)
	}
}

func TestViewRendersTopics(t *testing.T) {
	m := testModel(t)
	m.Screen = ViewTopics
	m.Cards = cardsFixture(2)

	out := m.View()
	if !strings.Contains(out, "Topic A") || !strings.Contains(out, "Topic B") {
		t.Errorf("topics view missing rows:\n%s", out)
	}
}

func TestViewRendersDashboardStats(t *testing.T) {
	m := testModel(t)
	m.Stats = &domain.Stats{TotalTopics: 3, TotalReviews: 7, Mastered: 1, DueNow: 2, AvgMastery: 2.5}

	out := m.View()
	for _, want := range []string{"topics:", "reviews:", "due now:"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}
}

func TestDueLabel(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	overdue := dueLabel(domain.Progress{DueAt: now.Add(-3 * 24 * time.Hour)}, now)
	if !strings.Contains(overdue, "overdue 3d") {
		t.Errorf("overdue label = %q", overdue)
	}
	dueNow := dueLabel(domain.Progress{DueAt: now}, now)
	if !strings.Contains(dueNow, "due now") {
		t.Errorf("due-now label = %q", dueNow)
	}
	future := dueLabel(domain.Progress{DueAt: now.Add(36 * time.Hour)}, now)
	if !strings.Contains(future, "due in 2d") {
		t.Errorf("future label = %q", future)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long title indeed", 10); got != "a very ..." {
		t.Errorf("truncate = %q", got)
	}
	if len(truncate("abcdef", 3)) != 3 {
		t.Error("truncate should respect tiny widths")
	}
}
