package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pbaille/feynman/internal/domain"
	"github.com/pbaille/feynman/internal/store"
)

// View identifies which screen the model is rendering.
type View int

const (
	ViewDashboard View = iota
	ViewTopics
	ViewDetail
)

// dataLoadedMsg carries a full refresh of the card list and stats.
type dataLoadedMsg struct {
	cards []domain.Card
	stats *domain.Stats
	err   error
}

// detailLoadedMsg carries one topic's full history.
type detailLoadedMsg struct {
	reviews []domain.Review
	gaps    []domain.Gap
	err     error
}

// AppModel is the root BubbleTea model.
type AppModel struct {
	store *store.Store

	Screen View
	Width  int
	Height int

	Cards  []domain.Card
	Stats  *domain.Stats
	Cursor int

	// DueLimit caps the dashboard's due-soon list.
	DueLimit int

	// Detail state for the focused card.
	Focused *domain.Card
	Reviews []domain.Review
	Gaps    []domain.Gap

	// Topic list filter.
	Filter    textinput.Model
	Filtering bool

	Err error
}

// NewAppModel creates the root model backed by the given store. A
// non-positive dueLimit falls back to 5.
func NewAppModel(s *store.Store, dueLimit int) AppModel {
	if dueLimit <= 0 {
		dueLimit = 5
	}
	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "filter by tag"
	return AppModel{store: s, Filter: filter, DueLimit: dueLimit}
}

func (m AppModel) Init() tea.Cmd {
	return m.loadData()
}

// loadData refreshes cards and stats from the store.
func (m AppModel) loadData() tea.Cmd {
	s := m.store
	filter := ""
	if !m.Filtering {
		filter = m.Filter.Value()
	}
	return func() tea.Msg {
		cards, err := s.ListCards(filter)
		if err != nil {
			return dataLoadedMsg{err: err}
		}
		stats, err := s.Stats(time.Now().UTC())
		if err != nil {
			return dataLoadedMsg{err: err}
		}
		return dataLoadedMsg{cards: cards, stats: stats}
	}
}

// loadDetail fetches the review history and gaps for a topic.
func (m AppModel) loadDetail(topicID string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		reviews, err := s.ListReviews(topicID, 0)
		if err != nil {
			return detailLoadedMsg{err: err}
		}
		gaps, err := s.ListGaps(topicID)
		if err != nil {
			return detailLoadedMsg{err: err}
		}
		return detailLoadedMsg{reviews: reviews, gaps: gaps}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case dataLoadedMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Cards = msg.cards
		m.Stats = msg.stats
		if m.Cursor >= len(m.Cards) {
			m.Cursor = len(m.Cards) - 1
		}
		if m.Cursor < 0 {
			m.Cursor = 0
		}
		return m, nil

	case detailLoadedMsg:
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Reviews = msg.reviews
		m.Gaps = msg.gaps
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// While the filter input has focus, it eats every key except the
	// terminators.
	if m.Filtering {
		switch msg.String() {
		case "enter":
			m.Filtering = false
			m.Filter.Blur()
			m.Cursor = 0
			return m, m.loadData()
		case "esc":
			m.Filtering = false
			m.Filter.Blur()
			m.Filter.SetValue("")
			return m, m.loadData()
		default:
			var cmd tea.Cmd
			m.Filter, cmd = m.Filter.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.Screen == ViewTopics && m.Cursor < len(m.Cards)-1 {
			m.Cursor++
		}

	case "k", "up":
		if m.Screen == ViewTopics && m.Cursor > 0 {
			m.Cursor--
		}

	case "h", "left":
		m.Screen = prevView(m.Screen)

	case "l", "right", "tab":
		if m.Screen == ViewDashboard {
			m.Screen = ViewTopics
		}

	case "enter":
		if m.Screen == ViewTopics && m.Cursor < len(m.Cards) {
			card := m.Cards[m.Cursor]
			m.Focused = &card
			m.Screen = ViewDetail
			return m, m.loadDetail(card.Topic.ID)
		}

	case "esc":
		m.Screen = prevView(m.Screen)

	case "/":
		if m.Screen == ViewTopics {
			m.Filtering = true
			m.Filter.Focus()
			return m, textinput.Blink
		}

	case "r":
		return m, m.loadData()
	}

	return m, nil
}

func prevView(v View) View {
	switch v {
	case ViewDetail:
		return ViewTopics
	case ViewTopics:
		return ViewDashboard
	default:
		return ViewDashboard
	}
}
