package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pbaille/feynman/internal/store"
)

// Run starts the interactive interface on the given store, blocking
// until the user quits. dueLimit caps the dashboard's due-soon list.
func Run(s *store.Store, dueLimit int) error {
	p := tea.NewProgram(NewAppModel(s, dueLimit), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
