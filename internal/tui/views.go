package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pbaille/feynman/internal/domain"
)

func (m AppModel) View() string {
	if m.Err != nil {
		return styleOverdue.Render("error: "+m.Err.Error()) + "\n" + m.footer()
	}

	var body string
	switch m.Screen {
	case ViewDashboard:
		body = m.viewDashboard()
	case ViewTopics:
		body = m.viewTopics()
	case ViewDetail:
		body = m.viewDetail()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.header(), body, m.footer())
}

func (m AppModel) header() string {
	title := "feynman"
	switch m.Screen {
	case ViewDashboard:
		title += " · dashboard"
	case ViewTopics:
		title += " · topics"
	case ViewDetail:
		if m.Focused != nil {
			title += " · " + m.Focused.Topic.Title
		}
	}
	return styleHeader.Render(title)
}

func (m AppModel) viewDashboard() string {
	var b strings.Builder

	if m.Stats != nil {
		b.WriteString(styleTitle.Render("overview") + "\n")
		b.WriteString(fmt.Sprintf("  topics:   %d\n", m.Stats.TotalTopics))
		b.WriteString(fmt.Sprintf("  reviews:  %d\n", m.Stats.TotalReviews))
		b.WriteString(fmt.Sprintf("  mastered: %s\n", styleMastered.Render(fmt.Sprintf("%d", m.Stats.Mastered))))
		b.WriteString(fmt.Sprintf("  due now:  %s\n", styleDue.Render(fmt.Sprintf("%d", m.Stats.DueNow))))
		b.WriteString(fmt.Sprintf("  avg mastery: %.1f\n", m.Stats.AvgMastery))
		b.WriteString("\n")
	}

	b.WriteString(styleTitle.Render("due soon") + "\n")
	now := time.Now().UTC()
	shown := 0
	for _, c := range m.Cards {
		if shown >= m.DueLimit {
			break
		}
		b.WriteString("  " + dueLabel(c.Progress, now) + " " + c.Topic.Title + "\n")
		shown++
	}
	if shown == 0 {
		b.WriteString(styleDim.Render("  nothing tracked yet") + "\n")
	}

	return b.String()
}

func (m AppModel) viewTopics() string {
	var b strings.Builder

	if m.Filtering || m.Filter.Value() != "" {
		b.WriteString(m.Filter.View() + "\n")
	}

	if len(m.Cards) == 0 {
		b.WriteString(styleDim.Render("  no topics") + "\n")
		return b.String()
	}

	now := time.Now().UTC()
	for i, c := range m.Cards {
		indicator := " "
		rowStyle := styleRowNormal
		if i == m.Cursor {
			indicator = styleSelectionIndicator.Render(selectionIndicator)
			rowStyle = styleRowSelected
		}
		line := fmt.Sprintf("%-40s %-12s %s",
			truncate(c.Topic.Title, 40),
			c.Progress.MasteryLabel(),
			dueLabel(c.Progress, now))
		b.WriteString(indicator + rowStyle.Render(line))
		if len(c.Topic.Tags) > 0 {
			b.WriteString("  " + styleTag.Render(strings.Join(c.Topic.Tags, ",")))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m AppModel) viewDetail() string {
	if m.Focused == nil {
		return styleDim.Render("  no topic selected")
	}
	c := m.Focused

	var b strings.Builder
	b.WriteString(styleTitle.Render(c.Topic.Title) + "\n")
	if c.Topic.Description != "" {
		b.WriteString(c.Topic.Description + "\n")
	}
	if len(c.Topic.Tags) > 0 {
		b.WriteString(styleTag.Render(strings.Join(c.Topic.Tags, ", ")) + "\n")
	}
	b.WriteString("\n")

	now := time.Now().UTC()
	b.WriteString(fmt.Sprintf("mastery: %d/5 (%s)\n", c.Progress.Mastery, c.Progress.MasteryLabel()))
	b.WriteString(fmt.Sprintf("reviews: %d (%.0f%% success)\n", c.Progress.ReviewCount, c.Progress.SuccessRate()))
	b.WriteString("due: " + dueLabel(c.Progress, now) + "\n\n")

	b.WriteString(styleTitle.Render("history") + "\n")
	if len(m.Reviews) == 0 {
		b.WriteString(styleDim.Render("  never reviewed") + "\n")
	}
	for _, r := range m.Reviews {
		line := fmt.Sprintf("  %s  %-7s", r.ReviewedAt.Format("2006-01-02"), r.Outcome)
		if r.Notes != "" {
			line += "  " + truncate(r.Notes, 50)
		}
		b.WriteString(line + "\n")
	}

	if len(m.Gaps) > 0 {
		b.WriteString("\n" + styleTitle.Render("gaps") + "\n")
		for _, g := range m.Gaps {
			b.WriteString("  • " + g.Description + "\n")
		}
	}

	return styleDetailBorder.Render(b.String())
}

func (m AppModel) footer() string {
	keys := [][2]string{
		{"j/k", "move"},
		{"enter", "open"},
		{"h/esc", "back"},
		{"/", "filter"},
		{"r", "refresh"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, styleFooterKey.Render(k[0])+" "+k[1])
	}
	return styleFooter.Render(strings.Join(parts, "  "))
}

// dueLabel renders a card's due state relative to now.
func dueLabel(p domain.Progress, now time.Time) string {
	if p.Due(now) {
		days := int(now.Sub(p.DueAt).Hours() / 24)
		if days >= 1 {
			return styleOverdue.Render(fmt.Sprintf("overdue %dd", days))
		}
		return styleDue.Render("due now")
	}
	days := int(p.DueAt.Sub(now).Hours()/24) + 1
	return styleDim.Render(fmt.Sprintf("due in %dd", days))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
