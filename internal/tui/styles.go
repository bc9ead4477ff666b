package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF") // Cyan — primary accent
	colorAccent     = lipgloss.Color("#FFD700") // Gold — due/attention
	colorSuccess    = lipgloss.Color("#00E676") // Green — mastered/success
	colorDanger     = lipgloss.Color("#FF5252") // Red — overdue/fail
	colorMuted      = lipgloss.Color("#636363") // Gray — de-emphasized
	colorMutedLight = lipgloss.Color("#8C8C8C") // Lighter gray — normal text
	colorWhite      = lipgloss.Color("#EEEEEE") // Off-white — primary text
	colorSurface    = lipgloss.Color("#1E1E2E") // Dark surface — header bg
)

// Selection indicator prepended to the active row.
const selectionIndicator = "▎"

var (
	styleHeader = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleRowSelected = lipgloss.NewStyle().
				Foreground(colorWhite).
				Bold(true)

	styleRowNormal = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleSelectionIndicator = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	styleDue = lipgloss.NewStyle().
			Foreground(colorAccent)

	styleOverdue = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleMastered = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleDim = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleDetailBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorMuted).
				Padding(0, 1)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleFooterKey = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleTag = lipgloss.NewStyle().
			Foreground(colorPrimary)
)
