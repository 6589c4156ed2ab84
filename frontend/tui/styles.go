package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorRed    = lipgloss.Color("#E06C75")
	ColorGreen  = lipgloss.Color("#98C379")
	ColorYellow = lipgloss.Color("#E5C07B")
	ColorBlue   = lipgloss.Color("#61AFEF")
	ColorMuted  = lipgloss.Color("#636B78")
)

const (
	boxChecked   = "[x]"
	boxUnchecked = "[ ]"
)

var (
	AppStyle = lipgloss.NewStyle().Padding(1, 2)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HeadingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true).
			MarginBottom(1)

	MutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Strikethrough(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().Foreground(ColorYellow)
)
