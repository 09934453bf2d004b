package ui

import (
	"fmt"
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgnsrekt/storycast/internal/render"
)

var (
	fuchsia   = lipgloss.Color("#EE6FF8")
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	dimGray   = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}

	liveBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#E1001E")).
			Bold(true).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true).
			Padding(0, 1)

	counterStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(darkGreen)

	bodyStyle = lipgloss.NewStyle().
			Padding(1, 2)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Padding(0, 2)

	debugStyle = lipgloss.NewStyle().
			Foreground(fuchsia).
			Padding(0, 2)
)

// speakerStyle tints the speaker label the way the video renderer does.
func speakerStyle(speaker string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(hexColor(render.AccentFor(speaker))).
		Bold(true)
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}
