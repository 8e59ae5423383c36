package ui

import (
	"image/color"
	"os"

	"charm.land/lipgloss/v2"
)

// isDarkBg caches the terminal background detection result at package init.
var isDarkBg = lipgloss.HasDarkBackground(os.Stdin, os.Stdout)

// AdaptiveColor picks between a light-mode and dark-mode hex color string
// based on the detected terminal background.
func AdaptiveColor(light, dark string) color.Color {
	if isDarkBg {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

// IsDarkBackground returns the cached terminal background detection result.
func IsDarkBackground() bool {
	return isDarkBg
}

var currentTheme = DefaultTheme()

// GetTheme returns the currently active UI theme.
func GetTheme() Theme {
	return currentTheme
}

// Theme is the color scheme of the message board, with light and dark
// variants resolved at startup. Colors follow the Catppuccin Latte and Mocha
// palettes.
type Theme struct {
	Primary     color.Color
	Secondary   color.Color
	Success     color.Color
	Error       color.Color
	Text        color.Color
	Muted       color.Color
	VeryMuted   color.Color
	MutedBorder color.Color
	Accent      color.Color
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:     AdaptiveColor("#8839ef", "#cba6f7"), // Mauve
		Secondary:   AdaptiveColor("#04a5e5", "#89dceb"), // Sky
		Success:     AdaptiveColor("#40a02b", "#a6e3a1"), // Green
		Error:       AdaptiveColor("#d20f39", "#f38ba8"), // Red
		Text:        AdaptiveColor("#4c4f69", "#cdd6f4"), // Text
		Muted:       AdaptiveColor("#6c6f85", "#a6adc8"), // Subtext 0
		VeryMuted:   AdaptiveColor("#9ca0b0", "#6c7086"), // Overlay 0
		MutedBorder: AdaptiveColor("#ccd0da", "#313244"), // Surface 0
		Accent:      AdaptiveColor("#ea76cb", "#f5c2e7"), // Pink
	}
}

// StyleHeader is used for the list title.
func StyleHeader(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)
}

// StyleMuted is used for hints and metadata.
func StyleMuted(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Muted).
		Italic(true)
}

// StyleError is used for banner text and validation hints.
func StyleError(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true)
}

// StyleKeyHint renders a key binding such as "[e] edit". Disabled hints are
// drawn in the very muted color.
func StyleKeyHint(theme Theme, enabled bool) lipgloss.Style {
	if !enabled {
		return lipgloss.NewStyle().Foreground(theme.VeryMuted).Strikethrough(true)
	}
	return lipgloss.NewStyle().Foreground(theme.Secondary)
}

// repeatRune returns r repeated n times (empty for n <= 0).
func repeatRune(r rune, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}
