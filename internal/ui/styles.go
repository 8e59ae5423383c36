package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
)

func boolPtr(b bool) *bool { return &b }

func uintPtr(u uint) *uint { return &u }

// GetMarkdownRenderer returns a glamour renderer styled with the theme
// palette and wrapped to width.
func GetMarkdownRenderer(width int) *glamour.TermRenderer {
	r, _ := glamour.NewTermRenderer(
		glamour.WithStyles(generateMarkdownStyleConfig()),
		glamour.WithWordWrap(width),
	)
	return r
}

// colorScheme holds resolved color values for markdown rendering.
type colorScheme struct {
	text    string
	muted   string
	heading string
	emph    string
	strong  string
	link    string
	code    string
}

func resolveColorScheme() colorScheme {
	if IsDarkBackground() {
		return colorScheme{
			text: "#cdd6f4", muted: "#a6adc8",
			heading: "#89dceb", emph: "#f9e2af",
			strong: "#cdd6f4", link: "#89b4fa",
			code: "#bac2de",
		}
	}
	return colorScheme{
		text: "#4c4f69", muted: "#6c6f85",
		heading: "#04a5e5", emph: "#df8e1d",
		strong: "#4c4f69", link: "#1e66f5",
		code: "#5c5f77",
	}
}

// generateMarkdownStyleConfig creates the ansi.StyleConfig for message
// bodies. Message bodies are short, so block margins are removed.
func generateMarkdownStyleConfig() ansi.StyleConfig {
	cs := resolveColorScheme()

	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: &cs.text},
			Margin:         uintPtr(0),
		},
		Paragraph: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: &cs.text},
		},
		BlockQuote: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:  &cs.muted,
				Italic: boolPtr(true),
				Prefix: "┃ ",
			},
			Indent: uintPtr(1),
		},
		List: ansi.StyleList{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: &cs.text},
			},
		},
		Heading: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: &cs.heading,
				Bold:  boolPtr(true),
			},
		},
		Emph: ansi.StylePrimitive{
			Color:  &cs.emph,
			Italic: boolPtr(true),
		},
		Strong: ansi.StylePrimitive{
			Color: &cs.strong,
			Bold:  boolPtr(true),
		},
		Strikethrough: ansi.StylePrimitive{
			Color:      &cs.muted,
			CrossedOut: boolPtr(true),
		},
		Item: ansi.StylePrimitive{
			BlockPrefix: "• ",
			Color:       &cs.text,
		},
		Enumeration: ansi.StylePrimitive{
			BlockPrefix: ". ",
			Color:       &cs.text,
		},
		Link: ansi.StylePrimitive{
			Color:     &cs.link,
			Underline: boolPtr(true),
		},
		LinkText: ansi.StylePrimitive{
			Color: &cs.link,
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{Color: &cs.code},
		},
		CodeBlock: ansi.StyleCodeBlock{
			StyleBlock: ansi.StyleBlock{
				StylePrimitive: ansi.StylePrimitive{Color: &cs.code},
				Margin:         uintPtr(0),
			},
		},
	}
}

// toMarkdown renders a message body with glamour. Bodies that fail to render
// are returned as-is.
func toMarkdown(content string, width int) string {
	r := GetMarkdownRenderer(width)
	if r == nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}
