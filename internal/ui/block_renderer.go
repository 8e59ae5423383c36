package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// blockRenderer holds the options for one rendered content block.
type blockRenderer struct {
	borderColor   color.Color
	paddingTop    int
	paddingBottom int
	paddingLeft   int
	marginBottom  int
	width         int
}

// renderingOption configures block rendering
type renderingOption func(*blockRenderer)

// WithBorderColor sets the color of the left border.
func WithBorderColor(c color.Color) renderingOption {
	return func(r *blockRenderer) {
		r.borderColor = c
	}
}

// WithPaddingTop sets the blank lines above the content.
func WithPaddingTop(padding int) renderingOption {
	return func(c *blockRenderer) {
		c.paddingTop = padding
	}
}

// WithPaddingBottom sets the blank lines below the content.
func WithPaddingBottom(padding int) renderingOption {
	return func(c *blockRenderer) {
		c.paddingBottom = padding
	}
}

// WithMarginBottom appends blank lines after the block.
func WithMarginBottom(margin int) renderingOption {
	return func(c *blockRenderer) {
		c.marginBottom = margin
	}
}

// renderContentBlock renders content as a full-width block with a thick left
// border, the style shared by message cards, the modal and the error banner.
func renderContentBlock(content string, containerWidth int, options ...renderingOption) string {
	r := &blockRenderer{
		borderColor: lipgloss.NoColor{},
		paddingLeft: 2,
		width:       containerWidth,
	}
	for _, option := range options {
		option(r)
	}

	style := lipgloss.NewStyle().
		PaddingLeft(r.paddingLeft).
		PaddingTop(r.paddingTop).
		PaddingBottom(r.paddingBottom).
		Foreground(GetTheme().Text)

	style = style.
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderLeftForeground(r.borderColor)
	if r.width > 1 {
		style = style.Width(r.width - 1)
	}

	content = style.Render(content)
	for range r.marginBottom {
		content += "\n"
	}
	return content
}
