package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/controller"
	"github.com/mark3labs/msgkit/internal/message"
)

// CLI renders messages and flow results for the non-interactive
// subcommands. It shares the card and banner styles with the TUI.
type CLI struct {
	out   io.Writer
	width int
}

// NewCLI creates a CLI writing to out, sized to the terminal when stdout is
// one.
func NewCLI(out io.Writer) *CLI {
	c := &CLI{out: out}
	c.updateSize()
	return c
}

// updateSize reads the terminal width, falling back to 80 columns.
func (c *CLI) updateSize() {
	c.width = 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		c.width = w
	}
}

// SetWidth overrides the detected width.
func (c *CLI) SetWidth(width int) {
	c.width = width
}

// RenderList draws every message as a card with its id and the actions the
// viewer may take on it.
func (c *CLI) RenderList(msgs []message.Message, viewer auth.Viewer) string {
	theme := GetTheme()
	if len(msgs) == 0 {
		return StyleMuted(theme).Render("No messages.")
	}

	var cards []string
	for _, msg := range msgs {
		var lines []string
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Muted).Render("#"+msg.ID))
		lines = append(lines, toMarkdown(msg.Body, max(c.width-6, 10)))
		if msg.HasReply() {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.Secondary).Render("↳ ")+
				StyleMuted(theme).Render(msg.Reply))
		}
		if caps := auth.Capabilities(viewer, msg); !caps.Empty() {
			lines = append(lines, StyleKeyHint(theme, true).Render("can: "+caps.String()))
		}
		cards = append(cards, renderContentBlock(strings.Join(lines, "\n"), c.width,
			WithBorderColor(theme.MutedBorder),
		))
	}
	return strings.Join(cards, "\n")
}

// PrintList writes RenderList to the output.
func (c *CLI) PrintList(msgs []message.Message, viewer auth.Viewer) {
	fmt.Fprintln(c.out, c.RenderList(msgs, viewer))
}

// RenderEffect describes the outcome of a flow run with App.RunOnce.
func (c *CLI) RenderEffect(kind controller.Kind, id string, eff controller.Effect) string {
	theme := GetTheme()
	if eff.Err != "" {
		return renderContentBlock(
			StyleError(theme).Render("An error occurred: ")+eff.Err,
			c.width, WithBorderColor(theme.Error))
	}

	var text string
	switch kind {
	case controller.Edit:
		text = "Message " + id + " updated."
	case controller.Delete:
		text = "Message " + id + " deleted."
	case controller.Reply:
		text = "Reply to " + id + " sent."
	}
	return renderContentBlock(
		lipgloss.NewStyle().Foreground(theme.Success).Bold(true).Render(text),
		c.width, WithBorderColor(theme.Success))
}

// PrintEffect writes RenderEffect to the output.
func (c *CLI) PrintEffect(kind controller.Kind, id string, eff controller.Effect) {
	fmt.Fprintln(c.out, c.RenderEffect(kind, id, eff))
}
