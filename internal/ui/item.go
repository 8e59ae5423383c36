package ui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/controller"
)

// flowKeys maps each flow to the key that opens it, in hint order.
var flowKeys = []struct {
	kind  controller.Kind
	key   string
	label string
	cap   auth.Capability
}{
	{controller.Reply, "r", "reply", auth.CanReply},
	{controller.Edit, "e", "edit", auth.CanEdit},
	{controller.Delete, "d", "delete", auth.CanDelete},
}

// messageItem is one row of the list: the controller that owns the flows
// plus a cache of the rendered body.
type messageItem struct {
	ctl *controller.Controller

	renderedBody  string
	renderedFrom  string
	renderedWidth int
}

func newMessageItem(ctl *controller.Controller) *messageItem {
	return &messageItem{ctl: ctl}
}

func (it *messageItem) id() string {
	return it.ctl.Message().ID
}

// body returns the markdown rendering of the message body, re-rendering
// only when the body or width changed.
func (it *messageItem) body(width int) string {
	b := it.ctl.Message().Body
	if b != it.renderedFrom || width != it.renderedWidth || it.renderedBody == "" {
		it.renderedBody = toMarkdown(b, width)
		it.renderedFrom = b
		it.renderedWidth = width
	}
	return it.renderedBody
}

// render draws the card. Action hints are only rendered for capabilities
// the viewer holds; while a request is pending they are shown disabled.
func (it *messageItem) render(width int, selected bool, spin *spinner) string {
	theme := GetTheme()
	msg := it.ctl.Message()
	inner := max(width-6, 10)

	var lines []string
	lines = append(lines, it.body(inner))

	if msg.HasReply() {
		reply := lipgloss.NewStyle().Foreground(theme.Secondary).Render("↳ ") +
			StyleMuted(theme).Render(msg.Reply)
		lines = append(lines, reply)
	}

	pending := it.ctl.Pending()
	caps := it.ctl.Capabilities()
	var hints []string
	for _, fk := range flowKeys {
		if !caps.Has(fk.cap) {
			continue
		}
		hints = append(hints, StyleKeyHint(theme, !pending).Render("["+fk.key+"] "+fk.label))
	}
	if len(hints) > 0 && selected {
		lines = append(lines, strings.Join(hints, "  "))
	}

	if pending {
		lines = append(lines, spin.view("Working…"))
	}

	if errText := it.ctl.Error(); errText != "" {
		lines = append(lines, renderErrorBanner(errText, inner))
	}

	border := theme.MutedBorder
	if selected {
		border = theme.Accent
	}
	return renderContentBlock(strings.Join(lines, "\n"), width,
		WithBorderColor(border),
		WithMarginBottom(1),
	)
}

// renderErrorBanner draws a dismissible error message.
func renderErrorBanner(text string, width int) string {
	theme := GetTheme()
	content := StyleError(theme).Render("An error occurred: ") +
		lipgloss.NewStyle().Foreground(theme.Text).Render(text) +
		"  " + StyleMuted(theme).Render("[x] dismiss")
	return renderContentBlock(content, width,
		WithBorderColor(theme.Error),
		WithPaddingTop(0),
		WithPaddingBottom(0),
	)
}
