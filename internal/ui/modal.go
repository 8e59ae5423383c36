package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mark3labs/msgkit/internal/controller"
)

// ---------------------------------------------------------------------------
// Flow modal: confirmation dialog rendered by AppModel while a flow is in
// the Confirming state
// ---------------------------------------------------------------------------

// Hints shown under the input when the field fails validation.
const (
	invalidHint = "Please enter some text."
	tooLongHint = "Too long: %d of %d characters."
)

// modalResult carries the synchronous outcome of a modal update. A non-nil
// value means the user asked to confirm or cancel; nil means the modal is
// still active. Whether a confirm is honoured is up to the controller.
type modalResult struct {
	confirmed bool
	cancelled bool
}

// flowModal holds the view state of one open confirmation dialog. The form
// state itself lives in the controller; the textarea is only the editor.
type flowModal struct {
	kind     controller.Kind
	title    string
	message  string
	hasInput bool
	input    textarea.Model
	width    int
}

// newFlowModal creates the dialog for kind, seeding the editor with value.
func newFlowModal(kind controller.Kind, value string, width int) *flowModal {
	m := &flowModal{kind: kind, width: width}

	switch kind {
	case controller.Edit:
		m.title = "Edit message"
		m.hasInput = true
	case controller.Reply:
		m.title = "Reply to message"
		m.hasInput = true
	case controller.Delete:
		m.title = "Delete message"
		m.message = "Do you want to delete this message? This cannot be undone."
	}

	if m.hasInput {
		ta := textarea.New()
		ta.ShowLineNumbers = false
		ta.Prompt = ""
		// No editor caps; over-long input is rejected by validation.
		ta.CharLimit = 0
		ta.MaxHeight = 0
		ta.SetWidth(max(width-12, 10))
		ta.SetHeight(3)
		ta.Focus()

		// Enter confirms; newlines need ctrl+j or alt+enter.
		ta.KeyMap.InsertNewline = key.NewBinding(
			key.WithKeys("ctrl+j", "alt+enter"),
		)

		if value != "" {
			ta.SetValue(value)
			ta.CursorEnd()
		}
		m.input = ta
	}
	return m
}

// Init starts the cursor blink for dialogs with an editor.
func (m *flowModal) Init() tea.Cmd {
	if m.hasInput {
		return textarea.Blink
	}
	return nil
}

// Value returns the editor content ("" for delete).
func (m *flowModal) Value() string {
	if !m.hasInput {
		return ""
	}
	return m.input.Value()
}

// Update handles one message. The returned tea.Cmd is for textarea blink
// ticks.
func (m *flowModal) Update(msg tea.Msg) (*modalResult, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.hasInput {
			m.input.SetWidth(max(m.width-12, 10))
		}
		return nil, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "enter", "ctrl+s":
			return &modalResult{confirmed: true}, nil
		case "esc":
			return &modalResult{cancelled: true}, nil
		}
		if !m.hasInput {
			switch msg.String() {
			case "y", "Y":
				return &modalResult{confirmed: true}, nil
			case "n", "N", "q":
				return &modalResult{cancelled: true}, nil
			}
			return nil, nil
		}
	}

	if m.hasInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return nil, cmd
	}
	return nil, nil
}

// Render returns the dialog. canConfirm drives the look of the confirm
// button; valid controls the inline validation hint.
func (m *flowModal) Render(canConfirm, valid bool) string {
	theme := GetTheme()

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Render(m.title))
	lines = append(lines, "")

	if m.message != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Text).Render(m.message))
	}
	if m.hasInput {
		lines = append(lines, m.input.View())
		if !valid {
			lines = append(lines, StyleError(theme).Render(m.hint()))
		}
	}

	lines = append(lines, "")
	lines = append(lines, "  "+m.renderButtons(theme, canConfirm))
	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.Muted).Render(m.help()))

	border := theme.Accent
	if m.kind == controller.Delete {
		border = theme.Error
	}
	return renderContentBlock(strings.Join(lines, "\n"), m.width,
		WithBorderColor(border),
	)
}

// hint explains why the current input is invalid.
func (m *flowModal) hint() string {
	if n := utf8.RuneCountInString(m.Value()); n > controller.MaxBodyLength {
		return fmt.Sprintf(tooLongHint, n, controller.MaxBodyLength)
	}
	return invalidHint
}

func (m *flowModal) renderButtons(theme Theme, canConfirm bool) string {
	label := "[Save]"
	switch m.kind {
	case controller.Delete:
		label = "[Delete]"
	case controller.Reply:
		label = "[Send]"
	}

	confirm := lipgloss.NewStyle().Bold(true).Foreground(theme.Accent)
	if m.kind == controller.Delete {
		confirm = confirm.Foreground(theme.Error)
	}
	if !canConfirm {
		confirm = lipgloss.NewStyle().Foreground(theme.VeryMuted)
	}
	cancel := lipgloss.NewStyle().Foreground(theme.Text).Render("[Cancel]")
	return confirm.Render(label) + "  " + cancel
}

func (m *flowModal) help() string {
	if m.hasInput {
		return "  Enter confirm  Ctrl+J newline  Esc cancel"
	}
	return "  y/Enter confirm  n/Esc cancel"
}
