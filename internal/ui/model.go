package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"

	"github.com/mark3labs/msgkit/internal/app"
	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/controller"
	"github.com/mark3labs/msgkit/internal/message"
)

// appState represents the current state of the parent TUI model.
type appState int

const (
	// stateList is the default state: the list has focus and the cursor
	// selects a message.
	stateList appState = iota

	// stateModal means a flow's confirmation dialog is open. The dialog
	// takes full focus until the user confirms or cancels.
	stateModal
)

// AppController is the interface the parent TUI model uses to interact with
// the app layer. It is satisfied by *app.App; tests supply a stub.
type AppController interface {
	// Messages returns a snapshot of the current message list.
	Messages() []message.Message
	// Viewer returns the identity the list is shown to.
	Viewer() auth.Viewer
	// NewController creates the controller for one message.
	NewController(msg message.Message) *controller.Controller
	// Submit runs a confirmed submission in the background. The result
	// arrives as an app.SubmissionSettledEvent. Submit must not send to
	// the program synchronously, because it is called from Update().
	Submit(sub *controller.Submission)
	// Reload re-reads the list in the background. The result arrives as an
	// app.ListLoadedEvent or app.ListErrorEvent.
	Reload()
}

// AppModelOptions holds configuration passed to NewAppModel.
type AppModelOptions struct {
	// Title is shown above the list. Defaults to "Messages".
	Title string

	// Width is the initial terminal width in columns.
	Width int

	// Height is the initial terminal height in rows.
	Height int
}

// AppModel is the root Bubble Tea model. It owns the list of message items,
// routes keys to the selected item's controller, and renders the open
// confirmation dialog.
//
// Layout (stacked, no alt screen):
//
//	Messages (3)                       ▪▪▪▪▪▪ Reloading…
//	┃ first message body
//	┃ [r] reply  [e] edit  [d] delete
//	┃ second message body
//	────────────────────────────────────────────────────
//	┃ Edit message                        (only in stateModal)
//	↑/↓ move  r reply  e edit  d delete  x dismiss  R reload  q quit
type AppModel struct {
	state   appState
	appCtrl AppController

	items  []*messageItem
	cursor int

	// modal is the open dialog, nil in stateList.
	modal     *flowModal
	modalItem *messageItem

	spinner     *spinner
	reloading   bool
	reloadAgain bool

	// notice is a list-level error such as a failed reload.
	notice string

	title  string
	width  int
	height int
}

// NewAppModel creates a new AppModel populated from appCtrl.Messages().
func NewAppModel(appCtrl AppController, opts AppModelOptions) *AppModel {
	width := opts.Width
	if width == 0 {
		width = 80
	}
	height := opts.Height
	if height == 0 {
		height = 24
	}
	title := opts.Title
	if title == "" {
		title = "Messages"
	}

	m := &AppModel{
		state:   stateList,
		appCtrl: appCtrl,
		spinner: newSpinner(),
		title:   title,
		width:   width,
		height:  height,
	}
	m.syncItems(appCtrl.Messages())
	return m
}

// --------------------------------------------------------------------------
// tea.Model interface
// --------------------------------------------------------------------------

// Init implements tea.Model.
func (m *AppModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model. It routes incoming messages to the open
// dialog or the list and applies settled flow effects.
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.modal != nil {
			_, cmd := m.modal.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinnerTickMsg:
		return m, m.spinner.tick(m.busy())

	case app.SubmissionSettledEvent:
		return m, m.handleSettled(msg.Settlement)

	case app.ListLoadedEvent:
		m.reloading = false
		m.notice = ""
		m.syncItems(msg.Messages)
		return m, m.reloadQueued()

	case app.ListErrorEvent:
		m.reloading = false
		m.notice = fmt.Sprintf("Could not reload messages: %v", msg.Err)
		return m, m.reloadQueued()
	}

	if m.state == stateModal && m.modal != nil {
		return m.updateModal(msg)
	}

	if key, ok := msg.(tea.KeyPressMsg); ok {
		return m.updateList(key)
	}
	return m, nil
}

// View implements tea.Model.
func (m *AppModel) View() tea.View {
	var parts []string
	parts = append(parts, m.renderHeader())

	if m.notice != "" {
		parts = append(parts, renderErrorBanner(m.notice, m.width))
	}

	if len(m.items) == 0 {
		parts = append(parts, StyleMuted(GetTheme()).Render("  No messages."))
	}
	for i, it := range m.items {
		parts = append(parts, it.render(m.width, i == m.cursor, m.spinner))
	}

	if m.state == stateModal && m.modal != nil {
		parts = append(parts, m.renderSeparator())
		ctl := m.modalItem.ctl
		parts = append(parts, m.modal.Render(ctl.CanConfirm(m.modal.kind), ctl.Valid(m.modal.kind)))
	}

	parts = append(parts, m.renderHelp())
	return tea.NewView(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// --------------------------------------------------------------------------
// List state
// --------------------------------------------------------------------------

func (m *AppModel) updateList(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.detachAll()
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.items)-1, 0)
	case "r":
		return m, m.openFlow(controller.Reply)
	case "e":
		return m, m.openFlow(controller.Edit)
	case "d":
		return m, m.openFlow(controller.Delete)
	case "x", "esc":
		m.dismissError()
	case "R", "ctrl+r":
		return m, m.reload()
	}
	return m, nil
}

// openFlow opens kind on the selected item. Flows the viewer may not use,
// or that are blocked by a pending request, are silently ignored: their
// hints are not rendered or shown disabled.
func (m *AppModel) openFlow(kind controller.Kind) tea.Cmd {
	it := m.selected()
	if it == nil {
		return nil
	}
	if err := it.ctl.Open(kind); err != nil {
		log.Debug("open rejected", "flow", kind, "message", it.id(), "err", err)
		return nil
	}
	m.modal = newFlowModal(kind, it.ctl.Value(kind), m.width)
	m.modalItem = it
	m.state = stateModal
	return m.modal.Init()
}

// dismissError clears the selected item's banner, or the list notice when
// the item has none.
func (m *AppModel) dismissError() {
	if it := m.selected(); it != nil && it.ctl.Error() != "" {
		it.ctl.ClearError()
		return
	}
	m.notice = ""
}

// reload starts a list reload. A request made while one is running is
// queued once, since the running read may predate the change.
func (m *AppModel) reload() tea.Cmd {
	if m.reloading {
		m.reloadAgain = true
		return nil
	}
	m.reloading = true
	m.appCtrl.Reload()
	return m.spinner.start()
}

// reloadQueued starts the reload requested while the last one was running.
func (m *AppModel) reloadQueued() tea.Cmd {
	if !m.reloadAgain {
		return nil
	}
	m.reloadAgain = false
	return m.reload()
}

// --------------------------------------------------------------------------
// Modal state
// --------------------------------------------------------------------------

func (m *AppModel) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctl := m.modalItem.ctl
	kind := m.modal.kind

	res, cmd := m.modal.Update(msg)
	switch msg.(type) {
	case tea.KeyPressMsg, tea.PasteMsg:
		if m.modal.hasInput {
			if err := ctl.Input(kind, m.modal.Value()); err != nil {
				log.Debug("input rejected", "flow", kind, "err", err)
			}
		}
	}
	if res == nil {
		return m, cmd
	}

	if res.cancelled {
		_ = ctl.Cancel(kind)
		m.closeModal()
		return m, nil
	}

	// Confirm is a no-op while the control is disabled.
	if !ctl.CanConfirm(kind) {
		return m, cmd
	}
	sub, err := ctl.Confirm(kind)
	if err != nil {
		log.Debug("confirm rejected", "flow", kind, "message", m.modalItem.id(), "err", err)
		return m, cmd
	}
	m.closeModal()
	m.appCtrl.Submit(sub)
	return m, m.spinner.start()
}

func (m *AppModel) closeModal() {
	m.modal = nil
	m.modalItem = nil
	m.state = stateList
}

// --------------------------------------------------------------------------
// Settled flows
// --------------------------------------------------------------------------

// handleSettled hands the settlement to the controller that produced it and
// applies the resulting effect. Settlements for items that left the list
// are dropped.
func (m *AppModel) handleSettled(s controller.Settlement) tea.Cmd {
	it := m.find(s.MessageID)
	if it == nil {
		log.Debug("settlement for unknown message", "flow", s.Flow, "message", s.MessageID)
		return nil
	}

	eff := it.ctl.Settle(s)
	switch {
	case eff.Stale:
		return nil
	case eff.Deleted != "":
		m.syncItems(m.appCtrl.Messages())
		return nil
	case eff.Navigate != nil:
		return m.navigate(*eff.Navigate)
	}
	return nil
}

// navigate carries out a NavigationCommand. The list target reloads the
// list so edited bodies and new replies come from the server.
func (m *AppModel) navigate(nav controller.NavigationCommand) tea.Cmd {
	switch nav.Target {
	case controller.TargetList:
		return m.reload()
	}
	return nil
}

// --------------------------------------------------------------------------
// Items
// --------------------------------------------------------------------------

// syncItems rebuilds the item list from msgs, reusing controllers by message
// id so that in-flight flows survive a reload. Controllers whose message is
// gone are detached.
func (m *AppModel) syncItems(msgs []message.Message) {
	existing := make(map[string]*messageItem, len(m.items))
	for _, it := range m.items {
		existing[it.id()] = it
	}

	items := make([]*messageItem, 0, len(msgs))
	for _, msg := range msgs {
		if it, ok := existing[msg.ID]; ok {
			it.ctl.SetMessage(msg)
			items = append(items, it)
			delete(existing, msg.ID)
			continue
		}
		items = append(items, newMessageItem(m.appCtrl.NewController(msg)))
	}
	for _, gone := range existing {
		gone.ctl.Detach()
		if m.modalItem == gone {
			m.closeModal()
		}
	}

	m.items = items
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

func (m *AppModel) selected() *messageItem {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	return m.items[m.cursor]
}

func (m *AppModel) find(id string) *messageItem {
	for _, it := range m.items {
		if it.id() == id {
			return it
		}
	}
	return nil
}

// busy reports whether anything is in flight that the spinner should show.
func (m *AppModel) busy() bool {
	if m.reloading {
		return true
	}
	for _, it := range m.items {
		if it.ctl.Pending() {
			return true
		}
	}
	return false
}

func (m *AppModel) detachAll() {
	for _, it := range m.items {
		it.ctl.Detach()
	}
}

// --------------------------------------------------------------------------
// Rendering helpers
// --------------------------------------------------------------------------

func (m *AppModel) renderHeader() string {
	theme := GetTheme()
	left := StyleHeader(theme).Render(m.title) + " " +
		lipgloss.NewStyle().Foreground(theme.Muted).Render(fmt.Sprintf("(%d)", len(m.items)))

	var right string
	if m.reloading {
		right = m.spinner.view("Reloading…")
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right + "\n"
}

func (m *AppModel) renderSeparator() string {
	return lipgloss.NewStyle().Foreground(GetTheme().Muted).Render(repeatRune('─', m.width))
}

func (m *AppModel) renderHelp() string {
	help := "↑/↓ move  r reply  e edit  d delete  x dismiss  R reload  q quit"
	if m.state == stateModal {
		help = ""
	}
	return StyleMuted(GetTheme()).Render(help)
}
