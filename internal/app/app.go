package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/log"

	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/controller"
	"github.com/mark3labs/msgkit/internal/message"
)

var (
	// ErrNoSource is reported by Reload when no message source is configured.
	ErrNoSource = errors.New("app: no message source configured")

	// ErrUnknownMessage is returned by RunOnce for an id not in the list.
	ErrUnknownMessage = errors.New("app: unknown message")
)

// App is the application-layer orchestrator. It owns the message list, hands
// out one controller per message, and runs submissions and reloads off the
// Bubble Tea update loop.
//
// In interactive mode the caller creates a tea.Program and registers it via
// SetProgram; App then sends events to it as background work completes.
//
// App satisfies the ui.AppController interface defined in internal/ui/model.go:
//
//	Messages() []message.Message
//	Viewer() auth.Viewer
//	NewController(msg message.Message) *controller.Controller
//	Submit(sub *controller.Submission)
//	Reload()
type App struct {
	opts Options

	// store holds the current message list.
	store *MessageStore

	// program is the Bubble Tea program used to send events in interactive mode.
	program *tea.Program

	// mu protects program, inflight, and closed.
	mu       sync.Mutex
	inflight int

	// wg tracks in-flight goroutines; Close() waits on it.
	wg sync.WaitGroup

	// closed is set to true after Close() is called; new Submit() and
	// Reload() calls are silently dropped.
	closed bool

	// rootCtx/rootCancel are used to signal shutdown to all goroutines.
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// New creates a new App with the provided options and pre-loaded messages.
// initialMessages may be nil when the list is loaded later via Reload.
func New(opts Options, initialMessages []message.Message) *App {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &App{
		opts:       opts,
		store:      NewMessageStoreWithMessages(initialMessages),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// SetProgram registers the Bubble Tea program used to send events in
// interactive mode. Must be called before Submit() in interactive mode.
func (a *App) SetProgram(p *tea.Program) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.program = p
}

// --------------------------------------------------------------------------
// AppController interface
// --------------------------------------------------------------------------

// Messages returns a snapshot of the current message list.
//
// Satisfies ui.AppController.
func (a *App) Messages() []message.Message {
	return a.store.GetAll()
}

// Viewer returns the identity controllers are created for.
//
// Satisfies ui.AppController.
func (a *App) Viewer() auth.Viewer {
	return a.opts.Viewer
}

// NewController returns a controller for msg. A successful delete through it
// removes the message from the store; the caller learns about it from the
// Effect returned by Settle.
//
// Satisfies ui.AppController.
func (a *App) NewController(msg message.Message) *controller.Controller {
	return controller.New(a.opts.Viewer, msg, a.opts.Doer,
		controller.WithOnDelete(func(id string) {
			if a.store.Remove(id) {
				log.Debug("message removed", "message", id)
			}
		}),
	)
}

// Submit runs sub in a background goroutine and sends a
// SubmissionSettledEvent when it finishes. It never blocks and never sends
// on the calling goroutine, because it is called from within Bubble Tea's
// Update loop where prog.Send would deadlock.
//
// Satisfies ui.AppController.
func (a *App) Submit(sub *controller.Submission) {
	if sub == nil {
		return
	}
	if !a.start() {
		log.Debug("dropping submission after close", "flow", sub.Flow, "message", sub.MessageID)
		return
	}
	go func() {
		defer a.finish()
		settled := sub.Run(a.rootCtx)
		a.sendEvent(SubmissionSettledEvent{Settlement: settled})
	}()
}

// Reload re-reads the message list from the source in a background
// goroutine. On success the store is replaced and a ListLoadedEvent is sent;
// on failure a ListErrorEvent is sent and the store is left untouched.
//
// Satisfies ui.AppController.
func (a *App) Reload() {
	if !a.start() {
		return
	}
	go func() {
		defer a.finish()
		msgs, err := a.load(a.rootCtx)
		if err != nil {
			log.Warn("reload failed", "err", err)
			a.sendEvent(ListErrorEvent{Err: err})
			return
		}
		a.sendEvent(ListLoadedEvent{Messages: msgs})
	}()
}

// Load reads the message list synchronously and replaces the store. It is
// used once at startup, before the program runs.
func (a *App) Load(ctx context.Context) ([]message.Message, error) {
	return a.load(ctx)
}

// InFlight returns the number of background submissions and reloads that
// have not finished yet.
func (a *App) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inflight
}

// --------------------------------------------------------------------------
// Non-interactive execution
// --------------------------------------------------------------------------

// RunOnce drives one flow for message id synchronously: open, fill in value
// (ignored for delete), confirm, send, settle. It is the non-TUI equivalent
// of the interactive path and goes through the same controller rules, so a
// viewer without the capability or an invalid value is rejected before any
// request is made. A failed request is reported through Effect.Err, not as
// an error.
func (a *App) RunOnce(ctx context.Context, id string, kind controller.Kind, value string) (controller.Effect, error) {
	msg, ok := a.store.Get(id)
	if !ok {
		return controller.Effect{}, fmt.Errorf("%w: %s", ErrUnknownMessage, id)
	}

	ctl := a.NewController(msg)
	defer ctl.Detach()

	if err := ctl.Open(kind); err != nil {
		return controller.Effect{}, err
	}
	if kind != controller.Delete {
		if err := ctl.Input(kind, value); err != nil {
			return controller.Effect{}, err
		}
	}
	sub, err := ctl.Confirm(kind)
	if err != nil {
		return controller.Effect{}, err
	}
	return ctl.Settle(sub.Run(ctx)), nil
}

// --------------------------------------------------------------------------
// Close
// --------------------------------------------------------------------------

// Close signals all background goroutines to stop and waits for them to
// finish. In-flight requests see their context cancelled; their settlements
// are still delivered to the program if it is running.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.rootCancel()
	a.wg.Wait()
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (a *App) load(ctx context.Context) ([]message.Message, error) {
	if a.opts.Source == nil {
		return nil, ErrNoSource
	}
	msgs, err := a.opts.Source.List(ctx)
	if err != nil {
		return nil, err
	}
	a.store.Replace(msgs)
	log.Debug("message list loaded", "count", len(msgs))
	return a.store.GetAll(), nil
}

// start registers a background goroutine. It returns false once the app is
// closed.
func (a *App) start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.inflight++
	a.wg.Add(1)
	return true
}

func (a *App) finish() {
	a.mu.Lock()
	a.inflight--
	a.mu.Unlock()
	a.wg.Done()
}

// sendEvent sends a tea.Msg to the registered program if one is set, or to
// Options.OnEvent otherwise.
// Must NOT be called with a.mu held (to avoid deadlock with the program).
func (a *App) sendEvent(msg tea.Msg) {
	a.mu.Lock()
	prog := a.program
	a.mu.Unlock()
	if prog != nil {
		prog.Send(msg)
		return
	}
	if a.opts.OnEvent != nil {
		a.opts.OnEvent(msg)
	}
}
