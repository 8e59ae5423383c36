// Package controller implements the interaction logic behind a single
// message item: three confirm-then-submit flows (edit, delete, reply), each
// gated by a capability check, form validation, and one shared request
// tracker.
//
// A Controller is driven from a single event loop. The only work that may
// run elsewhere is Submission.Run, which touches nothing but the tracker.
package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/form"
	"github.com/mark3labs/msgkit/internal/message"
	"github.com/mark3labs/msgkit/internal/request"
	"github.com/mark3labs/msgkit/internal/transport"
	"github.com/mark3labs/msgkit/internal/validate"
)

var (
	// ErrIllegalTransition is returned when an operation is not valid for
	// the flow's current state. The state is left unchanged.
	ErrIllegalTransition = errors.New("controller: illegal transition")

	// ErrNotAllowed is returned when the viewer lacks the capability for
	// the requested flow.
	ErrNotAllowed = errors.New("controller: action not allowed")

	// ErrInvalid is returned by Confirm when the flow's form fails
	// validation.
	ErrInvalid = errors.New("controller: form is invalid")

	// ErrDetached is returned after Detach.
	ErrDetached = errors.New("controller: detached")

	// ErrUnknownFlow is returned for a Kind outside Edit, Delete, Reply.
	ErrUnknownFlow = errors.New("controller: unknown flow")
)

// Form field names, matching the request payload keys.
const (
	FieldMsgBody   = "msgBody"
	FieldReplyBody = "replyBody"
)

// MaxBodyLength is the longest message or reply body, in runes, that a flow
// accepts. Longer input makes the form invalid; it is never cut.
const MaxBodyLength = 2000

// bodyRules validate both the edit and the reply field.
var bodyRules = []validate.Rule{validate.Required, validate.MaxLength(MaxBodyLength)}

// Kind identifies one of the three flows.
type Kind int

const (
	Edit Kind = iota
	Delete
	Reply
)

// Kinds lists every flow in display order.
var Kinds = []Kind{Edit, Delete, Reply}

func (k Kind) String() string {
	switch k {
	case Edit:
		return "edit"
	case Delete:
		return "delete"
	case Reply:
		return "reply"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// capability returns the permission bit gating k.
func (k Kind) capability() auth.Capability {
	switch k {
	case Edit:
		return auth.CanEdit
	case Delete:
		return auth.CanDelete
	default:
		return auth.CanReply
	}
}

// State is the position of one flow.
type State int

const (
	// Closed: no modal, nothing in flight for this flow.
	Closed State = iota
	// Confirming: the confirmation modal is shown.
	Confirming
	// Submitting: the modal is dismissed and the request is in flight.
	Submitting
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Confirming:
		return "confirming"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Target names a view the caller should navigate to.
type Target int

const (
	// TargetList is the message list. Navigating to it reloads the list
	// from the server; the controller never patches its message locally.
	TargetList Target = iota
)

func (t Target) String() string {
	if t == TargetList {
		return "list"
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// NavigationCommand asks the caller to navigate after a successful flow.
type NavigationCommand struct {
	Target Target
}

// Effect is what a settled flow asks of its caller.
type Effect struct {
	Flow Kind
	// Navigate is set after a successful edit or reply.
	Navigate *NavigationCommand
	// Deleted carries the message id after a successful delete.
	Deleted string
	// Err is the banner text after a failure.
	Err string
	// Stale is true when the settlement belonged to an abandoned flow and
	// was dropped.
	Stale bool
}

// Submission is a confirmed flow waiting for its request to run.
type Submission struct {
	Flow      Kind
	MessageID string
	Request   transport.Request

	seq     uint64
	tracker *request.Tracker
}

// Run sends the request and blocks until it settles. It is safe to call
// off the controller's event loop.
func (s *Submission) Run(ctx context.Context) Settlement {
	out := s.tracker.Send(ctx, s.Flow.String(), s.Request)
	return Settlement{Flow: s.Flow, MessageID: s.MessageID, Outcome: out, seq: s.seq}
}

// Settlement is the result of Submission.Run, handed back to Settle.
type Settlement struct {
	Flow      Kind
	MessageID string
	Outcome   request.Outcome

	seq uint64
}

type flow struct {
	state State
	seq   uint64
	// form is nil for delete, which has nothing to fill in.
	form  *form.Form
	field string
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnDelete registers the callback invoked exactly once after a
// successful delete. It is never invoked on failure.
func WithOnDelete(fn func(messageID string)) Option {
	return func(c *Controller) {
		c.onDelete = fn
	}
}

// WithTracker supplies the request tracker instead of creating one from the
// doer passed to New.
func WithTracker(t *request.Tracker) Option {
	return func(c *Controller) {
		c.tracker = t
	}
}

// Controller owns the flows for one message.
type Controller struct {
	viewer   auth.Viewer
	msg      message.Message
	tracker  *request.Tracker
	flows    map[Kind]*flow
	onDelete func(string)
	seq      uint64
	detached bool
}

// New returns a Controller for msg as seen by viewer. Requests go through
// doer unless WithTracker is given.
func New(viewer auth.Viewer, msg message.Message, doer request.Doer, opts ...Option) *Controller {
	c := &Controller{
		viewer: viewer,
		msg:    msg,
		flows: map[Kind]*flow{
			Edit: {
				field: FieldMsgBody,
				form: form.New(map[string]form.Field{
					FieldMsgBody: {Value: msg.Body, Valid: validate.Valid(msg.Body, bodyRules...), Rules: bodyRules},
				}),
			},
			Delete: {},
			Reply: {
				field: FieldReplyBody,
				form: form.New(map[string]form.Field{
					FieldReplyBody: {Rules: bodyRules},
				}),
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracker == nil {
		c.tracker = request.NewTracker(doer)
	}
	return c
}

func (c *Controller) flow(k Kind) (*flow, error) {
	f, ok := c.flows[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFlow, int(k))
	}
	return f, nil
}

// Capabilities returns what the viewer may do with the current message.
func (c *Controller) Capabilities() auth.Set {
	return auth.Capabilities(c.viewer, c.msg)
}

// Message returns the message snapshot the controller works on.
func (c *Controller) Message() message.Message {
	return c.msg
}

// SetMessage replaces the message snapshot, for example after the list is
// reloaded. Open flows keep their form contents.
func (c *Controller) SetMessage(msg message.Message) {
	c.msg = msg
}

// State returns the state of flow k. Unknown kinds read as Closed.
func (c *Controller) State(k Kind) State {
	f, err := c.flow(k)
	if err != nil {
		return Closed
	}
	return f.state
}

// ModalVisible reports whether the confirmation modal for k is shown.
func (c *Controller) ModalVisible(k Kind) bool {
	return c.State(k) == Confirming
}

// Active returns the first flow that is not Closed.
func (c *Controller) Active() (Kind, bool) {
	for _, k := range Kinds {
		if c.flows[k].state != Closed {
			return k, true
		}
	}
	return 0, false
}

// Pending reports whether a request from any flow is in flight.
func (c *Controller) Pending() bool {
	return c.tracker.Pending()
}

// Error returns the banner text of the last failed request, or "".
func (c *Controller) Error() string {
	return c.tracker.Err()
}

// ClearError dismisses the error banner.
func (c *Controller) ClearError() {
	c.tracker.ClearError()
}

// Value returns the current form value of flow k ("" for delete).
func (c *Controller) Value(k Kind) string {
	f, err := c.flow(k)
	if err != nil || f.form == nil {
		return ""
	}
	return f.form.Value(f.field)
}

// Valid reports whether the form of flow k passes validation. Delete has no
// form and is always valid.
func (c *Controller) Valid(k Kind) bool {
	f, err := c.flow(k)
	if err != nil {
		return false
	}
	if f.form == nil {
		return true
	}
	return f.form.Valid()
}

// Open moves flow k from Closed to Confirming. It requires the matching
// capability and an idle tracker. The edit field is re-seeded with the
// current message body and the reply field is cleared.
func (c *Controller) Open(k Kind) error {
	f, err := c.flow(k)
	if err != nil {
		return err
	}
	if c.detached {
		return ErrDetached
	}
	if f.state != Closed {
		return fmt.Errorf("%w: open %s from %s", ErrIllegalTransition, k, f.state)
	}
	if !c.Capabilities().Has(k.capability()) {
		return fmt.Errorf("%w: %s", ErrNotAllowed, k)
	}
	if c.tracker.Pending() {
		return fmt.Errorf("open %s: %w", k, request.ErrBusy)
	}

	switch k {
	case Edit:
		_ = f.form.Reset(f.field, c.msg.Body)
	case Reply:
		_ = f.form.Reset(f.field, "")
	}
	f.state = Confirming
	log.Debug("flow opened", "flow", k, "message", c.msg.ID)
	return nil
}

// Cancel moves flow k from Confirming back to Closed.
func (c *Controller) Cancel(k Kind) error {
	f, err := c.flow(k)
	if err != nil {
		return err
	}
	if f.state != Confirming {
		return fmt.Errorf("%w: cancel %s from %s", ErrIllegalTransition, k, f.state)
	}
	f.state = Closed
	log.Debug("flow cancelled", "flow", k, "message", c.msg.ID)
	return nil
}

// Input records a keystroke-equivalent change to the form of flow k.
func (c *Controller) Input(k Kind, value string) error {
	f, err := c.flow(k)
	if err != nil {
		return err
	}
	if f.state != Confirming {
		return fmt.Errorf("%w: input to %s while %s", ErrIllegalTransition, k, f.state)
	}
	if f.form == nil {
		return fmt.Errorf("%w: %s has no input", ErrIllegalTransition, k)
	}
	return f.form.Set(f.field, value)
}

// CanConfirm reports whether the confirm control of flow k is enabled.
func (c *Controller) CanConfirm(k Kind) bool {
	f, err := c.flow(k)
	if err != nil || c.detached {
		return false
	}
	return f.state == Confirming &&
		c.Valid(k) &&
		c.Capabilities().Has(k.capability()) &&
		!c.tracker.Pending()
}

// Confirm moves flow k from Confirming to Submitting and claims the
// tracker. The modal is dismissed immediately; the returned Submission must
// be run and its Settlement passed to Settle.
func (c *Controller) Confirm(k Kind) (*Submission, error) {
	f, err := c.flow(k)
	if err != nil {
		return nil, err
	}
	if c.detached {
		return nil, ErrDetached
	}
	if f.state != Confirming {
		return nil, fmt.Errorf("%w: confirm %s from %s", ErrIllegalTransition, k, f.state)
	}
	if !c.Valid(k) {
		return nil, fmt.Errorf("confirm %s: %w", k, ErrInvalid)
	}
	if !c.Capabilities().Has(k.capability()) {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, k)
	}
	if err := c.tracker.Begin(k.String()); err != nil {
		return nil, fmt.Errorf("confirm %s: %w", k, err)
	}

	var req transport.Request
	switch k {
	case Edit:
		req = message.EditRequest(c.msg.ID, f.form.Value(f.field), c.viewer.Token)
	case Delete:
		req = message.DeleteRequest(c.msg.ID, c.viewer.Token)
	case Reply:
		req = message.ReplyRequest(c.msg.ID, f.form.Value(f.field), c.viewer.Token)
	}

	c.seq++
	f.seq = c.seq
	f.state = Submitting
	log.Debug("flow submitting", "flow", k, "message", c.msg.ID, "seq", f.seq)

	return &Submission{
		Flow:      k,
		MessageID: c.msg.ID,
		Request:   req,
		seq:       f.seq,
		tracker:   c.tracker,
	}, nil
}

// Settle returns the submitting flow to Closed and reports what the caller
// should do next. Settlements for a detached controller, a flow that is no
// longer submitting, or an older submission are dropped with Stale set.
func (c *Controller) Settle(s Settlement) Effect {
	f, err := c.flow(s.Flow)
	if err != nil || c.detached || f.state != Submitting || f.seq != s.seq {
		log.Debug("dropping stale settlement", "flow", s.Flow, "message", s.MessageID, "detached", c.detached)
		return Effect{Flow: s.Flow, Stale: true}
	}

	f.state = Closed

	if !s.Outcome.OK() {
		log.Warn("flow failed", "flow", s.Flow, "message", s.MessageID, "err", s.Outcome.Err)
		return Effect{Flow: s.Flow, Err: s.Outcome.Message}
	}

	log.Debug("flow succeeded", "flow", s.Flow, "message", s.MessageID)
	switch s.Flow {
	case Delete:
		if c.onDelete != nil {
			c.onDelete(s.MessageID)
		}
		return Effect{Flow: s.Flow, Deleted: s.MessageID}
	default:
		return Effect{Flow: s.Flow, Navigate: &NavigationCommand{Target: TargetList}}
	}
}

// Detach marks the controller as unmounted. Later settlements are dropped
// and never reach OnDelete; in-flight requests are not cancelled.
func (c *Controller) Detach() {
	c.detached = true
}

// Detached reports whether Detach was called.
func (c *Controller) Detached() bool {
	return c.detached
}
