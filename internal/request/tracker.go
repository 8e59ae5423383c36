// Package request tracks the lifecycle of the single outstanding API call a
// message item may have: idle, pending, succeeded or failed.
package request

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/mark3labs/msgkit/internal/transport"
)

// ErrBusy is returned when a request is already pending on the tracker.
var ErrBusy = errors.New("request: another request is pending")

// State is the lifecycle position of a Tracker.
type State int

const (
	Idle State = iota
	Pending
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Doer performs a transport request. *transport.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Outcome is the terminal result of one Send.
type Outcome struct {
	// Owner is the flow that issued the request.
	Owner string
	// State is Succeeded or Failed.
	State State
	// Response is set on success.
	Response *transport.Response
	// Message is the display text on failure.
	Message string
	// Err is the underlying error on failure.
	Err error
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.State == Succeeded
}

// Tracker owns the pending/error state for one request at a time. At most
// one owner may hold it while a request is pending; every other Begin or
// Send is rejected with ErrBusy.
//
// A Tracker is safe for concurrent use: Send typically runs off the UI
// goroutine while the UI reads Pending and Err.
type Tracker struct {
	doer Doer

	mu    sync.Mutex
	state State
	owner string
	last  Outcome
}

// NewTracker returns an idle tracker that sends through doer.
func NewTracker(doer Doer) *Tracker {
	return &Tracker{doer: doer}
}

// Begin claims the tracker for owner and moves it to Pending. Any previous
// result, including a visible error, is discarded.
func (t *Tracker) Begin(owner string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Pending {
		return fmt.Errorf("%w (held by %s)", ErrBusy, t.owner)
	}
	t.state = Pending
	t.owner = owner
	t.last = Outcome{}
	return nil
}

// Send performs req for owner. If owner already holds the tracker through
// Begin the claim is reused; otherwise Send claims it first. A Send that
// cannot claim the tracker returns a Failed outcome wrapping ErrBusy without
// touching the tracker's state or issuing a call.
//
// Send never panics past its boundary and always leaves the tracker out of
// Pending.
func (t *Tracker) Send(ctx context.Context, owner string, req transport.Request) (out Outcome) {
	t.mu.Lock()
	switch {
	case t.state == Pending && t.owner != owner:
		held := t.owner
		t.mu.Unlock()
		return Outcome{
			Owner:   owner,
			State:   Failed,
			Message: transport.GenericFailure,
			Err:     fmt.Errorf("%w (held by %s)", ErrBusy, held),
		}
	case t.state != Pending:
		t.state = Pending
		t.owner = owner
		t.last = Outcome{}
	}
	t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error("request panicked", "owner", owner, "panic", r)
			out = Outcome{
				Owner:   owner,
				State:   Failed,
				Message: transport.GenericFailure,
				Err:     fmt.Errorf("request panicked: %v", r),
			}
		}
		t.settle(out)
	}()

	resp, err := t.doer.Do(ctx, req)
	if err != nil {
		log.Debug("request failed", "owner", owner, "method", req.Method, "path", req.Path, "err", err)
		return Outcome{
			Owner:   owner,
			State:   Failed,
			Message: transport.Message(err),
			Err:     err,
		}
	}
	return Outcome{
		Owner:    owner,
		State:    Succeeded,
		Response: resp,
	}
}

// settle records out as the latest result and clears Pending.
func (t *Tracker) settle(out Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = out.State
	t.last = out
}

// ClearError resets a failed tracker to idle. It is a no-op in any other
// state, so calling it repeatedly is harmless.
func (t *Tracker) ClearError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Failed {
		return
	}
	t.state = Idle
	t.owner = ""
	t.last = Outcome{}
}

// Pending reports whether a request is in flight.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Pending
}

// Err returns the failure text of the last request, or "" when the tracker
// is not in the Failed state.
func (t *Tracker) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Failed {
		return ""
	}
	return t.last.Message
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Owner returns the flow holding or last holding the tracker.
func (t *Tracker) Owner() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.owner
}

// Last returns the most recent terminal outcome.
func (t *Tracker) Last() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
