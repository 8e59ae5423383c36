package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/msgkit/internal/auth"
	"github.com/mark3labs/msgkit/internal/message"
	"github.com/mark3labs/msgkit/internal/request"
	"github.com/mark3labs/msgkit/internal/transport"
)

// --------------------------------------------------------------------------
// Stubs
// --------------------------------------------------------------------------

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// recordedCall captures what reached the wire.
type recordedCall struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// stubServer answers every request with status and body and records it.
type stubServer struct {
	mu     sync.Mutex
	status int
	body   string
	calls  []recordedCall
}

func (s *stubServer) client() *transport.Client {
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		call := recordedCall{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &call.Body)
		}
		s.mu.Lock()
		s.calls = append(s.calls, call)
		status, body := s.status, s.body
		s.mu.Unlock()
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})}
	return transport.New("http://api.test", transport.WithHTTPClient(hc))
}

func (s *stubServer) Calls() []recordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedCall(nil), s.calls...)
}

func newServer(status int, body string) *stubServer {
	return &stubServer{status: status, body: body}
}

var (
	creator = auth.Viewer{ID: "u1", Token: "tok"}
	owner   = auth.Viewer{ID: "u2", Token: "tok2"}
	other   = auth.Viewer{ID: "u3", Token: "tok3"}
	msg     = message.Message{ID: "m1", Body: "hi", OwnerID: "u2", CreatorID: "u1"}
)

// --------------------------------------------------------------------------
// Transition law
// --------------------------------------------------------------------------

func TestTransitionLaw(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	c := New(creator, msg, srv.client())

	if got := c.State(Edit); got != Closed {
		t.Fatalf("initial state = %v, want closed", got)
	}

	// Closed rejects everything but Open.
	if err := c.Cancel(Edit); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Cancel from closed: err = %v", err)
	}
	if _, err := c.Confirm(Edit); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Confirm from closed: err = %v", err)
	}
	if err := c.Input(Edit, "x"); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Input while closed: err = %v", err)
	}
	if got := c.State(Edit); got != Closed {
		t.Fatalf("state changed after rejected ops: %v", got)
	}

	// Closed -> Confirming -> Closed.
	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !c.ModalVisible(Edit) {
		t.Fatal("modal should be visible while confirming")
	}
	if err := c.Open(Edit); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Open from confirming: err = %v", err)
	}
	if err := c.Cancel(Edit); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if c.ModalVisible(Edit) {
		t.Fatal("modal should be hidden after cancel")
	}

	// Closed -> Confirming -> Submitting -> Closed.
	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	sub, err := c.Confirm(Edit)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got := c.State(Edit); got != Submitting {
		t.Fatalf("state after confirm = %v, want submitting", got)
	}
	if c.ModalVisible(Edit) {
		t.Fatal("modal should be dismissed on confirm")
	}
	if !c.Pending() {
		t.Fatal("tracker should be pending after confirm")
	}

	// Submitting rejects everything but Settle.
	if err := c.Open(Edit); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Open from submitting: err = %v", err)
	}
	if err := c.Cancel(Edit); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Cancel from submitting: err = %v", err)
	}
	if _, err := c.Confirm(Edit); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Confirm from submitting: err = %v", err)
	}

	eff := c.Settle(sub.Run(context.Background()))
	if eff.Stale {
		t.Fatal("settlement unexpectedly stale")
	}
	if got := c.State(Edit); got != Closed {
		t.Fatalf("state after settle = %v, want closed", got)
	}
	if c.Pending() {
		t.Fatal("tracker still pending after settle")
	}
}

func TestOpenRequiresCapability(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	c := New(other, msg, srv.client())

	for _, k := range Kinds {
		if err := c.Open(k); !errors.Is(err, ErrNotAllowed) {
			t.Errorf("Open(%s) by stranger: err = %v, want ErrNotAllowed", k, err)
		}
		if c.State(k) != Closed {
			t.Errorf("%s state changed after denied open", k)
		}
	}
}

func TestUnknownFlow(t *testing.T) {
	c := New(creator, msg, newServer(http.StatusOK, `{}`).client())
	if err := c.Open(Kind(42)); !errors.Is(err, ErrUnknownFlow) {
		t.Fatalf("err = %v, want ErrUnknownFlow", err)
	}
	if c.CanConfirm(Kind(42)) {
		t.Fatal("unknown flow should never be confirmable")
	}
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

// Whitespace-only edit keeps confirm disabled and never reaches the server.
func TestScenarioWhitespaceEditIsNotSent(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	c := New(creator, msg, srv.client())

	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !c.CanConfirm(Edit) {
		t.Fatal("seeded body should be confirmable")
	}
	if err := c.Input(Edit, "   "); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if c.CanConfirm(Edit) {
		t.Fatal("confirm should be disabled for whitespace")
	}
	if c.Valid(Edit) {
		t.Fatal("form should be invalid")
	}
	if _, err := c.Confirm(Edit); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Confirm: err = %v, want ErrInvalid", err)
	}
	if got := c.State(Edit); got != Confirming {
		t.Fatalf("state = %v, want confirming", got)
	}
	if c.Pending() {
		t.Fatal("invalid confirm must not claim the tracker")
	}
	if n := len(srv.Calls()); n != 0 {
		t.Fatalf("server saw %d calls, want 0", n)
	}
}

// Over-long bodies invalidate the form instead of being shortened.
func TestOverLongBodyIsInvalid(t *testing.T) {
	long := strings.Repeat("a", MaxBodyLength+1)
	srv := newServer(http.StatusOK, `{}`)
	c := New(creator, message.Message{ID: "m1", Body: long, OwnerID: "u2", CreatorID: "u1"}, srv.client())

	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := c.Value(Edit); got != long {
		t.Fatalf("seeded value has %d runes, want %d", len([]rune(got)), len(long))
	}
	if c.CanConfirm(Edit) {
		t.Fatal("confirm should be disabled for an over-long body")
	}
	if _, err := c.Confirm(Edit); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Confirm: err = %v, want ErrInvalid", err)
	}

	if err := c.Input(Edit, strings.Repeat("b", MaxBodyLength)); err != nil {
		t.Fatalf("Input: %v", err)
	}
	if !c.CanConfirm(Edit) {
		t.Fatal("a body of exactly MaxBodyLength runes should be confirmable")
	}
	if n := len(srv.Calls()); n != 0 {
		t.Fatalf("server saw %d calls, want 0", n)
	}
}

// Failed delete closes the flow, surfaces the server message and never
// reports the deletion.
func TestScenarioDeleteFailure(t *testing.T) {
	srv := newServer(http.StatusInternalServerError, `{"message":"server error"}`)
	deleted := 0
	c := New(creator, msg, srv.client(), WithOnDelete(func(string) { deleted++ }))

	if err := c.Open(Delete); err != nil {
		t.Fatalf("Open: %v", err)
	}
	sub, err := c.Confirm(Delete)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	eff := c.Settle(sub.Run(context.Background()))

	if eff.Err != "server error" {
		t.Errorf("effect Err = %q, want %q", eff.Err, "server error")
	}
	if eff.Deleted != "" || eff.Navigate != nil {
		t.Errorf("failure effect carries success fields: %+v", eff)
	}
	if got := c.State(Delete); got != Closed {
		t.Errorf("state = %v, want closed", got)
	}
	if got := c.Error(); got != "server error" {
		t.Errorf("Error() = %q, want %q", got, "server error")
	}
	if deleted != 0 {
		t.Errorf("onDelete called %d times, want 0", deleted)
	}

	calls := srv.Calls()
	if len(calls) != 1 {
		t.Fatalf("server saw %d calls, want 1", len(calls))
	}
	if calls[0].Method != http.MethodDelete || calls[0].Path != "/messages/message" {
		t.Errorf("call = %s %s", calls[0].Method, calls[0].Path)
	}
	if calls[0].Body["messageId"] != "m1" {
		t.Errorf("body = %v", calls[0].Body)
	}
}

// Only the owner sees reply, and only while no reply exists.
func TestScenarioReplyVisibility(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)

	ownerCtl := New(owner, msg, srv.client())
	if !ownerCtl.Capabilities().Has(auth.CanReply) {
		t.Fatal("owner should be able to reply")
	}
	if ownerCtl.Capabilities().Has(auth.CanEdit) || ownerCtl.Capabilities().Has(auth.CanDelete) {
		t.Fatal("owner is not the creator and must not edit or delete")
	}

	strangerCtl := New(other, msg, srv.client())
	if !strangerCtl.Capabilities().Empty() {
		t.Fatalf("stranger capabilities = %v, want none", strangerCtl.Capabilities())
	}

	replied := msg
	replied.Reply = "thanks"
	ownerCtl.SetMessage(replied)
	if ownerCtl.Capabilities().Has(auth.CanReply) {
		t.Fatal("reply must be hidden once a reply exists")
	}
	if err := ownerCtl.Open(Reply); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("Open(reply) after reply: err = %v", err)
	}
}

// Successful edit sends the expected payload and asks for navigation
// without patching the local message.
func TestScenarioEditSuccess(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	c := New(creator, msg, srv.client())

	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Input(Edit, "hello"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	sub, err := c.Confirm(Edit)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	eff := c.Settle(sub.Run(context.Background()))

	if eff.Navigate == nil || eff.Navigate.Target != TargetList {
		t.Fatalf("effect = %+v, want navigation to list", eff)
	}
	if eff.Err != "" {
		t.Errorf("unexpected error %q", eff.Err)
	}
	if c.Message().Body != "hi" {
		t.Errorf("local body = %q, must not be patched", c.Message().Body)
	}

	calls := srv.Calls()
	if len(calls) != 1 {
		t.Fatalf("server saw %d calls, want 1", len(calls))
	}
	call := calls[0]
	if call.Method != http.MethodPatch || call.Path != "/messages/message" {
		t.Errorf("call = %s %s", call.Method, call.Path)
	}
	if call.Auth != "Bearer tok" {
		t.Errorf("Authorization = %q", call.Auth)
	}
	if call.Body["msgBody"] != "hello" || call.Body["messageId"] != "m1" {
		t.Errorf("body = %v", call.Body)
	}
}

func TestReplySuccessNavigates(t *testing.T) {
	srv := newServer(http.StatusCreated, `{}`)
	c := New(owner, msg, srv.client())

	if err := c.Open(Reply); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.CanConfirm(Reply) {
		t.Fatal("empty reply must not be confirmable")
	}
	if err := c.Input(Reply, "thanks"); err != nil {
		t.Fatalf("Input: %v", err)
	}
	sub, err := c.Confirm(Reply)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	eff := c.Settle(sub.Run(context.Background()))
	if eff.Navigate == nil {
		t.Fatalf("effect = %+v, want navigation", eff)
	}

	call := srv.Calls()[0]
	if call.Method != http.MethodPost || call.Path != "/messages/reply" {
		t.Errorf("call = %s %s", call.Method, call.Path)
	}
	if call.Body["replyBody"] != "thanks" || call.Body["messageId"] != "m1" {
		t.Errorf("body = %v", call.Body)
	}
}

func TestDeleteSuccessCallsOnDeleteOnce(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	var ids []string
	c := New(creator, msg, srv.client(), WithOnDelete(func(id string) { ids = append(ids, id) }))

	if err := c.Open(Delete); err != nil {
		t.Fatalf("Open: %v", err)
	}
	sub, err := c.Confirm(Delete)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	set := sub.Run(context.Background())
	eff := c.Settle(set)
	if eff.Deleted != "m1" {
		t.Errorf("Deleted = %q, want m1", eff.Deleted)
	}

	// A duplicate settlement is stale and must not report again.
	if again := c.Settle(set); !again.Stale {
		t.Errorf("duplicate settlement not marked stale: %+v", again)
	}
	if len(ids) != 1 || ids[0] != "m1" {
		t.Fatalf("onDelete calls = %v, want [m1]", ids)
	}
}

// --------------------------------------------------------------------------
// Exclusivity and lifecycle
// --------------------------------------------------------------------------

func TestPendingRequestBlocksOtherFlows(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	c := New(creator, msg, srv.client())

	// Delete is opened first and stays in Confirming.
	if err := c.Open(Delete); err != nil {
		t.Fatalf("Open(delete): %v", err)
	}
	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open(edit): %v", err)
	}
	sub, err := c.Confirm(Edit)
	if err != nil {
		t.Fatalf("Confirm(edit): %v", err)
	}

	if c.CanConfirm(Delete) {
		t.Error("delete confirm should be disabled while edit is pending")
	}
	if _, err := c.Confirm(Delete); !errors.Is(err, request.ErrBusy) {
		t.Errorf("Confirm(delete): err = %v, want ErrBusy", err)
	}
	if got := c.State(Delete); got != Confirming {
		t.Errorf("delete state = %v, want confirming", got)
	}

	c.Settle(sub.Run(context.Background()))
	if !c.CanConfirm(Delete) {
		t.Error("delete confirm should be enabled once edit settles")
	}
	if n := len(srv.Calls()); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestOpenWhilePendingIsBusy(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	c := New(creator, msg, srv.client())

	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.Confirm(Edit); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := c.Open(Delete); !errors.Is(err, request.ErrBusy) {
		t.Fatalf("Open(delete): err = %v, want ErrBusy", err)
	}
}

func TestEditReseededOnEveryOpen(t *testing.T) {
	c := New(creator, msg, newServer(http.StatusOK, `{}`).client())

	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := c.Value(Edit); got != "hi" {
		t.Fatalf("seeded value = %q, want hi", got)
	}
	_ = c.Input(Edit, "draft")
	_ = c.Cancel(Edit)

	updated := msg
	updated.Body = "fresh"
	c.SetMessage(updated)
	if err := c.Open(Edit); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := c.Value(Edit); got != "fresh" {
		t.Fatalf("value after reopen = %q, want fresh", got)
	}
}

func TestReplyClearedOnEveryOpen(t *testing.T) {
	c := New(owner, msg, newServer(http.StatusOK, `{}`).client())

	_ = c.Open(Reply)
	_ = c.Input(Reply, "draft")
	_ = c.Cancel(Reply)
	_ = c.Open(Reply)
	if got := c.Value(Reply); got != "" {
		t.Fatalf("reply value = %q, want empty", got)
	}
}

func TestDetachDropsSettlement(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	deleted := 0
	c := New(creator, msg, srv.client(), WithOnDelete(func(string) { deleted++ }))

	_ = c.Open(Delete)
	sub, err := c.Confirm(Delete)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	c.Detach()

	eff := c.Settle(sub.Run(context.Background()))
	if !eff.Stale {
		t.Fatalf("effect = %+v, want stale", eff)
	}
	if eff.Deleted != "" || eff.Navigate != nil || eff.Err != "" {
		t.Fatalf("stale effect carries data: %+v", eff)
	}
	if deleted != 0 {
		t.Fatalf("onDelete called %d times after detach", deleted)
	}
	if err := c.Open(Edit); !errors.Is(err, ErrDetached) {
		t.Fatalf("Open after detach: err = %v", err)
	}
}

func TestClearErrorIsIdempotent(t *testing.T) {
	srv := newServer(http.StatusBadRequest, `{"message":"nope"}`)
	c := New(creator, msg, srv.client())

	_ = c.Open(Delete)
	sub, _ := c.Confirm(Delete)
	c.Settle(sub.Run(context.Background()))
	if c.Error() != "nope" {
		t.Fatalf("Error() = %q, want nope", c.Error())
	}

	c.ClearError()
	c.ClearError()
	if c.Error() != "" {
		t.Fatalf("Error() after clear = %q", c.Error())
	}
	if c.Pending() {
		t.Fatal("clear must not mark the tracker pending")
	}
}

func TestSharedTracker(t *testing.T) {
	srv := newServer(http.StatusOK, `{}`)
	tr := request.NewTracker(srv.client())
	a := New(creator, msg, nil, WithTracker(tr))
	b := New(creator, message.Message{ID: "m2", CreatorID: "u1"}, nil, WithTracker(tr))

	_ = a.Open(Delete)
	if _, err := a.Confirm(Delete); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := b.Open(Delete); !errors.Is(err, request.ErrBusy) {
		t.Fatalf("second controller Open: err = %v, want ErrBusy", err)
	}
}

func TestKindAndStateStrings(t *testing.T) {
	for k, want := range map[Kind]string{Edit: "edit", Delete: "delete", Reply: "reply"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
	for s, want := range map[State]string{Closed: "closed", Confirming: "confirming", Submitting: "submitting"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
