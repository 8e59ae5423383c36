package auth

import (
	"strings"

	"github.com/mark3labs/msgkit/internal/message"
)

// Capability is a permission bit derived from the viewer and a message.
type Capability uint8

const (
	CanReply Capability = 1 << iota
	CanEdit
	CanDelete
)

// Set is a combination of capabilities. The zero Set allows nothing.
type Set Capability

// Has reports whether c is in the set.
func (s Set) Has(c Capability) bool {
	return Capability(s)&c != 0
}

// Empty reports whether no capability is granted.
func (s Set) Empty() bool {
	return s == 0
}

func (s Set) String() string {
	var parts []string
	if s.Has(CanReply) {
		parts = append(parts, "reply")
	}
	if s.Has(CanEdit) {
		parts = append(parts, "edit")
	}
	if s.Has(CanDelete) {
		parts = append(parts, "delete")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Capabilities returns what viewer may do with msg:
//   - reply when the viewer owns the message and no reply exists yet;
//   - edit and delete when the viewer created the message.
//
// An anonymous viewer gets nothing. The result is a pure function of its
// inputs and is meant to be recomputed on every render.
func Capabilities(viewer Viewer, msg message.Message) Set {
	if !viewer.Authenticated() {
		return 0
	}
	var s Capability
	if viewer.ID == msg.OwnerID && !msg.HasReply() {
		s |= CanReply
	}
	if viewer.ID == msg.CreatorID {
		s |= CanEdit | CanDelete
	}
	return Set(s)
}
