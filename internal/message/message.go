// Package message defines the message entity shown in the list and the
// fixed request shapes used to mutate it.
package message

// Message is a single board entry. The core treats it as read-only: edits
// go to the server and the list is reloaded afterwards.
type Message struct {
	ID        string `json:"id" yaml:"id"`
	Body      string `json:"msgBody" yaml:"body"`
	Reply     string `json:"reply,omitempty" yaml:"reply,omitempty"`
	OwnerID   string `json:"ownerId" yaml:"owner"`
	CreatorID string `json:"creatorId" yaml:"creator"`
}

// HasReply reports whether a reply is already attached.
func (m Message) HasReply() bool {
	return m.Reply != ""
}
