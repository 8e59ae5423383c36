package app

import (
	"sync"

	"github.com/mark3labs/msgkit/internal/message"
)

// MessageStore is a thread-safe in-memory copy of the message list. It is
// replaced wholesale on every reload and shrinks locally when a delete
// succeeds; nothing is ever written back to the source.
type MessageStore struct {
	mu       sync.RWMutex
	messages []message.Message
}

// NewMessageStoreWithMessages creates a MessageStore pre-populated with the
// given messages.
func NewMessageStoreWithMessages(msgs []message.Message) *MessageStore {
	cp := make([]message.Message, len(msgs))
	copy(cp, msgs)
	return &MessageStore{messages: cp}
}

// Replace replaces the entire list with the given slice.
func (s *MessageStore) Replace(msgs []message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]message.Message, len(msgs))
	copy(cp, msgs)
	s.messages = cp
}

// Remove drops the message with the given id. It reports whether a message
// was removed.
func (s *MessageStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the message with the given id.
func (s *MessageStore) Get(id string) (message.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return message.Message{}, false
}

// GetAll returns a snapshot copy of the current list.
// The returned slice is safe to modify without affecting the store.
func (s *MessageStore) GetAll() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := make([]message.Message, len(s.messages))
	copy(cp, s.messages)
	return cp
}
