package message

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source supplies the messages shown in the list. The list is re-read from
// it whenever a flow navigates back to the list view.
type Source interface {
	List(ctx context.Context) ([]Message, error)
}

// fileDocument is the on-disk layout read by FileSource.
type fileDocument struct {
	Messages []Message `yaml:"messages"`
}

// FileSource reads messages from a YAML document of the form
//
//	messages:
//	  - id: m1
//	    body: hello
//	    owner: u1
//	    creator: u2
//
// The file is re-read on every List call so external updates show up on
// the next refresh.
type FileSource struct {
	Path string
}

// List implements Source.
func (s FileSource) List(_ context.Context) ([]Message, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse messages file %s: %w", s.Path, err)
	}
	for i, m := range doc.Messages {
		if m.ID == "" {
			return nil, fmt.Errorf("message %d in %s has no id", i, s.Path)
		}
	}
	return doc.Messages, nil
}

// StaticSource serves a fixed in-memory list. It is safe for concurrent use.
type StaticSource struct {
	mu       sync.RWMutex
	messages []Message
}

// NewStaticSource returns a StaticSource holding a copy of msgs.
func NewStaticSource(msgs []Message) *StaticSource {
	s := &StaticSource{}
	s.Replace(msgs)
	return s
}

// Replace swaps the served list.
func (s *StaticSource) Replace(msgs []Message) {
	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	s.mu.Lock()
	s.messages = cp
	s.mu.Unlock()
}

// List implements Source. The returned slice is a copy.
func (s *StaticSource) List(_ context.Context) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]Message, len(s.messages))
	copy(cp, s.messages)
	return cp, nil
}
