package types

import (
	"sync"
	"time"
)

// StatusMessage is a user-facing note produced while resolving or refreshing
// a project.
type StatusMessage struct {
	Time    time.Time `json:"time"`
	GroupID string    `json:"group_id,omitempty"`
	Text    string    `json:"text"`
	IsError bool      `json:"is_error"`
}

// StatusSink receives status messages. Implementations must be safe for
// concurrent use because groups are prepared in parallel.
type StatusSink interface {
	Status(msg StatusMessage)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(msg StatusMessage)

// Status calls f(msg).
func (f StatusFunc) Status(msg StatusMessage) {
	f(msg)
}

// DiscardStatus drops every message.
var DiscardStatus StatusSink = StatusFunc(func(StatusMessage) {})

// StatusLog collects messages in memory.
type StatusLog struct {
	mu       sync.Mutex
	messages []StatusMessage
}

// Status appends msg.
func (l *StatusLog) Status(msg StatusMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// Messages returns a copy of the collected messages.
func (l *StatusLog) Messages() []StatusMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StatusMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Errors returns only error messages.
func (l *StatusLog) Errors() []StatusMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []StatusMessage
	for _, m := range l.messages {
		if m.IsError {
			out = append(out, m)
		}
	}
	return out
}
