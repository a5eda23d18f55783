package email

import (
	"context"
	"sync"
)

// Recorder is an in-memory Sender that records every send. Tests use it
// to assert on email side effects; FailWith makes every send fail.
type Recorder struct {
	mu       sync.Mutex
	sent     []Message
	FailWith error
}

// NewRecorder creates a recording sender.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records the message, or fails when FailWith is set.
func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of all recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

var _ Sender = (*Recorder)(nil)
