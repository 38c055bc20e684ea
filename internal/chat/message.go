// Package chat implements the CV chat client: connectivity status, the
// question/answer exchange with a remote inference endpoint, and the staged
// rendering of answers into an append-only transcript.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the connectivity state shown by the status indicator.
type Status int

const (
	StatusUnknown Status = iota
	StatusTesting
	StatusOnline
	StatusOffline
)

func (s Status) String() string {
	switch s {
	case StatusTesting:
		return "testing"
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Message is one turn of the visible transcript.
type Message struct {
	ID        string      `json:"id"`
	Sender    Sender      `json:"sender"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
	IsError   bool        `json:"is_error"`
	Failure   FailureKind `json:"failure,omitempty"`
}

// Transcript is append-only and ordered by arrival.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// Append stores m, filling in ID and Timestamp when unset, and returns the
// stored copy.
func (t *Transcript) Append(m Message) Message {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m)
	return m
}

func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cp := make([]Message, len(t.messages))
	copy(cp, t.messages)
	return cp
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
