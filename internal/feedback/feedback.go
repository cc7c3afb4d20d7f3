// Package feedback delivers user-visible messages for state-changing
// operations. Stores report outcomes through a Notifier; rendering is
// left to the frontend (console for the CLI, a recorder in tests).
package feedback

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level classifies a feedback message.
type Level string

// Feedback levels.
const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier receives user-facing messages. Implementations must be safe
// for concurrent use; the notification poller reports from its own
// goroutine.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Console writes messages to a writer, one line per message.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console notifier. A nil writer defaults to stderr.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{w: w}
}

func (c *Console) Success(msg string) { c.write("✓", msg) }

func (c *Console) Error(msg string) { c.write("✗", msg) }

func (c *Console) Info(msg string) { c.write("•", msg) }

func (c *Console) write(prefix, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", prefix, msg)
}

// Event is a recorded feedback message.
type Event struct {
	Level   Level
	Message string
}

// Recorder captures messages for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(msg string) { r.record(LevelSuccess, msg) }

func (r *Recorder) Error(msg string) { r.record(LevelError, msg) }

func (r *Recorder) Info(msg string) { r.record(LevelInfo, msg) }

func (r *Recorder) record(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Message: msg})
}

// Events returns a copy of the recorded messages in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByLevel returns recorded messages of the given level.
func (r *Recorder) ByLevel(level Level) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Discard is a Notifier that drops all messages.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
func (Discard) Info(string)    {}
