package events

import (
	"log/slog"
	"sync"
	"time"
)

// Severity classifies an event for observers.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is one entry in the progress/telemetry stream.
type Event struct {
	Time     time.Time      `json:"time"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Observer receives published events. Delivery is best-effort and
// at-most-once: a panicking observer drops that one notification, nothing
// else.
type Observer func(Event)

// Sink is a concurrency-safe publish point for progress events. Publish
// never blocks on observers: the internal log is mutated under a short-held
// mutex and observers are invoked strictly after the mutex is released, so
// a slow or re-entrant observer cannot stall or deadlock producers.
type Sink struct {
	mu        sync.Mutex
	log       []Event
	maxLog    int
	observers []Observer
}

// NewSink creates a Sink retaining at most maxLog recent events.
func NewSink(maxLog int) *Sink {
	if maxLog < 1 {
		maxLog = 1000
	}
	return &Sink{maxLog: maxLog}
}

// Subscribe registers an observer for all subsequently published events.
func (s *Sink) Subscribe(obs Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Publish records the event and notifies observers.
//
// The ordering here is the load-bearing invariant: append under the lock,
// release, then notify. Observer panics are recovered and discarded —
// reporting them back through the sink could recurse into a misbehaving
// observer forever.
func (s *Sink) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	s.mu.Lock()
	s.log = append(s.log, ev)
	if len(s.log) > s.maxLog {
		s.log = s.log[len(s.log)-s.maxLog:]
	}
	obs := make([]Observer, len(s.observers))
	copy(obs, s.observers)
	s.mu.Unlock()

	for _, o := range obs {
		notify(o, ev)
	}
}

func notify(o Observer, ev Event) {
	defer func() {
		_ = recover()
	}()
	o(ev)
}

// Recent returns up to n of the most recent events, oldest first.
func (s *Sink) Recent(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.log) {
		n = len(s.log)
	}
	out := make([]Event, n)
	copy(out, s.log[len(s.log)-n:])
	return out
}

// Len returns the number of retained events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Info publishes an info-level event and mirrors it to slog.
func (s *Sink) Info(msg string, fields map[string]any) {
	slog.Info(msg, flatten(fields)...)
	s.Publish(Event{Severity: SeverityInfo, Message: msg, Fields: fields})
}

// Warn publishes a warn-level event and mirrors it to slog.
func (s *Sink) Warn(msg string, fields map[string]any) {
	slog.Warn(msg, flatten(fields)...)
	s.Publish(Event{Severity: SeverityWarn, Message: msg, Fields: fields})
}

// Error publishes an error-level event and mirrors it to slog.
func (s *Sink) Error(msg string, fields map[string]any) {
	slog.Error(msg, flatten(fields)...)
	s.Publish(Event{Severity: SeverityError, Message: msg, Fields: fields})
}

func flatten(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
