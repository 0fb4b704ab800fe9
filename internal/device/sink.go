package device

import (
	"errors"
	"sync"

	"github.com/ayusman/headpad/internal/log"
)

// ErrClosed is returned by writes to a closed sink.
var ErrClosed = errors.New("device sink closed")

// Sink receives synthetic input events. Writes are buffered until Sync.
// Implementations need not be safe for concurrent use; Guard serializes
// access.
type Sink interface {
	WriteAxis(axis Axis, value int32) error
	WriteButton(button Button, pressed bool) error
	Sync() error
	Close() error
}

// EventKind tells recorded events apart.
type EventKind string

const (
	KindAxis   EventKind = "abs"
	KindButton EventKind = "key"
	KindSync   EventKind = "syn"
)

// Event is one write made to a sink.
type Event struct {
	Kind  EventKind `json:"type"`
	Code  uint16    `json:"code"`
	Value int32     `json:"value"`
}

// AxisEvent builds an axis event.
func AxisEvent(a Axis, v int32) Event { return Event{Kind: KindAxis, Code: uint16(a), Value: v} }

// ButtonEvent builds a button event.
func ButtonEvent(b Button, pressed bool) Event {
	e := Event{Kind: KindButton, Code: uint16(b)}
	if pressed {
		e.Value = 1
	}
	return e
}

// SyncEvent is the report separator.
func SyncEvent() Event { return Event{Kind: KindSync} }

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) add(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) WriteAxis(a Axis, v int32) error         { return r.add(AxisEvent(a, v)) }
func (r *Recorder) WriteButton(b Button, pressed bool) error { return r.add(ButtonEvent(b, pressed)) }
func (r *Recorder) Sync() error                             { return r.add(SyncEvent()) }

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans every write out to several sinks. All sinks are written
// even when one fails; the errors are joined.
type Multi []Sink

func (m Multi) each(fn func(Sink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) WriteAxis(a Axis, v int32) error {
	return m.each(func(s Sink) error { return s.WriteAxis(a, v) })
}

func (m Multi) WriteButton(b Button, pressed bool) error {
	return m.each(func(s Sink) error { return s.WriteButton(b, pressed) })
}

func (m Multi) Sync() error  { return m.each(Sink.Sync) }
func (m Multi) Close() error { return m.each(Sink.Close) }

// LogSink logs every synced report at debug level. It is the sink of
// choice when no device is attached.
type LogSink struct {
	state State
}

func (l *LogSink) WriteAxis(a Axis, v int32) error {
	l.state.SetAxis(a, v)
	return nil
}

func (l *LogSink) WriteButton(b Button, pressed bool) error {
	l.state.SetButton(b, pressed)
	return nil
}

func (l *LogSink) Sync() error {
	log.Debug("device report", "axes", l.state.Axes, "buttons", l.state.Pressed())
	return nil
}

func (l *LogSink) Close() error { return nil }
