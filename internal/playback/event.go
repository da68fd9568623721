package playback

import (
	"sync"
	"time"
)

// EventKind classifies scheduler events.
type EventKind int

const (
	EventState EventKind = iota
	EventPosition
	EventProgress
	EventCompleted
	EventErrored
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventPosition:
		return "position"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventErrored:
		return "errored"
	}
	return "unknown"
}

// Event is emitted by the scheduler for every observable change.
//
// Position events carry two offsets: Offset is relative to the chunk texts
// joined with single spaces, SourceOffset is the byte offset of the chunk in
// the original text.
type Event struct {
	Kind         EventKind
	SessionID    string
	State        State
	ChunkIndex   int
	Offset       int
	SourceOffset int
	Progress     float64
	Err          error
	Time         time.Time
}

// Sink receives scheduler events in order from the control goroutine.
// Implementations must not call back into the scheduler synchronously in a
// way that waits for the event to be processed.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// ChannelSink delivers events on a buffered channel. Publish blocks when the
// buffer is full until the consumer catches up or the sink is closed.
type ChannelSink struct {
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelSink returns a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
}

func (s *ChannelSink) Publish(e Event) {
	select {
	case s.ch <- e:
	case <-s.done:
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Close unblocks pending publishers. Events published afterwards are dropped.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// FanOut publishes every event to each sink in order.
type FanOut []Sink

func (f FanOut) Publish(e Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(e)
		}
	}
}

type discardSink struct{}

func (discardSink) Publish(Event) {}
