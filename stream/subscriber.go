package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Frame is the envelope delivered to subscribers and written to
// websocket clients after codec encoding.
type Frame struct {
	// Topic is the channel this frame was published on.
	Topic string `json:"topic" msgpack:"topic"`

	// Name is the event name, e.g. "workout.set_completed".
	Name string `json:"name" msgpack:"name"`

	// At is when the event was emitted.
	At time.Time `json:"at" msgpack:"at"`

	// Data is the event payload.
	Data any `json:"data,omitempty" msgpack:"data,omitempty"`
}

// Subscriber receives frames from the topics it is subscribed to on a
// buffered channel. A slow subscriber loses its oldest undelivered
// frames first; delivery never blocks the broker.
type Subscriber struct {
	id string
	ch chan Frame

	topics map[string]struct{}
	mu     sync.RWMutex

	dropped atomic.Int64
	closed  atomic.Bool
}

// NewSubscriber creates a subscriber with the given buffer size.
func NewSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{
		id:     id,
		ch:     make(chan Frame, bufferSize),
		topics: make(map[string]struct{}),
	}
}

// ID returns the subscriber identifier.
func (s *Subscriber) ID() string { return s.id }

// C returns the read-only frame channel.
func (s *Subscriber) C() <-chan Frame { return s.ch }

// Dropped returns how many frames overflowed this subscriber's buffer.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

func (s *Subscriber) addTopic(topic string) {
	s.mu.Lock()
	s.topics[topic] = struct{}{}
	s.mu.Unlock()
}

func (s *Subscriber) removeTopic(topic string) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// Topics returns a copy of all subscribed topic names.
func (s *Subscriber) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for topic := range s.topics {
		out = append(out, topic)
	}
	return out
}

// send delivers a frame without blocking. On a full buffer the oldest
// frame is evicted to make room; false is returned only when the frame
// could not be delivered at all.
func (s *Subscriber) send(frame Frame) bool {
	if s.closed.Load() {
		return false
	}

	select {
	case s.ch <- frame:
		return true
	default:
	}

	// Buffer full: drop the oldest and retry once.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- frame:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close closes the frame channel. Safe to call multiple times.
func (s *Subscriber) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
