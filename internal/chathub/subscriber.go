package chathub

import (
	"sync"
	"sync/atomic"
)

// Subscriber receives bus events through a bounded queue. When the queue is
// full the oldest event is discarded to make room and Dropped grows.
type Subscriber struct {
	ID string

	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Uint64

	// topics maps each subscribed topic to its subscription generation.
	// Guarded by the owning Bus.
	topics map[string]uint64
}

func NewSubscriber(id string, buffer int) *Subscriber {
	if buffer < 1 {
		buffer = 1
	}
	return &Subscriber{
		ID:     id,
		ch:     make(chan Event, buffer),
		topics: make(map[string]uint64),
	}
}

// C is closed once the subscriber is closed.
func (s *Subscriber) C() <-chan Event { return s.ch }

func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Offer enqueues ev without blocking. It reports whether an older event was
// discarded, and is a no-op after Close.
func (s *Subscriber) Offer(ev Event) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- ev:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			dropped = true
		default:
		}
	}
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Subscriber) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
