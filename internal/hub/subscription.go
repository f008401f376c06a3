package hub

import (
	"context"
	"sync"
)

// Event is one step of a subscriber's stream: exactly one of Packet, Skipped,
// or Closed is meaningful. A Skipped event reports how many packets were
// evicted since the last read; the subscriber then resumes with live packets.
type Event struct {
	Packet  *Packet
	Skipped uint64
	Closed  bool
}

// Subscription is a live handle into one asset's broadcast stream.
type Subscription struct {
	topic   *topic
	backlog int

	mu      sync.Mutex
	buf     []*Packet
	skipped uint64
	closed  bool
	notify  chan struct{}
}

// push appends a packet, evicting the oldest unread one when the backlog is
// full. Called with the topic lock held; never blocks.
func (s *Subscription) push(p *Packet) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.buf) == s.backlog {
		copy(s.buf, s.buf[1:])
		s.buf[len(s.buf)-1] = p
		s.skipped++
	} else {
		s.buf = append(s.buf, p)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until the next event: a lag report if packets were skipped, the
// next buffered packet, or Closed when the subscription or ctx ends.
func (s *Subscription) Next(ctx context.Context) Event {
	for {
		s.mu.Lock()
		if s.skipped > 0 {
			n := s.skipped
			s.skipped = 0
			s.mu.Unlock()
			return Event{Skipped: n}
		}
		if len(s.buf) > 0 {
			p := s.buf[0]
			copy(s.buf, s.buf[1:])
			s.buf = s.buf[:len(s.buf)-1]
			s.mu.Unlock()
			return Event{Packet: p}
		}
		if s.closed {
			s.mu.Unlock()
			return Event{Closed: true}
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Event{Closed: true}
		}
	}
}

// Close detaches the subscription from its topic and wakes any blocked Next.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.topic.mu.Lock()
	delete(s.topic.subs, s)
	s.topic.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}
