package custodytest

import (
	"context"
	"sync"

	"github.com/iov-one/custody/x/wallet"
)

// Sink records all received events.
type Sink struct {
	mu     sync.Mutex
	events []wallet.Event
}

var _ wallet.EventSink = (*Sink)(nil)

func (s *Sink) Handle(ctx context.Context, e wallet.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

// Events returns all events received so far.
func (s *Sink) Events() []wallet.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wallet.Event(nil), s.events...)
}

// Kinds returns the kind of every received event, in order.
func (s *Sink) Kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]string, len(s.events))
	for i, e := range s.events {
		res[i] = e.Kind()
	}
	return res
}

// Count returns the number of received events of given kind.
func (s *Sink) Count(kind string) int {
	n := 0
	for _, k := range s.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (s *Sink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}
