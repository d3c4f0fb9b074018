package pubsub

import (
	"sync"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// fanout delivers events to local subscriber channels without blocking.
// A subscriber whose buffer is full misses the event.
type fanout struct {
	name   string
	buffer int

	mu          sync.RWMutex
	subscribers []chan Event
}

func newFanout(name string, buffer int) *fanout {
	return &fanout{name: name, buffer: buffer, subscribers: []chan Event{}}
}

func (f *fanout) add() chan Event {
	ch := make(chan Event, f.buffer)

	f.mu.Lock()
	f.subscribers = append(f.subscribers, ch)
	n := len(f.subscribers)
	f.mu.Unlock()

	logger.Debug("Subscriber added", "bus", f.name, "total_subscribers", n)
	return ch
}

func (f *fanout) remove(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, sub := range f.subscribers {
		if sub == ch {
			f.subscribers = append(f.subscribers[:i], f.subscribers[i+1:]...)
			close(ch)
			logger.Debug("Subscriber removed", "bus", f.name, "remaining_subscribers", len(f.subscribers))
			return
		}
	}
}

func (f *fanout) broadcast(event Event) {
	// Sends never block, so holding the read lock keeps remove from
	// closing a channel mid-send.
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("Skipping slow subscriber", "bus", f.name, "event_type", event.Type)
		}
	}
}

func (f *fanout) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subscribers {
		close(ch)
	}
	f.subscribers = nil
}
