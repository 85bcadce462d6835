package presence

import (
	"sync"

	"github.com/mcoot/quizcore/internal/model"
)

// Subscription queues registry changes for a single consumer
type Subscription struct {
	registry *Registry
	ready    chan struct{}

	mu      sync.Mutex
	queue   []model.PresenceChange
	lagging bool
}

// Ready is signalled whenever changes are waiting to be drained
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Drain returns the queued changes oldest first and empties the queue
func (s *Subscription) Drain() []model.PresenceChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	changes := s.queue
	s.queue = nil
	s.lagging = false
	return changes
}

// Close detaches the subscription from the registry
func (s *Subscription) Close() {
	s.registry.unsubscribe(s)
}

// push appends change, discarding the oldest queued change when full. It
// reports true the first time the subscription starts discarding.
func (s *Subscription) push(change model.PresenceChange) (startedLagging bool) {
	s.mu.Lock()
	if len(s.queue) >= subscriptionLimit {
		s.queue = append(s.queue[:0], s.queue[1:]...)
		startedLagging = !s.lagging
		s.lagging = true
	}
	s.queue = append(s.queue, change)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return startedLagging
}
