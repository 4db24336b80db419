package broadcast

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var liveDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "phonebook",
	Name:      "live_events_dropped_total",
	Help:      "Live events dropped because a subscriber's buffer was full.",
})

// Hub fans values out to any number of in-process subscribers.
//
// Publishing never blocks: a subscriber whose buffer is full misses the value.
// Publishing with no subscribers is a no-op.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: map[*Subscription[T]]struct{}{}}
}

// Subscription is one subscriber's view of a Hub.
type Subscription[T any] struct {
	hub  *Hub[T]
	ch   chan T
	once sync.Once
}

// C yields published values. It is closed when the subscription or the hub
// is closed.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.ch)
		}
	})
}

// Subscribe registers a subscriber with room for buffer pending values.
func (h *Hub[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription[T]{hub: h, ch: make(chan T, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Broadcast offers v to every subscriber and reports how many accepted it.
func (h *Hub[T]) Broadcast(v T) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.subs {
		select {
		case s.ch <- v:
			delivered++
		default:
			liveDropped.Inc()
		}
	}
	return delivered
}

// Subscribers reports the number of attached subscribers.
func (h *Hub[T]) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close detaches every subscriber. Later subscriptions are born closed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Local publishes straight into a Hub. It is used when no relay is configured.
type Local[T any] struct {
	Hub *Hub[T]
}

func (l Local[T]) Publish(ctx context.Context, v T) error {
	l.Hub.Broadcast(v)
	return nil
}
