package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub is an in-process Feed.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*hubSub]struct{}
	closed  bool
	buffer  int
	dropped atomic.Uint64
}

var _ Feed = (*Hub)(nil)

// NewHub creates a hub with buffer slots per subscriber (DefaultBuffer if <= 0).
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[*hubSub]struct{}),
		buffer: buffer,
	}
}

// Publish delivers ev to every matching subscriber without blocking. A
// subscriber whose queue is full misses the event.
func (h *Hub) Publish(_ context.Context, ev domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	for s := range h.subs {
		if !match(s.pred, ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribe registers a subscriber.
func (h *Hub) Subscribe(ctx context.Context, pred Predicate) (Subscription, error) {
	s := &hubSub{
		hub:  h,
		pred: pred,
		ch:   make(chan domain.Event, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped on full queues.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*hubSub, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}

type hubSub struct {
	hub  *Hub
	pred Predicate
	ch   chan domain.Event
	done chan struct{}
	once sync.Once
}

func (s *hubSub) Events() <-chan domain.Event { return s.ch }

func (s *hubSub) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		// publishers hold the read lock while sending
		close(s.ch)
		s.hub.mu.Unlock()
		close(s.done)
	})
}
