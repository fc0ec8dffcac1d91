package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// Channel is the pub/sub channel carrying events as JSON.
const Channel = "smartmarks:feed"

// RedisFeed fans events out through Redis pub/sub so that every server
// instance sees mutations made on the others.
type RedisFeed struct {
	client *redis.Client
	logger logger.Logger
	buffer int

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
}

var _ Feed = (*RedisFeed)(nil)

// NewRedisFeed creates a feed on client. The client is owned by the caller.
func NewRedisFeed(client *redis.Client, log logger.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		logger: log,
		buffer: DefaultBuffer,
		subs:   make(map[*redisSub]struct{}),
	}
}

// Publish sends ev to the channel.
func (f *RedisFeed) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := f.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection and returns once Redis
// has confirmed the subscription.
func (f *RedisFeed) Subscribe(ctx context.Context, pred Predicate) (Subscription, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	f.mu.Unlock()

	ps := f.client.Subscribe(ctx, Channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	s := &redisSub{
		feed:    f,
		ps:      ps,
		pred:    pred,
		ch:      make(chan domain.Event, f.buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = ps.Close()
		return nil, ErrClosed
	}
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	go s.pump(ctx)
	return s, nil
}

// Close ends all subscriptions opened through f.
func (f *RedisFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	subs := make([]*redisSub, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	return nil
}

type redisSub struct {
	feed    *RedisFeed
	ps      *redis.PubSub
	pred    Predicate
	ch      chan domain.Event
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func (s *redisSub) Events() <-chan domain.Event { return s.ch }

func (s *redisSub) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.ps.Close()
		<-s.stopped

		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()
	})
}

func (s *redisSub) pump(ctx context.Context) {
	defer close(s.stopped)
	defer close(s.ch)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			go s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.feed.logger.Warn("dropping malformed feed message", logger.Error(err))
				continue
			}
			if !match(s.pred, ev) {
				continue
			}
			select {
			case s.ch <- ev:
			case <-s.done:
				return
			case <-ctx.Done():
				go s.Close()
				return
			}
		}
	}
}

// Subscribers returns the number of live subscriptions opened through f.
func (f *RedisFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
