// Package feed is the change-notification collaborator: row-level insert
// and delete events fanned out to subscribers.
//
// Delivery is best effort. Events may be dropped, duplicated or reordered,
// so consumers treat them as hints and resynchronize from storage.
package feed

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// ErrClosed is returned when subscribing to a closed feed.
var ErrClosed = errors.New("feed closed")

// Predicate selects the events a subscriber receives.
type Predicate func(domain.Event) bool

// ForUser matches events on bookmarks owned by userID.
func ForUser(userID string) Predicate {
	return func(ev domain.Event) bool {
		return ev.Record.UserID == userID
	}
}

// Subscription is a live stream of events. The channel is closed once the
// subscription ends, either through Close or its context.
type Subscription interface {
	Events() <-chan domain.Event
	Close()
}

// Feed publishes and delivers events.
type Feed interface {
	Publish(ctx context.Context, ev domain.Event) error
	// Subscribe starts delivery of events matching pred. A nil pred
	// matches everything. The subscription ends when ctx is done.
	Subscribe(ctx context.Context, pred Predicate) (Subscription, error)
	Close() error
}

func match(pred Predicate, ev domain.Event) bool {
	return pred == nil || pred(ev)
}
