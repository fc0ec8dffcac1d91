package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/reconciler"
)

// ErrNotRunning is returned by mutations once the session loop has exited.
var ErrNotRunning = errors.New("session is not running")

// Options tune a Session.
type Options struct {
	// ResyncInterval adds a periodic snapshot reload on top of the
	// post-mutation ones. Zero disables it.
	ResyncInterval time.Duration
	Logger         logger.Logger
	Now            func() time.Time
}

// Session owns the reconciled bookmark list of one signed-in user.
//
// Every state transition goes through the loop started by Run. Add and
// Delete may be called from any goroutine; they post events to the loop
// and perform the server round trip on the caller's goroutine.
type Session struct {
	backend Backend
	user    domain.User
	opts    Options
	log     logger.Logger

	inbox   chan reconciler.Event
	changes chan struct{}
	ready   chan struct{}
	done    chan struct{}

	mu    sync.RWMutex
	state reconciler.State

	placeholders atomic.Uint64
	running      atomic.Bool
	resyncing    atomic.Bool // a periodic resync is in flight
}

// NewSession creates a session for user. Call Run to start it.
func NewSession(backend Backend, user domain.User, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		backend: backend,
		user:    user,
		opts:    opts,
		log:     opts.Logger.With(logger.String("user", user.ID)),
		inbox:   make(chan reconciler.Event, 64),
		changes: make(chan struct{}, 1),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// User is the identity the session was created for.
func (s *Session) User() domain.User { return s.user }

// Snapshot returns the current list (newest first) and error message.
func (s *Session) Snapshot() ([]domain.Bookmark, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Items(), s.state.Err()
}

// Changes receives a value after state transitions. Notifications are
// coalesced: one receive may stand for several transitions.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// Ready is closed once the initial snapshot is loaded.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run subscribes to the change feed, loads the initial snapshot and
// processes events until ctx ends. The subscription is always closed
// before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	defer close(s.done)

	// subscribe first so nothing committed after the snapshot is missed
	sub := s.subscribe(ctx)
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()

	snapshot, err := s.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}
	s.apply(reconciler.SnapshotLoaded{Snapshot: snapshot})
	close(s.ready)

	var tick <-chan time.Time
	if s.opts.ResyncInterval > 0 {
		t := time.NewTicker(s.opts.ResyncInterval)
		defer t.Stop()
		tick = t.C
	}

	events := feedEvents(sub)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-s.inbox:
			s.apply(ev)

		case fe, ok := <-events:
			if !ok {
				s.log.Warn("change feed closed, relying on resync")
				sub.Close()
				sub, events = nil, nil
				continue
			}
			s.apply(reconciler.FromFeed(fe))

		case <-tick:
			if sub == nil {
				sub = s.subscribe(ctx)
				events = feedEvents(sub)
			}
			// a slow List must not stack up fetches that could land out of order
			if s.resyncing.CompareAndSwap(false, true) {
				go func() {
					defer s.resyncing.Store(false)
					s.Resync(ctx)
				}()
			}
		}
	}
}

func (s *Session) subscribe(ctx context.Context) feed.Subscription {
	sub, err := s.backend.Subscribe(ctx)
	if err != nil {
		s.log.Warn("change feed unavailable", logger.Error(err))
		return nil
	}
	return sub
}

func feedEvents(sub feed.Subscription) <-chan domain.Event {
	if sub == nil {
		return nil
	}
	return sub.Events()
}

// Add validates and submits a new bookmark. The list shows it immediately;
// the server's record replaces it once confirmed.
func (s *Session) Add(ctx context.Context, rawURL, rawTitle string) (domain.Bookmark, error) {
	if err := s.post(ctx, reconciler.FailureCleared{}); err != nil {
		return domain.Bookmark{}, err
	}

	url, title, err := domain.PrepareBookmark(rawURL, rawTitle)
	if err != nil {
		_ = s.post(ctx, reconciler.FailureReported{Message: domain.UserMessage(err)})
		return domain.Bookmark{}, err
	}

	placeholder := domain.Bookmark{
		ID:        reconciler.PlaceholderID(s.placeholders.Add(1)),
		UserID:    s.user.ID,
		URL:       url,
		Title:     title,
		CreatedAt: s.opts.Now().UTC(),
	}
	if err := s.post(ctx, reconciler.OptimisticInserted{Record: placeholder}); err != nil {
		return domain.Bookmark{}, err
	}

	b, err := s.backend.Add(ctx, url, title)
	if err != nil {
		s.log.Debug("add failed", logger.Error(err))
		// the placeholder never existed server side, so dropping it is exact
		_ = s.post(ctx, reconciler.OptimisticDeleted{ID: placeholder.ID})
		_ = s.post(ctx, reconciler.FailureReported{Message: domain.UserMessage(err)})
		s.Resync(ctx)
		return domain.Bookmark{}, err
	}

	_ = s.post(ctx, reconciler.InsertConfirmed{PlaceholderID: placeholder.ID, Record: b})
	s.Resync(ctx)
	return b, nil
}

// Delete removes id from the list immediately and asks the server to
// delete it. On failure the error is shown and the list is reloaded, which
// brings back the entry if the server still has it.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.post(ctx, reconciler.FailureCleared{}); err != nil {
		return err
	}

	if reconciler.IsPlaceholder(id) {
		err := &domain.ValidationError{Field: "id", Reason: "bookmark is still being saved"}
		_ = s.post(ctx, reconciler.FailureReported{Message: err.Reason})
		return err
	}

	if err := s.post(ctx, reconciler.OptimisticDeleted{ID: id}); err != nil {
		return err
	}

	if err := s.backend.Delete(ctx, id); err != nil {
		s.log.Debug("delete failed", logger.String("id", id), logger.Error(err))
		_ = s.post(ctx, reconciler.FailureReported{Message: domain.UserMessage(err)})
		s.Resync(ctx)
		return err
	}

	s.Resync(ctx)
	return nil
}

// Resync replaces the list with the server's. A failed reload keeps the
// current list and is only logged.
func (s *Session) Resync(ctx context.Context) {
	snapshot, err := s.backend.List(ctx)
	if err != nil {
		s.log.Warn("resync failed", logger.Error(err))
		return
	}
	_ = s.post(ctx, reconciler.SnapshotLoaded{Snapshot: snapshot})
}

// post hands ev to the loop.
func (s *Session) post(ctx context.Context, ev reconciler.Event) error {
	select {
	case s.inbox <- ev:
		return nil
	case <-s.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) apply(ev reconciler.Event) {
	s.mu.Lock()
	s.state = reconciler.Apply(s.state, ev)
	s.mu.Unlock()

	select {
	case s.changes <- struct{}{}:
	default:
	}
}
