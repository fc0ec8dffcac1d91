// Package bookmarks holds the server-side mutation handlers: validate
// input, forward it to storage and announce the change on the feed.
package bookmarks

import (
	"context"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
)

// Service is safe for concurrent use.
type Service struct {
	store  store.Store
	feed   feed.Feed
	logger logger.Logger
}

func NewService(s store.Store, f feed.Feed, log logger.Logger) *Service {
	return &Service{store: s, feed: f, logger: log}
}

// List returns the user's bookmarks, newest first.
func (s *Service) List(ctx context.Context, user domain.User) ([]domain.Bookmark, error) {
	if user.ID == "" {
		return nil, domain.ErrAuthRequired
	}
	list, err := s.store.List(ctx, user.ID)
	if err != nil {
		return nil, domain.NewBackendError("list bookmarks", err)
	}
	return list, nil
}

// Add normalizes and stores a bookmark for user.
func (s *Service) Add(ctx context.Context, user domain.User, rawURL, rawTitle string) (domain.Bookmark, error) {
	if user.ID == "" {
		return domain.Bookmark{}, domain.ErrAuthRequired
	}

	url, title, err := domain.PrepareBookmark(rawURL, rawTitle)
	if err != nil {
		return domain.Bookmark{}, err
	}

	b, err := s.store.Insert(ctx, user.ID, url, title)
	if err != nil {
		return domain.Bookmark{}, domain.NewBackendError("add bookmark", err)
	}

	s.publish(ctx, domain.Event{Kind: domain.EventInsert, Record: b})
	s.logger.Debug("bookmark added",
		logger.String("user", user.ID),
		logger.String("id", b.ID))
	return b, nil
}

// Delete removes id if user owns it. Deleting someone else's or an
// unknown bookmark succeeds without effect.
func (s *Service) Delete(ctx context.Context, user domain.User, id string) error {
	if user.ID == "" {
		return domain.ErrAuthRequired
	}
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: "bookmark id required"}
	}

	if err := s.store.Delete(ctx, id, user.ID); err != nil {
		return domain.NewBackendError("delete bookmark", err)
	}

	s.publish(ctx, domain.Event{
		Kind:   domain.EventDelete,
		Record: domain.Bookmark{ID: id, UserID: user.ID},
	})
	s.logger.Debug("bookmark deleted",
		logger.String("user", user.ID),
		logger.String("id", id))
	return nil
}

// Ping reports whether storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish is best effort: clients resync after every mutation anyway.
func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish bookmark event",
			logger.String("kind", string(ev.Kind)),
			logger.String("id", ev.Record.ID),
			logger.Error(err))
	}
}
