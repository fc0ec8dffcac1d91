package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
)

// Store keeps bookmarks in Redis.
//
// Ownership is the per-user sorted set: an id that is not a member of the
// caller's set cannot be read or deleted through this store.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// record is the stored form of a bookmark. Seq is the per-user arrival
// number and breaks ties between equal creation times.
type record struct {
	domain.Bookmark
	Seq int64 `json:"seq"`
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
	}
}

// WithClock overrides the creation-time source
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Insert stores a bookmark and indexes it under its owner
func (s *Store) Insert(ctx context.Context, userID, url, title string) (domain.Bookmark, error) {
	if err := store.ValidateInsert(userID, url); err != nil {
		return domain.Bookmark{}, err
	}

	b := domain.Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		URL:       url,
		Title:     title,
		CreatedAt: s.now().UTC(),
	}

	seq, err := s.client.Incr(ctx, UserSequenceKey(userID)).Result()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to allocate bookmark sequence: %w", err)
	}

	data, err := json.Marshal(record{Bookmark: b, Seq: seq})
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	// microseconds stay exact in a float64 score
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
	pipe.ZAdd(ctx, UserBookmarksKey(userID), redis.Z{
		Score:  float64(b.CreatedAt.UnixMicro()),
		Member: b.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to save bookmark: %w", err)
	}

	return b, nil
}

// List returns the user's bookmarks, newest first
func (s *Store) List(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, UserBookmarksKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	if len(ids) == 0 {
		return []domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	records := make([]record, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a record: skip it
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bookmark %s: %w", ids[i], err)
		}
		records = append(records, rec)
	}

	// the index has microsecond scores; records keep full precision
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Seq > b.Seq
	})

	bookmarks := make([]domain.Bookmark, len(records))
	for i, rec := range records {
		bookmarks[i] = rec.Bookmark
	}
	return bookmarks, nil
}

// Delete removes a bookmark if userID owns it
func (s *Store) Delete(ctx context.Context, id, userID string) error {
	removed, err := s.client.ZRem(ctx, UserBookmarksKey(userID), id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove bookmark from index: %w", err)
	}
	if removed == 0 {
		return nil
	}

	if err := s.client.Del(ctx, BookmarkKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// Ping checks Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op: the client is shared and closed by its owner.
func (s *Store) Close() error { return nil }
