package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
)

// Store keeps bookmarks in process memory.
// Used for local development (MARKS_STORE=memory) and tests.
type Store struct {
	mu        sync.RWMutex
	bookmarks map[string]domain.Bookmark // ID -> Bookmark
	byUser    map[string][]string        // UserID -> IDs, oldest first
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty memory store.
func New() *Store {
	return &Store{
		bookmarks: make(map[string]domain.Bookmark),
		byUser:    make(map[string][]string),
		now:       time.Now,
	}
}

// WithClock overrides the creation-time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// List returns the user's bookmarks, newest first
func (s *Store) List(_ context.Context, userID string) ([]domain.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]domain.Bookmark, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.bookmarks[ids[i]])
	}
	return out, nil
}

// Insert adds a bookmark
func (s *Store) Insert(_ context.Context, userID, url, title string) (domain.Bookmark, error) {
	if err := store.ValidateInsert(userID, url); err != nil {
		return domain.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := domain.Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		URL:       url,
		Title:     title,
		CreatedAt: s.now().UTC(),
	}

	// keep ids sorted by creation time; equal timestamps keep insertion order
	ids := s.byUser[userID]
	pos := len(ids)
	for pos > 0 && s.bookmarks[ids[pos-1]].CreatedAt.After(b.CreatedAt) {
		pos--
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = b.ID

	s.byUser[userID] = ids
	s.bookmarks[b.ID] = b
	return b, nil
}

// Delete removes a bookmark owned by userID
func (s *Store) Delete(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookmarks[id]
	if !ok || b.UserID != userID {
		return nil
	}
	delete(s.bookmarks, id)

	ids := s.byUser[userID]
	for i, v := range ids {
		if v == id {
			s.byUser[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byUser[userID]) == 0 {
		delete(s.byUser, userID)
	}
	return nil
}

// Count returns the total number of bookmarks across users
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bookmarks)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
