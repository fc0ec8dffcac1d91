// Package storetest is a conformance suite shared by store implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
)

// Factory builds a fresh, empty store whose creation timestamps come from now.
type Factory func(t *testing.T, now func() time.Time) store.Store

// Clock hands out strictly increasing timestamps.
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{cur: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// Now advances the clock by one second and returns it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertAndListNewestFirst", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		ctx := context.Background()

		first, err := s.Insert(ctx, "u1", "https://one.example.com", "")
		require.NoError(t, err)
		second, err := s.Insert(ctx, "u1", "https://two.example.com", "Two")
		require.NoError(t, err)

		assert.NotEmpty(t, first.ID)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, "u1", second.UserID)
		assert.Equal(t, "Two", second.Title)
		assert.True(t, second.CreatedAt.After(first.CreatedAt))

		list, err := s.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
		assert.Equal(t, "https://one.example.com", list[1].URL)
		assert.Empty(t, list[1].Title)
		assert.True(t, list[0].CreatedAt.Equal(second.CreatedAt))
	})

	t.Run("InsertRejectsEmptyURL", func(t *testing.T) {
		s := newStore(t, NewClock().Now)

		_, err := s.Insert(context.Background(), "u1", "", "title")
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))

		list, err := s.List(context.Background(), "u1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("ListEmptyUser", func(t *testing.T) {
		s := newStore(t, NewClock().Now)

		list, err := s.List(context.Background(), "nobody")
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("DeleteIsOwnerScopedAndIdempotent", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		ctx := context.Background()

		mine, err := s.Insert(ctx, "u1", "https://mine.example.com", "")
		require.NoError(t, err)
		theirs, err := s.Insert(ctx, "u2", "https://theirs.example.com", "")
		require.NoError(t, err)

		// u1 cannot delete u2's bookmark
		require.NoError(t, s.Delete(ctx, theirs.ID, "u1"))
		list, err := s.List(ctx, "u2")
		require.NoError(t, err)
		require.Len(t, list, 1)

		require.NoError(t, s.Delete(ctx, mine.ID, "u1"))
		require.NoError(t, s.Delete(ctx, mine.ID, "u1"))
		require.NoError(t, s.Delete(ctx, "does-not-exist", "u1"))

		list, err = s.List(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("UsersAreIsolated", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		ctx := context.Background()

		_, err := s.Insert(ctx, "u1", "https://a.example.com", "")
		require.NoError(t, err)
		_, err = s.Insert(ctx, "u2", "https://b.example.com", "")
		require.NoError(t, err)

		list, err := s.List(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "https://a.example.com", list[0].URL)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t, NewClock().Now)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
