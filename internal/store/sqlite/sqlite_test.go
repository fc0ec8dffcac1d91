package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "bookmarks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) store.Store {
		return openTemp(t).WithClock(now)
	})
}

func TestSameTimestampKeepsArrivalOrder(t *testing.T) {
	fixed := time.Date(2025, 3, 3, 3, 3, 3, 0, time.UTC)
	s := openTemp(t).WithClock(func() time.Time { return fixed })
	ctx := context.Background()

	first, err := s.Insert(ctx, "u1", "https://first.example.com", "")
	require.NoError(t, err)
	second, err := s.Insert(ctx, "u1", "https://second.example.com", "")
	require.NoError(t, err)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	b, err := s.Insert(ctx, "u1", "https://example.com", "Example")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, "Example", list[0].Title)
	assert.True(t, b.CreatedAt.Equal(list[0].CreatedAt))
}
