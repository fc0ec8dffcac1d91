package bookmarks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/store/memory"
)

var (
	alice = domain.User{ID: "u:alice"}
	bob   = domain.User{ID: "u:bob"}
)

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) List(context.Context, string) ([]domain.Bookmark, error) {
	return nil, f.err
}

func (f failingStore) Insert(context.Context, string, string, string) (domain.Bookmark, error) {
	return domain.Bookmark{}, f.err
}

func (f failingStore) Delete(context.Context, string, string) error { return f.err }

type failingFeed struct{ feed.Feed }

func (failingFeed) Publish(context.Context, domain.Event) error {
	return errors.New("feed down")
}

func newService(t *testing.T) (*Service, *feed.Hub) {
	t.Helper()
	hub := feed.NewHub(0)
	t.Cleanup(func() { _ = hub.Close() })
	return NewService(memory.New(), hub, logger.New("error", false)), hub
}

func nextEvent(t *testing.T, sub feed.Subscription) domain.Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event published")
		return domain.Event{}
	}
}

func TestAddNormalizesAndPublishes(t *testing.T) {
	svc, hub := newService(t)
	ctx := context.Background()

	sub, err := hub.Subscribe(ctx, feed.ForUser(alice.ID))
	require.NoError(t, err)
	defer sub.Close()

	b, err := svc.Add(ctx, alice, "  example.com  ", "  Example  ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", b.URL)
	assert.Equal(t, "Example", b.Title)
	assert.Equal(t, alice.ID, b.UserID)
	assert.NotEmpty(t, b.ID)

	ev := nextEvent(t, sub)
	assert.Equal(t, domain.EventInsert, ev.Kind)
	assert.Equal(t, b, ev.Record)

	plain, err := svc.Add(ctx, alice, "http://plain.example.com", "   ")
	require.NoError(t, err)
	assert.Equal(t, "http://plain.example.com", plain.URL)
	assert.Empty(t, plain.Title)
}

func TestAddValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"no host", "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, alice, tt.url, "")
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %T", err)
		})
	}

	list, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRequiresUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, domain.User{})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	_, err = svc.Add(ctx, domain.User{}, "example.com", "")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.ErrorIs(t, svc.Delete(ctx, domain.User{}, "id"), domain.ErrAuthRequired)
}

func TestDeleteIsOwnerScoped(t *testing.T) {
	svc, hub := newService(t)
	ctx := context.Background()

	b, err := svc.Add(ctx, alice, "example.com", "")
	require.NoError(t, err)

	sub, err := hub.Subscribe(ctx, feed.ForUser(alice.ID))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, svc.Delete(ctx, bob, b.ID))
	list, err := svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, alice, b.ID))
	ev := nextEvent(t, sub)
	assert.Equal(t, domain.EventDelete, ev.Kind)
	assert.Equal(t, b.ID, ev.Record.ID)

	list, err = svc.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, domain.IsValidation(svc.Delete(ctx, alice, "")))
}

func TestBackendFailuresAreWrapped(t *testing.T) {
	cause := errors.New("connection refused")
	svc := NewService(failingStore{err: cause}, nil, logger.New("error", false))
	ctx := context.Background()

	_, err := svc.List(ctx, alice)
	assert.True(t, domain.IsBackend(err))
	assert.ErrorIs(t, err, cause)

	_, err = svc.Add(ctx, alice, "example.com", "")
	assert.True(t, domain.IsBackend(err))
	assert.Equal(t, domain.GenericFailureMessage, domain.UserMessage(err))

	err = svc.Delete(ctx, alice, "id")
	assert.True(t, domain.IsBackend(err))
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc := NewService(memory.New(), failingFeed{}, logger.New("error", false))
	ctx := context.Background()

	b, err := svc.Add(ctx, alice, "example.com", "")
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(ctx, alice, b.ID))
}
