package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/client"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/store/memory"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

var alice = domain.User{ID: "dev:alice@example.com", Email: "alice@example.com", Name: "alice"}

type server struct {
	*httptest.Server
	sessions *auth.Sessions
	svc      *bookmarks.Service
}

type brokenStore struct{ store.Store }

func (brokenStore) Insert(context.Context, string, string, string) (domain.Bookmark, error) {
	return domain.Bookmark{}, errors.New("db down")
}

func newServer(t *testing.T, s store.Store) *server {
	t.Helper()
	log := logger.Nop()

	sessions, err := auth.NewSessions([]byte("0123456789abcdef"), time.Hour, auth.NewMemoryRevoker())
	require.NoError(t, err)

	hub := feed.NewHub(0)
	svc := bookmarks.NewService(s, hub, log)

	h := httpserver.NewHandler(deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Build:          version.Get(),
		TimeNow:        time.Now,
		RateBurst:      1000,
		RatePerMin:     1000,
		RequestTimeout: 5 * time.Second,
		Auth:           auth.NewService(sessions, false, auth.NewDevProvider("http://localhost/auth/callback", alice.Email)),
		Bookmarks:      svc,
		Feed:           hub,
		StoreKind:      "memory",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Close()
	})
	return &server{Server: ts, sessions: sessions, svc: svc}
}

func (s *server) api(t *testing.T, u domain.User) *client.API {
	t.Helper()
	token, _, err := s.sessions.Issue(u)
	require.NoError(t, err)
	api, err := client.NewAPI(s.URL, token, s.Client())
	require.NoError(t, err)
	return api
}

func TestNewAPIRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://example.com", "http://"} {
		_, err := client.NewAPI(raw, "", nil)
		assert.Error(t, err, raw)
	}
}

func TestAPIRoundTrip(t *testing.T) {
	srv := newServer(t, memory.New())
	api := srv.api(t, alice)
	ctx := context.Background()

	me, err := api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, me.ID)

	list, err := api.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	b, err := api.Add(ctx, "example.com", "Example")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", b.URL)

	list, err = api.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	require.NoError(t, api.Delete(ctx, b.ID))
	list, err = api.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAPIErrorClassification(t *testing.T) {
	ctx := context.Background()

	srv := newServer(t, memory.New())
	anon, err := client.NewAPI(srv.URL, "", srv.Client())
	require.NoError(t, err)

	_, err = anon.List(ctx)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = anon.Subscribe(ctx)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = srv.api(t, alice).Add(ctx, "   ", "")
	require.Error(t, err)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "url", ve.Field)
	assert.Equal(t, "URL required", ve.Reason)

	broken := newServer(t, brokenStore{Store: memory.New()})
	_, err = broken.api(t, alice).Add(ctx, "https://example.com", "")
	assert.True(t, domain.IsBackend(err))
	assert.Equal(t, domain.GenericFailureMessage, domain.UserMessage(err))
}

func TestAPIUnreachableServerIsBackendError(t *testing.T) {
	srv := newServer(t, memory.New())
	api := srv.api(t, alice)
	srv.Close()

	_, err := api.List(context.Background())
	assert.True(t, domain.IsBackend(err))
}

func TestSessionOverHTTP(t *testing.T) {
	srv := newServer(t, memory.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := client.NewSession(srv.api(t, alice), alice, client.Options{})
	go func() { _ = s.Run(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session never became ready")
	}

	b, err := s.Add(ctx, "https://mine.example.com", "")
	require.NoError(t, err)

	// pushed from another client of the same account
	other, err := srv.svc.Add(ctx, alice, "https://other.example.com", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		items, _ := s.Snapshot()
		return len(items) == 2 && items[0].ID == other.ID && items[1].ID == b.ID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.svc.Delete(ctx, alice, other.ID))
	require.Eventually(t, func() bool {
		items, _ := s.Snapshot()
		return len(items) == 1 && items[0].ID == b.ID
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
