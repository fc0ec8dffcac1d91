package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/store"
	"github.com/MrSnakeDoc/smartmarks/internal/store/memory"
)

var owner = domain.User{ID: "dev:owner@example.com"}

const twoLinks = `---
- Dev:
    - Github:
        - href: https://github.com/
    - Go:
        - href: https://go.dev/
`

const threeLinks = twoLinks + `- Media:
    - Jellyfin:
        - href: https://jellyfin.example.com
`

func writeImport(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newReloader(t *testing.T, s store.Store, interval time.Duration) (*ImportReloader, *bookmarks.Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeImport(t, path, twoLinks)

	hub := feed.NewHub(0)
	t.Cleanup(func() { _ = hub.Close() })
	svc := bookmarks.NewService(s, hub, logger.Nop())
	return NewImportReloader(path, owner, svc, logger.New("error", false), interval), svc, path
}

func urlsOf(t *testing.T, svc *bookmarks.Service) []string {
	t.Helper()
	list, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.URL)
	}
	return out
}

func TestImportReloaderAddsMissing(t *testing.T) {
	r, svc, _ := newReloader(t, memory.New(), 0)
	ctx := context.Background()

	_, err := svc.Add(ctx, owner, "https://github.com/", "mine")
	require.NoError(t, err)

	added, err := r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.ElementsMatch(t, []string{"https://github.com/", "https://go.dev/"}, urlsOf(t, svc))

	added, err = r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestImportReloaderDoesNotResurrectDeleted(t *testing.T) {
	r, svc, path := newReloader(t, memory.New(), 0)
	ctx := context.Background()

	_, err := r.Reload(ctx)
	require.NoError(t, err)

	list, err := svc.List(ctx, owner)
	require.NoError(t, err)
	for _, b := range list {
		if b.URL == "https://go.dev/" {
			require.NoError(t, svc.Delete(ctx, owner, b.ID))
		}
	}

	writeImport(t, path, threeLinks)
	added, err := r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.ElementsMatch(t, []string{"https://github.com/", "https://jellyfin.example.com"}, urlsOf(t, svc))
}

func TestImportReloaderStartFailsOnMissingFile(t *testing.T) {
	r, _, path := newReloader(t, memory.New(), time.Hour)
	require.NoError(t, os.Remove(path))

	err := r.Start(context.Background())
	require.Error(t, err)
	r.Stop()
}

type downStore struct{ store.Store }

func (downStore) List(context.Context, string) ([]domain.Bookmark, error) {
	return nil, errors.New("db down")
}

func TestImportReloaderReportsBackendFailure(t *testing.T) {
	r, _, _ := newReloader(t, downStore{Store: memory.New()}, 0)

	_, err := r.Reload(context.Background())
	assert.True(t, domain.IsBackend(err))
}

func TestImportReloaderPeriodic(t *testing.T) {
	r, svc, path := newReloader(t, memory.New(), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Start(ctx))
	defer r.Stop()
	assert.Len(t, urlsOf(t, svc), 2)

	writeImport(t, path, threeLinks)
	require.Eventually(t, func() bool {
		return len(urlsOf(t, svc)) == 3
	}, 2*time.Second, 10*time.Millisecond)
}
