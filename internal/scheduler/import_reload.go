// Package scheduler runs periodic background jobs of the server.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/sources/homepage"
)

// ImportReloader keeps one user's list fed from a Homepage YAML file.
//
// The first load adds every URL the user does not have yet. Later loads
// only add URLs that newly appeared in the file, so a bookmark the user
// deleted is not brought back on the next tick.
type ImportReloader struct {
	path     string
	kind     homepage.Kind
	user     domain.User
	svc      *bookmarks.Service
	logger   logger.Logger
	interval time.Duration

	mu    sync.Mutex
	known map[string]struct{} // URLs present in the file at the last load

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewImportReloader creates a reloader. Start runs it.
func NewImportReloader(path string, user domain.User, svc *bookmarks.Service, log logger.Logger, interval time.Duration) *ImportReloader {
	return &ImportReloader{
		path:     path,
		kind:     homepage.DetectKind(path),
		user:     user,
		svc:      svc,
		logger:   log.With(logger.String("file", path), logger.String("user", user.ID)),
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start imports once, then periodically until Stop or ctx ends.
// A failed first import is returned; later failures are logged.
func (r *ImportReloader) Start(ctx context.Context) error {
	if _, err := r.Reload(ctx); err != nil {
		close(r.done)
		return fmt.Errorf("initial import failed: %w", err)
	}

	go func() {
		defer close(r.done)
		if r.interval <= 0 {
			return
		}
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.Reload(ctx); err != nil {
					r.logger.Error("failed to reload import file", logger.Error(err))
				}
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop ends the periodic reload and waits for it.
func (r *ImportReloader) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.done
}

// Reload reads the file and adds what is missing. It returns how many
// bookmarks were added.
func (r *ImportReloader) Reload(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	drafts, err := homepage.Load(r.path, r.kind)
	if err != nil {
		return 0, err
	}

	existing, err := r.svc.List(ctx, r.user)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		have[b.URL] = struct{}{}
	}

	known := make(map[string]struct{}, len(drafts))
	added := 0
	for _, d := range drafts {
		known[d.URL] = struct{}{}
		if _, ok := have[d.URL]; ok {
			continue
		}
		if r.known != nil {
			if _, seen := r.known[d.URL]; seen {
				continue
			}
		}
		if _, err := r.svc.Add(ctx, r.user, d.URL, d.Title); err != nil {
			return added, fmt.Errorf("failed to import %s: %w", d.URL, err)
		}
		added++
	}
	r.known = known

	if added > 0 {
		r.logger.Info("imported bookmarks", logger.Int("added", added), logger.Int("entries", len(drafts)))
	} else {
		r.logger.Debug("import file unchanged", logger.Int("entries", len(drafts)))
	}
	return added, nil
}
