// Package store defines the storage collaborator used by the server.
//
// Implementations enforce the per-user access policy themselves: every
// read and write is scoped to a user id, and deleting a bookmark the user
// does not own is a silent no-op.
package store

import (
	"context"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Store persists bookmarks.
type Store interface {
	// List returns the user's bookmarks, newest first.
	List(ctx context.Context, userID string) ([]domain.Bookmark, error)

	// Insert stores a new bookmark and returns it with its assigned id and
	// creation time. An empty url yields a *domain.ValidationError.
	Insert(ctx context.Context, userID, url, title string) (domain.Bookmark, error)

	// Delete removes the bookmark if userID owns it. Idempotent.
	Delete(ctx context.Context, id, userID string) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ValidateInsert is the shared argument check for Insert implementations.
func ValidateInsert(userID, url string) error {
	if userID == "" {
		return domain.ErrAuthRequired
	}
	if url == "" {
		return &domain.ValidationError{Field: "url", Reason: "URL required"}
	}
	return nil
}
