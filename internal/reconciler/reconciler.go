// Package reconciler keeps a client's ordered bookmark list consistent
// under three unordered mutation sources: local optimistic edits, server
// confirmations and change-feed notifications.
//
// State is an immutable value. Every operation is a pure function returning
// a new State, so callers can serialize events through a single loop and
// tests can replay any interleaving deterministically.
package reconciler

import (
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

const placeholderPrefix = "pending:"

// MaxTombstones bounds how many deleted ids a State remembers. The oldest
// is forgotten first; a stale insert for it is then corrected by the next
// snapshot resync.
const MaxTombstones = 256

// PlaceholderID returns the local id used for the n-th optimistic insert.
func PlaceholderID(n uint64) string {
	return placeholderPrefix + strconv.FormatUint(n, 10)
}

// IsPlaceholder reports whether id was produced by PlaceholderID.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// State is the reconciled list plus a single-slot error message.
//
// deleted remembers the most recent ids this session has seen removed,
// oldest first. Bookmark ids are never reused, so an insert notification
// for a deleted id is stale.
type State struct {
	items   []domain.Bookmark
	deleted []string
	err     string
}

// New builds a State from an authoritative snapshot.
func New(snapshot []domain.Bookmark) State {
	return State{}.Reconcile(snapshot)
}

// Items returns a copy of the list, newest first.
func (s State) Items() []domain.Bookmark {
	out := make([]domain.Bookmark, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of entries.
func (s State) Len() int { return len(s.items) }

// Err returns the current user-visible error message, or "".
func (s State) Err() string { return s.err }

// Contains reports whether id is in the list.
func (s State) Contains(id string) bool {
	return s.index(id) >= 0
}

// OptimisticInsert adds a locally built record before the server has
// confirmed it.
func (s State) OptimisticInsert(rec domain.Bookmark) State {
	return s.insert(rec)
}

// ConfirmInsert swaps the placeholder for the authoritative record.
// The record is not added twice if a push notification got there first.
func (s State) ConfirmInsert(placeholderID string, rec domain.Bookmark) State {
	if placeholderID != "" {
		s = s.remove(placeholderID)
	}
	return s.insert(rec)
}

// PushInsert applies a change-feed insert. No-op when the id is present.
func (s State) PushInsert(rec domain.Bookmark) State {
	return s.insert(rec)
}

// OptimisticDelete removes an entry before the server has confirmed it.
func (s State) OptimisticDelete(id string) State {
	return s.tombstone(id).remove(id)
}

// PushDelete applies a change-feed delete. No-op when the id is absent.
func (s State) PushDelete(id string) State {
	return s.tombstone(id).remove(id)
}

// Reconcile replaces the list wholesale with an authoritative snapshot.
// The error slot is preserved so a failure stays visible after the resync
// it triggered.
func (s State) Reconcile(snapshot []domain.Bookmark) State {
	items := make([]domain.Bookmark, 0, len(snapshot))
	seen := make(map[string]struct{}, len(snapshot))
	for _, b := range snapshot {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		items = append(items, b)
	}

	// Anything the server still has is alive again.
	var deleted []string
	for _, id := range s.deleted {
		if _, ok := seen[id]; !ok {
			deleted = append(deleted, id)
		}
	}

	return State{items: items, deleted: deleted, err: s.err}
}

// ReportFailure records a user-visible error message.
func (s State) ReportFailure(message string) State {
	s.err = message
	return s
}

// ClearFailure empties the error slot. Called when a mutation starts.
func (s State) ClearFailure() State {
	s.err = ""
	return s
}

func (s State) index(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// insert places rec so creation timestamps stay descending. A record ties
// ahead of entries with the same timestamp (newest arrival first).
func (s State) insert(rec domain.Bookmark) State {
	if rec.ID == "" || s.Contains(rec.ID) {
		return s
	}
	if s.isDeleted(rec.ID) {
		return s
	}

	pos := len(s.items)
	for i := range s.items {
		if !s.items[i].CreatedAt.After(rec.CreatedAt) {
			pos = i
			break
		}
	}

	items := make([]domain.Bookmark, 0, len(s.items)+1)
	items = append(items, s.items[:pos]...)
	items = append(items, rec)
	items = append(items, s.items[pos:]...)
	s.items = items
	return s
}

func (s State) remove(id string) State {
	i := s.index(id)
	if i < 0 {
		return s
	}
	items := make([]domain.Bookmark, 0, len(s.items)-1)
	items = append(items, s.items[:i]...)
	items = append(items, s.items[i+1:]...)
	s.items = items
	return s
}

func (s State) tombstone(id string) State {
	if id == "" || IsPlaceholder(id) {
		return s
	}
	if s.isDeleted(id) {
		return s
	}
	keep := s.deleted
	if len(keep) >= MaxTombstones {
		keep = keep[len(keep)-MaxTombstones+1:]
	}
	deleted := make([]string, 0, len(keep)+1)
	deleted = append(deleted, keep...)
	s.deleted = append(deleted, id)
	return s
}

func (s State) isDeleted(id string) bool {
	for _, d := range s.deleted {
		if d == id {
			return true
		}
	}
	return false
}
