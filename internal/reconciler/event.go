package reconciler

import "github.com/MrSnakeDoc/smartmarks/internal/domain"

// Event is one input to the reconciler. Events are applied in the order a
// session's event loop receives them.
type Event interface {
	apply(State) State
}

// Apply returns the state after ev.
func Apply(s State, ev Event) State {
	if ev == nil {
		return s
	}
	return ev.apply(s)
}

// Replay applies events in order, starting from s.
func Replay(s State, events ...Event) State {
	for _, ev := range events {
		s = Apply(s, ev)
	}
	return s
}

type OptimisticInserted struct{ Record domain.Bookmark }

type InsertConfirmed struct {
	PlaceholderID string
	Record        domain.Bookmark
}

type PushInserted struct{ Record domain.Bookmark }

type OptimisticDeleted struct{ ID string }

type PushDeleted struct{ ID string }

type SnapshotLoaded struct{ Snapshot []domain.Bookmark }

type FailureReported struct{ Message string }

type FailureCleared struct{}

func (e OptimisticInserted) apply(s State) State { return s.OptimisticInsert(e.Record) }
func (e InsertConfirmed) apply(s State) State    { return s.ConfirmInsert(e.PlaceholderID, e.Record) }
func (e PushInserted) apply(s State) State       { return s.PushInsert(e.Record) }
func (e OptimisticDeleted) apply(s State) State  { return s.OptimisticDelete(e.ID) }
func (e PushDeleted) apply(s State) State        { return s.PushDelete(e.ID) }
func (e SnapshotLoaded) apply(s State) State     { return s.Reconcile(e.Snapshot) }
func (e FailureReported) apply(s State) State    { return s.ReportFailure(e.Message) }
func (FailureCleared) apply(s State) State       { return s.ClearFailure() }

// FromFeed converts a change-feed event into a reconciler event.
// Unknown kinds yield nil, which Apply ignores.
func FromFeed(ev domain.Event) Event {
	switch ev.Kind {
	case domain.EventInsert:
		return PushInserted{Record: ev.Record}
	case domain.EventDelete:
		return PushDeleted{ID: ev.Record.ID}
	default:
		return nil
	}
}
