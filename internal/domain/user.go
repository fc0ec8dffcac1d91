package domain

// User is a signed-in identity. ID is provider-qualified, e.g. "google:1234".
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// EventKind is the type of a change-feed event.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventDelete EventKind = "delete"
)

// Event is a row-level change notification. Delete events only
// guarantee Record.ID and Record.UserID.
type Event struct {
	Kind   EventKind `json:"kind"`
	Record Bookmark  `json:"record"`
}
