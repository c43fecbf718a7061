// Package eventstream publishes note mutation events to an event stream
// backend. Publishing is synchronous and best-effort: callers log failures
// and move on, they never fail the originating request.
package eventstream

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher publishes note events to an event stream backend.
type Publisher interface {
	PublishNoteChanged(ctx context.Context, event *NoteChangedEvent) error
	Close() error
}

// NewNoteChangedEvent builds a v1 event for a persisted note mutation.
func NewNoteChangedEvent(change Change, noteID int64) *NoteChangedEvent {
	return &NoteChangedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeNoteChanged,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Change:        change,
		NoteID:        noteID,
	}
}
