package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeNoteChanged is emitted after a note mutation is persisted.
	EventTypeNoteChanged = "jot.note.changed"
)

// Change names what happened to the note.
type Change string

const (
	ChangeCreated           Change = "created"
	ChangeUpdated           Change = "updated"
	ChangeArchived          Change = "archived"
	ChangeUnarchived        Change = "unarchived"
	ChangeShared            Change = "shared"
	ChangePurged            Change = "purged"
	ChangeAttachmentAdded   Change = "attachment.added"
	ChangeAttachmentDeleted Change = "attachment.deleted"
)

// NoteChangedEvent is a transport-neutral event payload for a persisted
// note mutation.
type NoteChangedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Change        Change    `json:"change"`
	NoteID        int64     `json:"note_id"`
}
