// Package notes holds the core domain types for the jot note-taking system.
package notes

import "time"

// Action identifies the kind of mutation captured by a history entry.
type Action string

const (
	// ActionUpdate is recorded when a note's title/body/tags/pinned change.
	ActionUpdate Action = "update"

	// ActionArchive is recorded when a note transitions active -> archived.
	ActionArchive Action = "archive"

	// ActionUnarchive is recorded when a note transitions archived -> active.
	ActionUnarchive Action = "unarchive"
)

// Note is the primary entity: a titled text record with ordered lowercase
// tags, a pinned flag, a reversible archived flag, and an optional share
// token granting public read access.
type Note struct {
	// ID is the server-assigned identifier, immutable once created.
	ID int64 `json:"id"`

	Title string `json:"title"`
	Body  string `json:"body"`

	// Tags is the normalized tag list in first-seen order.
	Tags []string `json:"tags"`

	Pinned   bool `json:"pinned"`
	Archived bool `json:"archived"`

	// ShareToken is assigned at most once per note and never reused across
	// notes. Nil until the note is shared.
	ShareToken *string `json:"share_token,omitempty"`
}

// Draft carries the caller-supplied fields for creating or updating a note.
type Draft struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Tags   []string `json:"tags"`
	Pinned bool     `json:"pinned"`
}

// Attachment is the metadata row for a file attached to a note. The blob
// itself lives on disk keyed by StorageName; row and blob are created and
// destroyed together.
type Attachment struct {
	ID     int64 `json:"id"`
	NoteID int64 `json:"note_id"`

	// Filename is the user-supplied original name, display-only.
	Filename string `json:"filename"`

	// StorageName is the server-generated, globally unique on-disk key.
	StorageName string `json:"storage_name"`

	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// HistoryEntry is an immutable pre-mutation snapshot of a note's fields.
// Entries are append-only and removed only when the note is purged.
type HistoryEntry struct {
	ID     int64  `json:"id"`
	NoteID int64  `json:"note_id"`
	Action Action `json:"action"`

	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"pinned"`
	Archived bool     `json:"archived"`

	CreatedAt time.Time `json:"created_at"`
}

// Snapshot builds a history entry capturing the note's current fields.
// Callers record it before mutating the note, so history is a pre-image log.
func Snapshot(n *Note, action Action, at time.Time) *HistoryEntry {
	tags := make([]string, len(n.Tags))
	copy(tags, n.Tags)

	return &HistoryEntry{
		NoteID:    n.ID,
		Action:    action,
		Title:     n.Title,
		Body:      n.Body,
		Tags:      tags,
		Pinned:    n.Pinned,
		Archived:  n.Archived,
		CreatedAt: at.UTC(),
	}
}
