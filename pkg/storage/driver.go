// Package storage
package storage

import (
	"context"

	"github.com/paperjotco/jot/pkg/notes"
)

// Filter restricts ListNotes. Search is a substring match against title,
// body, or the serialized tag field; archived notes are excluded unless
// IncludeArchived is set. Tag narrowing is applied by the caller after the
// query, not pushed into the store.
type Filter struct {
	Search          string
	IncludeArchived bool
}

// Driver defines the interface for persisting notes, attachments, and
// history in a storage backend. Operations that touch more than one table
// (SaveNoteRevision, PurgeNote) execute as a single transaction so one
// request maps to one logical storage transaction.
type Driver interface {
	// CreateNote inserts a new note and returns it with its assigned id.
	CreateNote(ctx context.Context, note *notes.Note) (*notes.Note, error)

	// GetNote retrieves a note by id.
	GetNote(ctx context.Context, id int64) (*notes.Note, error)

	// GetNoteByShareToken retrieves a note by its share token, regardless
	// of archived state.
	GetNoteByShareToken(ctx context.Context, token string) (*notes.Note, error)

	// ListNotes returns notes matching the filter, pinned first, newest id
	// first within each pinned group.
	ListNotes(ctx context.Context, f Filter) ([]*notes.Note, error)

	// SaveNote persists every mutable field of an existing note.
	SaveNote(ctx context.Context, note *notes.Note) error

	// SaveNoteRevision appends a history entry and persists the note's
	// fields in one transaction.
	SaveNoteRevision(ctx context.Context, note *notes.Note, entry *notes.HistoryEntry) error

	// PurgeNote deletes the note's attachment rows, history rows, and the
	// note row itself in one transaction.
	PurgeNote(ctx context.Context, id int64) error

	// CreateAttachment inserts an attachment row and returns it with its
	// assigned id.
	CreateAttachment(ctx context.Context, att *notes.Attachment) (*notes.Attachment, error)

	// GetAttachment retrieves an attachment row by id.
	GetAttachment(ctx context.Context, id int64) (*notes.Attachment, error)

	// ListAttachments returns a note's attachments, newest id first.
	ListAttachments(ctx context.Context, noteID int64) ([]*notes.Attachment, error)

	// DeleteAttachment removes a single attachment row.
	DeleteAttachment(ctx context.Context, id int64) error

	// ListHistory returns a note's history entries, newest id first.
	ListHistory(ctx context.Context, noteID int64) ([]*notes.HistoryEntry, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}
