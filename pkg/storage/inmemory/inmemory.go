// Package inmemory provides a map-backed storage driver used in tests and
// for zero-config runs. Semantics mirror the SQL backends: same ordering,
// same filter behavior, same errors.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/paperjotco/jot/pkg/notes"
	"github.com/paperjotco/jot/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map and counter below
	mu sync.RWMutex

	notes       map[int64]*notes.Note
	attachments map[int64]*notes.Attachment
	history     map[int64]*notes.HistoryEntry

	nextNoteID       int64
	nextAttachmentID int64
	nextHistoryID    int64
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		notes:       make(map[int64]*notes.Note),
		attachments: make(map[int64]*notes.Attachment),
		history:     make(map[int64]*notes.HistoryEntry),
	}
}

func cloneNote(n *notes.Note) *notes.Note {
	c := *n
	c.Tags = append([]string(nil), n.Tags...)
	if n.ShareToken != nil {
		token := *n.ShareToken
		c.ShareToken = &token
	}
	return &c
}

func cloneEntry(e *notes.HistoryEntry) *notes.HistoryEntry {
	c := *e
	c.Tags = append([]string(nil), e.Tags...)
	return &c
}

// CreateNote inserts a new note and returns it with its assigned id.
func (d *Driver) CreateNote(_ context.Context, n *notes.Note) (*notes.Note, error) {
	if n == nil {
		return nil, errors.New("cannot store nil note")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextNoteID++
	stored := cloneNote(n)
	stored.ID = d.nextNoteID
	stored.Tags = notes.NormalizeTags(stored.Tags)
	d.notes[stored.ID] = stored

	return cloneNote(stored), nil
}

// GetNote retrieves a note by id.
func (d *Driver) GetNote(_ context.Context, id int64) (*notes.Note, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.notes[id]
	if !ok {
		return nil, storage.NoteNotFound(id)
	}

	return cloneNote(n), nil
}

// GetNoteByShareToken retrieves a note by its share token.
func (d *Driver) GetNoteByShareToken(_ context.Context, token string) (*notes.Note, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, n := range d.notes {
		if n.ShareToken != nil && *n.ShareToken == token {
			return cloneNote(n), nil
		}
	}

	return nil, storage.ShareNotFound(token)
}

// matches applies the same substring semantics the SQL backends get from
// LIKE (case-insensitive for ASCII, as SQLite behaves).
func matches(n *notes.Note, search string) bool {
	term := strings.ToLower(strings.TrimSpace(search))
	return strings.Contains(strings.ToLower(n.Title), term) ||
		strings.Contains(strings.ToLower(n.Body), term) ||
		strings.Contains(notes.SerializeTags(n.Tags), term)
}

// ListNotes returns notes matching the filter, pinned first, newest id first.
func (d *Driver) ListNotes(_ context.Context, f storage.Filter) ([]*notes.Note, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*notes.Note, 0, len(d.notes))
	for _, n := range d.notes {
		if !f.IncludeArchived && n.Archived {
			continue
		}
		if f.Search != "" && !matches(n, f.Search) {
			continue
		}
		result = append(result, cloneNote(n))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Pinned != result[j].Pinned {
			return result[i].Pinned
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// SaveNote persists every mutable field of an existing note.
func (d *Driver) SaveNote(_ context.Context, n *notes.Note) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.saveNoteLocked(n)
}

func (d *Driver) saveNoteLocked(n *notes.Note) error {
	if _, ok := d.notes[n.ID]; !ok {
		return storage.NoteNotFound(n.ID)
	}

	stored := cloneNote(n)
	stored.Tags = notes.NormalizeTags(stored.Tags)
	d.notes[n.ID] = stored

	return nil
}

// SaveNoteRevision appends a history entry and persists the note's fields.
func (d *Driver) SaveNoteRevision(_ context.Context, n *notes.Note, e *notes.HistoryEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.saveNoteLocked(n); err != nil {
		return err
	}

	d.nextHistoryID++
	stored := cloneEntry(e)
	stored.ID = d.nextHistoryID
	d.history[stored.ID] = stored

	return nil
}

// PurgeNote deletes the note's attachment rows, history rows, and the note.
func (d *Driver) PurgeNote(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.notes[id]; !ok {
		return storage.NoteNotFound(id)
	}

	for attID, a := range d.attachments {
		if a.NoteID == id {
			delete(d.attachments, attID)
		}
	}
	for histID, e := range d.history {
		if e.NoteID == id {
			delete(d.history, histID)
		}
	}
	delete(d.notes, id)

	return nil
}

// CreateAttachment inserts an attachment row and returns it with its id.
func (d *Driver) CreateAttachment(_ context.Context, a *notes.Attachment) (*notes.Attachment, error) {
	if a == nil {
		return nil, errors.New("cannot store nil attachment")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextAttachmentID++
	stored := *a
	stored.ID = d.nextAttachmentID
	d.attachments[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetAttachment retrieves an attachment row by id.
func (d *Driver) GetAttachment(_ context.Context, id int64) (*notes.Attachment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.attachments[id]
	if !ok {
		return nil, storage.AttachmentNotFound(id)
	}

	out := *a
	return &out, nil
}

// ListAttachments returns a note's attachments, newest id first.
func (d *Driver) ListAttachments(_ context.Context, noteID int64) ([]*notes.Attachment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*notes.Attachment, 0)
	for _, a := range d.attachments {
		if a.NoteID == noteID {
			out := *a
			result = append(result, &out)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

// DeleteAttachment removes a single attachment row.
func (d *Driver) DeleteAttachment(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.attachments[id]; !ok {
		return storage.AttachmentNotFound(id)
	}
	delete(d.attachments, id)

	return nil
}

// ListHistory returns a note's history entries, newest id first.
func (d *Driver) ListHistory(_ context.Context, noteID int64) ([]*notes.HistoryEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*notes.HistoryEntry, 0)
	for _, e := range d.history {
		if e.NoteID == noteID {
			result = append(result, cloneEntry(e))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })

	return result, nil
}

// Ping is always healthy for the in-memory store.
func (d *Driver) Ping(_ context.Context) error {
	return nil
}

// Close releases the maps.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.notes = make(map[int64]*notes.Note)
	d.attachments = make(map[int64]*notes.Attachment)
	d.history = make(map[int64]*notes.HistoryEntry)

	return nil
}
