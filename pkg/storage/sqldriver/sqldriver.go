// Package sqldriver implements storage.Driver on top of database/sql.
// It is database-agnostic and is embedded by the sqlite and postgres
// front-ends, which only differ in how they open the connection, run
// migrations, and bind query placeholders.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paperjotco/jot/pkg/notes"
	"github.com/paperjotco/jot/pkg/storage"
)

// Placeholder selects the parameter binding style for the backend.
type Placeholder int

const (
	// Question binds parameters as "?" (SQLite).
	Question Placeholder = iota

	// Dollar binds parameters as "$1", "$2", ... (PostgreSQL).
	Dollar
)

// Driver provides storage operations over a *sql.DB connection.
type Driver struct {
	DB          *sql.DB
	Placeholder Placeholder
}

// rebind rewrites "?" placeholders to the backend's binding style.
func (d *Driver) rebind(query string) string {
	if d.Placeholder == Question {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// CreateNote inserts a new note and returns it with its assigned id.
func (d *Driver) CreateNote(ctx context.Context, n *notes.Note) (*notes.Note, error) {
	query := d.rebind(`INSERT INTO notes (title, body, tags_text, pinned, archived)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := d.DB.QueryRowContext(ctx, query,
		n.Title, n.Body, notes.SerializeTags(n.Tags), n.Pinned, n.Archived,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}

	created := *n
	created.ID = id
	created.Tags = notes.NormalizeTags(n.Tags)

	return &created, nil
}

const noteColumns = `id, title, body, tags_text, pinned, archived, share_token`

func scanNote(row interface{ Scan(dest ...any) error }) (*notes.Note, error) {
	var (
		n        notes.Note
		tagsText string
		token    sql.NullString
	)

	err := row.Scan(&n.ID, &n.Title, &n.Body, &tagsText, &n.Pinned, &n.Archived, &token)
	if err != nil {
		return nil, err
	}

	n.Tags = notes.ParseTags(tagsText)
	if token.Valid {
		n.ShareToken = &token.String
	}

	return &n, nil
}

// GetNote retrieves a note by id.
func (d *Driver) GetNote(ctx context.Context, id int64) (*notes.Note, error) {
	query := d.rebind(`SELECT ` + noteColumns + ` FROM notes WHERE id = ?`)

	n, err := scanNote(d.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NoteNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return n, nil
}

// GetNoteByShareToken retrieves a note by its share token.
func (d *Driver) GetNoteByShareToken(ctx context.Context, token string) (*notes.Note, error) {
	query := d.rebind(`SELECT ` + noteColumns + ` FROM notes WHERE share_token = ?`)

	n, err := scanNote(d.DB.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ShareNotFound(token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note by share token: %w", err)
	}

	return n, nil
}

// ListNotes returns notes matching the filter, pinned first, newest id first.
func (d *Driver) ListNotes(ctx context.Context, f storage.Filter) ([]*notes.Note, error) {
	var (
		where []string
		args  []any
	)

	if f.Search != "" {
		term := "%" + strings.TrimSpace(f.Search) + "%"
		where = append(where, `(title LIKE ? OR body LIKE ? OR tags_text LIKE ?)`)
		args = append(args, term, term, term)
	}
	if !f.IncludeArchived {
		where = append(where, `archived = ?`)
		args = append(args, false)
	}

	query := `SELECT ` + noteColumns + ` FROM notes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY pinned DESC, id DESC`

	rows, err := d.DB.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	result := make([]*notes.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		result = append(result, n)
	}

	return result, rows.Err()
}

// SaveNote persists every mutable field of an existing note.
func (d *Driver) SaveNote(ctx context.Context, n *notes.Note) error {
	return d.saveNote(ctx, d.DB, n)
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *Driver) saveNote(ctx context.Context, ex execer, n *notes.Note) error {
	query := d.rebind(`UPDATE notes
		SET title = ?, body = ?, tags_text = ?, pinned = ?, archived = ?, share_token = ?
		WHERE id = ?`)

	var token sql.NullString
	if n.ShareToken != nil {
		token = sql.NullString{String: *n.ShareToken, Valid: true}
	}

	res, err := ex.ExecContext(ctx, query,
		n.Title, n.Body, notes.SerializeTags(n.Tags), n.Pinned, n.Archived, token, n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return storage.NoteNotFound(n.ID)
	}

	return nil
}

func (d *Driver) appendHistory(ctx context.Context, ex execer, e *notes.HistoryEntry) error {
	query := d.rebind(`INSERT INTO note_history
		(note_id, action, title, body, tags_text, pinned, archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := ex.ExecContext(ctx, query,
		e.NoteID, string(e.Action), e.Title, e.Body, notes.SerializeTags(e.Tags),
		e.Pinned, e.Archived, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// SaveNoteRevision appends a history entry and persists the note's fields in
// one transaction, so the pre-image snapshot and the mutation commit together.
func (d *Driver) SaveNoteRevision(ctx context.Context, n *notes.Note, e *notes.HistoryEntry) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := d.appendHistory(ctx, tx, e); err != nil {
		return err
	}
	if err := d.saveNote(ctx, tx, n); err != nil {
		return err
	}

	return tx.Commit()
}

// PurgeNote deletes the note's attachment rows, history rows, and the note
// row itself in one transaction.
func (d *Driver) PurgeNote(ctx context.Context, id int64) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM attachments WHERE note_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete attachments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM note_history WHERE note_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}

	res, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM notes WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return storage.NoteNotFound(id)
	}

	return tx.Commit()
}

// CreateAttachment inserts an attachment row and returns it with its id.
func (d *Driver) CreateAttachment(ctx context.Context, a *notes.Attachment) (*notes.Attachment, error) {
	query := d.rebind(`INSERT INTO attachments
		(note_id, filename, storage_name, content_type, size_bytes)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := d.DB.QueryRowContext(ctx, query,
		a.NoteID, a.Filename, a.StorageName, a.ContentType, a.SizeBytes,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert attachment: %w", err)
	}

	created := *a
	created.ID = id

	return &created, nil
}

// GetAttachment retrieves an attachment row by id.
func (d *Driver) GetAttachment(ctx context.Context, id int64) (*notes.Attachment, error) {
	query := d.rebind(`SELECT id, note_id, filename, storage_name, content_type, size_bytes
		FROM attachments WHERE id = ?`)

	var a notes.Attachment
	err := d.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.NoteID, &a.Filename, &a.StorageName, &a.ContentType, &a.SizeBytes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.AttachmentNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return &a, nil
}

// ListAttachments returns a note's attachments, newest id first.
func (d *Driver) ListAttachments(ctx context.Context, noteID int64) ([]*notes.Attachment, error) {
	query := d.rebind(`SELECT id, note_id, filename, storage_name, content_type, size_bytes
		FROM attachments WHERE note_id = ? ORDER BY id DESC`)

	rows, err := d.DB.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	result := make([]*notes.Attachment, 0)
	for rows.Next() {
		var a notes.Attachment
		err := rows.Scan(&a.ID, &a.NoteID, &a.Filename, &a.StorageName, &a.ContentType, &a.SizeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		result = append(result, &a)
	}

	return result, rows.Err()
}

// DeleteAttachment removes a single attachment row.
func (d *Driver) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := d.DB.ExecContext(ctx, d.rebind(`DELETE FROM attachments WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return storage.AttachmentNotFound(id)
	}

	return nil
}

// ListHistory returns a note's history entries, newest id first.
func (d *Driver) ListHistory(ctx context.Context, noteID int64) ([]*notes.HistoryEntry, error) {
	query := d.rebind(`SELECT id, note_id, action, title, body, tags_text, pinned, archived, created_at
		FROM note_history WHERE note_id = ? ORDER BY id DESC`)

	rows, err := d.DB.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	result := make([]*notes.HistoryEntry, 0)
	for rows.Next() {
		var (
			e         notes.HistoryEntry
			action    string
			tagsText  string
			createdAt string
		)
		err := rows.Scan(&e.ID, &e.NoteID, &action, &e.Title, &e.Body, &tagsText, &e.Pinned, &e.Archived, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		e.Action = notes.Action(action)
		e.Tags = notes.ParseTags(tagsText)
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse history timestamp: %w", err)
		}

		result = append(result, &e)
	}

	return result, rows.Err()
}

// Ping verifies the backend is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}
