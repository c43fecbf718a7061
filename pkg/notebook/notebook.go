// Package notebook orchestrates the note lifecycle: create/update,
// archive/unarchive, purge, sharing, attachments, and the pre-image history
// log. It is the only writer of notes state; HTTP handlers stay thin on top
// of it.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paperjotco/jot/pkg/blob"
	"github.com/paperjotco/jot/pkg/eventstream"
	"github.com/paperjotco/jot/pkg/eventstream/nop"
	"github.com/paperjotco/jot/pkg/notes"
	"github.com/paperjotco/jot/pkg/storage"
)

// DefaultMaxUploadBytes caps attachment uploads at 700 MiB unless overridden.
const DefaultMaxUploadBytes = 700 << 20

// Service coordinates the storage driver, the blob store, and the event
// publisher. One service method corresponds to one request and one logical
// storage transaction.
type Service struct {
	store  storage.Driver
	blobs  *blob.Store
	events eventstream.Publisher
	logger *zap.Logger

	maxUploadBytes int64
	now            func() time.Time
}

// Option configures a Service created with NewService.
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPublisher sets the event publisher. Defaults to the nop publisher.
func WithPublisher(p eventstream.Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithMaxUploadBytes overrides the attachment size ceiling.
func WithMaxUploadBytes(limit int64) Option {
	return func(s *Service) {
		s.maxUploadBytes = limit
	}
}

// WithClock overrides the history timestamp source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a notebook service over the given store and blob store.
func NewService(store storage.Driver, blobs *blob.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		blobs:          blobs,
		events:         nop.NewPublisher(),
		logger:         zap.NewNop(),
		maxUploadBytes: DefaultMaxUploadBytes,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// MaxUploadBytes returns the configured attachment size ceiling.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// Ping reports whether the storage backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish emits a note event best-effort; failures are logged, never returned.
func (s *Service) publish(ctx context.Context, change eventstream.Change, noteID int64) {
	event := eventstream.NewNoteChangedEvent(change, noteID)
	if err := s.events.PublishNoteChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish note event",
			zap.String("change", string(change)),
			zap.Int64("note_id", noteID),
			zap.Error(err),
		)
	}
}

// Create inserts a new active, unshared note with normalized tags. Creation
// is not a history event.
func (s *Service) Create(ctx context.Context, draft notes.Draft) (*notes.Note, error) {
	n := &notes.Note{
		Title:    draft.Title,
		Body:     draft.Body,
		Tags:     notes.NormalizeTags(draft.Tags),
		Pinned:   draft.Pinned,
		Archived: false,
	}

	created, err := s.store.CreateNote(ctx, n)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventstream.ChangeCreated, created.ID)

	return created, nil
}

// Get retrieves a note by id.
func (s *Service) Get(ctx context.Context, id int64) (*notes.Note, error) {
	return s.store.GetNote(ctx, id)
}

// Update overwrites title/body/tags/pinned after recording a pre-image
// history entry. The archived flag and share token are untouched; updating
// an archived note is permitted.
func (s *Service) Update(ctx context.Context, id int64, draft notes.Draft) (*notes.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := notes.Snapshot(n, notes.ActionUpdate, s.now())

	n.Title = draft.Title
	n.Body = draft.Body
	n.Tags = notes.NormalizeTags(draft.Tags)
	n.Pinned = draft.Pinned

	if err := s.store.SaveNoteRevision(ctx, n, entry); err != nil {
		return nil, err
	}

	s.publish(ctx, eventstream.ChangeUpdated, n.ID)

	return n, nil
}

// Archive sets archived=true, recording a pre-image history entry. Archiving
// an already-archived note is a no-op with no duplicate history entry.
func (s *Service) Archive(ctx context.Context, id int64) (*notes.Note, error) {
	return s.setArchived(ctx, id, true)
}

// Unarchive sets archived=false, symmetric to Archive.
func (s *Service) Unarchive(ctx context.Context, id int64) (*notes.Note, error) {
	return s.setArchived(ctx, id, false)
}

// SoftDelete archives the note: a "delete" in the public contract is
// non-destructive.
func (s *Service) SoftDelete(ctx context.Context, id int64) (*notes.Note, error) {
	return s.Archive(ctx, id)
}

func (s *Service) setArchived(ctx context.Context, id int64, archived bool) (*notes.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}

	if n.Archived == archived {
		return n, nil
	}

	action := notes.ActionArchive
	change := eventstream.ChangeArchived
	if !archived {
		action = notes.ActionUnarchive
		change = eventstream.ChangeUnarchived
	}

	entry := notes.Snapshot(n, action, s.now())
	n.Archived = archived

	if err := s.store.SaveNoteRevision(ctx, n, entry); err != nil {
		return nil, err
	}

	s.publish(ctx, change, n.ID)

	return n, nil
}

// Purge irreversibly removes the note, its history, and its attachments'
// rows and blobs. Blob removal is best-effort and happens before the rows
// go, with the rows as the authoritative record.
func (s *Service) Purge(ctx context.Context, id int64) error {
	if _, err := s.store.GetNote(ctx, id); err != nil {
		return err
	}

	attachments, err := s.store.ListAttachments(ctx, id)
	if err != nil {
		return err
	}

	for _, a := range attachments {
		if err := s.blobs.Remove(a.StorageName); err != nil {
			s.logger.Warn("failed to remove attachment blob during purge",
				zap.Int64("attachment_id", a.ID),
				zap.String("storage_name", a.StorageName),
				zap.Error(err),
			)
		}
	}

	if err := s.store.PurgeNote(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, eventstream.ChangePurged, id)

	return nil
}

// Share issues the note's share token, or returns the existing one
// unchanged: sharing twice never rotates a token, and tokens are never
// reused across notes.
func (s *Service) Share(ctx context.Context, id int64) (*notes.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}

	if n.ShareToken != nil {
		return n, nil
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	n.ShareToken = &token

	if err := s.store.SaveNote(ctx, n); err != nil {
		return nil, err
	}

	s.publish(ctx, eventstream.ChangeShared, n.ID)

	return n, nil
}

// GetByShareToken resolves a share token to its note, regardless of archived
// state: a share link survives archiving.
func (s *Service) GetByShareToken(ctx context.Context, token string) (*notes.Note, error) {
	return s.store.GetNoteByShareToken(ctx, token)
}

// Query restricts List. Tag narrowing happens after the store query, as an
// exact match against the normalized tag list.
type Query struct {
	Search          string
	Tag             string
	IncludeArchived bool
}

// List returns notes matching the query, pinned first, newest id first.
func (s *Service) List(ctx context.Context, q Query) ([]*notes.Note, error) {
	result, err := s.store.ListNotes(ctx, storage.Filter{
		Search:          q.Search,
		IncludeArchived: q.IncludeArchived,
	})
	if err != nil {
		return nil, err
	}

	if q.Tag == "" {
		return result, nil
	}

	narrowed := make([]*notes.Note, 0, len(result))
	for _, n := range result {
		if notes.HasTag(n.Tags, q.Tag) {
			narrowed = append(narrowed, n)
		}
	}

	return narrowed, nil
}

// History returns the note's history entries, newest first. The note must
// exist.
func (s *Service) History(ctx context.Context, noteID int64) ([]*notes.HistoryEntry, error) {
	if _, err := s.store.GetNote(ctx, noteID); err != nil {
		return nil, err
	}

	return s.store.ListHistory(ctx, noteID)
}

// UploadAttachment streams an attachment body to disk under the size ceiling
// and persists its metadata row. On success exactly one blob and one row
// exist together; on any failure neither survives.
func (s *Service) UploadAttachment(ctx context.Context, noteID int64, filename, contentType string, body io.Reader) (*notes.Attachment, error) {
	if _, err := s.store.GetNote(ctx, noteID); err != nil {
		return nil, err
	}

	name := blob.SanitizeFilename(filename)
	if name == "" {
		return nil, InvalidInputError{Reason: "filename is required"}
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storageName := blob.NewStorageName(name)

	size, err := s.blobs.Write(storageName, body, s.maxUploadBytes)
	if err != nil {
		return nil, err
	}

	att := &notes.Attachment{
		NoteID:      noteID,
		Filename:    name,
		StorageName: storageName,
		ContentType: contentType,
		SizeBytes:   size,
	}

	created, err := s.store.CreateAttachment(ctx, att)
	if err != nil {
		// No orphan blob survives a failed metadata commit.
		if removeErr := s.blobs.Remove(storageName); removeErr != nil {
			s.logger.Warn("failed to remove blob after metadata failure",
				zap.String("storage_name", storageName),
				zap.Error(removeErr),
			)
		}
		return nil, fmt.Errorf("persisting attachment metadata: %w", err)
	}

	s.publish(ctx, eventstream.ChangeAttachmentAdded, noteID)

	return created, nil
}

// ListAttachments returns the note's attachments, newest first. The note
// must exist.
func (s *Service) ListAttachments(ctx context.Context, noteID int64) ([]*notes.Attachment, error) {
	if _, err := s.store.GetNote(ctx, noteID); err != nil {
		return nil, err
	}

	return s.store.ListAttachments(ctx, noteID)
}

// OpenAttachment returns the attachment record and a reader over its blob.
// A dangling row (blob missing from disk) reports the same not-found as a
// missing row. The caller closes the reader.
func (s *Service) OpenAttachment(ctx context.Context, id int64) (*notes.Attachment, io.ReadCloser, error) {
	att, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f, err := s.blobs.Open(att.StorageName)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, storage.AttachmentNotFound(id)
	}
	if err != nil {
		return nil, nil, err
	}

	return att, f, nil
}

// DeleteAttachment removes the blob (idempotently) and then the metadata
// row. A blob removal failure is logged but does not skip row removal.
func (s *Service) DeleteAttachment(ctx context.Context, id int64) error {
	att, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Remove(att.StorageName); err != nil {
		s.logger.Warn("failed to remove attachment blob",
			zap.Int64("attachment_id", id),
			zap.String("storage_name", att.StorageName),
			zap.Error(err),
		)
	}

	if err := s.store.DeleteAttachment(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, eventstream.ChangeAttachmentDeleted, att.NoteID)

	return nil
}
