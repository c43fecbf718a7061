package api

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/paperjotco/jot/pkg/blob"
	"github.com/paperjotco/jot/pkg/notebook"
	"github.com/paperjotco/jot/pkg/notes"
	"github.com/paperjotco/jot/pkg/storage"
)

// ErrorResponse is the JSON body returned for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NoteResponse is the public JSON shape of a note. ShareURL is derived from
// the share token and omitted while the note is unshared.
type NoteResponse struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"pinned"`
	Archived bool     `json:"archived"`
	ShareURL *string  `json:"share_url,omitempty"`
}

// AttachmentResponse is the public JSON shape of an attachment. The
// server-side storage name is never exposed.
type AttachmentResponse struct {
	ID          int64  `json:"id"`
	NoteID      int64  `json:"note_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	DownloadURL string `json:"download_url"`
}

// HistoryEntryResponse is one pre-mutation snapshot from a note's history.
type HistoryEntryResponse struct {
	ID        int64    `json:"id"`
	NoteID    int64    `json:"note_id"`
	Action    string   `json:"action"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	Pinned    bool     `json:"pinned"`
	Archived  bool     `json:"archived"`
	CreatedAt string   `json:"created_at"`
}

// ShareResponse is returned when a share link is created (or re-requested).
type ShareResponse struct {
	NoteID   int64  `json:"note_id"`
	ShareURL string `json:"share_url"`
}

func toNoteResponse(n *notes.Note) NoteResponse {
	out := NoteResponse{
		ID:       n.ID,
		Title:    n.Title,
		Body:     n.Body,
		Tags:     n.Tags,
		Pinned:   n.Pinned,
		Archived: n.Archived,
	}
	if n.ShareToken != nil {
		url := "/share/" + *n.ShareToken
		out.ShareURL = &url
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

func toAttachmentResponse(a *notes.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		NoteID:      a.NoteID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		DownloadURL: fmt.Sprintf("/api/attachments/%d/download", a.ID),
	}
}

func toHistoryEntryResponse(e *notes.HistoryEntry) HistoryEntryResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return HistoryEntryResponse{
		ID:        e.ID,
		NoteID:    e.NoteID,
		Action:    string(e.Action),
		Title:     e.Title,
		Body:      e.Body,
		Tags:      tags,
		Pinned:    e.Pinned,
		Archived:  e.Archived,
		CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
	}
}

// respondError maps domain errors onto HTTP statuses. Anything unrecognized
// is a 500 and gets logged with the request path for correlation.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var notFound storage.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: notFound.Error()})
	}

	var invalid notebook.InvalidInputError
	if errors.As(err, &invalid) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: invalid.Error()})
	}

	var tooLarge blob.TooLargeError
	if errors.As(err, &tooLarge) {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{Error: tooLarge.Error()})
	}

	s.logger.Error("request failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", c.Params("id"))
	}
	return id, nil
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleReadyz reports readiness by pinging the storage backend.
func (s *Server) handleReadyz(c *fiber.Ctx) error {
	if err := s.notebook.Ping(c.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "storage not ready"})
	}
	return c.JSON(fiber.Map{"ready": true})
}

// handleListNotes lists notes, optionally filtered by search term, tag, and
// archived state.
func (s *Server) handleListNotes(c *fiber.Ctx) error {
	query := notebook.Query{
		Search:          c.Query("search"),
		Tag:             c.Query("tag"),
		IncludeArchived: c.QueryBool("include_archived"),
	}

	found, err := s.notebook.List(c.Context(), query)
	if err != nil {
		return s.respondError(c, err)
	}

	out := make([]NoteResponse, 0, len(found))
	for _, n := range found {
		out = append(out, toNoteResponse(n))
	}
	return c.JSON(out)
}

// handleCreateNote creates a new active note.
func (s *Server) handleCreateNote(c *fiber.Ctx) error {
	var draft notes.Draft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	created, err := s.notebook.Create(c.Context(), draft)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toNoteResponse(created))
}

// handleUpdateNote replaces a note's caller-editable fields, recording a
// pre-image history entry.
func (s *Server) handleUpdateNote(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	var draft notes.Draft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	updated, err := s.notebook.Update(c.Context(), id, draft)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toNoteResponse(updated))
}

// handleArchiveNote archives a note. Archiving an archived note is a no-op.
func (s *Server) handleArchiveNote(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	archived, err := s.notebook.Archive(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toNoteResponse(archived))
}

// handleUnarchiveNote restores an archived note to the active state.
func (s *Server) handleUnarchiveNote(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	restored, err := s.notebook.Unarchive(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toNoteResponse(restored))
}

// handleSoftDeleteNote is the reversible delete: it archives the note.
func (s *Server) handleSoftDeleteNote(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	if _, err := s.notebook.SoftDelete(c.Context(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"archived": id})
}

// handlePurgeNote permanently removes a note with its attachments, blobs,
// and history.
func (s *Server) handlePurgeNote(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	if err := s.notebook.Purge(c.Context(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// handleShareNote assigns the note's share token, minting one on first call
// and returning the same URL on repeats.
func (s *Server) handleShareNote(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	shared, err := s.notebook.Share(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(ShareResponse{
		NoteID:   shared.ID,
		ShareURL: "/share/" + *shared.ShareToken,
	})
}

// handleNoteHistory returns the note's history entries, newest first.
func (s *Server) handleNoteHistory(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	entries, err := s.notebook.History(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toHistoryEntryResponse(e))
	}
	return c.JSON(out)
}

// handleUploadAttachment stores a multipart file under the "file" field and
// records its metadata against the note.
func (s *Server) handleUploadAttachment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "multipart field 'file' is required"})
	}

	file, err := header.Open()
	if err != nil {
		return s.respondError(c, err)
	}
	defer file.Close()

	attachment, err := s.notebook.UploadAttachment(c.Context(), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toAttachmentResponse(attachment))
}

// handleListAttachments lists a note's attachments, newest first.
func (s *Server) handleListAttachments(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	attachments, err := s.notebook.ListAttachments(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	out := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, toAttachmentResponse(a))
	}
	return c.JSON(out)
}

// handleDownloadAttachment streams the attachment blob. With ?inline the
// browser may render it; otherwise it downloads under the original filename.
func (s *Server) handleDownloadAttachment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	attachment, body, err := s.notebook.OpenAttachment(c.Context(), id)
	if err != nil {
		return s.respondError(c, err)
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set(fiber.HeaderContentType, contentType)
	if c.QueryBool("inline") {
		c.Set(fiber.HeaderContentDisposition, "inline")
	} else {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", attachment.Filename))
	}

	// fasthttp closes the stream when it implements io.Closer.
	return c.SendStream(body, int(attachment.SizeBytes))
}

// handleDeleteAttachment removes the attachment's blob and metadata row.
func (s *Server) handleDeleteAttachment(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	if err := s.notebook.DeleteAttachment(c.Context(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// handleSharedNote returns the shared note as JSON, regardless of its
// archived state.
func (s *Server) handleSharedNote(c *fiber.Ctx) error {
	shared, err := s.notebook.GetByShareToken(c.Context(), c.Params("token"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(toNoteResponse(shared))
}
