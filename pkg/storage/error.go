package storage

import "fmt"

// NotFoundError is returned when a referenced entity doesn't exist in the
// store. Entity is "note", "attachment", or "share".
type NotFoundError struct {
	Entity string
	Key    string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return e.Entity + " not found"
	}

	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// NoteNotFound builds a NotFoundError for a note id.
func NoteNotFound(id int64) NotFoundError {
	return NotFoundError{Entity: "note", Key: fmt.Sprintf("%d", id)}
}

// AttachmentNotFound builds a NotFoundError for an attachment id.
func AttachmentNotFound(id int64) NotFoundError {
	return NotFoundError{Entity: "attachment", Key: fmt.Sprintf("%d", id)}
}

// ShareNotFound builds a NotFoundError for a share token.
func ShareNotFound(token string) NotFoundError {
	return NotFoundError{Entity: "share", Key: token}
}
