// Package blob stores attachment payloads as files under a single upload
// root, keyed by server-generated storage names.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// chunkSize bounds how much of an upload is held in memory at once.
const chunkSize = 1 << 20

// TooLargeError is returned when a streamed write exceeds the size ceiling.
// The partial file is already removed by the time the caller sees it.
type TooLargeError struct {
	Limit int64
}

func (e TooLargeError) Error() string {
	return fmt.Sprintf("payload exceeds limit of %d bytes", e.Limit)
}

// Store owns a directory of blobs. File identity is the storage name string.
type Store struct {
	root string
}

// NewStore creates the upload root if needed and returns a store over it.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("upload root is required")
	}

	if err := os.MkdirAll(root, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

// Root returns the upload root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the on-disk path for a storage name.
func (s *Store) Path(storageName string) string {
	return filepath.Join(s.root, storageName)
}

// SanitizeFilename strips directory components from a user-supplied filename
// and returns the base name, or "" if nothing displayable remains.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// NewStorageName generates a collision-free on-disk key for an upload:
// a random 32-hex token prefix keeps repeated uploads of the same filename
// from colliding.
func NewStorageName(sanitizedFilename string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return token + "-" + sanitizedFilename
}

// Write streams r to the blob for storageName in bounded chunks, enforcing
// limit as a hard ceiling. The moment the running count exceeds the limit the
// write is aborted, the partial file is removed, and a TooLargeError is
// returned. On any other failure the partial file is removed as well. Returns
// the number of bytes written on success.
func (s *Store) Write(storageName string, r io.Reader, limit int64) (int64, error) {
	dest := s.Path(storageName)

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("creating blob %s: %w", storageName, err)
	}

	written, err := copyCapped(out, r, limit)
	if err != nil {
		out.Close()
		os.Remove(dest)
		return 0, err
	}

	if err := out.Close(); err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("closing blob %s: %w", storageName, err)
	}

	return written, nil
}

func copyCapped(w io.Writer, r io.Reader, limit int64) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > limit {
				return written, TooLargeError{Limit: limit}
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("writing blob: %w", err)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("reading upload: %w", readErr)
		}
	}
}

// Open opens the blob for reading. Returns os.ErrNotExist (wrapped) if the
// blob is missing so callers can map a dangling row to not-found.
func (s *Store) Open(storageName string) (*os.File, error) {
	f, err := os.Open(s.Path(storageName))
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", storageName, err)
	}
	return f, nil
}

// Remove deletes the blob. A missing blob is not an error at delete time.
func (s *Store) Remove(storageName string) error {
	err := os.Remove(s.Path(storageName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing blob %s: %w", storageName, err)
	}
	return nil
}
