// Package dotdir manages the .jot/ and ~/.jot directories.
//
// The jot directory holds the service's local state: the config file, the
// default SQLite database, and the attachment upload directory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the jot directory.
	dirName = ".jot"

	// dbFileName is the default SQLite database file inside the jot directory.
	dbFileName = "jot.db"

	// uploadsDirName is the default attachment directory inside the jot directory.
	uploadsDirName = "uploads"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .jot/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.jot/ dir
//  3. Home ~/.jot/ dir
//  4. If none found, attempt to create ~/.jot/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating jot directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DatabasePath returns the default SQLite database path inside the resolved
// jot directory.
func (m *Manager) DatabasePath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

// UploadsDir returns the default attachment directory inside the resolved
// jot directory, creating it if needed.
func (m *Manager) UploadsDir(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	uploads := filepath.Join(dir, uploadsDirName)
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		return "", fmt.Errorf("creating uploads directory %s: %w", uploads, err)
	}
	return uploads, nil
}

// localDirExists checks whether a .jot/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
