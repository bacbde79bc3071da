package cftemplate

import (
	"os"
	"path/filepath"
)

// FileSystem is the local file access used by require directives.
// Implementations must be safe for concurrent use.
type FileSystem interface {
	// Readable reports whether path names a regular file the process can read.
	Readable(path string) bool

	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem reads from the host file system
type OSFileSystem struct{}

// Readable opens path to check read access
func (OSFileSystem) Readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ReadFile reads the whole file
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapFileSystem serves files from memory, keyed by cleaned absolute or
// relative path. Useful in tests and for embedding template sets.
type MapFileSystem map[string]string

// Readable reports whether path is present
func (m MapFileSystem) Readable(path string) bool {
	_, ok := m[cleanPath(path)]
	return ok
}

// ReadFile returns the stored content or fs.ErrNotExist
func (m MapFileSystem) ReadFile(path string) ([]byte, error) {
	content, ok := m[cleanPath(path)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return []byte(content), nil
}

func cleanPath(path string) string {
	return filepath.Clean(path)
}
