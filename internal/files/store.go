// Package files persists inline file uploads and serves them back by id.
//
// Storage is a flat directory of entries named "{file_id}_{filename}". There
// is no index and no metadata sidecar: a lookup scans the directory for the
// id prefix.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrNotFound reports that no stored entry carries the requested id.
	ErrNotFound = errors.New("file not found")
	// ErrNoDirectory reports that the storage directory does not exist.
	ErrNoDirectory = errors.New("uploads directory not found")
	// ErrInvalidFilename reports a filename that cannot be stored as a flat
	// directory entry.
	ErrInvalidFilename = errors.New("invalid filename")
)

// StoredFile is one persisted upload.
type StoredFile struct {
	ID       string
	Filename string
	Path     string
	Data     []byte
}

// ContentType guesses the MIME type from the filename extension, then from
// the bytes themselves.
func (f StoredFile) ContentType() string {
	if ct := mime.TypeByExtension(filepath.Ext(f.Filename)); ct != "" {
		return ct
	}
	return mimetype.Detect(f.Data).String()
}

// Store writes and reads uploads under a single directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// the first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// ValidateFilename rejects names that would escape the flat layout.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// Save writes data under a freshly minted id and returns the stored entry.
// Entries are never rewritten.
func (s *Store) Save(filename string, data []byte) (StoredFile, error) {
	if err := ValidateFilename(filename); err != nil {
		return StoredFile{}, err
	}

	id := uuid.NewString()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create uploads directory: %w", err)
	}

	path := filepath.Join(s.dir, id+"_"+filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("save file %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return StoredFile{}, fmt.Errorf("save file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return StoredFile{}, fmt.Errorf("save file %s: %w", path, err)
	}

	return StoredFile{ID: id, Filename: filename, Path: path, Data: data}, nil
}

// Lookup finds the entry whose name starts with "{id}_" and reads it.
// The first match in directory order wins.
func (s *Store) Lookup(id string) (StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return StoredFile{}, ErrNoDirectory
		}
		return StoredFile{}, fmt.Errorf("read uploads directory: %w", err)
	}

	prefix := id + "_"
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return StoredFile{}, fmt.Errorf("read file %s: %w", path, err)
		}
		return StoredFile{
			ID:       id,
			Filename: strings.TrimPrefix(name, prefix),
			Path:     path,
			Data:     data,
		}, nil
	}

	return StoredFile{}, ErrNotFound
}
