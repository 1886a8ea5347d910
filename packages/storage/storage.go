package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

const (
	// Secure file permissions - owner read/write only
	secureFileMode = 0600
	secureDirMode  = 0700
)

// Kind names a backend in configuration.
type Kind string

const (
	KindJSON   Kind = "json"
	KindSQLite Kind = "sqlite"
)

// Open returns the backend of the given kind rooted at dir, creating dir
// if needed.
func Open(kind Kind, dir string) (workspace.Backend, error) {
	if err := os.MkdirAll(dir, secureDirMode); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	switch kind {
	case KindJSON, "":
		return NewJSONBackend(dir), nil
	case KindSQLite:
		return NewSQLiteBackend(filepath.Join(dir, sqliteFile))
	default:
		return nil, fmt.Errorf("unknown storage backend %q (use json or sqlite)", kind)
	}
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(secureFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
