package workspace

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateAlias is returned when saving over an existing name
	// without asking to overwrite.
	ErrDuplicateAlias = errors.New("already exists")
	// ErrNotFound is returned by every lookup miss.
	ErrNotFound = errors.New("not found")
)

// CorruptWorkspaceError means the persisted workspace could not be parsed.
// Loading stops; nothing from the damaged file is applied.
type CorruptWorkspaceError struct {
	Path string
	Err  error
}

func (e *CorruptWorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s is corrupt: %v (move it aside and restore a backup with `postmaker import FILE`)", e.Path, e.Err)
}

func (e *CorruptWorkspaceError) Unwrap() error {
	return e.Err
}

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}

func duplicate(kind, name string) error {
	return fmt.Errorf("%s %q %w (use --overwrite to replace it)", kind, name, ErrDuplicateAlias)
}
