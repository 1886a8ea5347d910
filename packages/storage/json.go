package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

const (
	workspaceFile = "workspace.json"
	historyFile   = "history.json"
)

// JSONBackend stores the snapshot and the history as two JSON files.
type JSONBackend struct {
	mu  sync.Mutex
	dir string
}

func NewJSONBackend(dir string) *JSONBackend {
	return &JSONBackend{dir: dir}
}

func (b *JSONBackend) workspacePath() string {
	return filepath.Join(b.dir, workspaceFile)
}

func (b *JSONBackend) historyPath() string {
	return filepath.Join(b.dir, historyFile)
}

// LoadSnapshot returns an empty snapshot when no file exists yet.
func (b *JSONBackend) LoadSnapshot() (*workspace.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.workspacePath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return workspace.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	snap, err := workspace.DecodeSnapshot(data, workspace.FormatJSON)
	if err != nil {
		return nil, &workspace.CorruptWorkspaceError{Path: path, Err: err}
	}
	return snap, nil
}

func (b *JSONBackend) SaveSnapshot(s *workspace.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := workspace.EncodeSnapshot(s, workspace.FormatJSON)
	if err != nil {
		return err
	}
	return writeFileAtomic(b.workspacePath(), data)
}

func (b *JSONBackend) LoadHistory() ([]*workspace.HistoryEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readHistory()
}

func (b *JSONBackend) readHistory() ([]*workspace.HistoryEntry, error) {
	path := b.historyPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []*workspace.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &workspace.CorruptWorkspaceError{Path: path, Err: err}
	}
	return entries, nil
}

func (b *JSONBackend) AppendHistory(e *workspace.HistoryEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.readHistory()
	if err != nil {
		return err
	}
	entries = append(entries, e)
	return b.writeHistory(entries)
}

func (b *JSONBackend) ClearHistory() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeHistory([]*workspace.HistoryEntry{})
}

func (b *JSONBackend) writeHistory(entries []*workspace.HistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return writeFileAtomic(b.historyPath(), append(data, '\n'))
}

func (b *JSONBackend) Close() error {
	return nil
}
