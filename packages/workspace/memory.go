package workspace

import "sync"

// MemoryBackend keeps the workspace in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	snap    *Snapshot
	history []*HistoryEntry
	// FailSave makes SaveSnapshot return this error when set.
	FailSave error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{snap: NewSnapshot()}
}

func (m *MemoryBackend) LoadSnapshot() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone(), nil
}

func (m *MemoryBackend) SaveSnapshot(s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.snap = s.Clone()
	return nil
}

func (m *MemoryBackend) LoadHistory() ([]*HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*HistoryEntry(nil), m.history...), nil
}

func (m *MemoryBackend) AppendHistory(e *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, e)
	return nil
}

func (m *MemoryBackend) ClearHistory() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
