package workspace

import (
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/google/uuid"
)

// Backend persists a workspace. SaveSnapshot must replace the stored
// snapshot atomically: after a failed save the previous snapshot is still
// the one LoadSnapshot returns.
type Backend interface {
	LoadSnapshot() (*Snapshot, error)
	SaveSnapshot(s *Snapshot) error
	LoadHistory() ([]*HistoryEntry, error)
	AppendHistory(e *HistoryEntry) error
	ClearHistory() error
	Close() error
}

// Store owns the workspace in memory and writes every mutation through to
// its Backend. A mutation that fails to persist leaves the in-memory state
// unchanged.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	snap    *Snapshot
	history []*HistoryEntry
	now     func() time.Time
}

// Open loads the workspace from b.
func Open(b Backend) (*Store, error) {
	snap, err := b.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = NewSnapshot()
	}
	history, err := b.LoadHistory()
	if err != nil {
		return nil, err
	}
	return &Store{
		backend: b,
		snap:    snap.normalize(),
		history: history,
		now:     time.Now,
	}, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// mutate applies fn to a copy of the snapshot and swaps it in only after
// the backend accepted it.
func (s *Store) mutate(fn func(next *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.backend.SaveSnapshot(next); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	s.snap = next
	return nil
}

// Variables

func (s *Store) SetVariable(name, value string) error {
	if name == "" {
		return fmt.Errorf("variable name is empty")
	}
	return s.mutate(func(next *Snapshot) error {
		next.Variables[name] = value
		return nil
	})
}

// SetVariables merges vars into the store in one write.
func (s *Store) SetVariables(vars map[string]string) error {
	return s.mutate(func(next *Snapshot) error {
		for k, v := range vars {
			next.Variables[k] = v
		}
		return nil
	})
}

func (s *Store) GetVariable(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.snap.Variables[name]
	return v, ok
}

func (s *Store) RemoveVariable(name string) error {
	return s.mutate(func(next *Snapshot) error {
		if _, ok := next.Variables[name]; !ok {
			return notFound("variable", name)
		}
		delete(next.Variables, name)
		return nil
	})
}

func (s *Store) ClearVariables() error {
	return s.mutate(func(next *Snapshot) error {
		next.Variables = map[string]string{}
		return nil
	})
}

// Variables returns a copy of the variable mapping.
func (s *Store) Variables() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.snap.Variables))
	for k, v := range s.snap.Variables {
		out[k] = v
	}
	return out
}

// Aliases

// SaveAlias stores req under name, globally when collection is empty.
// The collection is created if needed.
func (s *Store) SaveAlias(name string, req *http.Request, collection string, overwrite bool) error {
	return s.SaveAliases([]NamedRequest{{Name: name, Request: req}}, collection, overwrite)
}

// NamedRequest is a request and the alias to save it under.
type NamedRequest struct {
	Name    string
	Request *http.Request
}

// SaveAliases stores all aliases in a single update. If any of them is
// invalid or already taken, nothing is saved.
func (s *Store) SaveAliases(aliases []NamedRequest, collection string, overwrite bool) error {
	seen := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		if a.Name == "" {
			return fmt.Errorf("alias name is empty")
		}
		if seen[a.Name] {
			return fmt.Errorf("alias %q given more than once", a.Name)
		}
		seen[a.Name] = true
		if err := a.Request.Validate(); err != nil {
			return err
		}
	}

	return s.mutate(func(next *Snapshot) error {
		target := next.GlobalAliases
		if collection != "" {
			c, ok := next.Collections[collection]
			if !ok {
				c = Collection{}
				next.Collections[collection] = c
			}
			target = c
		}
		for _, a := range aliases {
			if _, exists := target[a.Name]; exists && !overwrite {
				if collection != "" {
					return duplicate("alias", collection+"/"+a.Name)
				}
				return duplicate("global alias", a.Name)
			}
			target[a.Name] = a.Request.Clone()
		}
		return nil
	})
}

// FindAlias looks name up among the global aliases first and then in every
// collection in name order, returning the first match and the collection
// it came from ("" for global).
func (s *Store) FindAlias(name string) (*http.Request, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if req, ok := s.snap.GlobalAliases[name]; ok {
		return req.Clone(), "", nil
	}
	for _, cname := range sortedKeys(s.snap.Collections) {
		if req, ok := s.snap.Collections[cname][name]; ok {
			return req.Clone(), cname, nil
		}
	}
	return nil, "", notFound("alias", name)
}

// GetAlias returns one alias from a specific scope.
func (s *Store) GetAlias(collection, name string) (*http.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scope := s.snap.GlobalAliases
	if collection != "" {
		c, ok := s.snap.Collections[collection]
		if !ok {
			return nil, notFound("collection", collection)
		}
		scope = c
	}
	req, ok := scope[name]
	if !ok {
		if collection != "" {
			return nil, notFound("alias", collection+"/"+name)
		}
		return nil, notFound("global alias", name)
	}
	return req.Clone(), nil
}

// DeleteAlias removes an alias; an empty collection means the global scope.
// The collection itself remains even when it becomes empty.
func (s *Store) DeleteAlias(collection, name string) error {
	return s.mutate(func(next *Snapshot) error {
		scope := next.GlobalAliases
		if collection != "" {
			c, ok := next.Collections[collection]
			if !ok {
				return notFound("collection", collection)
			}
			scope = c
		}
		if _, ok := scope[name]; !ok {
			if collection != "" {
				return notFound("alias", collection+"/"+name)
			}
			return notFound("global alias", name)
		}
		delete(scope, name)
		return nil
	})
}

// GlobalAliases returns a copy of the global aliases.
func (s *Store) GlobalAliases() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.GlobalAliases.clone()
}

// Collections

// CollectionInfo summarizes one collection.
type CollectionInfo struct {
	Name    string
	Aliases []string
}

func (s *Store) ListCollections() []CollectionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CollectionInfo, 0, len(s.snap.Collections))
	for _, name := range sortedKeys(s.snap.Collections) {
		out = append(out, CollectionInfo{Name: name, Aliases: s.snap.Collections[name].Names()})
	}
	return out
}

// Collection returns a copy of one collection.
func (s *Store) Collection(name string) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.snap.Collections[name]
	if !ok {
		return nil, notFound("collection", name)
	}
	return c.clone(), nil
}

func (s *Store) DeleteCollection(name string) error {
	return s.mutate(func(next *Snapshot) error {
		if _, ok := next.Collections[name]; !ok {
			return notFound("collection", name)
		}
		delete(next.Collections, name)
		return nil
	})
}

// Templates

// SaveTemplate stores t, replacing a template of the same name.
func (s *Store) SaveTemplate(t *Template) error {
	if t.Name == "" {
		return fmt.Errorf("template name is empty")
	}
	if err := validateRequest("template "+t.Name, t.Request); err != nil {
		return err
	}
	return s.mutate(func(next *Snapshot) error {
		next.Templates[t.Name] = t.Clone()
		return nil
	})
}

// ListTemplates returns every template in name order.
func (s *Store) ListTemplates() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Template, 0, len(s.snap.Templates))
	for _, name := range sortedKeys(s.snap.Templates) {
		out = append(out, s.snap.Templates[name].Clone())
	}
	return out
}

// UseTemplate returns the template with its placeholders still in place;
// resolving them is up to the caller.
func (s *Store) UseTemplate(name string) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.snap.Templates[name]
	if !ok {
		return nil, notFound("template", name)
	}
	return t.Clone(), nil
}

func (s *Store) DeleteTemplate(name string) error {
	return s.mutate(func(next *Snapshot) error {
		if _, ok := next.Templates[name]; !ok {
			return notFound("template", name)
		}
		delete(next.Templates, name)
		return nil
	})
}

// History

// AppendHistory records an executed request. The entry's index is its
// position in the log.
func (s *Store) AppendHistory(req *http.Request, resp *http.Response) (*HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &HistoryEntry{
		Index:     len(s.history),
		ID:        uuid.New().String(),
		Timestamp: s.now().UTC(),
		Request:   req.Clone(),
		Response:  resp,
	}
	if err := s.backend.AppendHistory(entry); err != nil {
		return nil, fmt.Errorf("failed to record history: %w", err)
	}
	s.history = append(s.history, entry)
	return entry, nil
}

// ListHistory returns the last limit entries matching search, oldest
// first. A limit of zero or less returns every match.
func (s *Store) ListHistory(limit int, search string) []*HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*HistoryEntry
	for _, e := range s.history {
		if e.Matches(search) {
			matches = append(matches, e)
		}
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}
	return matches
}

// HistoryEntry returns the entry at index.
func (s *Store) HistoryEntry(index int) (*HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.history) {
		return nil, notFound("history entry", fmt.Sprint(index))
	}
	return s.history[index], nil
}

func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// ClearHistory drops every entry; the next entry gets index zero.
func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.ClearHistory(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.history = nil
	return nil
}

// Import and export

// ExportAll returns a deep copy of the workspace.
func (s *Store) ExportAll() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// ImportAll replaces the whole workspace with snap. It either fully
// succeeds or leaves the current workspace untouched.
func (s *Store) ImportAll(snap *Snapshot) error {
	next := snap.Clone()
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return s.mutate(func(cur *Snapshot) error {
		*cur = *next
		return nil
	})
}
