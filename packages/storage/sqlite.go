package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteFile   = "postmaker.db"
	queryTimeout = 30 * time.Second
)

// sections are stored one row each, in snapshot document order.
var sections = []string{"collections", "global_aliases", "variables", "templates"}

const schema = `
CREATE TABLE IF NOT EXISTS sections (
	name TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
	idx INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	request TEXT NOT NULL,
	response TEXT NOT NULL
);
`

// SQLiteBackend stores each snapshot section as a JSON document row and
// each history entry as its own row.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if err := ensureSecureFile(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &workspace.CorruptWorkspaceError{Path: path, Err: err}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, &workspace.CorruptWorkspaceError{Path: path, Err: err}
	}

	return &SQLiteBackend{db: db, path: path}, nil
}

// ensureSecureFile creates path owner-only before the driver can create it
// with default permissions.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("failed to create database file: %w", err)
		}
		return f.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}
	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("failed to set secure permissions: %w", err)
		}
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *SQLiteBackend) LoadSnapshot() (*workspace.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := b.db.QueryContext(ctx, `SELECT name, data FROM sections`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	found := make(map[string]string)
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		found[name] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// Reassemble the snapshot document so it goes through the same schema
	// check as an imported file.
	var doc strings.Builder
	doc.WriteByte('{')
	first := true
	for _, name := range sections {
		data, ok := found[name]
		if !ok {
			continue
		}
		if !first {
			doc.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(name)
		doc.Write(key)
		doc.WriteByte(':')
		doc.WriteString(data)
	}
	doc.WriteByte('}')

	snap, err := workspace.DecodeSnapshot([]byte(doc.String()), workspace.FormatJSON)
	if err != nil {
		return nil, &workspace.CorruptWorkspaceError{Path: b.path, Err: err}
	}
	return snap, nil
}

// SaveSnapshot replaces every section in one transaction.
func (b *SQLiteBackend) SaveSnapshot(s *workspace.Snapshot) error {
	docs := map[string]any{
		"collections":    s.Collections,
		"global_aliases": s.GlobalAliases,
		"variables":      s.Variables,
		"templates":      s.Templates,
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range sections {
		data, err := json.Marshal(docs[name])
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sections (name, data) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
			name, string(data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) LoadHistory() ([]*workspace.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := b.db.QueryContext(ctx,
		`SELECT idx, id, timestamp, request, response FROM history ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []*workspace.HistoryEntry
	for rows.Next() {
		var (
			e            workspace.HistoryEntry
			reqJSON      string
			respJSON     string
			timestampRaw time.Time
		)
		if err := rows.Scan(&e.Index, &e.ID, &timestampRaw, &reqJSON, &respJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Timestamp = timestampRaw.UTC()

		var req http.Request
		if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
			return nil, &workspace.CorruptWorkspaceError{Path: b.path, Err: fmt.Errorf("history %d request: %w", e.Index, err)}
		}
		var resp http.Response
		if err := json.Unmarshal([]byte(respJSON), &resp); err != nil {
			return nil, &workspace.CorruptWorkspaceError{Path: b.path, Err: fmt.Errorf("history %d response: %w", e.Index, err)}
		}
		e.Request = &req
		e.Response = &resp
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (b *SQLiteBackend) AppendHistory(e *workspace.HistoryEntry) error {
	reqJSON, err := json.Marshal(e.Request)
	if err != nil {
		return err
	}
	respJSON, err := json.Marshal(e.Response)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO history (idx, id, timestamp, request, response) VALUES (?, ?, ?, ?, ?)`,
		e.Index, e.ID, e.Timestamp.UTC(), string(reqJSON), string(respJSON))
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) ClearHistory() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return tx.Commit()
}
