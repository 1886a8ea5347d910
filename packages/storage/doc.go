// Package storage persists a workspace.
//
// Two backends implement workspace.Backend:
//   - JSON: workspace.json and history.json in the data directory, each
//     replaced through a temporary file and a rename
//   - SQLite: a single postmaker.db with a sections table and a history
//     table, every write in a transaction
//
// Files are created owner-only (0600) inside an owner-only (0700) directory.
package storage
