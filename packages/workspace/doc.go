// Package workspace holds everything a user saves: variables, global
// aliases, collections of aliases, templates and the request history.
//
// A Store keeps the workspace in memory and writes each mutation through a
// Backend (see package storage). Lookups that miss return an error wrapping
// ErrNotFound; saving over an existing alias without overwrite returns an
// error wrapping ErrDuplicateAlias.
//
// The whole workspace serializes to a Snapshot with the sections
// collections, global_aliases, variables and templates. DecodeSnapshot
// checks a document against an embedded JSON Schema before accepting it,
// and a missing section decodes as empty.
package workspace
