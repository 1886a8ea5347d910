// Package diff compares two response bodies line by line.
//
// Bodies that parse as JSON are first rendered with sorted keys and fixed
// indentation, so reordering keys produces no changes.
package diff
