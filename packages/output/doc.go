// Package output renders postmaker results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: one JSON object per result, for scripting
//
// ResponseReport produces the plain-text file written by -o.
package output
