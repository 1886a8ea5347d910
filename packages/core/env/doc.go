// Package env handles variables and placeholder resolution for postmaker.
//
// It provides functionality for:
//   - Placeholder substitution using {{name}} syntax
//   - A tagged JSON value used to substitute inside structured bodies
//   - Loading variables from .env files
package env
