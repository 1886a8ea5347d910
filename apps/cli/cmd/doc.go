// Package cmd implements the postmaker CLI commands using Cobra.
//
// Available commands:
//   - request: Compose and send a request, or a batch from a file of URLs
//   - save, send: Store a request under an alias and send it later
//   - collections, globalaliases, removeglobal: Browse and prune aliases
//   - setvar, vars: Manage the variables that fill {{placeholders}}
//   - history, replay, diff: Inspect, re-send and compare past exchanges
//   - chain: Run a JSON file of requests in order, optionally on every change
//   - importcurl, exportcurl: Convert between cURL commands and aliases
//   - template: Save, list, use and delete request templates
//   - export, import: Move the workspace to and from snapshot files
//   - init, version, completion
//
// Commands map failures to exit codes (see exitcodes.go) so scripts can
// tell an assertion failure from a transport or parse error.
package cmd
