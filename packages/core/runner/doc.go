// Package runner executes postmaker requests.
//
// A send resolves placeholders from the workspace variables, executes the
// request, records the exchange in history and evaluates an optional
// assertion, dispatching passing script ids to a ScriptRunner. On top of
// that it provides:
//   - Batches over a file of URLs, with per-URL failures
//   - Rate-paced repeats with latency percentiles
//   - Chain files of sequential steps, optionally re-run on change
package runner
