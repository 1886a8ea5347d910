// Package assertions checks a captured response against a one-line
// expectation.
//
// Supported assertions:
//   - status=<int>            the status code equals the integer
//   - body_contains=<text>    the body contains the literal text (case-sensitive)
//
// Either form may end in ,<script id>. When the assertion passes, the
// Evaluator hands a ScriptCommand to its Dispatcher and moves on; the
// script's own result is never observed.
package assertions
