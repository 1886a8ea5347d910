// Package curl converts between shell-style curl commands and Requests.
//
// Decode accepts the subset of curl a person pastes from a browser or API
// docs: -X, -H, the -d family, -u, --oauth2-bearer, -A, -e, -b, -I, -G and
// --url, in any order and with single or double quoting. Encode produces a
// command that Decode reads back to the same method, URL, headers and auth.
package curl
