// Package http provides the request model and the HTTP transport for postmaker.
//
// Request is the canonical method/url/headers/body/auth tuple with ordered
// headers and placeholder resolution. Client executes a resolved Request and
// returns a captured Response or a classified TransportError.
package http
