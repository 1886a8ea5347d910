package http

import (
	"mime"
	"sort"
	"strings"
	"time"
)

// Response is a captured HTTP response. Once produced by the Client it is
// treated as a read-only value and stored in history as is.
type Response struct {
	StatusCode int               `json:"status" yaml:"status"`
	Status     string            `json:"status_text,omitempty" yaml:"status_text,omitempty"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
	Body       string            `json:"body" yaml:"body"`
	Duration   time.Duration     `json:"elapsed" yaml:"elapsed"`
	// Size is the body length on the wire, before any Content-Encoding is
	// undone.
	Size int `json:"size" yaml:"size"`

	// URL is set only when redirects led somewhere other than the request URL.
	URL       string `json:"final_url,omitempty" yaml:"final_url,omitempty"`
	Redirects int    `json:"redirects,omitempty" yaml:"redirects,omitempty"`
}

// Header looks up a header case-insensitively.
func (r *Response) Header(key string) string {
	if v, ok := r.Headers[key]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// HeaderNames returns the header names in lexical order.
func (r *Response) HeaderNames() []string {
	names := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MediaType is the Content-Type without parameters, lowercased.
func (r *Response) MediaType() string {
	ct := r.Header("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func (r *Response) IsHTML() bool {
	mt := r.MediaType()
	return mt == "text/html" || mt == "application/xhtml+xml"
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
