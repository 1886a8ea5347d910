// Package mock answers requests with canned responses so a request can be
// tried end to end without a server.
package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const Message = "This is a mock response."

// Transport is an http.RoundTripper that never touches the network.
type Transport struct {
	status int
	delay  time.Duration
}

type Option func(*Transport)

// WithDelay holds every response for d, or until the request is cancelled.
func WithDelay(d time.Duration) Option {
	return func(t *Transport) {
		t.delay = d
	}
}

// NewTransport returns a Transport replying with status. It panics on a
// status outside 100-599, which callers validate first.
func NewTransport(status int, opts ...Option) *Transport {
	if !ValidStatus(status) {
		panic(fmt.Sprintf("mock: invalid status %d", status))
	}
	t := &Transport{status: status}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func ValidStatus(status int) bool {
	return status >= 100 && status <= 599
}

type payload struct {
	Mock    bool   `json:"mock"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Method  string `json:"method"`
	URL     string `json:"url"`
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	body, err := json.MarshalIndent(payload{
		Mock:    true,
		Status:  t.status,
		Message: Message,
		Method:  req.Method,
		URL:     req.URL.String(),
	}, "", "  ")
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set("X-Postmaker-Mock", "true")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", t.status, http.StatusText(t.status)),
		StatusCode:    t.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}
