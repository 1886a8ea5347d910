package mock

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		status int
		method string
		text   string
	}{
		{name: "ok", status: 200, method: "GET", text: "200 OK"},
		{name: "created", status: 201, method: "POST", text: "201 Created"},
		{name: "server error", status: 500, method: "DELETE", text: "500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, "https://api.example.com/items?x=1", strings.NewReader("ignored"))
			require.NoError(t, err)

			resp, err := NewTransport(tt.status).RoundTrip(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.text, resp.Status)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.Equal(t, "true", resp.Header.Get("X-Postmaker-Mock"))

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.EqualValues(t, len(raw), resp.ContentLength)

			var got payload
			require.NoError(t, json.Unmarshal(raw, &got))
			assert.Equal(t, payload{
				Mock:    true,
				Status:  tt.status,
				Message: Message,
				Method:  tt.method,
				URL:     "https://api.example.com/items?x=1",
			}, got)
		})
	}
}

func TestTransport_ThroughClient(t *testing.T) {
	client := &http.Client{Transport: NewTransport(404)}
	resp, err := client.Get("http://unreachable.invalid/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestTransport_DelayHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", "http://example.com", nil)
	require.NoError(t, err)

	_, err = NewTransport(200, WithDelay(time.Hour)).RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{99, false},
		{100, true},
		{200, true},
		{599, true},
		{600, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidStatus(tt.status), tt.status)
	}
	assert.Panics(t, func() { NewTransport(0) })
}
