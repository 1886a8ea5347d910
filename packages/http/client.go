package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// Client defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
)

// Client sends resolved Requests. It is safe for concurrent use.
type Client struct {
	settings
	httpClient *http.Client
	// err holds an option that could not be applied, reported by Do.
	err error
}

type settings struct {
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxy          string
	defaultHeaders Headers
	transport      http.RoundTripper
}

// Option configures a Client.
type Option func(*settings)

func NewClient(opts ...Option) *Client {
	s := settings{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
	}
	for _, opt := range opts {
		opt(&s)
	}

	c := &Client{settings: s}
	if s.transport != nil {
		c.httpClient = &http.Client{Transport: s.transport, Timeout: s.timeout}
		return c
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !s.validateSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if s.proxy != "" {
		u, err := neturl.Parse(s.proxy)
		if err != nil || u.Host == "" {
			c.err = fmt.Errorf("invalid proxy URL %q", s.proxy)
		} else {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	c.httpClient = &http.Client{Transport: transport, Timeout: s.timeout}
	return c
}

func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

func WithFollowRedirects(follow bool) Option {
	return func(s *settings) {
		s.followRedirect = follow
	}
}

func WithMaxRedirects(max int) Option {
	return func(s *settings) {
		s.maxRedirects = max
	}
}

// WithDefaultHeaders adds headers sent with every request unless the request
// sets the same name itself.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(s *settings) {
		for k, v := range headers {
			s.defaultHeaders.Set(k, v)
		}
	}
}

// WithValidateSSL turns certificate verification on or off.
func WithValidateSSL(validate bool) Option {
	return func(s *settings) {
		s.validateSSL = validate
	}
}

// WithProxy routes every request through proxyURL instead of the
// environment's proxy settings.
func WithProxy(proxyURL string) Option {
	return func(s *settings) {
		s.proxy = proxyURL
	}
}

// WithTransport sends every request through rt. TLS and proxy settings do
// not apply to a caller-supplied transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.transport = rt
	}
}

// checkRedirect counts hops into *hops and stops following once the
// configured limit is reached, returning the last redirect response.
func (c *Client) checkRedirect(hops *int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if !c.followRedirect || len(via) > c.maxRedirects {
			return http.ErrUseLastResponse
		}
		*hops = len(via)
		return nil
	}
}

// Do executes a resolved Request. Failures to reach the server are returned
// as *TransportError; an HTTP error status is not an error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}

	httpReq, err := c.wireRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	hops := 0
	hc := *c.httpClient
	hc.CheckRedirect = c.checkRedirect(&hops)

	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	if err != nil {
		return nil, classify(req.URL, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, classify(req.URL, err)
	}

	encoding := httpResp.Header.Get("Content-Encoding")
	decoded, err := decodeBody(encoding, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s response body: %w", encoding, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     reasonPhrase(httpResp),
		Headers:    flattenHeaders(httpResp.Header),
		Body:       string(decoded),
		Duration:   duration,
		Size:       len(raw),
		Redirects:  hops,
	}
	if final := httpResp.Request.URL.String(); hops > 0 && final != req.URL {
		resp.URL = final
	}
	return resp, nil
}

// wireRequest builds the net/http request. Request headers override the
// client defaults.
func (c *Client) wireRequest(ctx context.Context, req *Request) (*http.Request, error) {
	headers, err := req.EffectiveHeaders()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(req.Body.Raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for _, h := range c.defaultHeaders {
		httpReq.Header.Set(h.Key, h.Value)
	}
	for _, h := range headers {
		httpReq.Header.Set(h.Key, h.Value)
	}
	return httpReq, nil
}

// reasonPhrase strips the numeric code from "200 OK". Servers may send a
// non-standard phrase, so the text comes from the response line.
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// flattenHeaders joins repeated headers with ", ". Set-Cookie is joined with
// "; " since its values may contain commas.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		sep := ", "
		if name == "Set-Cookie" {
			sep = "; "
		}
		out[name] = strings.Join(values, sep)
	}
	return out
}

// decodeBody undoes a Content-Encoding the transport left in place. The
// standard transport only decompresses gzip when it negotiated it itself, so
// a caller-supplied Accept-Encoding leaves br or gzip bodies encoded.
func decodeBody(encoding string, raw []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return raw, nil
	}
}

// ValidateURL rejects URLs that cannot be sent: anything that is not an
// absolute http or https URL with a host. Unresolved placeholders usually
// end up here.
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("invalid URL %q: scheme must be http or https", rawURL)
	case u.Host == "":
		return fmt.Errorf("invalid URL %q: missing host", rawURL)
	}
	return nil
}
