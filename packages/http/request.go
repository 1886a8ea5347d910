package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/postmaker/packages/core/env"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Methods lists the HTTP verbs a Request may carry.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE", "CONNECT"}

// IsMethod reports whether m is a recognized verb.
func IsMethod(m string) bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Header is a single request header.
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered header mapping. It encodes as a JSON object whose
// member order is the slice order.
type Headers []Header

// Get returns the value for key, matched case-insensitively.
func (h Headers) Get(key string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			return hdr.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key in place or appends a new one.
func (h *Headers) Set(key, value string) {
	for i, hdr := range *h {
		if strings.EqualFold(hdr.Key, key) {
			(*h)[i] = Header{Key: hdr.Key, Value: value}
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}

// Del removes key if present.
func (h *Headers) Del(key string) {
	out := (*h)[:0]
	for _, hdr := range *h {
		if !strings.EqualFold(hdr.Key, key) {
			out = append(out, hdr)
		}
	}
	*h = out
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Map returns the headers as an unordered map.
func (h Headers) Map() map[string]string {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		m[hdr.Key] = hdr.Value
	}
	return m
}

func (h Headers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, hdr := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(hdr.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(hdr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *Headers) UnmarshalJSON(data []byte) error {
	result := gjson.ParseBytes(data)
	if result.Type == gjson.Null {
		*h = nil
		return nil
	}
	if !result.IsObject() {
		return fmt.Errorf("headers must be a JSON object")
	}
	out := Headers{}
	var err error
	result.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			err = fmt.Errorf("header %q must be a string", key.String())
			return false
		}
		out.Set(key.String(), value.String())
		return true
	})
	if err != nil {
		return err
	}
	*h = out
	return nil
}

func (h Headers) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, hdr := range h {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: hdr.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: hdr.Value, Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

func (h *Headers) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("headers must be a mapping (line %d)", node.Line)
	}
	out := Headers{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		out.Set(node.Content[i].Value, node.Content[i+1].Value)
	}
	*h = out
	return nil
}

// Body is a request body. A body whose text is a JSON object or array is
// treated as structured: it is persisted as embedded JSON and placeholder
// substitution walks its string leaves.
type Body struct {
	Raw string
}

func NewBody(raw string) *Body {
	return &Body{Raw: raw}
}

func (b *Body) String() string {
	if b == nil {
		return ""
	}
	return b.Raw
}

// IsJSON reports whether the body is a structured JSON document.
func (b *Body) IsJSON() bool {
	return b != nil && env.IsStructured(b.Raw)
}

// Equal compares bodies; structured bodies are compared after parsing so
// whitespace differences are ignored.
func (b *Body) Equal(other *Body) bool {
	if b == nil || other == nil {
		return b == nil && other == nil
	}
	if b.IsJSON() && other.IsJSON() {
		return jsonEqual(b.Raw, other.Raw)
	}
	return b.Raw == other.Raw
}

func jsonEqual(a, b string) bool {
	va, err := env.ParseValue(a)
	if err != nil {
		return false
	}
	vb, err := env.ParseValue(b)
	if err != nil {
		return false
	}
	ja, _ := va.MarshalJSON()
	jb, _ := vb.MarshalJSON()
	return bytes.Equal(ja, jb)
}

func (b *Body) MarshalJSON() ([]byte, error) {
	if b.IsJSON() {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(b.Raw)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.Marshal(b.Raw)
}

// UnmarshalJSON takes a JSON string as the raw body. Any other value is
// stored as its compact encoding with member order kept.
func (b *Body) UnmarshalJSON(data []byte) error {
	result := gjson.ParseBytes(data)
	if result.Type == gjson.String {
		b.Raw = result.Str
		return nil
	}
	v, err := env.ParseValue(string(data))
	if err != nil {
		return fmt.Errorf("body: %w", err)
	}
	encoded, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	b.Raw = string(encoded)
	return nil
}

func (b *Body) MarshalYAML() (any, error) {
	return b.Raw, nil
}

// UnmarshalYAML accepts a string, or a mapping or sequence that is stored
// as its JSON encoding.
func (b *Body) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		b.Raw = node.Value
		return nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("body at line %d: %w", node.Line, err)
	}
	b.Raw = string(data)
	return nil
}

// Auth schemes.
const (
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

// Auth is the optional authentication attached to a Request.
type Auth struct {
	Scheme     string `json:"scheme" yaml:"scheme"`
	Credential string `json:"credential" yaml:"credential"`
}

// ParseAuth parses the `--auth` helper form: "bearer TOKEN" or "basic USER:PASS".
func ParseAuth(s string) (*Auth, error) {
	scheme, credential, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("auth must be \"bearer TOKEN\" or \"basic USER:PASS\", got %q", s)
	}
	a := &Auth{Scheme: strings.ToLower(scheme), Credential: strings.TrimSpace(credential)}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Auth) Validate() error {
	switch a.Scheme {
	case AuthBearer:
		return nil
	case AuthBasic:
		if !strings.Contains(a.Credential, ":") {
			return fmt.Errorf("basic auth value must be in the form username:password")
		}
		return nil
	default:
		return fmt.Errorf("unsupported auth scheme %q (use bearer or basic)", a.Scheme)
	}
}

// HeaderValue returns the Authorization header value for a.
func (a *Auth) HeaderValue() (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	if a.Scheme == AuthBasic {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(a.Credential)), nil
	}
	return "Bearer " + a.Credential, nil
}

// Request is the canonical method/url/headers/body/auth tuple. A resolved
// Request is never mutated; Resolve returns a new value.
type Request struct {
	Method  string  `json:"method" yaml:"method"`
	URL     string  `json:"url" yaml:"url"`
	Headers Headers `json:"headers" yaml:"headers"`
	Body    *Body   `json:"body,omitempty" yaml:"body,omitempty"`
	Auth    *Auth   `json:"auth,omitempty" yaml:"auth,omitempty"`
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:  strings.ToUpper(method),
		URL:     requestURL,
		Headers: Headers{},
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers.Set(key, value)
	return r
}

func (r *Request) SetBody(body string) *Request {
	if body == "" {
		r.Body = nil
		return r
	}
	r.Body = NewBody(body)
	return r
}

// Validate checks the Request invariants: a recognized method and a
// non-empty URL.
func (r *Request) Validate() error {
	if r.Method == "" {
		return fmt.Errorf("request method is empty")
	}
	if !IsMethod(r.Method) {
		return fmt.Errorf("unrecognized HTTP method %q", r.Method)
	}
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("request URL is empty")
	}
	if r.Auth != nil {
		return r.Auth.Validate()
	}
	return nil
}

func (r *Request) Clone() *Request {
	out := &Request{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Headers.Clone(),
	}
	if r.Body != nil {
		out.Body = NewBody(r.Body.Raw)
	}
	if r.Auth != nil {
		a := *r.Auth
		out.Auth = &a
	}
	return out
}

// Resolve returns a copy of r with placeholders substituted in the method,
// URL, every header value, the auth credential and the body. Structured
// bodies are substituted leaf by leaf.
func (r *Request) Resolve(res *env.Resolver) *Request {
	out := r.Clone()
	out.Method = strings.ToUpper(res.Resolve(r.Method))
	out.URL = res.Resolve(r.URL)
	for i, h := range out.Headers {
		out.Headers[i].Value = res.Resolve(h.Value)
	}
	if out.Auth != nil {
		out.Auth.Credential = res.Resolve(out.Auth.Credential)
	}
	if out.Body != nil {
		out.Body = resolveBody(out.Body, res)
	}
	return out
}

func resolveBody(b *Body, res *env.Resolver) *Body {
	if !strings.Contains(b.Raw, "{{") {
		return b
	}
	if b.IsJSON() {
		v, err := env.ParseValue(b.Raw)
		if err == nil {
			encoded, err := res.ResolveValue(v).MarshalJSON()
			if err == nil {
				return NewBody(string(encoded))
			}
		}
	}
	return NewBody(res.Resolve(b.Raw))
}

// Placeholders returns every distinct placeholder name used by r, in order
// of first appearance across method, URL, headers, auth and body.
func (r *Request) Placeholders() []string {
	var parts []string
	parts = append(parts, r.Method, r.URL)
	for _, h := range r.Headers {
		parts = append(parts, h.Value)
	}
	if r.Auth != nil {
		parts = append(parts, r.Auth.Credential)
	}
	if r.Body != nil {
		parts = append(parts, r.Body.Raw)
	}
	return env.Placeholders(strings.Join(parts, "\n"))
}

// EffectiveHeaders returns the headers sent on the wire: the request headers,
// the Authorization header derived from Auth, and a JSON Content-Type when
// the body is structured and none was given.
func (r *Request) EffectiveHeaders() (Headers, error) {
	out := r.Headers.Clone()
	if out == nil {
		out = Headers{}
	}
	if r.Body.IsJSON() {
		if _, ok := out.Get("Content-Type"); !ok {
			out.Set("Content-Type", "application/json")
		}
	}
	if r.Auth != nil {
		v, err := r.Auth.HeaderValue()
		if err != nil {
			return nil, err
		}
		out.Set("Authorization", v)
	}
	return out, nil
}
