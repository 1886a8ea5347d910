package workspace

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

// Collection maps alias names to requests.
type Collection map[string]*http.Request

// TemplateOptions are the send options a template was saved with.
type TemplateOptions struct {
	Assertion string `json:"assertion,omitempty" yaml:"assertion,omitempty"`
	Only      string `json:"only,omitempty" yaml:"only,omitempty"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Template is a request intentionally left with placeholders.
type Template struct {
	Name         string          `json:"-" yaml:"-"`
	Request      *http.Request   `json:"request" yaml:"request"`
	Placeholders []string        `json:"placeholders" yaml:"placeholders"`
	Options      TemplateOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// NewTemplate builds a template whose placeholder set is taken from req.
func NewTemplate(name string, req *http.Request, opts TemplateOptions) *Template {
	placeholders := req.Placeholders()
	if placeholders == nil {
		placeholders = []string{}
	}
	return &Template{
		Name:         name,
		Request:      req.Clone(),
		Placeholders: placeholders,
		Options:      opts,
	}
}

func (t *Template) Clone() *Template {
	return &Template{
		Name:         t.Name,
		Request:      cloneRequest(t.Request),
		Placeholders: append([]string{}, t.Placeholders...),
		Options:      t.Options,
	}
}

// HistoryEntry is one executed request and its response.
type HistoryEntry struct {
	Index     int            `json:"index"`
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Request   *http.Request  `json:"request"`
	Response  *http.Response `json:"response"`
}

// Matches reports whether the entry's method or URL contains search,
// ignoring case. An empty search matches everything.
func (e *HistoryEntry) Matches(search string) bool {
	if search == "" {
		return true
	}
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(e.Request.URL), s) ||
		strings.Contains(strings.ToLower(e.Request.Method), s)
}

// Snapshot is the full serializable workspace.
type Snapshot struct {
	Collections   map[string]Collection `json:"collections" yaml:"collections"`
	GlobalAliases Collection            `json:"global_aliases" yaml:"global_aliases"`
	Variables     map[string]string     `json:"variables" yaml:"variables"`
	Templates     map[string]*Template  `json:"templates" yaml:"templates"`
}

// NewSnapshot returns an empty snapshot with every section present.
func NewSnapshot() *Snapshot {
	return (&Snapshot{}).normalize()
}

// normalize fills missing sections and template names.
func (s *Snapshot) normalize() *Snapshot {
	if s.Collections == nil {
		s.Collections = map[string]Collection{}
	}
	for name, c := range s.Collections {
		if c == nil {
			s.Collections[name] = Collection{}
		}
		c.normalize()
	}
	if s.GlobalAliases == nil {
		s.GlobalAliases = Collection{}
	}
	s.GlobalAliases.normalize()
	if s.Variables == nil {
		s.Variables = map[string]string{}
	}
	if s.Templates == nil {
		s.Templates = map[string]*Template{}
	}
	for name, t := range s.Templates {
		if t == nil {
			delete(s.Templates, name)
			continue
		}
		t.Name = name
		normalizeRequest(t.Request)
		if t.Placeholders == nil && t.Request != nil {
			t.Placeholders = t.Request.Placeholders()
		}
		if t.Placeholders == nil {
			t.Placeholders = []string{}
		}
	}
	return s
}

// Clone deep-copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := NewSnapshot()
	for name, c := range s.Collections {
		out.Collections[name] = c.clone()
	}
	out.GlobalAliases = s.GlobalAliases.clone()
	for k, v := range s.Variables {
		out.Variables[k] = v
	}
	for name, t := range s.Templates {
		out.Templates[name] = t.Clone()
	}
	return out
}

// Validate checks every stored request.
func (s *Snapshot) Validate() error {
	for _, name := range sortedKeys(s.GlobalAliases) {
		if err := validateRequest("global alias "+name, s.GlobalAliases[name]); err != nil {
			return err
		}
	}
	for _, cname := range sortedKeys(s.Collections) {
		c := s.Collections[cname]
		for _, name := range sortedKeys(c) {
			if err := validateRequest("alias "+cname+"/"+name, c[name]); err != nil {
				return err
			}
		}
	}
	for _, name := range sortedKeys(s.Templates) {
		if err := validateRequest("template "+name, s.Templates[name].Request); err != nil {
			return err
		}
	}
	return nil
}

func validateRequest(label string, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("%s: missing request", label)
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

func (c Collection) clone() Collection {
	out := make(Collection, len(c))
	for name, req := range c {
		out[name] = cloneRequest(req)
	}
	return out
}

func (c Collection) normalize() {
	for _, req := range c {
		normalizeRequest(req)
	}
}

func normalizeRequest(req *http.Request) {
	if req == nil {
		return
	}
	req.Method = strings.ToUpper(req.Method)
	if req.Headers == nil {
		req.Headers = http.Headers{}
	}
}

func cloneRequest(req *http.Request) *http.Request {
	if req == nil {
		return nil
	}
	return req.Clone()
}

// Names returns the alias names in lexical order.
func (c Collection) Names() []string {
	return sortedKeys(c)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
