package env

import (
	"regexp"
	"sort"
	"sync"
)

var (
	variablePattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)
	namePattern     = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// IsName reports whether s can appear inside a {{...}} placeholder.
func IsName(s string) bool {
	return namePattern.MatchString(s)
}

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver substitutes {{name}} placeholders from a flat variable mapping.
// Substitution is a single pass: a substituted value is never re-scanned, so
// a value that itself contains {{...}} is emitted verbatim.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	warnFunc  WarnFunc
}

func NewResolver(vars map[string]string) *Resolver {
	r := &Resolver{
		variables: make(map[string]string, len(vars)),
	}
	for k, v := range vars {
		r.variables[k] = v
	}
	return r
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

func (r *Resolver) GetVariable(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

// Resolve replaces every known placeholder in input. Unknown placeholders
// are left in place.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[2 : len(match)-2]

		r.mu.RLock()
		val, ok := r.variables[name]
		r.mu.RUnlock()
		if ok {
			return val
		}

		r.warn("unresolved variable: %s", name)
		return match
	})
}

// ResolveValue applies Resolve to every string leaf of v.
func (r *Resolver) ResolveValue(v Value) Value {
	return Transform(v, r.Resolve)
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// HasUnresolvedVariables reports whether input still contains a placeholder
// the resolver has no value for.
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.GetUnresolvedVariables(input)) > 0
}

// GetUnresolvedVariables returns the unknown placeholder names in input, in
// order of first appearance.
func (r *Resolver) GetUnresolvedVariables(input string) []string {
	var result []string
	for _, name := range Placeholders(input) {
		if !r.HasVariable(name) {
			result = append(result, name)
		}
	}
	return result
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver(r.variables)
	clone.warnFunc = r.warnFunc
	return clone
}

// Placeholders returns the distinct placeholder names in input, in order of
// first appearance.
func Placeholders(input string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// SortedNames returns the keys of vars in lexical order.
func SortedNames(vars map[string]string) []string {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
