package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolve(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  string
	}{
		{
			name:     "no variables",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:      "simple variable",
			input:     "hello {{name}}",
			variables: map[string]string{"name": "world"},
			expected:  "hello world",
		},
		{
			name:      "multiple variables",
			input:     "{{greeting}} {{name}}!",
			variables: map[string]string{"greeting": "Hello", "name": "World"},
			expected:  "Hello World!",
		},
		{
			name:     "unresolved stays as-is",
			input:    "hello {{unknown}}",
			expected: "hello {{unknown}}",
		},
		{
			name:      "case sensitive",
			input:     "{{Host}}",
			variables: map[string]string{"host": "example.com"},
			expected:  "{{Host}}",
		},
		{
			name:      "identifier grammar excludes dots and spaces",
			input:     "{{a.b}} {{ a }}",
			variables: map[string]string{"a": "x", "a.b": "y"},
			expected:  "{{a.b}} {{ a }}",
		},
		{
			name:      "single pass does not expand substituted values",
			input:     "{{loop}}",
			variables: map[string]string{"loop": "{{loop}}}"},
			expected:  "{{loop}}}",
		},
		{
			name:      "value referencing another variable is not expanded",
			input:     "{{outer}}",
			variables: map[string]string{"outer": "{{inner}}", "inner": "deep"},
			expected:  "{{inner}}",
		},
		{
			name:      "digits and underscores",
			input:     "/users/{{user_id_2}}",
			variables: map[string]string{"user_id_2": "42"},
			expected:  "/users/42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.variables)
			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolverResolveIsIdempotent(t *testing.T) {
	vars := map[string]string{"host": "api.example.com", "id": "7"}
	r := NewResolver(vars)

	inputs := []string{
		"https://{{host}}/users/{{id}}",
		"{{missing}} and {{host}}",
		"plain",
		"{{id}}{{id}}{{other}}",
	}
	for _, in := range inputs {
		once := r.Resolve(in)
		assert.Equal(t, once, r.Resolve(once), in)
	}
}

func TestResolverWarnsOnUnresolved(t *testing.T) {
	r := NewResolver(nil)
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("{{token}}")
	assert.Equal(t, []string{"unresolved variable: token"}, warnings)
}

func TestResolverGetUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  []string
	}{
		{
			name:     "no variables",
			input:    "hello world",
			expected: nil,
		},
		{
			name:      "resolved variable",
			input:     "{{foo}}",
			variables: map[string]string{"foo": "bar"},
			expected:  nil,
		},
		{
			name:     "duplicates reported once",
			input:    "{{foo}} {{foo}} {{bar}}",
			expected: []string{"foo", "bar"},
		},
		{
			name:      "mixed resolved and unresolved",
			input:     "{{foo}} and {{bar}} and {{baz}}",
			variables: map[string]string{"bar": "middle"},
			expected:  []string{"foo", "baz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.variables)
			assert.Equal(t, tt.expected, r.GetUnresolvedVariables(tt.input))
			assert.Equal(t, tt.expected != nil, r.HasUnresolvedVariables(tt.input))
		})
	}
}

func TestResolverResolveValue(t *testing.T) {
	r := NewResolver(map[string]string{"name": "Ada", "tag": "admin"})

	v, err := ParseValue(`{"user":{"name":"{{name}}","age":36},"tags":["{{tag}}",true,null],"{{name}}":"key untouched"}`)
	require.NoError(t, err)

	out, err := r.ResolveValue(v).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"name":"Ada","age":36},"tags":["admin",true,null],"{{name}}":"key untouched"}`, string(out))
}

func TestResolverClone(t *testing.T) {
	r := NewResolver(map[string]string{"a": "1"})
	c := r.Clone()
	c.SetVariable("a", "2")

	v, _ := r.GetVariable("a")
	assert.Equal(t, "1", v)
	v, _ = c.GetVariable("a")
	assert.Equal(t, "2", v)
}

func TestIsName(t *testing.T) {
	for _, ok := range []string{"token", "API_KEY", "v2", "_"} {
		assert.True(t, IsName(ok), ok)
	}
	for _, bad := range []string{"", "a-b", "a b", "{{a}}", "é"} {
		assert.False(t, IsName(bad), bad)
	}
}
