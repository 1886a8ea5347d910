package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadDotEnv reads variables for the workspace from a .env file.
func LoadDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer f.Close()

	vars, err := ParseDotEnv(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// ParseDotEnv parses NAME=value lines. Blank lines and # comments are
// skipped, a leading "export " is dropped, and a value may be wrapped in
// single or double quotes. Unquoted values end at " #". Every name must be
// usable as a placeholder, so a bad name is an error rather than a variable
// that can never be referenced. Later lines win.
func ParseDotEnv(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, raw, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected NAME=value", n)
		}
		name = strings.TrimSpace(name)
		if !IsName(name) {
			return nil, fmt.Errorf("line %d: invalid variable name %q", n, name)
		}

		value, err := dotEnvValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		vars[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	return vars, nil
}

func dotEnvValue(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	switch quote := raw[0]; quote {
	case '"', '\'':
		end := closingQuote(raw, quote)
		if end < 0 {
			return "", fmt.Errorf("unterminated %c quote", quote)
		}
		value := raw[1:end]
		if quote == '"' {
			value = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`).Replace(value)
		}
		return value, nil
	}
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw, nil
}

// closingQuote finds the quote ending raw[0]. Inside double quotes a
// backslash escapes the next byte.
func closingQuote(raw string, quote byte) int {
	for i := 1; i < len(raw); i++ {
		switch {
		case quote == '"' && raw[i] == '\\':
			i++
		case raw[i] == quote:
			return i
		}
	}
	return -1
}
