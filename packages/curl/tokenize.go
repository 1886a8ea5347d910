package curl

import (
	"fmt"
	"strings"
)

// tokenize splits a command line into words following POSIX shell quoting:
// single quotes are literal, double quotes honor backslash escapes of
// `"`, `\`, `$` and backtick, and an unquoted backslash escapes the next
// character. A backslash-newline pair is a line continuation.
func tokenize(cmd string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false

	runes := []rune(cmd)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '\\':
			if i+1 >= len(runes) {
				current.WriteRune(r)
				inToken = true
				continue
			}
			i++
			if runes[i] == '\n' {
				continue
			}
			if runes[i] == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
				continue
			}
			current.WriteRune(runes[i])
			inToken = true

		case r == '\'':
			end := indexRune(runes, i+1, '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated single quote")
			}
			current.WriteString(string(runes[i+1 : end]))
			inToken = true
			i = end

		case r == '"':
			j := i + 1
			closed := false
			for ; j < len(runes); j++ {
				c := runes[j]
				if c == '"' {
					closed = true
					break
				}
				if c == '\\' && j+1 < len(runes) {
					switch runes[j+1] {
					case '"', '\\', '$', '`':
						current.WriteRune(runes[j+1])
						j++
						continue
					case '\n':
						j++
						continue
					}
				}
				current.WriteRune(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated double quote")
			}
			inToken = true
			i = j

		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}

		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	if inToken {
		tokens = append(tokens, current.String())
	}

	return tokens, nil
}

func indexRune(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// singleQuote quotes s for a POSIX shell, closing and reopening the quotes
// around every embedded single quote.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

// doubleQuote quotes s for a POSIX shell inside double quotes.
func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}
