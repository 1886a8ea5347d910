package curl

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

// MalformedCommandError is returned when a command cannot be decoded,
// most commonly because no URL token was found.
type MalformedCommandError struct {
	Input  string
	Reason string
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed curl command %q: %s", e.Input, e.Reason)
}

// booleanFlags take no value and do not affect the decoded request.
var booleanFlags = map[string]bool{
	"-k": true, "--insecure": true,
	"-L": true, "--location": true,
	"-s": true, "--silent": true,
	"-S": true, "--show-error": true,
	"-v": true, "--verbose": true,
	"-i": true, "--include": true,
	"-f": true, "--fail": true,
	"-g": true, "--globoff": true,
	"--compressed": true,
	"--http1.1":    true,
	"--http2":      true,
	"--no-buffer":  true,
	"-N":           true,
}

// shortValued are the single-letter flags Decode reads a value for.
const shortValued = "XHduAeb"

// expandCluster splits "-sSL" into "-s", "-S", "-L". Every letter but the
// last must be a value-less flag; the last may also take a value, as in
// "-sX POST". It returns nil for anything else.
func expandCluster(token string) []string {
	if len(token) < 3 || token[0] != '-' || token[1] == '-' {
		return nil
	}
	letters := token[1:]
	out := make([]string, 0, len(letters))
	for j := 0; j < len(letters); j++ {
		flag := "-" + letters[j:j+1]
		last := j == len(letters)-1
		if !booleanFlags[flag] && flag != "-I" && flag != "-G" &&
			!(last && strings.Contains(shortValued, letters[j:j+1])) {
			return nil
		}
		out = append(out, flag)
	}
	return out
}

// Decode parses a shell-style curl invocation into a Request. Flags may
// appear in any order relative to the URL.
func Decode(cmd string) (*http.Request, error) {
	malformed := func(reason string) error {
		return &MalformedCommandError{Input: cmd, Reason: reason}
	}

	tokens, err := tokenize(strings.TrimSpace(cmd))
	if err != nil {
		return nil, malformed(err.Error())
	}
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	var (
		method     string
		rawURL     string
		head       bool
		asQuery    bool
		dataParts  []string
		headers    = http.Headers{}
		auth       *http.Auth
		sawDataArg bool
	)

	i := 0
	next := func(flag string) (string, error) {
		if i+1 >= len(tokens) {
			return "", malformed(fmt.Sprintf("missing value for %s", flag))
		}
		i++
		return tokens[i], nil
	}

	for i < len(tokens) {
		token := tokens[i]

		if strings.HasPrefix(token, "--") && strings.Contains(token, "=") {
			flag, value, _ := strings.Cut(token, "=")
			tokens = append(tokens[:i], append([]string{flag, value}, tokens[i+1:]...)...)
			token = flag
		} else if flags := expandCluster(token); flags != nil {
			tokens = append(tokens[:i], append(flags, tokens[i+1:]...)...)
			token = flags[0]
		} else if len(token) > 2 && (strings.HasPrefix(token, "-X") || strings.HasPrefix(token, "-H") || strings.HasPrefix(token, "-d")) && !strings.HasPrefix(token, "--") {
			tokens = append(tokens[:i], append([]string{token[:2], token[2:]}, tokens[i+1:]...)...)
			token = token[:2]
		}

		switch {
		case token == "-X" || token == "--request":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			method = strings.ToUpper(v)

		case token == "-H" || token == "--header":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			key, value, ok := strings.Cut(v, ":")
			if !ok || strings.TrimSpace(key) == "" {
				return nil, malformed(fmt.Sprintf("header %q is not in \"Key: Value\" form", v))
			}
			// Only the separator space after the colon is dropped so that
			// values Encode wrote with edge whitespace come back intact.
			headers.Set(strings.TrimSpace(key), strings.TrimPrefix(value, " "))

		case token == "-d" || token == "--data" || token == "--data-raw" || token == "--data-binary" || token == "--data-ascii":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			dataParts = append(dataParts, v)
			sawDataArg = true

		case token == "--data-urlencode":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			dataParts = append(dataParts, urlEncodeData(v))
			sawDataArg = true

		case token == "-u" || token == "--user":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			if !strings.Contains(v, ":") {
				v += ":"
			}
			auth = &http.Auth{Scheme: http.AuthBasic, Credential: v}

		case token == "--oauth2-bearer":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			auth = &http.Auth{Scheme: http.AuthBearer, Credential: v}

		case token == "-A" || token == "--user-agent":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			headers.Set("User-Agent", v)

		case token == "-e" || token == "--referer":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			headers.Set("Referer", v)

		case token == "-b" || token == "--cookie":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			headers.Set("Cookie", v)

		case token == "--url":
			v, err := next(token)
			if err != nil {
				return nil, err
			}
			if rawURL == "" {
				rawURL = v
			}

		case token == "-I" || token == "--head":
			head = true

		case token == "-G" || token == "--get":
			asQuery = true

		case booleanFlags[token]:

		case strings.HasPrefix(token, "-") && len(token) > 1:
			// Unknown flag: assume it takes a value unless the next word
			// looks like the URL or another flag.
			if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
				i++
			}

		default:
			if rawURL == "" {
				rawURL = token
			}
		}
		i++
	}

	if rawURL == "" {
		return nil, malformed("no URL found")
	}

	body := strings.Join(dataParts, "&")
	if asQuery && sawDataArg {
		rawURL = appendQuery(rawURL, body)
		body = ""
		sawDataArg = false
	}

	switch {
	case method != "":
	case head:
		method = "HEAD"
	case sawDataArg:
		method = "POST"
	default:
		method = "GET"
	}

	req := http.NewRequest(method, rawURL)
	req.Headers = headers
	req.Auth = auth
	if sawDataArg {
		req.Body = http.NewBody(body)
	}
	return req, nil
}

// Encode renders req as a single curl command. Method is always explicit,
// headers keep their order, and auth is emitted as -u or --oauth2-bearer so
// that Decode reproduces it.
func Encode(req *http.Request) string {
	var sb strings.Builder
	sb.WriteString("curl -X ")
	sb.WriteString(req.Method)
	sb.WriteString(" ")
	sb.WriteString(singleQuote(req.URL))

	for _, h := range req.Headers {
		sb.WriteString(" -H ")
		sb.WriteString(doubleQuote(h.Key + ": " + h.Value))
	}

	if req.Auth != nil {
		switch req.Auth.Scheme {
		case http.AuthBasic:
			sb.WriteString(" -u ")
		default:
			sb.WriteString(" --oauth2-bearer ")
		}
		sb.WriteString(singleQuote(req.Auth.Credential))
	}

	if req.Body != nil {
		sb.WriteString(" -d ")
		sb.WriteString(singleQuote(req.Body.Raw))
	}

	return sb.String()
}

// SplitCommands reads curl commands from r, one per line. Blank lines and
// lines starting with # are skipped, and a trailing backslash continues a
// command on the next line.
func SplitCommands(r io.Reader) ([]string, error) {
	var commands []string
	var current strings.Builder
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if current.Len() == 0 && (line == "" || strings.HasPrefix(line, "#")) {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimSuffix(line, "\\"))
			current.WriteString(" ")
			continue
		}

		current.WriteString(line)
		commands = append(commands, current.String())
		current.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}

	if current.Len() > 0 {
		commands = append(commands, strings.TrimSpace(current.String()))
	}

	return commands, nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "{{")
}

func urlEncodeData(v string) string {
	name, content, ok := strings.Cut(v, "=")
	if !ok {
		return url.QueryEscape(v)
	}
	if name == "" {
		return url.QueryEscape(content)
	}
	return name + "=" + url.QueryEscape(content)
}

func appendQuery(rawURL, query string) string {
	if query == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
