package workspace

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use json or yaml)", s)
	}
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

//go:embed schema.json
var snapshotSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(snapshotSchema)

// EncodeSnapshot serializes s. Every section is written even when empty.
func EncodeSnapshot(s *Snapshot, format Format) ([]byte, error) {
	s = s.Clone()
	switch format {
	case FormatYAML:
		return yaml.Marshal(s)
	case FormatJSON, "":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// DecodeSnapshot parses and schema-checks a snapshot document. Missing
// sections decode as empty.
func DecodeSnapshot(data []byte, format Format) (*Snapshot, error) {
	var generic any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if generic == nil {
		return NewSnapshot(), nil
	}

	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	var s Snapshot
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("invalid snapshot: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("invalid snapshot: %w", err)
		}
	}

	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &s, nil
}

func validateSchema(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return fmt.Errorf("snapshot does not match schema: %s", strings.Join(problems, "; "))
}
