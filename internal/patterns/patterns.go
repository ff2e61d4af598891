// File: internal/patterns/patterns.go
// Package patterns loads vulnerability pattern definitions from disk. Three
// formats are understood: the line-oriented text format (four lines per
// pattern, blocks separated by blank lines), YAML and JSON. Loaders only
// decode; validation and normalization happen in taint.NewCatalog.
package patterns

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

// Format identifies a pattern file encoding.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatFromPath picks a format from the file extension, defaulting to text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// LoadFile reads and decodes the pattern file at path. A leading `~` is
// expanded to the user's home directory.
func LoadFile(path string) ([]taint.Pattern, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand pattern file path %q: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open pattern file: %w", err)
	}
	defer f.Close()

	patterns, err := Parse(f, FormatFromPath(expanded))
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns from %s: %w", expanded, err)
	}
	return patterns, nil
}

// Parse decodes patterns from r in the given format.
func Parse(r io.Reader, format Format) ([]taint.Pattern, error) {
	switch format {
	case FormatText:
		return ParseText(r)
	case FormatYAML:
		return ParseYAML(r)
	case FormatJSON:
		return ParseJSON(r)
	default:
		return nil, fmt.Errorf("unknown pattern format %q", format)
	}
}

// ParseText reads the four-line block format:
//
//	SQL injection
//	$_GET,$_POST,$_COOKIE
//	mysql_escape_string,mysql_real_escape_string
//	mysql_query,mysql_unbuffered_query
//
// An empty endorser line is allowed.
func ParseText(r io.Reader) ([]taint.Pattern, error) {
	var (
		out   []taint.Pattern
		block []string
		start int
	)
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		if len(block) != 4 {
			return fmt.Errorf("pattern block at line %d has %d lines, want 4", start, len(block))
		}
		out = append(out, taint.Pattern{
			Name:      block[0],
			Sources:   splitList(block[1]),
			Endorsers: splitList(block[2]),
			Sinks:     splitList(block[3]),
		})
		block = block[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			// A blank line inside a block is the empty endorser list when
			// the name and sources have already been read.
			if len(block) == 2 {
				block = append(block, "")
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(block) == 0 {
			start = lineNo
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read patterns: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func splitList(line string) []string {
	if line == "" {
		return nil
	}
	parts := strings.Split(line, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseYAML reads a YAML sequence of {name, sources, endorsers, sinks}.
func ParseYAML(r io.Reader) ([]taint.Pattern, error) {
	var out []taint.Pattern
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode YAML patterns: %w", err)
	}
	return out, nil
}

const schemaURL = "https://github.com/xkilldash9x/phpflow/schemas/patterns.json"

const patternSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "sources", "sinks"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "sources": {"type": "array", "items": {"type": "string"}, "minItems": 1},
      "endorsers": {"type": "array", "items": {"type": "string"}},
      "sinks": {"type": "array", "items": {"type": "string"}, "minItems": 1}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(patternSchema))
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse pattern schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to register pattern schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ParseJSON validates the document against the pattern schema, then decodes
// it.
func ParseJSON(r io.Reader) ([]taint.Pattern, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON patterns: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON patterns: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("pattern file does not match schema: %w", err)
	}

	var out []taint.Pattern
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode JSON patterns: %w", err)
	}
	return out, nil
}
