// File: internal/patterns/patterns_test.go
package patterns

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

const textPatterns = `SQL injection
$_GET,$_POST,$_COOKIE
mysql_escape_string,mysql_real_escape_string
mysql_query, mysql_unbuffered_query

Cross site scripting
$_GET,$_POST

echo,print
`

func wantPatterns() []taint.Pattern {
	return []taint.Pattern{
		{
			Name:      "SQL injection",
			Sources:   []string{"$_GET", "$_POST", "$_COOKIE"},
			Endorsers: []string{"mysql_escape_string", "mysql_real_escape_string"},
			Sinks:     []string{"mysql_query", "mysql_unbuffered_query"},
		},
		{
			Name:    "Cross site scripting",
			Sources: []string{"$_GET", "$_POST"},
			Sinks:   []string{"echo", "print"},
		},
	}
}

func TestParseText(t *testing.T) {
	t.Parallel()
	got, err := ParseText(strings.NewReader(textPatterns))
	require.NoError(t, err)
	assert.Equal(t, wantPatterns(), got)
}

func TestParseText_ShortBlock(t *testing.T) {
	t.Parallel()
	_, err := ParseText(strings.NewReader("only a name\n$_GET\n\n\nnext\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	doc := `
- name: SQL injection
  sources: [$_GET, $_POST, $_COOKIE]
  endorsers: [mysql_escape_string, mysql_real_escape_string]
  sinks: [mysql_query, mysql_unbuffered_query]
- name: Cross site scripting
  sources: [$_GET, $_POST]
  sinks: [echo, print]
`
	got, err := ParseYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, wantPatterns(), got)

	_, err = ParseYAML(strings.NewReader("- name: x\n  source: [a]\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	doc := `[
	  {"name": "SQL injection",
	   "sources": ["$_GET", "$_POST", "$_COOKIE"],
	   "endorsers": ["mysql_escape_string", "mysql_real_escape_string"],
	   "sinks": ["mysql_query", "mysql_unbuffered_query"]},
	  {"name": "Cross site scripting", "sources": ["$_GET", "$_POST"], "sinks": ["echo", "print"]}
	]`
	got, err := ParseJSON(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, wantPatterns(), got)
}

func TestParseJSON_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"not an array", `{"name": "x"}`},
		{"missing sinks", `[{"name": "x", "sources": ["a"]}]`},
		{"empty sources", `[{"name": "x", "sources": [], "sinks": ["b"]}]`},
		{"unknown field", `[{"name": "x", "sources": ["a"], "sinks": ["b"], "severity": "high"}]`},
		{"wrong type", `[{"name": "x", "sources": "a", "sinks": ["b"]}]`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseJSON(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema")
		})
	}

	_, err := ParseJSON(strings.NewReader(`[{`))
	assert.Error(t, err)
}

func TestLoadFile_DispatchesOnExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	textPath := filepath.Join(dir, "patterns.txt")
	require.NoError(t, os.WriteFile(textPath, []byte(textPatterns), 0o600))
	jsonPath := filepath.Join(dir, "patterns.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"name": "p", "sources": ["a"], "sinks": ["b"]}]`), 0o600))

	got, err := LoadFile(textPath)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []taint.Pattern{{Name: "p", Sources: []string{"a"}, Sinks: []string{"b"}}}, got)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatYAML, FormatFromPath("p.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("/x/p.json"))
	assert.Equal(t, FormatText, FormatFromPath("patterns.txt"))
	assert.Equal(t, FormatText, FormatFromPath("patterns"))

	_, err := Parse(strings.NewReader(""), Format("toml"))
	assert.Error(t, err)
}
