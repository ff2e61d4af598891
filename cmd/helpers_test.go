// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
	"github.com/xkilldash9x/phpflow/internal/config"
	"github.com/xkilldash9x/phpflow/internal/store"
)

// vulnerableAST is `$a = $_GET['id']; mysql_query($a);`.
const vulnerableAST = `{"kind": "program", "children": [
  {"kind": "expressionstatement", "expression": {
    "kind": "assign", "operator": "=",
    "left": {"kind": "variable", "name": "a"},
    "right": {"kind": "offsetlookup",
      "what": {"kind": "variable", "name": "_GET"},
      "offset": {"kind": "string", "value": "id", "isDoubleQuote": false}}}},
  {"kind": "expressionstatement", "expression": {
    "kind": "call",
    "what": {"kind": "name", "name": "mysql_query"},
    "arguments": [{"kind": "variable", "name": "a"}]}}
]}`

// endorsedAST is `$a = mysql_escape_string($_GET['id']); mysql_query($a);`.
const endorsedAST = `{"kind": "program", "children": [
  {"kind": "expressionstatement", "expression": {
    "kind": "assign", "operator": "=",
    "left": {"kind": "variable", "name": "a"},
    "right": {"kind": "call",
      "what": {"kind": "name", "name": "mysql_escape_string"},
      "arguments": [{"kind": "offsetlookup",
        "what": {"kind": "variable", "name": "_GET"},
        "offset": {"kind": "string", "value": "id"}}]}}},
  {"kind": "expressionstatement", "expression": {
    "kind": "call",
    "what": {"kind": "name", "name": "mysql_query"},
    "arguments": [{"kind": "variable", "name": "a"}]}}
]}`

// unsupportedAST calls through a variable, which the analyzer rejects.
const unsupportedAST = `{"kind": "program", "children": [
  {"kind": "expressionstatement", "expression": {
    "kind": "call",
    "what": {"kind": "variable", "name": "f"},
    "arguments": []}}
]}`

const sqlPatterns = `SQL injection
$_GET,$_POST
mysql_escape_string
mysql_query
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// newTestConfig returns defaults pointed at a pattern file, writing the
// report to a file in dir.
func newTestConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.SetAnalysisPatternsFile(writeFile(t, dir, "patterns.txt", sqlPatterns))
	cfg.SetReportOutput(filepath.Join(dir, "report.out"))
	cfg.SetReportColor("never")
	return cfg
}

func readReport(t *testing.T, cfg config.Interface) string {
	t.Helper()
	data, err := os.ReadFile(cfg.Report().Output)
	require.NoError(t, err)
	return string(data)
}

// mockStore records saved results and serves them back by run ID.
type mockStore struct {
	saved   []*taint.Result
	sources []string
	saveErr error
}

func (m *mockStore) SaveResult(_ context.Context, result *taint.Result, source string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, result)
	m.sources = append(m.sources, source)
	return nil
}

func (m *mockStore) GetResult(_ context.Context, runID uuid.UUID) (*taint.Result, error) {
	for _, r := range m.saved {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, store.ErrRunNotFound
}

type mockStoreProvider struct {
	store     *mockStore
	createErr error
	cleanedUp bool
}

func (p *mockStoreProvider) Create(context.Context, config.Interface) (resultStore, func(), error) {
	if p.createErr != nil {
		return nil, nil, p.createErr
	}
	return p.store, func() { p.cleanedUp = true }, nil
}

// executeCommand runs a fresh command tree with the given args.
func executeCommand(t *testing.T, provider storeProvider, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(provider)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}
