// File: internal/reporting/reporter_test.go
package reporting

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// -- Test Cases: Factory Function (New) --

func TestNew_Formats(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tmpDir := t.TempDir()

	tests := []struct {
		format string
		check  func(t *testing.T, r Reporter)
	}{
		{"text", func(t *testing.T, r Reporter) {
			_, ok := r.(*TextReporter)
			assert.True(t, ok)
		}},
		{"json", func(t *testing.T, r Reporter) {
			_, ok := r.(*JSONReporter)
			assert.True(t, ok)
		}},
		{"sarif", func(t *testing.T, r Reporter) {
			sr, ok := r.(*SARIFReporter)
			require.True(t, ok)
			_, isFile := sr.writer.(*os.File)
			assert.True(t, isFile, "writer should be an *os.File when targeting a file path")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			outputPath := filepath.Join(tmpDir, "report."+tt.format)
			r, err := New(tt.format, outputPath, logger, Options{ToolVersion: "test"})
			require.NoError(t, err)
			tt.check(t, r)

			assert.FileExists(t, outputPath)
			assert.NoError(t, r.Close())
		})
	}
}

func TestNew_Output_Stdout(t *testing.T) {
	for _, path := range []string{"", "-", "stdout"} {
		t.Run(fmt.Sprintf("path %q", path), func(t *testing.T) {
			r, err := New("sarif", path, nil, Options{})
			require.NoError(t, err)

			sr, ok := r.(*SARIFReporter)
			require.True(t, ok)
			nwc, ok := sr.writer.(*nopWriteCloser)
			require.True(t, ok, "writer should be a nopWriteCloser when outputting to stdout")
			assert.Equal(t, os.Stdout, nwc.Writer)
		})
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.xml")
	r, err := New("xml", outputPath, zaptest.NewLogger(t), Options{})

	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: xml")

	// os.Create runs before the format switch; the handle is closed and the file left empty.
	info, statErr := os.Stat(outputPath)
	require.NoError(t, statErr)
	assert.Zero(t, info.Size())
}

func TestNew_Failure_FileCreation(t *testing.T) {
	// A directory cannot be created as a file.
	r, err := New("text", t.TempDir(), nil, Options{})

	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

// -- Test Cases: Utilities --

func TestNopWriteCloser(t *testing.T) {
	buf := new(bytes.Buffer)
	nwc := &nopWriteCloser{buf}

	n, err := nwc.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.NoError(t, nwc.Close())

	// Still writable after Close.
	_, _ = nwc.Write([]byte(" world"))
	assert.Equal(t, "hello world", buf.String())
}

func TestSanitizeRuleName(t *testing.T) {
	tests := map[string]string{
		"SQL injection":              "SQL-INJECTION",
		"Cross-Site Scripting (XSS)": "CROSS-SITE-SCRIPTING-XSS",
		"file_inclusion.v2":          "FILE_INCLUSION.V2",
		"  --!!":                     "UNNAMED-PATTERN",
		"":                           "UNNAMED-PATTERN",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeRuleName(in), "input %q", in)
	}
}
