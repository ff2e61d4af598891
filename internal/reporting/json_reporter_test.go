// File: internal/reporting/json_reporter_test.go
package reporting_test

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
	"github.com/xkilldash9x/phpflow/internal/reporting"
)

func TestJSONReporter_Write(t *testing.T) {
	w := newMockWriter()
	r := reporting.NewJSONReporter(w)

	in := resultOf(
		taint.Violated("XSS", "echo"),
		taint.Clear("SQL injection", []string{"mysql_escape_string"}),
	)
	require.NoError(t, r.Write(in))
	require.NoError(t, r.Close())

	var out map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(w.Buffer.Bytes(), &out))
	assert.Equal(t, fixedRunID.String(), out["run_id"])

	verdicts, ok := out["verdicts"].([]interface{})
	require.True(t, ok)
	require.Len(t, verdicts, 2)

	first := verdicts[0].(map[string]interface{})
	assert.Equal(t, "violated", first["status"])
	assert.Equal(t, "echo", first["sink"])
	assert.NotContains(t, first, "active_endorsers")

	second := verdicts[1].(map[string]interface{})
	assert.Equal(t, "clear", second["status"])
	assert.NotContains(t, second, "sink")
	assert.Equal(t, []interface{}{"mysql_escape_string"}, second["active_endorsers"])
}

func TestJSONReporter_RoundTrip(t *testing.T) {
	w := newMockWriter()
	r := reporting.NewJSONReporter(w)
	in := resultOf(taint.Violated("XSS", "print"))
	require.NoError(t, r.Write(in))

	var got taint.Result
	require.NoError(t, jsoniter.Unmarshal(w.Buffer.Bytes(), &got))
	assert.Equal(t, in.RunID, got.RunID)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, in.Verdicts, got.Verdicts)
}

func TestJSONReporter_WriteError(t *testing.T) {
	w := newMockWriter()
	w.FailWrite = true
	r := reporting.NewJSONReporter(w)

	err := r.Write(resultOf())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON report")
}
