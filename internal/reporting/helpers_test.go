// File: internal/reporting/helpers_test.go
package reporting_test

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

// MockWriteCloser captures output and simulates I/O errors.
type MockWriteCloser struct {
	Buffer    *bytes.Buffer
	FailWrite bool
	FailClose bool
	Closed    bool
}

func newMockWriter() *MockWriteCloser {
	return &MockWriteCloser{Buffer: new(bytes.Buffer)}
}

func (m *MockWriteCloser) Write(p []byte) (int, error) {
	if m.FailWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

func (m *MockWriteCloser) Close() error {
	m.Closed = true
	if m.FailClose {
		return errors.New("simulated close error")
	}
	return nil
}

var fixedRunID = uuid.MustParse("6f1c1c6e-9a3b-4f43-8a51-2d0b7d0c6a11")

func resultOf(verdicts ...taint.Verdict) *taint.Result {
	return &taint.Result{
		RunID:     fixedRunID,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Verdicts:  verdicts,
	}
}
