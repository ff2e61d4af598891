// File: internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
	"github.com/xkilldash9x/phpflow/internal/reporting/sarif"
)

const (
	ToolName    = "phpflow"
	ToolInfoURI = "https://github.com/xkilldash9x/phpflow"
	rulePrefix  = "PHPFLOW-"
)

// ruleIDSanitizer matches runs of characters that are not allowed in rule IDs.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)

// SARIFReporter buffers verdicts as SARIF results and writes the log on
// Close. Each pattern gets one rule. It is safe for concurrent use.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	source string
	log    *sarif.Log

	mu sync.Mutex
	// rulesByPattern maps a pattern name to its rule index.
	rulesByPattern map[string]int
	// ruleIDUsage counts sanitized IDs so distinct names that collide get a suffix.
	ruleIDUsage map[string]int
}

// NewSARIFReporter creates a reporter for the given writer. source is the
// artifact URI results point at and may be empty.
func NewSARIFReporter(writer io.WriteCloser, toolVersion, source string, logger *zap.Logger) *SARIFReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SARIFReporter{
		writer:         writer,
		logger:         logger.Named("sarif"),
		source:         source,
		log:            sarif.NewLog(ToolName, toolVersion, ToolInfoURI),
		rulesByPattern: make(map[string]int),
		ruleIDUsage:    make(map[string]int),
	}
}

// Write adds a failing result per violated verdict and a passing result per
// clear verdict.
func (r *SARIFReporter) Write(result *taint.Result) error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	run.Invocations = append(run.Invocations, &sarif.Invocation{
		ExecutionSuccessful: true,
		Properties: &sarif.PropertyBag{
			"runId":     result.RunID.String(),
			"createdAt": result.CreatedAt.Format(time.RFC3339),
		},
	})

	for _, v := range result.Verdicts {
		ruleIndex := r.ensureRule(v.Pattern)
		sr := &sarif.Result{
			RuleID:    run.Rules()[ruleIndex].ID,
			RuleIndex: &ruleIndex,
		}
		if v.IsViolated() {
			sr.Kind = sarif.KindFail
			sr.Level = sarif.LevelError
			sr.Message = &sarif.Message{Text: sarif.String(
				fmt.Sprintf("Tainted data reaches sink %s (pattern: %s).", v.Sink, v.Pattern))}
			sr.Locations = r.createLocations(v.Sink)
		} else {
			sr.Kind = sarif.KindPass
			sr.Level = sarif.LevelNone
			msg := fmt.Sprintf("No %s vulnerability found.", v.Pattern)
			if len(v.ActiveEndorsers) > 0 {
				msg = fmt.Sprintf("No %s vulnerability found; endorsers: %s.", v.Pattern, strings.Join(v.ActiveEndorsers, ", "))
				sr.Properties = &sarif.PropertyBag{"activeEndorsers": v.ActiveEndorsers}
			}
			sr.Message = &sarif.Message{Text: sarif.String(msg)}
		}
		run.Results = append(run.Results, sr)
	}

	r.logger.Debug("Buffered verdicts",
		zap.Int("verdicts", len(result.Verdicts)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// Close encodes the log and closes the writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Debug("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

func sanitizeRuleName(name string) string {
	s := ruleIDSanitizer.ReplaceAllString(strings.ToUpper(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "UNNAMED-PATTERN"
	}
	return s
}

// ensureRule returns the rule index for a pattern, registering it on first
// use. The caller holds the mutex.
func (r *SARIFReporter) ensureRule(pattern string) int {
	if idx, ok := r.rulesByPattern[pattern]; ok {
		return idx
	}

	baseID := rulePrefix + sanitizeRuleName(pattern)
	usage := r.ruleIDUsage[baseID]
	r.ruleIDUsage[baseID] = usage + 1

	ruleID := baseID
	if usage > 0 {
		ruleID = fmt.Sprintf("%s-%d", baseID, usage)
		r.logger.Debug("Rule ID collision, using suffix",
			zap.String("base_id", baseID),
			zap.String("rule_id", ruleID),
		)
	}

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               ruleID,
		Name:             sarif.String(pattern),
		ShortDescription: &sarif.MultiformatMessageString{Text: sarif.String(pattern)},
		FullDescription: &sarif.MultiformatMessageString{Text: sarif.String(
			fmt.Sprintf("Data from a %s source reaches a sensitive sink without passing through an endorser.", pattern))},
		Properties: &sarif.PropertyBag{
			"tags":      []string{"security", "taint"},
			"precision": "medium",
		},
	})
	idx := len(driver.Rules) - 1
	r.rulesByPattern[pattern] = idx
	return idx
}

func (r *SARIFReporter) createLocations(sink string) []*sarif.Location {
	loc := &sarif.Location{
		LogicalLocations: []*sarif.LogicalLocation{{
			Name: sarif.String(sink),
			Kind: sarif.String("function"),
		}},
	}
	if r.source != "" {
		loc.PhysicalLocation = &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: sarif.String(r.source)},
		}
	}
	return []*sarif.Location{loc}
}
