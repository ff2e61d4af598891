// Package sarif defines the subset of the SARIF 2.1.0 object model that
// phpflow emits. Pointers are used for optional fields. Required fields use
// value types.
package sarif

const (
	Version = "2.1.0"
	Schema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []*Run `json:"runs"`
}

// NewLog returns a log with a single run for the named tool.
func NewLog(toolName, toolVersion, informationURI string) *Log {
	return &Log{
		Version: Version,
		Schema:  Schema,
		Runs: []*Run{{
			Tool: &Tool{Driver: &ToolComponent{
				Name:           toolName,
				Version:        String(toolVersion),
				InformationURI: String(informationURI),
				Rules:          []*ReportingDescriptor{},
			}},
			Results: []*Result{},
		}},
	}
}

type Run struct {
	Tool        *Tool         `json:"tool"`
	Invocations []*Invocation `json:"invocations,omitempty"`
	Results     []*Result     `json:"results"`
	Properties  *PropertyBag  `json:"properties,omitempty"`
}

type Tool struct {
	Driver *ToolComponent `json:"driver"`
}

// ToolComponent describes the tool that produced the results.
type ToolComponent struct {
	Name           string                 `json:"name"`
	Version        *string                `json:"version,omitempty"`
	InformationURI *string                `json:"informationUri,omitempty"`
	Rules          []*ReportingDescriptor `json:"rules,omitempty"`
}

type Invocation struct {
	ExecutionSuccessful bool         `json:"executionSuccessful"`
	Properties          *PropertyBag `json:"properties,omitempty"`
}

type ReportingDescriptor struct {
	ID               string                    `json:"id"`
	Name             *string                   `json:"name,omitempty"`
	ShortDescription *MultiformatMessageString `json:"shortDescription,omitempty"`
	FullDescription  *MultiformatMessageString `json:"fullDescription,omitempty"`
	Help             *MultiformatMessageString `json:"help,omitempty"`
	Properties       *PropertyBag              `json:"properties,omitempty"`
}

type Result struct {
	RuleID     string       `json:"ruleId"`
	RuleIndex  *int         `json:"ruleIndex,omitempty"`
	Kind       Kind         `json:"kind,omitempty"`
	Level      Level        `json:"level,omitempty"`
	Message    *Message     `json:"message"`
	Locations  []*Location  `json:"locations,omitempty"`
	Properties *PropertyBag `json:"properties,omitempty"`
}

type Location struct {
	PhysicalLocation *PhysicalLocation  `json:"physicalLocation,omitempty"`
	LogicalLocations []*LogicalLocation `json:"logicalLocations,omitempty"`
	Message          *Message           `json:"message,omitempty"`
}

type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
}

type ArtifactLocation struct {
	URI *string `json:"uri,omitempty"`
}

// LogicalLocation names a program element, here the sink function.
type LogicalLocation struct {
	Name *string `json:"name,omitempty"`
	Kind *string `json:"kind,omitempty"`
}

type Message struct {
	Text *string `json:"text,omitempty"`
}

type MultiformatMessageString struct {
	Text     *string `json:"text"`
	Markdown *string `json:"markdown,omitempty"`
}

type PropertyBag map[string]interface{}

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelNote    Level = "note"
	LevelNone    Level = "none"
)

// Kind distinguishes failures from checks that passed.
type Kind string

const (
	KindFail Kind = "fail"
	KindPass Kind = "pass"
)

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Rules returns the driver's rules, or nil for a run without a driver.
func (r *Run) Rules() []*ReportingDescriptor {
	if r == nil || r.Tool == nil || r.Tool.Driver == nil {
		return nil
	}
	return r.Tool.Driver.Rules
}
