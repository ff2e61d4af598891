// File: internal/analysis/taint/pattern.go
package taint

import (
	"sort"
	"strings"
)

// Pattern is one named vulnerability rule as read from a pattern file.
type Pattern struct {
	Name      string   `json:"name" yaml:"name"`
	Sources   []string `json:"sources" yaml:"sources"`
	Endorsers []string `json:"endorsers" yaml:"endorsers"`
	Sinks     []string `json:"sinks" yaml:"sinks"`
}

// Catalog is the read-only, normalized form of a Pattern used during a pass.
// Source names are sigil-free. Sinks and endorsers are keyed in lower case
// since PHP resolves function names case-insensitively, and map to the
// spelling the pattern declared.
type Catalog struct {
	name      string
	sources   []string
	sinks     map[string]string
	endorsers map[string]string
}

// NewCatalog validates and normalizes p. index is the pattern's position in
// its file and only serves error messages.
func NewCatalog(index int, p Pattern) (*Catalog, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, &ConfigurationError{Index: index, Field: "name"}
	}

	sources := normalize(p.Sources, func(s string) string { return strings.TrimPrefix(s, "$") })
	if len(sources) == 0 {
		return nil, &ConfigurationError{Pattern: name, Index: index, Field: "sources"}
	}
	sinks := functionNames(p.Sinks)
	if len(sinks) == 0 {
		return nil, &ConfigurationError{Pattern: name, Index: index, Field: "sinks"}
	}

	return &Catalog{
		name:      name,
		sources:   sources,
		sinks:     sinks,
		endorsers: functionNames(p.Endorsers),
	}, nil
}

// Compile builds a Catalog for every pattern, failing on the first invalid one.
// An empty pattern list is ErrNoPatterns.
func Compile(patterns []Pattern) ([]*Catalog, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}
	out := make([]*Catalog, 0, len(patterns))
	for i, p := range patterns {
		c, err := NewCatalog(i, p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (c *Catalog) Name() string { return c.name }

// Sources returns the sorted source variable names.
func (c *Catalog) Sources() []string {
	return append([]string(nil), c.sources...)
}

func (c *Catalog) IsSink(name string) bool {
	_, ok := c.Sink(name)
	return ok
}

func (c *Catalog) IsEndorser(name string) bool {
	_, ok := c.Endorser(name)
	return ok
}

// Sink resolves a function name, in any case, to the sink spelling the
// pattern declared.
func (c *Catalog) Sink(name string) (string, bool) {
	declared, ok := c.sinks[strings.ToLower(name)]
	return declared, ok
}

// Endorser is Sink for endorsers.
func (c *Catalog) Endorser(name string) (string, bool) {
	declared, ok := c.endorsers[strings.ToLower(name)]
	return declared, ok
}

// Pattern returns the normalized record, e.g. for reports.
func (c *Catalog) Pattern() Pattern {
	return Pattern{
		Name:      c.name,
		Sources:   c.Sources(),
		Endorsers: sortedValues(c.endorsers),
		Sinks:     sortedValues(c.sinks),
	}
}

// normalize trims, transforms, de-duplicates and sorts a name list.
func normalize(names []string, transform func(string) string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = transform(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// functionNames keys trimmed names by their lower-case form. The first
// spelling of a name wins.
func functionNames(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, dup := out[key]; !dup {
			out[key] = n
		}
	}
	return out
}

func sortedValues(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
