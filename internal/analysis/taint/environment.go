// File: internal/analysis/taint/environment.go
package taint

import (
	"sort"
	"strings"
)

// Environment is the flow-sensitive taint state of one pattern's pass.
// Definitions are keyed by a bare variable name or by `name[offset]`, where
// offset is a literal rendered by literalOffset.
type Environment struct {
	catalog         *Catalog
	definitions     map[string]Level
	activeEndorsers map[string]struct{}
}

// NewEnvironment returns a fresh environment with every source of c tainted.
func NewEnvironment(c *Catalog) *Environment {
	env := &Environment{
		catalog:         c,
		definitions:     make(map[string]Level),
		activeEndorsers: make(map[string]struct{}),
	}
	for _, src := range c.Sources() {
		env.Taint(src, "")
	}
	return env
}

func (e *Environment) Catalog() *Catalog { return e.catalog }

func definitionKey(name, offset string) string {
	if offset == "" {
		return name
	}
	return name + "[" + offset + "]"
}

func splitKey(key string) (name, offset string) {
	i := strings.IndexByte(key, '[')
	if i < 0 {
		return key, ""
	}
	return key[:i], strings.TrimSuffix(key[i+1:], "]")
}

// clearOffsets drops every offset-qualified entry of name. Any write to the
// bare name invalidates them, since spellings of the same key may alias.
func (e *Environment) clearOffsets(name string) {
	prefix := name + "["
	for k := range e.definitions {
		if strings.HasPrefix(k, prefix) {
			delete(e.definitions, k)
		}
	}
}

// Taint marks name (or name[offset]) as tainted.
func (e *Environment) Taint(name, offset string) {
	if offset == "" {
		e.clearOffsets(name)
	}
	e.definitions[definitionKey(name, offset)] = Tainted()
}

// Untaint marks name (or name[offset]) as clean, produced by endorsers.
func (e *Environment) Untaint(name, offset string, endorsers ...string) {
	e.untaintLevel(name, offset, Untainted(endorsers...))
}

func (e *Environment) untaintLevel(name, offset string, l Level) {
	if offset == "" {
		e.clearOffsets(name)
	}
	e.definitions[definitionKey(name, offset)] = Level{endorsers: l.endorsers}
}

// define overwrites the bare entry of name without touching its offsets.
// Used for weak updates through non-literal offsets.
func (e *Environment) define(name string, l Level) {
	e.definitions[name] = l
}

// IsTainted resolves name[offset], falling back to the bare name and then to
// the clean default for unknown variables.
func (e *Environment) IsTainted(name, offset string) Level {
	if offset != "" {
		if l, ok := e.definitions[definitionKey(name, offset)]; ok {
			return l
		}
	}
	if l, ok := e.definitions[name]; ok {
		return l
	}
	return Level{}
}

// Merge joins other into e after divergent paths. Taint on either side wins;
// a clean entry from other is only adopted where e has no opinion of its own.
func (e *Environment) Merge(other *Environment) {
	keys := make([]string, 0, len(other.definitions))
	for k := range other.definitions {
		keys = append(keys, k)
	}
	// Bare names first so that a tainted bare name clears offsets before
	// the offset entries of other are considered.
	sort.Slice(keys, func(i, j int) bool {
		bi, bj := !strings.Contains(keys[i], "["), !strings.Contains(keys[j], "[")
		if bi != bj {
			return bi
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		l := other.definitions[k]
		name, offset := splitKey(k)
		if l.tainted {
			e.Taint(name, offset)
			continue
		}
		if _, ok := e.definitions[k]; ok {
			continue
		}
		if e.IsTainted(name, offset).tainted {
			continue
		}
		e.definitions[k] = l
	}

	for en := range other.activeEndorsers {
		e.activeEndorsers[en] = struct{}{}
	}
}

// Clone returns an independent copy. Levels are immutable and are shared.
func (e *Environment) Clone() *Environment {
	c := &Environment{
		catalog:         e.catalog,
		definitions:     make(map[string]Level, len(e.definitions)),
		activeEndorsers: make(map[string]struct{}, len(e.activeEndorsers)),
	}
	for k, v := range e.definitions {
		c.definitions[k] = v
	}
	for en := range e.activeEndorsers {
		c.activeEndorsers[en] = struct{}{}
	}
	return c
}

func (e *Environment) recordEndorsers(l Level) {
	if l.tainted {
		return
	}
	for en := range l.endorsers {
		e.activeEndorsers[en] = struct{}{}
	}
}

// ActiveEndorsers returns, sorted, the endorsers seen on clean data reaching
// a sink.
func (e *Environment) ActiveEndorsers() []string {
	return sortedKeys(e.activeEndorsers)
}

func (e *Environment) equal(other *Environment) bool {
	if len(e.definitions) != len(other.definitions) || len(e.activeEndorsers) != len(other.activeEndorsers) {
		return false
	}
	for k, l := range e.definitions {
		o, ok := other.definitions[k]
		if !ok || !l.sameAs(o) {
			return false
		}
	}
	for en := range e.activeEndorsers {
		if _, ok := other.activeEndorsers[en]; !ok {
			return false
		}
	}
	return true
}
