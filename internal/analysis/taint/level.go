// File: internal/analysis/taint/level.go
// Package taint implements a flow-sensitive taint interpreter over the PHP
// syntax tree in internal/analysis/ast. A pass runs once per vulnerability
// pattern and yields a Verdict: either clear (with the endorsers that were
// exercised on the way to a sink) or violated at a named sink.
package taint

import (
	"sort"
	"strings"
)

// Level is the taint lattice element carried by every evaluated expression.
// It deliberately exposes no equality or truth-value helpers: callers must ask
// IsTainted explicitly, so that "has endorsers" is never mistaken for "safe".
type Level struct {
	tainted bool
	// endorsers is never mutated after construction, so Levels may share it.
	endorsers map[string]struct{}
}

// Untainted returns a clean level that remembers which endorsers produced it.
func Untainted(endorsers ...string) Level {
	if len(endorsers) == 0 {
		return Level{}
	}
	set := make(map[string]struct{}, len(endorsers))
	for _, e := range endorsers {
		set[e] = struct{}{}
	}
	return Level{endorsers: set}
}

// Tainted returns the top of the lattice. Tainted values carry no endorsers.
func Tainted() Level {
	return Level{tainted: true}
}

func (l Level) IsTainted() bool { return l.tainted }

// Endorsers returns the sorted endorser names of a clean level, or nil for a
// tainted one.
func (l Level) Endorsers() []string {
	if l.tainted || len(l.endorsers) == 0 {
		return nil
	}
	out := make([]string, 0, len(l.endorsers))
	for e := range l.endorsers {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Combine is the lattice join: any tainted operand taints the result, and
// clean operands union their endorsers.
func Combine(a, b Level) Level {
	if a.tainted || b.tainted {
		return Tainted()
	}
	switch {
	case len(a.endorsers) == 0:
		return b
	case len(b.endorsers) == 0:
		return a
	}
	set := make(map[string]struct{}, len(a.endorsers)+len(b.endorsers))
	for e := range a.endorsers {
		set[e] = struct{}{}
	}
	for e := range b.endorsers {
		set[e] = struct{}{}
	}
	return Level{endorsers: set}
}

// CombineAll folds Combine over levels, starting from the clean identity.
func CombineAll(levels ...Level) Level {
	acc := Level{}
	for _, l := range levels {
		acc = Combine(acc, l)
	}
	return acc
}

// sameAs reports structural equality. It backs fixed-point detection only.
func (l Level) sameAs(other Level) bool {
	if l.tainted != other.tainted {
		return false
	}
	if l.tainted {
		return true
	}
	if len(l.endorsers) != len(other.endorsers) {
		return false
	}
	for e := range l.endorsers {
		if _, ok := other.endorsers[e]; !ok {
			return false
		}
	}
	return true
}

func (l Level) String() string {
	if l.tainted {
		return "tainted"
	}
	if len(l.endorsers) == 0 {
		return "untainted"
	}
	return "untainted{" + strings.Join(l.Endorsers(), ",") + "}"
}
