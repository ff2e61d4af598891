// File: internal/analysis/ast/decode.go
package ast

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrUnknownKind is returned for node kinds the analyzer has no model for.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrMalformed is returned when a node is missing a required child or is
	// not a JSON object.
	ErrMalformed = errors.New("malformed node")
)

// DecodeError pinpoints where in the JSON tree decoding failed.
type DecodeError struct {
	Path string
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("ast: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("ast: %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// rawNode is a php-parser node with its children left undecoded.
type rawNode map[string]jsoniter.RawMessage

// DecodeReader reads a php-parser JSON document from r.
func DecodeReader(r io.Reader) (Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read AST: %w", err)
	}
	return Decode(data)
}

// Decode converts a php-parser JSON document into a Node tree. Kinds outside
// the supported set are rejected up front so that analysis never runs over a
// tree it cannot fully interpret.
func Decode(data []byte) (Node, error) {
	n, err := decodeNode(jsoniter.RawMessage(data), "$")
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &DecodeError{Path: "$", Err: fmt.Errorf("%w: empty document", ErrMalformed)}
	}
	return n, nil
}

func isNull(raw jsoniter.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false"))
}

func decodeNode(raw jsoniter.RawMessage, path string) (Node, error) {
	if isNull(raw) {
		return nil, nil
	}

	var fields rawNode
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	kind := fields.str("kind")
	fail := func(err error) error {
		return &DecodeError{Path: path, Kind: kind, Err: err}
	}

	switch kind {
	case "program", "block":
		children, err := fields.list(path, "children")
		if err != nil {
			return nil, err
		}
		if kind == "program" {
			return &Program{Children: children}, nil
		}
		return &Block{Children: children}, nil

	case "expressionstatement":
		return fields.required(path, kind, "expression")

	case "parenthesis":
		return fields.required(path, kind, "inner")

	case "encapsedpart":
		return fields.required(path, kind, "expression")

	case "assign":
		left, err := fields.required(path, kind, "left")
		if err != nil {
			return nil, err
		}
		right, err := fields.required(path, kind, "right")
		if err != nil {
			return nil, err
		}
		op := fields.str("operator")
		if op == "" {
			op = "="
		}
		return &Assign{Operator: op, Left: left, Right: right}, nil

	case "bin":
		left, err := fields.required(path, kind, "left")
		if err != nil {
			return nil, err
		}
		right, err := fields.required(path, kind, "right")
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Type: fields.str("type"), Left: left, Right: right}, nil

	case "call", "new":
		what, err := fields.required(path, kind, "what")
		if err != nil {
			return nil, err
		}
		args, err := fields.list(path, "arguments")
		if err != nil {
			return nil, err
		}
		if kind == "new" {
			return &New{Class: what, Arguments: args}, nil
		}
		return &Call{Callee: what, Arguments: args}, nil

	case "variable":
		name, ok := fields.name("name")
		if !ok {
			return nil, fail(fmt.Errorf("%w: variable name is not a plain string", ErrMalformed))
		}
		return &Variable{Name: strings.TrimPrefix(name, "$")}, nil

	case "offsetlookup", "propertylookup":
		what, err := fields.required(path, kind, "what")
		if err != nil {
			return nil, err
		}
		offset, err := fields.optional(path, "offset")
		if err != nil {
			return nil, err
		}
		if kind == "propertylookup" {
			return &PropertyLookup{What: what, Offset: offset}, nil
		}
		return &OffsetLookup{What: what, Offset: offset}, nil

	case "encapsed":
		parts, err := fields.list(path, "value")
		if err != nil {
			return nil, err
		}
		return &Encapsed{Parts: parts}, nil

	case "string":
		return &StringLiteral{Value: fields.str("value"), DoubleQuoted: fields.boolean("isDoubleQuote")}, nil

	case "nowdoc", "inline", "magic":
		return &StringLiteral{Value: fields.str("value")}, nil

	case "number":
		return &NumberLiteral{Value: fields.str("value")}, nil

	case "boolean":
		return &BoolLiteral{Value: fields.boolean("value")}, nil

	case "constref":
		name, _ := fields.name("name")
		return &ConstRef{Name: name}, nil

	case "nullkeyword":
		return &ConstRef{Name: "null"}, nil

	case "identifier", "name":
		name, ok := fields.name("name")
		if !ok {
			return nil, fail(fmt.Errorf("%w: identifier without a name", ErrMalformed))
		}
		return &Identifier{Name: name}, nil

	case "if":
		test, err := fields.required(path, kind, "test")
		if err != nil {
			return nil, err
		}
		body, err := fields.optional(path, "body")
		if err != nil {
			return nil, err
		}
		alternate, err := fields.optional(path, "alternate")
		if err != nil {
			return nil, err
		}
		return &If{Test: test, Body: body, Alternate: alternate}, nil

	case "while", "do":
		test, err := fields.required(path, kind, "test")
		if err != nil {
			return nil, err
		}
		body, err := fields.optional(path, "body")
		if err != nil {
			return nil, err
		}
		if kind == "do" {
			return &DoWhile{Test: test, Body: body}, nil
		}
		return &While{Test: test, Body: body}, nil

	case "for":
		init, err := fields.list(path, "init")
		if err != nil {
			return nil, err
		}
		test, err := fields.list(path, "test")
		if err != nil {
			return nil, err
		}
		increment, err := fields.list(path, "increment")
		if err != nil {
			return nil, err
		}
		body, err := fields.optional(path, "body")
		if err != nil {
			return nil, err
		}
		return &For{Init: init, Test: test, Increment: increment, Body: body}, nil

	case "try":
		body, err := fields.optional(path, "body")
		if err != nil {
			return nil, err
		}
		catchNodes, err := fields.list(path, "catches")
		if err != nil {
			return nil, err
		}
		catches := make([]*Catch, 0, len(catchNodes))
		for i, c := range catchNodes {
			cc, ok := c.(*Catch)
			if !ok {
				return nil, &DecodeError{
					Path: fmt.Sprintf("%s.catches[%d]", path, i),
					Kind: string(c.Kind()),
					Err:  fmt.Errorf("%w: expected catch clause", ErrMalformed),
				}
			}
			catches = append(catches, cc)
		}
		finally, err := fields.optional(path, "always")
		if err != nil {
			return nil, err
		}
		return &Try{Body: body, Catches: catches, Finally: finally}, nil

	case "catch":
		body, err := fields.optional(path, "body")
		if err != nil {
			return nil, err
		}
		return &Catch{Body: body}, nil

	case "throw":
		what, err := fields.required(path, kind, "what")
		if err != nil {
			return nil, err
		}
		return &Throw{What: what}, nil

	case "echo":
		key := "arguments"
		if _, ok := fields["expressions"]; ok {
			key = "expressions"
		}
		args, err := fields.list(path, key)
		if err != nil {
			return nil, err
		}
		return &Echo{Arguments: args}, nil

	case "print":
		arg, err := fields.optional(path, "arguments", "expression", "what")
		if err != nil {
			return nil, err
		}
		return &Print{Argument: arg}, nil

	case "exit":
		status, err := fields.optional(path, "status", "expression")
		if err != nil {
			return nil, err
		}
		return &Exit{Status: status}, nil

	case "pre", "post":
		what, err := fields.required(path, kind, "what")
		if err != nil {
			return nil, err
		}
		return &IncDec{Prefix: kind == "pre", Type: fields.str("type"), What: what}, nil

	case "unary", "cast":
		what, err := fields.required(path, kind, "what", "expr")
		if err != nil {
			return nil, err
		}
		if kind == "cast" {
			return &Cast{Type: fields.str("type"), What: what}, nil
		}
		return &Unary{Type: fields.str("type"), What: what}, nil

	case "retif":
		test, err := fields.required(path, kind, "test")
		if err != nil {
			return nil, err
		}
		ifTrue, err := fields.optional(path, "trueExpr")
		if err != nil {
			return nil, err
		}
		ifFalse, err := fields.required(path, kind, "falseExpr")
		if err != nil {
			return nil, err
		}
		return &Ternary{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}, nil

	case "array":
		return fields.array(path)

	case "":
		return nil, fail(fmt.Errorf("%w: missing kind", ErrMalformed))

	default:
		return nil, fail(ErrUnknownKind)
	}
}

// str returns a string or numeric field as text; anything else yields "".
func (f rawNode) str(key string) string {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var num jsoniter.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

func (f rawNode) boolean(key string) bool {
	raw, ok := f[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return strings.EqualFold(f.str(key), "true")
}

// name resolves a field that is either a plain string or a nested name node.
func (f rawNode) name(key string) (string, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var nested rawNode
	if err := json.Unmarshal(raw, &nested); err == nil {
		switch nested.str("kind") {
		case "identifier", "name":
			return nested.name("name")
		}
	}
	return "", false
}

func (f rawNode) optional(path string, keys ...string) (Node, error) {
	for _, key := range keys {
		raw, ok := f[key]
		if !ok || isNull(raw) {
			continue
		}
		return decodeNode(raw, path+"."+key)
	}
	return nil, nil
}

func (f rawNode) required(path, kind string, keys ...string) (Node, error) {
	n, err := f.optional(path, keys...)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &DecodeError{
			Path: path,
			Kind: kind,
			Err:  fmt.Errorf("%w: missing %q", ErrMalformed, keys[0]),
		}
	}
	return n, nil
}

// list decodes an array of nodes, skipping null entries.
func (f rawNode) list(path, key string) ([]Node, error) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		// A single node where a list is expected, e.g. print arguments in
		// older parser releases.
		n, nodeErr := decodeNode(raw, path+"."+key)
		if nodeErr != nil {
			return nil, nodeErr
		}
		if n == nil {
			return nil, nil
		}
		return []Node{n}, nil
	}

	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		n, err := decodeNode(item, fmt.Sprintf("%s.%s[%d]", path, key, i))
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// array flattens `entry` items into their key and value expressions.
func (f rawNode) array(path string) (Node, error) {
	raw, ok := f["items"]
	if !ok || isNull(raw) {
		return &Array{}, nil
	}
	var items []jsoniter.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &DecodeError{Path: path, Kind: string(KindArray), Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	out := &Array{}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s.items[%d]", path, i)
		if isNull(item) {
			continue
		}
		var entry rawNode
		if err := json.Unmarshal(item, &entry); err != nil {
			return nil, &DecodeError{Path: itemPath, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
		if entry.str("kind") != "entry" {
			n, err := decodeNode(item, itemPath)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, n)
			continue
		}
		for _, key := range []string{"key", "value"} {
			n, err := entry.optional(itemPath, key)
			if err != nil {
				return nil, err
			}
			if n != nil {
				out.Items = append(out.Items, n)
			}
		}
	}
	return out, nil
}
