// File: internal/analysis/ast/decode_test.go
package ast

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_AssignAndCall(t *testing.T) {
	t.Parallel()
	doc := `{
	  "kind": "program",
	  "children": [
	    {"kind": "expressionstatement", "expression": {
	      "kind": "assign", "operator": "=",
	      "left": {"kind": "variable", "name": "$a"},
	      "right": {"kind": "offsetlookup",
	        "what": {"kind": "variable", "name": "_GET"},
	        "offset": {"kind": "string", "value": "id", "isDoubleQuote": false}}
	    }},
	    {"kind": "expressionstatement", "expression": {
	      "kind": "call",
	      "what": {"kind": "name", "name": "mysql_query", "resolution": "uqn"},
	      "arguments": [{"kind": "variable", "name": "a"}]
	    }}
	  ]
	}`

	n, err := Decode([]byte(doc))
	require.NoError(t, err)

	prog, ok := n.(*Program)
	require.True(t, ok)
	require.Len(t, prog.Children, 2)

	assign, ok := prog.Children[0].(*Assign)
	require.True(t, ok, "expression statements are unwrapped")
	assert.Equal(t, "=", assign.Operator)
	assert.Equal(t, &Variable{Name: "a"}, assign.Left)

	lookup, ok := assign.Right.(*OffsetLookup)
	require.True(t, ok)
	assert.Equal(t, &Variable{Name: "_GET"}, lookup.What)
	assert.Equal(t, &StringLiteral{Value: "id"}, lookup.Offset)

	call, ok := prog.Children[1].(*Call)
	require.True(t, ok)
	assert.Equal(t, &Identifier{Name: "mysql_query"}, call.Callee)
	assert.Equal(t, []Node{&Variable{Name: "a"}}, call.Arguments)
}

func TestDecode_ControlFlow(t *testing.T) {
	t.Parallel()
	doc := `{"kind": "program", "children": [
	  {"kind": "if",
	   "test": {"kind": "parenthesis", "inner": {"kind": "boolean", "value": true}},
	   "body": {"kind": "block", "children": []},
	   "alternate": null},
	  {"kind": "while",
	   "test": {"kind": "variable", "name": "x"},
	   "body": {"kind": "block", "children": [
	     {"kind": "expressionstatement", "expression": {"kind": "post", "type": "+", "what": {"kind": "variable", "name": "i"}}}
	   ]}},
	  {"kind": "for", "init": [], "test": [{"kind": "variable", "name": "x"}], "increment": [], "body": null},
	  {"kind": "try",
	   "body": {"kind": "block", "children": []},
	   "catches": [{"kind": "catch", "body": {"kind": "block", "children": []}}],
	   "always": {"kind": "block", "children": []}},
	  {"kind": "echo", "expressions": [{"kind": "number", "value": "1"}]}
	]}`

	n, err := Decode([]byte(doc))
	require.NoError(t, err)
	prog := n.(*Program)
	require.Len(t, prog.Children, 5)

	ifNode := prog.Children[0].(*If)
	assert.Equal(t, &BoolLiteral{Value: true}, ifNode.Test)
	assert.Nil(t, ifNode.Alternate)

	while := prog.Children[1].(*While)
	assert.Equal(t, 1, StatementCount(while.Body))
	inc := while.Body.(*Block).Children[0].(*IncDec)
	assert.Equal(t, KindPost, inc.Kind())

	forNode := prog.Children[2].(*For)
	assert.Empty(t, forNode.Init)
	assert.Len(t, forNode.Test, 1)
	assert.Nil(t, forNode.Body)

	try := prog.Children[3].(*Try)
	assert.Len(t, try.Catches, 1)
	assert.NotNil(t, try.Finally)

	echo := prog.Children[4].(*Echo)
	assert.Equal(t, []Node{&NumberLiteral{Value: "1"}}, echo.Arguments)
}

func TestDecode_ArrayEntries(t *testing.T) {
	t.Parallel()
	doc := `{"kind": "array", "items": [
	  {"kind": "entry", "key": {"kind": "string", "value": "k", "isDoubleQuote": false}, "value": {"kind": "variable", "name": "v"}},
	  {"kind": "entry", "key": null, "value": {"kind": "number", "value": 3}}
	]}`

	n, err := Decode([]byte(doc))
	require.NoError(t, err)
	arr := n.(*Array)
	assert.Equal(t, []Node{
		&StringLiteral{Value: "k"},
		&Variable{Name: "v"},
		&NumberLiteral{Value: "3"},
	}, arr.Items)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr error
		path    string
	}{
		{
			name:    "unknown kind",
			doc:     `{"kind": "program", "children": [{"kind": "function", "name": "f"}]}`,
			wantErr: ErrUnknownKind,
			path:    "$.children[0]",
		},
		{
			name:    "missing kind",
			doc:     `{"children": []}`,
			wantErr: ErrMalformed,
			path:    "$",
		},
		{
			name:    "assign without right side",
			doc:     `{"kind": "assign", "operator": "=", "left": {"kind": "variable", "name": "a"}}`,
			wantErr: ErrMalformed,
			path:    "$",
		},
		{
			name:    "variable variable",
			doc:     `{"kind": "variable", "name": {"kind": "variable", "name": "a"}}`,
			wantErr: ErrMalformed,
			path:    "$",
		},
		{
			name:    "not an object",
			doc:     `[1, 2]`,
			wantErr: ErrMalformed,
			path:    "$",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tc.path, decodeErr.Path)
		})
	}
}

func TestDecodeReader_Empty(t *testing.T) {
	t.Parallel()
	_, err := DecodeReader(strings.NewReader("null"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStatementCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, StatementCount(nil))
	assert.Equal(t, 3, StatementCount(&Block{Children: []Node{&Variable{}, &Variable{}, &Variable{}}}))
	assert.Equal(t, 1, StatementCount(&Variable{Name: "x"}))
}
