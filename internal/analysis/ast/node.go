// File: internal/analysis/ast/node.go
// Package ast defines the closed set of PHP syntax tree nodes understood by the
// taint analyzer. Every node kind is a concrete Go type implementing Node; the
// unexported marker method keeps the set closed so the evaluator's type switch
// covers all of them.
package ast

// Kind is the tag string carried by every node, matching the php-parser
// "kind" field.
type Kind string

const (
	KindProgram        Kind = "program"
	KindBlock          Kind = "block"
	KindAssign         Kind = "assign"
	KindBin            Kind = "bin"
	KindCall           Kind = "call"
	KindNew            Kind = "new"
	KindVariable       Kind = "variable"
	KindOffsetLookup   Kind = "offsetlookup"
	KindPropertyLookup Kind = "propertylookup"
	KindEncapsed       Kind = "encapsed"
	KindString         Kind = "string"
	KindNumber         Kind = "number"
	KindBoolean        Kind = "boolean"
	KindConstRef       Kind = "constref"
	KindIdentifier     Kind = "identifier"
	KindIf             Kind = "if"
	KindWhile          Kind = "while"
	KindDo             Kind = "do"
	KindFor            Kind = "for"
	KindTry            Kind = "try"
	KindCatch          Kind = "catch"
	KindThrow          Kind = "throw"
	KindEcho           Kind = "echo"
	KindPrint          Kind = "print"
	KindExit           Kind = "exit"
	KindPre            Kind = "pre"
	KindPost           Kind = "post"
	KindUnary          Kind = "unary"
	KindCast           Kind = "cast"
	KindRetIf          Kind = "retif"
	KindArray          Kind = "array"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Kind() Kind
	node()
}

// Program is the root of a parsed script.
type Program struct {
	Children []Node
}

// Block is a braced statement list.
type Block struct {
	Children []Node
}

// Assign is `left <operator> right`, where Operator is "=" or a compound
// operator such as ".=" or "+=".
type Assign struct {
	Operator string
	Left     Node
	Right    Node
}

// BinaryOp is any binary expression (arithmetic, concatenation, comparison).
type BinaryOp struct {
	Type  string
	Left  Node
	Right Node
}

// Call is a function call. Callee is usually an *Identifier.
type Call struct {
	Callee    Node
	Arguments []Node
}

// New is object construction; it is classified by class name like a call.
type New struct {
	Class     Node
	Arguments []Node
}

// Variable is a plain variable reference. Name never carries the `$` sigil.
type Variable struct {
	Name string
}

// OffsetLookup is `what[offset]`. Offset is nil for the append form `$a[]`.
type OffsetLookup struct {
	What   Node
	Offset Node
}

// PropertyLookup is `what->offset`.
type PropertyLookup struct {
	What   Node
	Offset Node
}

// Encapsed is an interpolated string; Parts holds literals and expressions.
type Encapsed struct {
	Parts []Node
}

// StringLiteral is a quoted string. DoubleQuoted records the quote style.
type StringLiteral struct {
	Value        string
	DoubleQuoted bool
}

// NumberLiteral keeps the number as written.
type NumberLiteral struct {
	Value string
}

type BoolLiteral struct {
	Value bool
}

// ConstRef is a reference to a named constant, e.g. PHP_EOL or null.
type ConstRef struct {
	Name string
}

// Identifier names a function or class in call position.
type Identifier struct {
	Name string
}

// If is a conditional. Alternate is nil when there is no else arm; an elseif
// chain is represented as a nested *If in Alternate.
type If struct {
	Test      Node
	Body      Node
	Alternate Node
}

type While struct {
	Test Node
	Body Node
}

type DoWhile struct {
	Test Node
	Body Node
}

// For holds the three comma-separated expression lists of a for header.
type For struct {
	Init      []Node
	Test      []Node
	Increment []Node
	Body      Node
}

// Try is try/catch/finally. Finally is nil when absent.
type Try struct {
	Body    Node
	Catches []*Catch
	Finally Node
}

type Catch struct {
	Body Node
}

type Throw struct {
	What Node
}

// Echo is the echo statement with its argument list.
type Echo struct {
	Arguments []Node
}

// Print is the print construct; it takes exactly one argument.
type Print struct {
	Argument Node
}

// Exit is exit/die with an optional status expression.
type Exit struct {
	Status Node
}

// IncDec is a pre or post increment/decrement.
type IncDec struct {
	Prefix bool
	Type   string
	What   Node
}

type Unary struct {
	Type string
	What Node
}

type Cast struct {
	Type string
	What Node
}

// Ternary is `test ? ifTrue : ifFalse`. IfTrue is nil for the short `?:` form.
type Ternary struct {
	Test    Node
	IfTrue  Node
	IfFalse Node
}

// Array is an array literal; Items interleaves keys and values in source
// order.
type Array struct {
	Items []Node
}

func (*Program) Kind() Kind        { return KindProgram }
func (*Block) Kind() Kind          { return KindBlock }
func (*Assign) Kind() Kind         { return KindAssign }
func (*BinaryOp) Kind() Kind       { return KindBin }
func (*Call) Kind() Kind           { return KindCall }
func (*New) Kind() Kind            { return KindNew }
func (*Variable) Kind() Kind       { return KindVariable }
func (*OffsetLookup) Kind() Kind   { return KindOffsetLookup }
func (*PropertyLookup) Kind() Kind { return KindPropertyLookup }
func (*Encapsed) Kind() Kind       { return KindEncapsed }
func (*StringLiteral) Kind() Kind  { return KindString }
func (*NumberLiteral) Kind() Kind  { return KindNumber }
func (*BoolLiteral) Kind() Kind    { return KindBoolean }
func (*ConstRef) Kind() Kind       { return KindConstRef }
func (*Identifier) Kind() Kind     { return KindIdentifier }
func (*If) Kind() Kind             { return KindIf }
func (*While) Kind() Kind          { return KindWhile }
func (*DoWhile) Kind() Kind        { return KindDo }
func (*For) Kind() Kind            { return KindFor }
func (*Try) Kind() Kind            { return KindTry }
func (*Catch) Kind() Kind          { return KindCatch }
func (*Throw) Kind() Kind          { return KindThrow }
func (*Echo) Kind() Kind           { return KindEcho }
func (*Print) Kind() Kind          { return KindPrint }
func (*Exit) Kind() Kind           { return KindExit }
func (*Unary) Kind() Kind          { return KindUnary }
func (*Cast) Kind() Kind           { return KindCast }
func (*Ternary) Kind() Kind        { return KindRetIf }
func (*Array) Kind() Kind          { return KindArray }

func (n *IncDec) Kind() Kind {
	if n.Prefix {
		return KindPre
	}
	return KindPost
}

func (*Program) node()        {}
func (*Block) node()          {}
func (*Assign) node()         {}
func (*BinaryOp) node()       {}
func (*Call) node()           {}
func (*New) node()            {}
func (*Variable) node()       {}
func (*OffsetLookup) node()   {}
func (*PropertyLookup) node() {}
func (*Encapsed) node()       {}
func (*StringLiteral) node()  {}
func (*NumberLiteral) node()  {}
func (*BoolLiteral) node()    {}
func (*ConstRef) node()       {}
func (*Identifier) node()     {}
func (*If) node()             {}
func (*While) node()          {}
func (*DoWhile) node()        {}
func (*For) node()            {}
func (*Try) node()            {}
func (*Catch) node()          {}
func (*Throw) node()          {}
func (*Echo) node()           {}
func (*Print) node()          {}
func (*Exit) node()           {}
func (*IncDec) node()         {}
func (*Unary) node()          {}
func (*Cast) node()           {}
func (*Ternary) node()        {}
func (*Array) node()          {}

// StatementCount returns the number of immediate statements in a loop body:
// the child count for blocks, zero for an absent body and one otherwise.
func StatementCount(body Node) int {
	switch b := body.(type) {
	case nil:
		return 0
	case *Block:
		return len(b.Children)
	case *Program:
		return len(b.Children)
	default:
		return 1
	}
}
