// Package ast defines the abstract syntax tree produced by internal/parser
// and consumed by internal/compiler.
//
// The tree is strictly owned root-down: no back-edges, no sharing between
// nodes. An arena-free, garbage-collected tree is a natural fit in Go where
// the original C implementation (ktre.c) used an explicit post-order free.
package ast

// Kind identifies the variant of a Node.
type Kind uint8

// Node kinds, the complete set from spec.md section 3.
const (
	None Kind = iota
	Char
	Sequence
	Or
	Group
	Atom
	Class
	Not
	Str
	Asterisk
	Plus
	Question
	Rep
	Any
	Many
	BOL
	EOL
	BOS
	EOS
	WB
	NWB
	Digit
	Word
	Space
	SetStart
	SetOpt
	Backref
	Call
	Recurse
	PLA
	NLA
	PLB
	NLB
)

var kindNames = [...]string{
	"None", "Char", "Sequence", "Or", "Group", "Atom", "Class", "Not", "Str",
	"Asterisk", "Plus", "Question", "Rep", "Any", "Many", "BOL", "EOL", "BOS",
	"EOS", "WB", "NWB", "Digit", "Word", "Space", "SetStart", "SetOpt",
	"Backref", "Call", "Recurse", "PLA", "NLA", "PLB", "NLB",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Node is a single AST node. Not every field is meaningful for every Kind;
// see the per-kind comments in internal/parser for which fields are in use.
type Node struct {
	Kind Kind

	// Left and Right are the (owned) children. Most node kinds use only
	// Left; Sequence and Or use both; leaf kinds use neither.
	Left, Right *Node

	// Offset is the byte offset into the source pattern where this node's
	// production began, used for diagnostics.
	Offset int

	// Num is an integer payload whose meaning depends on Kind:
	//   Char:          the literal byte
	//   Group:         group index
	//   Backref/Call/Recurse: referenced group index
	//   SetOpt:        the option bitmap to install
	Num int

	// Num2 is a secondary integer payload, used by Rep for the upper bound
	// (-1 meaning unbounded).
	Num2 int

	// Min is Rep's lower bound.
	Min int

	// Class holds an owned byte-class string for Class, Not, and Str
	// nodes: for Class/Not it is a membership set (each byte present is a
	// member); for Str it is the literal run to match verbatim.
	Class string

	// Name is the optional capture-group name (Group kind only).
	Name string

	// Lazy marks a quantifier (Asterisk/Plus/Question/Rep) as
	// non-greedy (e.g. `*?`).
	Lazy bool

	// Possessive marks a quantifier as atomic/possessive (e.g. `*+`),
	// compiled with a TRY/CATCH wrapper instead of a plain BRANCH.
	Possessive bool
}

// New allocates a leaf node of the given kind at the given source offset.
func New(kind Kind, offset int) *Node {
	return &Node{Kind: kind, Offset: offset}
}

// NewChar allocates a literal-byte node.
func NewChar(b byte, offset int) *Node {
	return &Node{Kind: Char, Num: int(b), Offset: offset}
}

// NewStr allocates a literal-run node from the adjacent-literal fusion
// pass in the parser.
func NewStr(s string, offset int) *Node {
	return &Node{Kind: Str, Class: s, Offset: offset}
}
