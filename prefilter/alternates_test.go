package prefilter

import (
	"testing"

	"github.com/krokodile/ktregex/internal/ast"
)

func seq(nodes ...*ast.Node) *ast.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	n := nodes[len(nodes)-1]
	for i := len(nodes) - 2; i >= 0; i-- {
		n = &ast.Node{Kind: ast.Sequence, Left: nodes[i], Right: n}
	}
	return n
}

func str(s string) *ast.Node { return ast.NewStr(s, 0) }

func TestExtractAlternates(t *testing.T) {
	or := &ast.Node{Kind: ast.Or, Left: str("foo"), Right: &ast.Node{Kind: ast.Or, Left: str("bar"), Right: str("baz")}}
	lits, ok := ExtractAlternates(or)
	if !ok || len(lits) != 3 {
		t.Fatalf("ExtractAlternates = %v, %v", lits, ok)
	}

	// A branch with a quantifier disqualifies the whole alternation.
	withRep := &ast.Node{Kind: ast.Or, Left: str("foo"), Right: &ast.Node{Kind: ast.Plus, Left: ast.NewChar('a', 0)}}
	if _, ok := ExtractAlternates(withRep); ok {
		t.Fatalf("expected ExtractAlternates to reject a non-literal branch")
	}
}

func TestExtractPrefix(t *testing.T) {
	body := seq(str("GET "), &ast.Node{Kind: ast.Digit})
	prefix := ExtractPrefix(body)
	if string(prefix) != "GET " {
		t.Fatalf("ExtractPrefix = %q, want %q", prefix, "GET ")
	}

	noPrefix := ExtractPrefix(&ast.Node{Kind: ast.Digit})
	if len(noPrefix) != 0 {
		t.Fatalf("ExtractPrefix of a non-literal root = %q, want empty", noPrefix)
	}
}
