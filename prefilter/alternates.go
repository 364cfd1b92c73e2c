package prefilter

import (
	"github.com/krokodile/ktregex/internal/ast"
	"github.com/krokodile/ktregex/simd"

	"github.com/coregx/ahocorasick"
)

// maxAlternates bounds how many branches ExtractAlternates will collect,
// mirroring literal.ExtractorConfig.MaxLiterals's role of preventing
// unbounded memory growth from patterns like (a|b|c|...|z).
const maxAlternates = 64

// ExtractAlternates walks root looking for spec.md section 10's "bounded
// OR of plain literal alternatives" shape: an ast.Or tree (however deeply
// chained by "a|b|c" parsing) whose every branch is a literal run of
// ast.Char/ast.Str nodes with nothing else (no anchors, classes, or
// quantifiers). It returns the literal byte strings and true only when
// every branch qualifies and there are at least two of them; a single
// disqualifying branch, or more than maxAlternates branches, reports
// false so the caller falls back to a plain prefix search instead.
func ExtractAlternates(root *ast.Node) ([][]byte, bool) {
	if root == nil || root.Kind != ast.Or {
		return nil, false
	}
	var branches []*ast.Node
	collectOrBranches(root, &branches)
	if len(branches) < 2 || len(branches) > maxAlternates {
		return nil, false
	}

	lits := make([][]byte, 0, len(branches))
	for _, b := range branches {
		lit, full := literalRun(b)
		if !full || len(lit) == 0 {
			return nil, false
		}
		lits = append(lits, lit)
	}
	return lits, true
}

func collectOrBranches(n *ast.Node, out *[]*ast.Node) {
	if n.Kind == ast.Or {
		collectOrBranches(n.Left, out)
		collectOrBranches(n.Right, out)
		return
	}
	*out = append(*out, n)
}

// literalRun reports whether n is entirely a literal byte sequence (only
// Char, Str, Sequence, and transparent single-body Group nodes), and if
// so returns the concatenated bytes.
func literalRun(n *ast.Node) ([]byte, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind {
	case ast.Char:
		return []byte{byte(n.Num)}, true
	case ast.Str:
		return []byte(n.Class), true
	case ast.Group:
		return literalRun(n.Left)
	case ast.Sequence:
		l, ok := literalRun(n.Left)
		if !ok {
			return nil, false
		}
		r, ok := literalRun(n.Right)
		if !ok {
			return nil, false
		}
		return append(l, r...), true
	default:
		return nil, false
	}
}

// ExtractPrefix returns the longest run of bytes that root's match must
// begin with, stopping at the first construct that is not a plain
// literal (a quantifier, class, anchor, or alternation). It returns nil
// if root can match without consuming any fixed prefix.
func ExtractPrefix(root *ast.Node) []byte {
	prefix, _ := literalPrefix(root)
	return prefix
}

// literalPrefix returns the literal bytes accumulated so far and whether
// n was entirely consumed as a literal (so a Sequence parent should keep
// walking into its right child).
func literalPrefix(n *ast.Node) ([]byte, bool) {
	if n == nil {
		return nil, true
	}
	switch n.Kind {
	case ast.Char:
		return []byte{byte(n.Num)}, true
	case ast.Str:
		return []byte(n.Class), true
	case ast.Group:
		return literalPrefix(n.Left)
	case ast.Sequence:
		lp, lfull := literalPrefix(n.Left)
		if !lfull {
			return lp, false
		}
		rp, rfull := literalPrefix(n.Right)
		return append(lp, rp...), rfull
	default:
		return nil, false
	}
}

// firstAtom descends the leftmost spine of a Sequence chain to find the
// node a match must reach first, so ExtractAlternates can recognize an
// alternation that leads the pattern even when it is not root itself
// (root is usually "(?:foo|bar|baz)rest", parsed as Sequence(Or, rest)).
func firstAtom(n *ast.Node) *ast.Node {
	for n != nil && n.Kind == ast.Sequence {
		n = n.Left
	}
	return n
}

// Build selects the best available Prefilter for root, or nil if no
// literal structure worth prefiltering was found. An alternation of
// plain literals (spec.md section 10) takes priority over a plain
// required prefix, matching meta/compile.go's preference for
// UseAhoCorasick over single-literal strategies when both apply.
//
// Both strategies only ever identify a prefix or a leading alternation,
// never the whole pattern, so a Find hit only tells the caller where a
// match could begin — the caller must still run the VM from that offset
// to confirm it, exactly as meta.Engine re-verifies every prefilter hit
// with the NFA/DFA before reporting a match.
func Build(root *ast.Node) Prefilter {
	if lits, ok := ExtractAlternates(firstAtom(root)); ok {
		b := ahocorasick.NewBuilder()
		for _, lit := range lits {
			b.AddPattern(lit)
		}
		if auto, err := b.Build(); err == nil {
			return &alternatesPrefilter{auto: auto}
		}
	}
	if prefix := ExtractPrefix(root); len(prefix) > 0 {
		return &literalPrefilterImpl{lit: prefix}
	}
	return nil
}

// alternatesPrefilter filters candidate start offsets using an
// Aho-Corasick automaton built over a pattern's literal alternatives, the
// same role meta.Engine.ahoCorasick plays ahead of the teacher's NFA.
type alternatesPrefilter struct {
	auto *ahocorasick.Automaton
}

func (p *alternatesPrefilter) Find(subject []byte, start int) int {
	if start > len(subject) {
		return -1
	}
	m := p.auto.Find(subject, start)
	if m == nil {
		return -1
	}
	return m.Start
}

func (p *alternatesPrefilter) IsComplete() bool { return false }
func (p *alternatesPrefilter) LiteralLen() int  { return 0 }

// literalPrefilterImpl filters candidate start offsets using
// simd.Memchr/simd.Memmem for a single required literal prefix.
type literalPrefilterImpl struct {
	lit []byte
}

func (p *literalPrefilterImpl) Find(subject []byte, start int) int {
	if start > len(subject) {
		return -1
	}
	var idx int
	if len(p.lit) == 1 {
		idx = simd.Memchr(subject[start:], p.lit[0])
	} else {
		idx = simd.Memmem(subject[start:], p.lit)
	}
	if idx < 0 {
		return -1
	}
	return start + idx
}

func (p *literalPrefilterImpl) IsComplete() bool { return false }
func (p *literalPrefilterImpl) LiteralLen() int  { return 0 }
