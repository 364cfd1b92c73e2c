// Package prefilter provides fast candidate-position filtering ahead of
// ktregex's backtracking VM.
//
// A prefilter never decides whether a match exists — it only narrows the
// set of start offsets the VM has to try in unanchored mode, the same
// role the teacher repo's prefilter package plays ahead of its NFA/DFA
// engines (coregx/coregex's meta package always re-verifies a prefilter
// hit with the full engine; ktregex does the same with the VM).
//
// Two strategies are implemented, selected by Build at compile time:
//   - A single required literal run uses simd.Memmem (or simd.Memchr for
//     a one-byte run).
//   - A bounded OR of plain literal alternatives (spec.md's "(?:foo|bar|baz)"
//     shape) builds a github.com/coregx/ahocorasick automaton, exactly as
//     meta/compile.go's UseAhoCorasick strategy does for large
//     alternations.
//
// Patterns with neither shape get no prefilter; the VM's own unanchored
// preamble (internal/compiler's ".*?" prefix) is the fallback.
package prefilter

// Prefilter narrows candidate start offsets in a subject ahead of a full
// VM run. Find returns the next candidate at or after start, or -1.
// IsComplete reports whether a Find hit is itself a full, correct match
// (no VM verification required) and, when true, LiteralLen gives the
// matched span's length.
type Prefilter interface {
	Find(subject []byte, start int) int
	IsComplete() bool
	LiteralLen() int
}
