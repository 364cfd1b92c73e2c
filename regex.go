// Package ktregex implements a self-contained Perl-flavored regular
// expression engine: a recursive-descent parser, a bytecode compiler,
// and a backtracking virtual machine, the way original_source/ktre.c
// does it in C. Unlike the teacher repo (coregx/coregex), which picks
// among a DFA/onepass/PikeVM/backtracker family per pattern, ktregex
// always compiles to one bytecode program and runs it on one VM —
// spec.md's Non-goals explicitly exclude a multi-engine strategy.
package ktregex

import (
	"fmt"
	"sync/atomic"

	"github.com/krokodile/ktregex/internal/bytecode"
	"github.com/krokodile/ktregex/internal/compiler"
	"github.com/krokodile/ktregex/internal/diag"
	"github.com/krokodile/ktregex/internal/opt"
	"github.com/krokodile/ktregex/internal/parser"
	"github.com/krokodile/ktregex/internal/vm"
	"github.com/krokodile/ktregex/prefilter"
)

// program is the immutable, shareable half of a compiled pattern: the
// bytecode, an optional anchored twin used by the prefilter fast path,
// and a reference count so Copy/Close can share one compilation the way
// the teacher repo's engine handles share one compiled strategy across
// Regex copies.
type program struct {
	prog     *bytecode.Program
	anchored *bytecode.Program // nil if no usable prefilter was found
	groups   []parser.Group
	refs     int32
}

// Regex is a compiled pattern plus the options and resource limits it
// was compiled with. A zero Regex is not usable; construct one with
// Compile, CompileOptions, or CompileWithConfig.
type Regex struct {
	shared  *program
	pf      prefilter.Prefilter
	pattern string
	options Options
	cfg     Config

	closed     bool
	lastVec    [][]int
	contOffset int
	stats      Stats
}

// Compile parses and compiles pattern with the default options and
// resource limits.
func Compile(pattern string) (*Regex, error) {
	return CompileOptions(pattern, 0)
}

// CompileOptions parses and compiles pattern under options, using
// DefaultConfig's resource limits.
func CompileOptions(pattern string, options Options) (*Regex, error) {
	return compileWithConfig(pattern, options, DefaultConfig())
}

// CompileWithConfig parses and compiles pattern under options, enforcing
// cfg's resource limits during both parsing and execution.
func CompileWithConfig(pattern string, options Options, cfg Config) (*Regex, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return compileWithConfig(pattern, options, cfg)
}

func compileWithConfig(pattern string, options Options, cfg Config) (*Regex, error) {
	normalized, ok := options.Normalize()
	if !ok {
		return nil, &diag.Error{
			Code:    diag.InvalidOptions,
			Message: "GLOBAL and CONTINUE cannot both be set",
		}
	}

	diags := &diag.Diagnostics{}
	result := parser.New(pattern, normalized, cfg.MaxGroups, diags).Parse()
	if diags.Failed() {
		return nil, diags.Err()
	}

	prog, err := compiler.Compile(result, normalized, diags)
	if err != nil {
		return nil, err
	}

	sp := &program{prog: prog, groups: result.Groups, refs: 1}

	var pf prefilter.Prefilter
	if normalized.Has(opt.Unanchored) && !normalized.Has(opt.Insensitive) {
		body := result.Root.Left // unwrap the implicit whole-match group
		if pf = prefilter.Build(body); pf != nil {
			anchoredDiags := &diag.Diagnostics{}
			if anchored, aerr := compiler.Compile(result, normalized&^opt.Unanchored, anchoredDiags); aerr == nil {
				sp.anchored = anchored
			}
		}
	}

	re := &Regex{
		shared:  sp,
		pf:      pf,
		pattern: pattern,
		options: normalized,
		cfg:     cfg,
	}
	re.stats.Instructions = len(prog.Instrs)
	re.stats.Groups = prog.Len()
	re.stats.CaptureBytes = prog.Len() * 2 * 8
	return re, nil
}

// MustCompile is like Compile but panics on error, for use in package
// init and tests where the pattern is a compile-time constant.
func MustCompile(pattern string) *Regex {
	re, err := Compile(pattern)
	if err != nil {
		panic(fmt.Sprintf("ktregex: Compile(%q): %s", pattern, err))
	}
	return re
}

var errClosed = fmt.Errorf("ktregex: operation on a closed Regex")

// Exec runs the compiled pattern against subject once and reports
// whether it matched. It starts at offset 0, unless the Regex was
// compiled with Continue, in which case it resumes at the offset where
// the previous match (from any prior Exec call) left off — ktre.c's
// re->cont, set to sp every time KTRE_INSTR_MATCH records a match. The
// resulting capture vector(s) are retrieved with GetVec.
func (r *Regex) Exec(subject []byte) (bool, error) {
	if r.closed {
		return false, errClosed
	}

	start := 0
	if r.options.Has(opt.Continue) {
		if r.contOffset >= len(subject) {
			r.lastVec = nil
			return false, nil
		}
		start = r.contOffset
	}

	if r.shared.anchored != nil && !r.options.Has(opt.Global) {
		return r.execPrefiltered(subject, start)
	}

	res, derr := vm.Run(r.shared.prog, string(subject), r.options, start, r.cfg.vmConfig())
	r.recordPeak(res.PeakThreads)
	if derr != nil {
		return false, derr
	}
	r.lastVec = res.Matches
	r.recordCont(res.Matches)
	return len(res.Matches) > 0, nil
}

// execPrefiltered implements the fast path spec.md section 10 asks for:
// the compiled pattern begins with a required literal (or a bounded OR
// of literals), so any match must start exactly where that literal
// occurs in subject. r.pf.Find walks candidate occurrences and each is
// verified with r.shared.anchored, a twin program compiled without the
// unanchored scanning preamble — it only ever tries a match starting at
// the exact offset it is given, so a prefilter miss costs one VM
// invocation instead of a full left-to-right scan.
func (r *Regex) execPrefiltered(subject []byte, start int) (bool, error) {
	pos := start
	for {
		cand := r.pf.Find(subject, pos)
		if cand < 0 {
			r.lastVec = nil
			return false, nil
		}
		res, derr := vm.Run(r.shared.anchored, string(subject), r.options, cand, r.cfg.vmConfig())
		r.recordPeak(res.PeakThreads)
		if derr != nil {
			return false, derr
		}
		if len(res.Matches) > 0 {
			r.lastVec = res.Matches
			r.recordCont(res.Matches)
			return true, nil
		}
		pos = cand + 1
	}
}

func (r *Regex) recordPeak(peak int) {
	if peak > r.stats.PeakThreads {
		r.stats.PeakThreads = peak
	}
}

// recordCont latches the end offset of the last recorded match so a
// subsequent Exec under Continue resumes from there instead of offset 0.
func (r *Regex) recordCont(matches [][]int) {
	if len(matches) == 0 {
		return
	}
	last := matches[len(matches)-1]
	r.contOffset = last[0] + last[1]
}

// GetVec returns the capture vectors from the most recent Exec call: one
// []int per match found (more than one only when the Regex was compiled
// with Global), each holding start,length pairs indexed by group number
// (group 0 first). A group that did not participate has start -1.
func (r *Regex) GetVec() [][]int {
	if len(r.lastVec) == 0 {
		return nil
	}
	out := make([][]int, len(r.lastVec))
	for i, v := range r.lastVec {
		cp := make([]int, len(v))
		copy(cp, v)
		out[i] = cp
	}
	return out
}

// Copy returns an independent handle sharing this Regex's compiled
// program: cheap, and safe for concurrent use by different goroutines as
// long as each goroutine uses its own *Regex (spec.md section 5: a
// single compiled pattern is not reentrant, but distinct handles to it
// may run concurrently).
func (r *Regex) Copy() *Regex {
	atomic.AddInt32(&r.shared.refs, 1)
	cp := *r
	cp.closed = false
	cp.lastVec = nil
	cp.contOffset = 0
	cp.stats.PeakThreads = 0
	return &cp
}

// Close releases this handle. It is idempotent and always returns nil;
// Close exists, rather than folding teardown into garbage collection, so
// Regex matches the io.Closer-shaped teardown convention the rest of
// this codebase uses for engine handles.
func (r *Regex) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	atomic.AddInt32(&r.shared.refs, -1)
	return nil
}

// Stats reports bytecode size and runtime bookkeeping for this handle,
// in place of original_source/ktre.c's allocator-statistics struct —
// spec.md section 1 treats that accounting as diagnostic only, so
// ktregex tracks the one number (peak thread count) that is actually
// useful for tuning Config.MaxThreads.
func (r *Regex) Stats() Stats { return r.stats }

// String returns the source pattern this Regex was compiled from.
func (r *Regex) String() string { return r.pattern }

// NumSubexp returns the number of capturing groups, not counting group 0.
func (r *Regex) NumSubexp() int { return r.shared.prog.Len() - 1 }
