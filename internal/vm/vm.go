// Package vm executes a compiled bytecode.Program against a subject
// string.
//
// The machine is a straight port of original_source/ktre.c's
// ktrepriv_run: an explicit LIFO stack of threads, NOT a recursive
// backtracker. The stack's top thread is always the one currently
// executing; BRANCH spawns a new thread on top (tried first) while
// demoting the current thread to its own fallback address, so ordinary
// backtracking is just "pop the stack and resume whatever is now on
// top." TRY/CATCH (atomic groups) and the four lookaround opcodes ride
// the same stack via a per-thread "exception" index list that remembers
// where to rewind TP to.
package vm

import (
	"strings"

	"github.com/krokodile/ktregex/internal/bytecode"
	"github.com/krokodile/ktregex/internal/diag"
	"github.com/krokodile/ktregex/internal/opt"
)

// Config bounds the resources a single Run call may consume, matching
// original_source/ktre.h's KTRE_MAX_THREAD / KTRE_MAX_CALL_DEPTH.
type Config struct {
	MaxThreads   int
	MaxCallDepth int
}

// DefaultConfig mirrors ktre.h's compiled-in constants exactly.
func DefaultConfig() Config {
	return Config{MaxThreads: 200, MaxCallDepth: 100}
}

// thread is one backtracking path: an instruction pointer, a subject
// position, and the mutable state a SAVE/CALL/TRY/lookaround opcode
// threads through backtracking.
//
// vec and prog are copied in full on every spawn (ktre.c's
// MAKE_STATIC_THREAD_VARIABLE); frame and exception are copied up to
// their current length (MAKE_THREAD_VARIABLE) so a child only inherits
// the call/atomic-group nesting its parent had actually entered.
type thread struct {
	ip  int
	sp  int
	vec []int
	prog []int
	frame []int
	exception []int
	opt opt.Options
	die bool
	rev bool
}

func newThread(ip, sp int, options opt.Options, numGroups, numProgSlots int) thread {
	vec := make([]int, numGroups*2)
	for i := range vec {
		vec[i] = -1
	}
	prog := make([]int, numProgSlots)
	for i := range prog {
		prog[i] = -1
	}
	return thread{ip: ip, sp: sp, vec: vec, prog: prog, opt: options}
}

func spawn(parent *thread, ip, sp int, options opt.Options) thread {
	t := thread{
		ip:   ip,
		sp:   sp,
		opt:  options,
		vec:  append([]int(nil), parent.vec...),
		prog: append([]int(nil), parent.prog...),
	}
	if len(parent.frame) > 0 {
		t.frame = append([]int(nil), parent.frame...)
	}
	if len(parent.exception) > 0 {
		t.exception = append([]int(nil), parent.exception...)
	}
	return t
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func lc(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

func lcEqual(a, b byte) bool { return lc(a) == lc(b) }

// Result is everything a Run call produces: the matches found, plus the
// bookkeeping ktregex.Stats surfaces to callers in place of ktre.c's
// allocator statistics (spec.md section 1's "diagnostic only" allowance).
type Result struct {
	Matches     [][]int
	PeakThreads int
}

// Run executes prog against subject starting at position start, and
// returns every match found. Multiple matches are only possible when
// options has opt.Global set, in which case MATCH itself restarts the
// scan from the end of the previous match, exactly as ktre.c's
// KTRE_INSTR_MATCH handler does — Run is not a loop calling itself, it
// is one pass through the same while-TP>=0 driver the source uses.
func Run(prog *bytecode.Program, subject string, options opt.Options, start int, cfg Config) (Result, *diag.Error) {
	if cfg.MaxThreads <= 0 || cfg.MaxCallDepth <= 0 {
		cfg = DefaultConfig()
	}
	numGroups := len(prog.Groups)

	if options.Has(opt.Continue) && start >= len(subject) {
		return Result{}, nil
	}

	stack := make([]thread, 0, 16)
	stack = append(stack, newThread(0, start, options, numGroups, prog.NumProgSlots))

	var matches [][]int
	peak := 1

	for len(stack) > 0 {
		if len(stack) > peak {
			peak = len(stack)
		}
		tp := len(stack) - 1
		th := &stack[tp]
		ip := th.ip
		sp := th.sp
		fp := len(th.frame)
		ep := len(th.exception)
		curOpt := th.opt
		rev := th.rev

		if th.die {
			th.die = false
			stack = stack[:tp]
			continue
		}

		in := prog.Instrs[ip]

		switch in.Op {
		case bytecode.OpChar:
			th.ip++
			if sp < 0 || sp >= len(subject) {
				stack = stack[:tp]
				continue
			}
			want := byte(in.C)
			got := subject[sp]
			ok := got == want
			if !ok && curOpt.Has(opt.Insensitive) {
				ok = lcEqual(got, want)
			}
			if !ok {
				stack = stack[:tp]
				continue
			}
			if rev {
				th.sp--
			} else {
				th.sp++
			}

		case bytecode.OpAny:
			th.ip++
			if sp < 0 || sp >= len(subject) {
				stack = stack[:tp]
				continue
			}
			if subject[sp] == '\n' && !curOpt.Has(opt.Multiline) {
				stack = stack[:tp]
				continue
			}
			if rev {
				th.sp--
			} else {
				th.sp++
			}

		case bytecode.OpMany:
			th.ip++
			if sp < 0 || sp >= len(subject) {
				stack = stack[:tp]
				continue
			}
			if rev {
				th.sp--
			} else {
				th.sp++
			}

		case bytecode.OpClass:
			th.ip++
			if sp < 0 || sp >= len(subject) {
				stack = stack[:tp]
				continue
			}
			b := subject[sp]
			ok := strings.IndexByte(in.Class, b) >= 0
			if !ok && curOpt.Has(opt.Insensitive) {
				ok = strings.IndexByte(in.Class, lc(b)) >= 0
			}
			if !ok {
				stack = stack[:tp]
				continue
			}
			if rev {
				th.sp--
			} else {
				th.sp++
			}

		case bytecode.OpNot:
			th.ip++
			if sp < 0 || sp >= len(subject) || strings.IndexByte(in.Class, subject[sp]) >= 0 {
				stack = stack[:tp]
				continue
			}
			if rev {
				th.sp--
			} else {
				th.sp++
			}

		case bytecode.OpStr, bytecode.OpTStr:
			th.ip++
			n := len(in.Class)
			if rev {
				if sp+1-n < 0 || sp+1 > len(subject) {
					stack = stack[:tp]
					continue
				}
				if !runMatches(subject[sp+1-n:sp+1], in.Class, curOpt.Has(opt.Insensitive)) {
					stack = stack[:tp]
					continue
				}
				th.sp -= n
			} else {
				if sp < 0 || sp+n > len(subject) {
					stack = stack[:tp]
					continue
				}
				if !runMatches(subject[sp:sp+n], in.Class, curOpt.Has(opt.Insensitive)) {
					stack = stack[:tp]
					continue
				}
				th.sp += n
			}

		case bytecode.OpBackref:
			th.ip++
			start, length := th.vec[in.A*2], th.vec[in.A*2+1]
			if start < 0 || length < 0 {
				stack = stack[:tp]
				continue
			}
			ref := subject[start : start+length]
			if rev {
				lo := sp + 1 - length
				if lo < 0 || sp+1 > len(subject) {
					stack = stack[:tp]
					continue
				}
				if !runMatches(subject[lo:sp+1], ref, curOpt.Has(opt.Insensitive)) {
					stack = stack[:tp]
					continue
				}
				th.sp -= length
			} else {
				if sp < 0 || sp+length > len(subject) {
					stack = stack[:tp]
					continue
				}
				if !runMatches(subject[sp:sp+length], ref, curOpt.Has(opt.Insensitive)) {
					stack = stack[:tp]
					continue
				}
				th.sp += length
			}

		case bytecode.OpBOL:
			if (sp > 0 && subject[sp-1] == '\n') || sp == 0 {
				th.ip++
			} else {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpEOL:
			if (sp >= 0 && sp < len(subject) && subject[sp] == '\n') || sp == len(subject) {
				th.ip++
			} else {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpBOS:
			if sp == 0 {
				th.ip++
			} else {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpEOS:
			if sp >= 0 && sp == len(subject) {
				th.ip++
			} else {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpWB, bytecode.OpNWB:
			th.ip++
			if sp < 0 || sp >= len(subject) {
				stack = stack[:tp]
				continue
			}
			before := sp > 0 && isWordByte(subject[sp-1])
			after := isWordByte(subject[sp])
			boundary := after != before
			if sp == 0 {
				boundary = after
			}
			want := in.Op == bytecode.OpWB
			if boundary != want {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpDigit:
			th.ip++
			if !classAdvance(subject, sp, isDigitByte, rev, th) {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpWord:
			th.ip++
			if !classAdvance(subject, sp, isWordByte, rev, th) {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpSpace:
			th.ip++
			if !classAdvance(subject, sp, isSpaceByte, rev, th) {
				stack = stack[:tp]
				continue
			}

		case bytecode.OpBranch:
			th.ip = in.B
			stack = append(stack, spawn(th, in.A, sp, curOpt))

		case bytecode.OpJmp:
			th.ip = in.C

		case bytecode.OpSetOpt:
			th.ip++
			th.opt = opt.Options(in.C)

		case bytecode.OpSetStart:
			th.ip++
			th.vec[0] = sp

		case bytecode.OpSave:
			th.ip++
			if in.A%2 == 0 {
				th.vec[in.A] = sp
			} else {
				th.vec[in.A] = sp - th.vec[in.A-1]
			}

		case bytecode.OpCall:
			th.ip = in.A
			th.frame = append(th.frame, ip+1)

		case bytecode.OpRet:
			n := len(th.frame) - 1
			th.ip = th.frame[n]
			th.frame = th.frame[:n]

		case bytecode.OpProg:
			th.ip++
			if th.prog[in.A] == sp {
				stack = stack[:tp]
				continue
			}
			th.prog[in.A] = sp

		case bytecode.OpTry:
			th.ip++
			th.exception = append(th.exception, tp)

		case bytecode.OpCatch:
			target := th.exception[ep-1]
			stack[target].ip = ip + 1
			stack[target].sp = sp
			stack = stack[:target+1]

		case bytecode.OpPLA:
			th.die = true
			stack = append(stack, spawn(th, ip+1, sp, curOpt))
			stack[len(stack)-1].exception = append(stack[len(stack)-1].exception, tp)

		case bytecode.OpPLAWin:
			target := th.exception[ep-1]
			stack[target].die = false
			stack[target].ip = ip + 1
			stack = stack[:target+1]

		case bytecode.OpNLA:
			th.ip = in.C
			stack = append(stack, spawn(th, ip+1, sp, curOpt))
			stack[len(stack)-1].exception = append(stack[len(stack)-1].exception, tp)

		case bytecode.OpNLAFail:
			target := th.exception[ep-1] - 1
			stack = stack[:target+1]
			continue

		case bytecode.OpPLB:
			th.die = true
			stack = append(stack, spawn(th, ip+1, sp-1, curOpt))
			child := &stack[len(stack)-1]
			child.exception = append(child.exception, tp)
			child.rev = true

		case bytecode.OpPLBWin:
			target := th.exception[ep-1]
			stack[target].rev = false
			stack[target].die = false
			stack[target].ip = ip + 1
			stack = stack[:target+1]

		case bytecode.OpNLB:
			th.ip = in.C
			stack = append(stack, spawn(th, ip+1, sp-1, curOpt))
			child := &stack[len(stack)-1]
			child.exception = append(child.exception, tp)
			child.rev = true

		case bytecode.OpNLBFail:
			target := th.exception[ep-1] - 1
			stack = stack[:target+1]
			continue

		case bytecode.OpMatch:
			dup := false
			for _, m := range matches {
				if m[0] == th.vec[0] {
					dup = true
					break
				}
			}
			if dup {
				stack = stack[:tp]
				continue
			}
			if curOpt.Has(opt.Unanchored) || (sp >= 0 && sp == len(subject)) {
				vec := append([]int(nil), th.vec...)
				matches = append(matches, vec)
				if !curOpt.Has(opt.Global) {
					return Result{Matches: matches, PeakThreads: peak}, nil
				}
				if sp > len(subject) {
					return Result{Matches: matches, PeakThreads: peak}, nil
				}
				stack = stack[:1]
				stack[0] = newThread(0, sp, options, numGroups, prog.NumProgSlots)
				continue
			}
			stack = stack[:tp]
			continue

		default:
			return Result{Matches: matches, PeakThreads: peak}, &diag.Error{Code: diag.SyntaxError, Offset: in.Offset, Message: "unimplemented instruction"}
		}

		if len(stack) >= cfg.MaxThreads-1 {
			return Result{Matches: matches, PeakThreads: peak}, &diag.Error{Code: diag.StackOverflow, Offset: in.Offset, Message: "regex exceeded the maximum number of executable threads"}
		}
		if fp >= cfg.MaxCallDepth-1 {
			return Result{Matches: matches, PeakThreads: peak}, &diag.Error{Code: diag.CallOverflow, Offset: in.Offset, Message: "regex exceeded the maximum depth for subroutine calls"}
		}
	}

	return Result{Matches: matches, PeakThreads: peak}, nil
}

func runMatches(got, want string, insensitive bool) bool {
	if len(got) != len(want) {
		return false
	}
	if !insensitive {
		return got == want
	}
	for i := 0; i < len(got); i++ {
		if lc(got[i]) != lc(want[i]) {
			return false
		}
	}
	return true
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

func classAdvance(subject string, sp int, member func(byte) bool, rev bool, th *thread) bool {
	if sp < 0 || sp >= len(subject) || !member(subject[sp]) {
		return false
	}
	if rev {
		th.sp--
	} else {
		th.sp++
	}
	return true
}
