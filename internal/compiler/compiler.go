// Package compiler lowers a parsed AST (internal/parser + internal/ast)
// into the flat instruction vector internal/vm executes.
//
// The opcode choices and the shape of each construct's bytecode are a
// direct port of original_source/ktre.c's ktrepriv_compile: BRANCH operand
// order encodes greedy-vs-lazy by which side the VM tries first (see
// internal/vm), GROUP emits a CALL/SAVE/JMP/SAVE/body/RET wrapper only
// when the group is ever referenced as a subroutine, and CALL/RECURSE
// target the address one past the group's opening SAVE so a subroutine
// invocation never re-executes that SAVE.
//
// One deliberate departure from ktre.c, recorded in DESIGN.md: forward
// subroutine references ((?1) before the group it names is compiled) are
// resolved with a side-table of pending CALL sites rather than ktre.c's
// two-phase "is the group already compiled" textual-occurrence scheme.
// Since parsing completes fully before compilation starts here, every
// group's IsCalled bit is already known on first visit. Only REP's
// counted-repetition unrolling revisits the same *ast.Node pointer: a
// called group is then reused via CALL through a per-node cache of its
// compiled address, and any other group is re-emitted inline.
package compiler

import (
	"fmt"

	"github.com/krokodile/ktregex/internal/ast"
	"github.com/krokodile/ktregex/internal/bytecode"
	"github.com/krokodile/ktregex/internal/diag"
	"github.com/krokodile/ktregex/internal/opt"
	"github.com/krokodile/ktregex/internal/parser"
)

type compiler struct {
	instrs    []bytecode.Instr
	groups    []parser.Group
	groupAddr []int // -1 until the group's opening SAVE is emitted
	nodeAddr  map[*ast.Node]int
	pending   map[int][]int // group index -> CALL instr indices awaiting the group's address
	progSlots int
	diags     *diag.Diagnostics
}

// Compile lowers a parser.Result into a bytecode.Program under the given
// runtime options (only opt.Unanchored affects code generation: it bakes
// in the ".*?" unanchored-scan preamble ktre.c's ktre_compile emits
// ahead of the pattern itself).
func Compile(result *parser.Result, options opt.Options, diags *diag.Diagnostics) (*bytecode.Program, error) {
	c := &compiler{
		groups:    result.Groups,
		groupAddr: make([]int, len(result.Groups)),
		nodeAddr:  make(map[*ast.Node]int),
		pending:   make(map[int][]int),
		diags:     diags,
	}
	for i := range c.groupAddr {
		c.groupAddr[i] = -1
	}

	if options.Has(opt.Unanchored) {
		c.emit(bytecode.Instr{Op: bytecode.OpBranch, A: 3, B: 1})
		c.emit(bytecode.Instr{Op: bytecode.OpMany})
		c.emit(bytecode.Instr{Op: bytecode.OpBranch, A: 3, B: 1})
	}

	c.compileNode(result.Root, false)
	if diags.Failed() {
		return nil, diags.Err()
	}

	for g, sites := range c.pending {
		_ = sites
		c.errorf(0, "subroutine call references group %d, which does not exist", g)
	}
	if diags.Failed() {
		return nil, diags.Err()
	}

	c.emit(bytecode.Instr{Op: bytecode.OpMatch})

	groups := make([]bytecode.Group, len(c.groups))
	for i, g := range c.groups {
		addr := c.groupAddr[i]
		groups[i] = bytecode.Group{Name: g.Name, Address: addr}
	}

	return &bytecode.Program{
		Instrs:       c.instrs,
		Groups:       groups,
		NumProgSlots: c.progSlots,
	}, nil
}

func (c *compiler) errorf(offset int, format string, args ...any) {
	c.diags.Record(diag.SyntaxError, offset, fmt.Sprintf(format, args...))
}

func (c *compiler) pos() int { return len(c.instrs) }

func (c *compiler) emit(i bytecode.Instr) int {
	c.instrs = append(c.instrs, i)
	return len(c.instrs) - 1
}

func isRepeatKind(k ast.Kind) bool {
	switch k {
	case ast.Asterisk, ast.Plus, ast.Question, ast.Rep:
		return true
	}
	return false
}

// compileNode lowers n, threading rev (reverse/backward execution) the
// way ktre.c's ktrepriv_compile does: SEQUENCE reverses its children's
// emission order under rev, PLA/NLA always compile their body with
// rev=false, and PLB/NLB always compile theirs with rev=true.
func (c *compiler) compileNode(n *ast.Node, rev bool) {
	if n == nil || c.diags.Failed() {
		return
	}
	switch n.Kind {
	case ast.None:
		// no-op: (?#...) comments and empty terms produce this.
	case ast.Char:
		c.emit(bytecode.Instr{Op: bytecode.OpChar, C: n.Num, Offset: n.Offset})
	case ast.Str:
		c.emit(bytecode.Instr{Op: bytecode.OpStr, Class: n.Class, Offset: n.Offset})
	case ast.Class:
		c.emit(bytecode.Instr{Op: bytecode.OpClass, Class: n.Class, Offset: n.Offset})
	case ast.Not:
		c.emit(bytecode.Instr{Op: bytecode.OpNot, Class: n.Class, Offset: n.Offset})
	case ast.Any:
		c.emit(bytecode.Instr{Op: bytecode.OpAny, Offset: n.Offset})
	case ast.Many:
		c.emit(bytecode.Instr{Op: bytecode.OpMany, Offset: n.Offset})
	case ast.BOL:
		c.emit(bytecode.Instr{Op: bytecode.OpBOL, Offset: n.Offset})
	case ast.EOL:
		c.emit(bytecode.Instr{Op: bytecode.OpEOL, Offset: n.Offset})
	case ast.BOS:
		c.emit(bytecode.Instr{Op: bytecode.OpBOS, Offset: n.Offset})
	case ast.EOS:
		c.emit(bytecode.Instr{Op: bytecode.OpEOS, Offset: n.Offset})
	case ast.WB:
		c.emit(bytecode.Instr{Op: bytecode.OpWB, Offset: n.Offset})
	case ast.NWB:
		c.emit(bytecode.Instr{Op: bytecode.OpNWB, Offset: n.Offset})
	case ast.Digit:
		c.emit(bytecode.Instr{Op: bytecode.OpDigit, Offset: n.Offset})
	case ast.Word:
		c.emit(bytecode.Instr{Op: bytecode.OpWord, Offset: n.Offset})
	case ast.Space:
		c.emit(bytecode.Instr{Op: bytecode.OpSpace, Offset: n.Offset})
	case ast.SetStart:
		c.emit(bytecode.Instr{Op: bytecode.OpSetStart, Offset: n.Offset})
	case ast.SetOpt:
		c.emit(bytecode.Instr{Op: bytecode.OpSetOpt, C: n.Num, Offset: n.Offset})
	case ast.Sequence:
		if rev {
			c.compileNode(n.Right, rev)
			c.compileNode(n.Left, rev)
		} else {
			c.compileNode(n.Left, rev)
			c.compileNode(n.Right, rev)
		}
	case ast.Or:
		c.compileOr(n, rev)
	case ast.Group:
		c.compileGroup(n, rev)
	case ast.Call:
		c.compileCallLike(n.Num, n.Offset)
	case ast.Recurse:
		c.compileCallLike(0, n.Offset)
	case ast.Backref:
		c.compileBackref(n)
	case ast.Atom:
		c.emit(bytecode.Instr{Op: bytecode.OpTry, Offset: n.Offset})
		c.compileNode(n.Left, rev)
		c.emit(bytecode.Instr{Op: bytecode.OpCatch, Offset: n.Offset})
	case ast.PLA:
		c.emit(bytecode.Instr{Op: bytecode.OpPLA, Offset: n.Offset})
		c.compileNode(n.Left, false)
		c.emit(bytecode.Instr{Op: bytecode.OpPLAWin, Offset: n.Offset})
	case ast.NLA:
		a := c.emit(bytecode.Instr{Op: bytecode.OpNLA, Offset: n.Offset})
		c.compileNode(n.Left, false)
		c.emit(bytecode.Instr{Op: bytecode.OpNLAFail, Offset: n.Offset})
		c.instrs[a].C = c.pos()
	case ast.PLB:
		c.emit(bytecode.Instr{Op: bytecode.OpPLB, Offset: n.Offset})
		c.compileNode(n.Left, true)
		c.emit(bytecode.Instr{Op: bytecode.OpPLBWin, Offset: n.Offset})
	case ast.NLB:
		a := c.emit(bytecode.Instr{Op: bytecode.OpNLB, Offset: n.Offset})
		c.compileNode(n.Left, true)
		c.emit(bytecode.Instr{Op: bytecode.OpNLBFail, Offset: n.Offset})
		c.instrs[a].C = c.pos()
	case ast.Asterisk:
		c.compileAsterisk(n, rev)
	case ast.Plus:
		c.compilePlus(n, rev)
	case ast.Question:
		c.compileQuestion(n, rev)
	case ast.Rep:
		c.compileRep(n, rev)
	default:
		c.errorf(n.Offset, "unimplemented compiler case for %s", n.Kind)
	}
}

func (c *compiler) compileOr(n *ast.Node, rev bool) {
	a := c.emit(bytecode.Instr{Op: bytecode.OpBranch, Offset: n.Offset})
	c.instrs[a].A = a + 1
	c.compileNode(n.Left, rev)
	b := c.emit(bytecode.Instr{Op: bytecode.OpJmp, Offset: n.Offset})
	c.instrs[a].B = c.pos()
	c.compileNode(n.Right, rev)
	c.instrs[b].C = c.pos()
}

// compileGroup emits a group's opening/closing SAVE pair around its
// body. If the group is ever invoked as a subroutine ((?N) or (?R)),
// the occurrence that compiles it first wraps the
// body in a CALL/SAVE/JMP/SAVE/body/RET shell so later subroutine calls
// can re-enter the same body and RET back out, while this occurrence's
// own (non-subroutine) control flow still falls through it exactly once.
func (c *compiler) compileGroup(n *ast.Node, rev bool) {
	g := n.Num
	called := g >= 0 && g < len(c.groups) && c.groups[g].IsCalled
	if addr, ok := c.nodeAddr[n]; ok && called {
		// Same AST node compiled again by REP's counted-repetition
		// unrolling: a called group's body ends in RET, so reuse it via
		// CALL. Any other group is re-emitted inline below.
		c.emit(bytecode.Instr{Op: bytecode.OpCall, A: addr + 1, Offset: n.Offset})
		return
	}

	if called {
		callAt := c.emit(bytecode.Instr{Op: bytecode.OpCall, Offset: n.Offset})
		c.emit(bytecode.Instr{Op: bytecode.OpSave, A: 2*g + 1, Offset: n.Offset})
		jmpAt := c.emit(bytecode.Instr{Op: bytecode.OpJmp, Offset: n.Offset})
		saveOpen := c.emit(bytecode.Instr{Op: bytecode.OpSave, A: 2 * g, Offset: n.Offset})
		c.instrs[callAt].A = saveOpen
		c.nodeAddr[n] = saveOpen
		c.groupAddr[g] = saveOpen
		c.resolvePending(g, saveOpen)

		c.compileNode(n.Left, rev)
		c.emit(bytecode.Instr{Op: bytecode.OpRet, Offset: n.Offset})
		c.instrs[jmpAt].C = c.pos()
		return
	}

	addr := c.emit(bytecode.Instr{Op: bytecode.OpSave, A: 2 * g, Offset: n.Offset})
	c.nodeAddr[n] = addr
	c.groupAddr[g] = addr
	c.resolvePending(g, addr)

	c.compileNode(n.Left, rev)
	c.emit(bytecode.Instr{Op: bytecode.OpSave, A: 2*g + 1, Offset: n.Offset})
}

// compileCallLike emits a subroutine call to group g: (?N) and (?R)
// (g == 0) route through here. A call targets one past the group's opening SAVE,
// so the invocation never re-executes it — only the group's own textual
// occurrence does that.
func (c *compiler) compileCallLike(g int, offset int) {
	if g < 0 || g >= len(c.groups) {
		c.errorf(offset, "subroutine call references a group that does not exist")
		return
	}
	if addr := c.groupAddr[g]; addr >= 0 {
		c.emit(bytecode.Instr{Op: bytecode.OpCall, A: addr + 1, Offset: offset})
		return
	}
	idx := c.emit(bytecode.Instr{Op: bytecode.OpCall, Offset: offset})
	c.pending[g] = append(c.pending[g], idx)
}

func (c *compiler) resolvePending(g int, saveOpen int) {
	sites, ok := c.pending[g]
	if !ok {
		return
	}
	target := saveOpen + 1
	for _, idx := range sites {
		c.instrs[idx].A = target
	}
	delete(c.pending, g)
}

func (c *compiler) compileBackref(n *ast.Node) {
	g := n.Num
	if g <= 0 || g >= len(c.groups) {
		c.errorf(n.Offset, "backreference number is invalid or references a group that does not yet exist")
		return
	}
	if c.groupAddr[g] < 0 {
		c.errorf(n.Offset, "backreferences may not reference a group that has not finished compiling")
		return
	}
	c.emit(bytecode.Instr{Op: bytecode.OpBackref, A: g, Offset: n.Offset})
}

// compileAsteriskLike emits a PROG-guarded greedy-or-lazy zero-or-more
// loop over body. Both BRANCH instructions share the same pair of
// targets (loop back into the PROG guard, or fall through past the
// loop); lazy swaps which side of each BRANCH the VM tries first.
func (c *compiler) compileAsteriskLike(body *ast.Node, lazy, rev bool, offset int) {
	slot := c.progSlots
	c.progSlots++

	a := c.emit(bytecode.Instr{Op: bytecode.OpBranch, Offset: offset})
	progAddr := c.emit(bytecode.Instr{Op: bytecode.OpProg, A: slot, Offset: offset})
	c.compileNode(body, rev)
	b := c.emit(bytecode.Instr{Op: bytecode.OpBranch, Offset: offset})
	end := c.pos()

	enter, exit := progAddr, end
	if lazy {
		enter, exit = exit, enter
	}
	c.instrs[a].A, c.instrs[a].B = enter, exit
	c.instrs[b].A, c.instrs[b].B = enter, exit
}

func (c *compiler) compileAsterisk(n *ast.Node, rev bool) {
	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpTry, Offset: n.Offset})
	}
	c.compileAsteriskLike(n.Left, n.Lazy, rev, n.Offset)
	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpCatch, Offset: n.Offset})
	}
}

// compilePlusLike emits a PROG-guarded one-or-more loop: body runs once
// unconditionally, then a BRANCH decides whether to loop back or fall
// through (lazy swaps which side is tried first).
func (c *compiler) compilePlusLike(body *ast.Node, lazy, rev bool, offset int) {
	slot := c.progSlots
	c.progSlots++

	progAddr := c.emit(bytecode.Instr{Op: bytecode.OpProg, A: slot, Offset: offset})
	c.compileNode(body, rev)
	branchAt := c.emit(bytecode.Instr{Op: bytecode.OpBranch, Offset: offset})
	end := c.pos()

	enter, exit := progAddr, end
	if lazy {
		enter, exit = exit, enter
	}
	c.instrs[branchAt].A, c.instrs[branchAt].B = enter, exit
}

// compilePlus special-cases a body that is itself a quantifier: rather
// than loop around an already-iterating construct (which only invites
// catastrophic backtracking for no added matching power), it compiles
// the body exactly once inside an atomic TRY/CATCH, matching
// original_source/ktre.c's NODE_PLUS handling for that shape. Possessive
// "+" wraps its whole one-or-more loop in TRY/CATCH, as the other
// possessive quantifiers do.
func (c *compiler) compilePlus(n *ast.Node, rev bool) {
	if isRepeatKind(n.Left.Kind) {
		c.emit(bytecode.Instr{Op: bytecode.OpTry, Offset: n.Offset})
		c.compileNode(n.Left, rev)
		c.emit(bytecode.Instr{Op: bytecode.OpCatch, Offset: n.Offset})
		return
	}
	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpTry, Offset: n.Offset})
	}
	c.compilePlusLike(n.Left, n.Lazy, rev, n.Offset)
	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpCatch, Offset: n.Offset})
	}
}

func (c *compiler) compileQuestion(n *ast.Node, rev bool) {
	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpTry, Offset: n.Offset})
	}

	a := c.emit(bytecode.Instr{Op: bytecode.OpBranch, Offset: n.Offset})
	bodyAddr := c.pos()
	if n.Lazy {
		c.instrs[a].B = bodyAddr
	} else {
		c.instrs[a].A = bodyAddr
	}
	c.compileNode(n.Left, rev)
	end := c.pos()
	if n.Lazy {
		c.instrs[a].A = end
	} else {
		c.instrs[a].B = end
	}

	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpCatch, Offset: n.Offset})
	}
}

// compileRep unrolls a counted repetition {min,max} (max == -1 means
// unbounded). A bare literal byte repeated an exact number of times
// collapses to one TSTR instruction, matching ktre.c's special case.
func (c *compiler) compileRep(n *ast.Node, rev bool) {
	body := n.Left
	min, max := n.Min, n.Num2

	if min == max && body.Kind == ast.Char {
		count := make([]byte, min)
		for i := range count {
			count[i] = byte(body.Num)
		}
		c.emit(bytecode.Instr{Op: bytecode.OpTStr, Class: string(count), Offset: n.Offset})
		return
	}

	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpTry, Offset: n.Offset})
	}

	for i := 0; i < min; i++ {
		c.compileNode(body, rev)
	}

	switch {
	case max < 0:
		c.compileAsteriskLike(body, n.Lazy, rev, n.Offset)
	case max > min:
		var branches []int
		for i := 0; i < max-min; i++ {
			a := c.emit(bytecode.Instr{Op: bytecode.OpBranch, Offset: n.Offset})
			c.instrs[a].A = c.pos()
			c.compileNode(body, rev)
			branches = append(branches, a)
		}
		end := c.pos()
		for _, a := range branches {
			if n.Lazy {
				c.instrs[a].A, c.instrs[a].B = end, c.instrs[a].A
			} else {
				c.instrs[a].B = end
			}
		}
	}

	if n.Possessive {
		c.emit(bytecode.Instr{Op: bytecode.OpCatch, Offset: n.Offset})
	}
}
