package parser

import (
	"github.com/krokodile/ktregex/internal/ast"
	"github.com/krokodile/ktregex/internal/diag"
)

// Fixed byte-class strings for the named escape classes, built once.
var (
	classDigit = buildRange('0', '9')
	classWord  = buildWord()
	classSpace = " \t\r\n\v\f"
	classHSpace = " \t"
)

func buildRange(lo, hi byte) string {
	b := make([]byte, 0, int(hi-lo)+1)
	for c := lo; c <= hi; c++ {
		b = append(b, c)
	}
	return string(b)
}

func buildWord() string {
	var b []byte
	b = append(b, '_')
	for c := byte('a'); c <= 'z'; c++ {
		b = append(b, c)
	}
	for c := byte('A'); c <= 'Z'; c++ {
		b = append(b, c)
	}
	for c := byte('0'); c <= '9'; c++ {
		b = append(b, c)
	}
	return string(b)
}

// parseEscape parses a single escape sequence, the backslash itself
// already consumed. offset is the position of the backslash.
func (p *Parser) parseEscape(offset int) *ast.Node {
	if p.eof() {
		p.errorf(diag.SyntaxError, "trailing backslash")
		return nil
	}
	c := p.advance()
	switch c {
	case 'd':
		return ast.New(ast.Digit, offset)
	case 'D':
		return &ast.Node{Kind: ast.Not, Class: classDigit, Offset: offset}
	case 'w':
		return ast.New(ast.Word, offset)
	case 'W':
		return &ast.Node{Kind: ast.Not, Class: classWord, Offset: offset}
	case 's':
		return ast.New(ast.Space, offset)
	case 'S':
		return &ast.Node{Kind: ast.Not, Class: classSpace, Offset: offset}
	case 'h':
		return &ast.Node{Kind: ast.Class, Class: classHSpace, Offset: offset}
	case 'H':
		return &ast.Node{Kind: ast.Not, Class: classHSpace, Offset: offset}
	case 'N':
		return &ast.Node{Kind: ast.Not, Class: "\n", Offset: offset}
	case 'b':
		return ast.New(ast.WB, offset)
	case 'B':
		return ast.New(ast.NWB, offset)
	case 'A':
		return ast.New(ast.BOS, offset)
	case 'Z':
		return ast.New(ast.EOS, offset)
	case 'K':
		return ast.New(ast.SetStart, offset)
	case 'Q':
		p.quoted = true
		return nil
	case 'E':
		p.quoted = false
		return nil
	case 'a':
		return ast.NewChar('\a', offset)
	case 'e':
		return ast.NewChar(0x1b, offset)
	case 'f':
		return ast.NewChar('\f', offset)
	case 'n':
		return ast.NewChar('\n', offset)
	case 'r':
		return ast.NewChar('\r', offset)
	case 't':
		return ast.NewChar('\t', offset)
	case 'x':
		return ast.NewChar(byte(p.parseHexEscapeBody()), offset)
	case 'o':
		return ast.NewChar(byte(p.parseOctEscapeBody()), offset)
	case '0':
		return ast.NewChar(byte(p.octNum()), offset)
	case 'g':
		return p.parseNumericBackref(offset)
	case 'k':
		return p.parseNamedBackref(offset)
	default:
		if c >= '1' && c <= '9' {
			p.pos--
			n := p.decNum()
			return &ast.Node{Kind: ast.Backref, Num: n, Offset: offset}
		}
		return ast.NewChar(c, offset)
	}
}

// parseHexEscapeBody handles \xHH and \x{HH...} (spec.md section 4.1).
func (p *Parser) parseHexEscapeBody() int {
	if p.peek() == '{' {
		p.advance()
		n := p.hexNum()
		if p.peek() != '}' {
			p.errorf(diag.SyntaxError, "incomplete token")
			return n
		}
		p.advance()
		return n
	}
	return p.hexNum()
}

// parseOctEscapeBody handles \o{OO...} (spec.md section 4.1).
func (p *Parser) parseOctEscapeBody() int {
	if p.peek() != '{' {
		p.errorf(diag.SyntaxError, "expected '{'")
		return 0
	}
	p.advance()
	n := p.octNum()
	if p.peek() != '}' {
		p.errorf(diag.SyntaxError, "unmatched '{'")
		return n
	}
	p.advance()
	return n
}

// parseNumericBackref handles \gN, \g{N}, \g{+N}, \g{-N}.
func (p *Parser) parseNumericBackref(offset int) *ast.Node {
	rel := 0 // 0 = absolute, +1/-1 = relative sign
	braced := p.peek() == '{'
	if braced {
		p.advance()
	}
	if p.peek() == '+' {
		rel = 1
		p.advance()
	} else if p.peek() == '-' {
		rel = -1
		p.advance()
	}
	if !isDigitByte(p.peek()) {
		p.errorf(diag.SyntaxError, "expected group number")
		return nil
	}
	n := p.decNum()
	if braced {
		if p.peek() != '}' {
			p.errorf(diag.SyntaxError, "unmatched '{'")
			return nil
		}
		p.advance()
	}
	switch rel {
	case 1:
		n = p.groups.len() + n
	case -1:
		n = p.groups.len() - n
	}
	// Unlike (?N)/(?R), \g is always a backreference, never a subroutine
	// call, so it must not mark the target group IsCalled.
	return &ast.Node{Kind: ast.Backref, Num: n, Offset: offset}
}

// parseNamedBackref handles \k<name> and \k'name'.
func (p *Parser) parseNamedBackref(offset int) *ast.Node {
	var closer byte
	switch p.peek() {
	case '<':
		closer = '>'
	case '\'':
		closer = '\''
	default:
		p.errorf(diag.SyntaxError, "expected '<' or '\\''")
		return nil
	}
	p.advance()
	start := p.pos
	for isWordByte(p.peek()) {
		p.advance()
	}
	name := p.src[start:p.pos]
	if p.peek() != closer {
		p.errorf(diag.SyntaxError, "unterminated group name")
		return nil
	}
	p.advance()
	idx, ok := p.groups.firstByName(name)
	if !ok {
		p.errorf(diag.SyntaxError, "name references a group that does not exist")
		return nil
	}
	return &ast.Node{Kind: ast.Backref, Num: idx, Offset: offset}
}
