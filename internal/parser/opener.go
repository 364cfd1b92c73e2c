package parser

import (
	"strings"

	"github.com/krokodile/ktregex/internal/ast"
	"github.com/krokodile/ktregex/internal/diag"
	"github.com/krokodile/ktregex/internal/opt"
)

// parseGroupBody parses everything between a '(' and its matching ')',
// '(' already consumed. offset is the position of '('.
func (p *Parser) parseGroupBody(offset int) *ast.Node {
	var node *ast.Node

	switch {
	case strings.HasPrefix(p.src[p.pos:], "?R"):
		p.pos += 2
		p.groups.markCalled(0)
		node = ast.New(ast.Recurse, offset)
	case p.peek() == '?':
		p.advance()
		node = p.parseSpecialGroup(offset)
	default:
		idx := p.addGroup("")
		if idx < 0 {
			return nil
		}
		node = &ast.Node{Kind: ast.Group, Num: idx, Offset: offset}
		node.Left = p.regex()
	}

	if p.diags.Failed() {
		return node
	}
	if p.peek() != ')' {
		p.errorf(diag.SyntaxError, "unmatched '('")
		return nil
	}
	p.advance()
	return node
}

func (p *Parser) addGroup(name string) int {
	if p.groups.len() >= p.maxGroups {
		p.errorf(diag.TooManyGroups, "too many groups")
		return -1
	}
	return p.groups.add(name)
}

// parseGroupName reads an identifier made of word bytes up to (and
// consuming) closer.
func (p *Parser) parseGroupName(closer byte) (string, bool) {
	start := p.pos
	for isWordByte(p.peek()) {
		p.advance()
	}
	name := p.src[start:p.pos]
	if name == "" || p.peek() != closer {
		p.errorf(diag.SyntaxError, "expected group name")
		return "", false
	}
	p.advance()
	return name, true
}

// parseSpecialGroup dispatches the `(?...)` forms, the leading '?'
// already consumed. This is the Go counterpart of ktre.c's
// ktrepriv_parsespecialgroup.
func (p *Parser) parseSpecialGroup(offset int) *ast.Node {
	c := p.advance()
	switch c {
	case '#':
		for !p.eof() && p.peek() != ')' {
			p.advance()
		}
		return ast.New(ast.None, offset)

	case '<':
		if isWordByte(p.peek()) {
			name, ok := p.parseGroupName('>')
			if !ok {
				return nil
			}
			idx := p.addGroup(name)
			if idx < 0 {
				return nil
			}
			node := &ast.Node{Kind: ast.Group, Num: idx, Name: name, Offset: offset}
			node.Left = p.regex()
			return node
		}
		switch p.peek() {
		case '=':
			p.advance()
			return &ast.Node{Kind: ast.PLB, Left: p.regex(), Offset: offset}
		case '!':
			p.advance()
			return &ast.Node{Kind: ast.NLB, Left: p.regex(), Offset: offset}
		default:
			p.errorf(diag.SyntaxError, "invalid group syntax")
			return nil
		}

	case '\'':
		name, ok := p.parseGroupName('\'')
		if !ok {
			return nil
		}
		idx := p.addGroup(name)
		if idx < 0 {
			return nil
		}
		node := &ast.Node{Kind: ast.Group, Num: idx, Name: name, Offset: offset}
		node.Left = p.regex()
		return node

	case ':':
		return p.regex()

	case '|':
		return p.parseBranchReset(offset)

	case '>':
		return &ast.Node{Kind: ast.Atom, Left: p.regex(), Offset: offset}

	case '=':
		return &ast.Node{Kind: ast.PLA, Left: p.regex(), Offset: offset}

	case '!':
		return &ast.Node{Kind: ast.NLA, Left: p.regex(), Offset: offset}

	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		p.pos--
		n := p.decNum()
		p.groups.markCalled(n)
		return &ast.Node{Kind: ast.Call, Num: n, Offset: offset}

	case 'P':
		switch p.peek() {
		case '=':
			p.advance()
			start := p.pos
			for isWordByte(p.peek()) {
				p.advance()
			}
			name := p.src[start:p.pos]
			if p.peek() != ')' {
				p.errorf(diag.SyntaxError, "expected ')'")
				return nil
			}
			idx, ok := p.groups.firstByName(name)
			if !ok {
				p.errorf(diag.SyntaxError, "name references a group that does not exist")
				return nil
			}
			return &ast.Node{Kind: ast.Backref, Num: idx, Offset: offset}
		case '<':
			p.advance()
			name, ok := p.parseGroupName('>')
			if !ok {
				return nil
			}
			idx := p.addGroup(name)
			if idx < 0 {
				return nil
			}
			node := &ast.Node{Kind: ast.Group, Num: idx, Name: name, Offset: offset}
			node.Left = p.regex()
			return node
		default:
			p.errorf(diag.SyntaxError, "expected '<'")
			return nil
		}

	default:
		p.pos--
		return p.parseModeModifiers(offset)
	}
}

// parseBranchReset parses a (?|A|B|...) group, the leading '|' already
// consumed, re-using the same capture-group numbers in every alternative
// (spec.md section 4.1, "branch-reset").
func (p *Parser) parseBranchReset(offset int) *ast.Node {
	bottom := p.groups.len()
	top := bottom
	var left *ast.Node

	for {
		var branch *ast.Node
		if left != nil {
			branch = p.term()
			left = &ast.Node{Kind: ast.Or, Left: left, Right: branch, Offset: offset}
		} else {
			left = p.term()
		}
		if p.groups.len() > top {
			top = p.groups.len()
		}
		p.groups.reset(bottom)
		if p.peek() != '|' {
			break
		}
		p.advance()
	}
	p.groups.raise(top)

	if p.peek() != ')' {
		p.errorf(diag.SyntaxError, "expected ')'")
		return nil
	}
	return left
}

// parseModeModifiers parses `(?imxc-imxc:X)` and the bare `(?imxc)` form,
// the leading '?' already consumed. 'c' (and the alias 't') are
// off-switches per spec.md section 4.1.
func (p *Parser) parseModeModifiers(offset int) *ast.Node {
	old := p.popt
	o := p.popt
	neg := false

	for p.peek() != ':' && p.peek() != ')' && !p.eof() {
		var bit opt.Options
		off := neg
		switch p.peek() {
		case 'i':
			bit = opt.Insensitive
		case 'x':
			bit = opt.Extended
		case 'm':
			bit = opt.Multiline
		case 'c', 't':
			off = true
		case '-':
			neg = true
			p.advance()
			continue
		default:
			p.errorf(diag.SyntaxError, "invalid mode modifier")
			return nil
		}
		if off || neg {
			o &^= bit
		} else {
			o |= bit
		}
		p.advance()
	}

	p.popt = o
	node := &ast.Node{Kind: ast.SetOpt, Num: int(o), Offset: offset}

	if p.peek() == ':' {
		p.advance()
		body := p.regex()
		restore := &ast.Node{Kind: ast.SetOpt, Num: int(old), Offset: p.pos}
		p.popt = old
		return &ast.Node{
			Kind: ast.Sequence,
			Left: node,
			Right: &ast.Node{
				Kind:  ast.Sequence,
				Left:  body,
				Right: restore,
			},
		}
	}
	return node
}
