package parser

import (
	"strings"

	"github.com/krokodile/ktregex/internal/ast"
	"github.com/krokodile/ktregex/internal/diag"
)

// posixClasses maps a POSIX bracket-class name (including its brackets,
// e.g. "[:alpha:]") to its fixed byte enumeration, per spec.md section
// 4.1 and original_source/ktre.c's pclasses table.
var posixClasses = buildPosixClasses()

func buildPosixClasses() map[string]string {
	upper := buildRange('A', 'Z')
	lower := buildRange('a', 'z')
	digit := classDigit
	return map[string]string{
		"[:upper:]":  upper,
		"[:lower:]":  lower,
		"[:alpha:]":  lower + upper,
		"[:digit:]":  digit,
		"[:xdigit:]": digit + "ABCDEFabcdef",
		"[:alnum:]":  digit + lower + upper,
		"[:punct:]":  "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~",
		"[:blank:]":  " \t",
		"[:space:]":  classSpace,
		"[:cntrl:]":  buildRange(1, 0x1f) + "\x7f",
		"[:graph:]":  buildRange(0x21, 0x7e),
		"[:print:]":  buildRange(0x20, 0x7e),
	}
}

// parseClass parses the body of a '[...]' character class, '[' already
// consumed. offset is the position of '['.
func (p *Parser) parseClass(offset int) *ast.Node {
	node := &ast.Node{Kind: ast.Class, Offset: offset}
	if p.peek() == '^' {
		node.Kind = ast.Not
		p.advance()
	}

	var sb strings.Builder
	for !p.eof() && p.peek() != ']' {
		atom, ok := p.classAtom()
		if !ok {
			return nil
		}
		if len(atom) == 1 && p.peek() == '-' && p.peekAt(1) != ']' {
			p.advance() // consume '-'
			next, ok := p.classAtom()
			if !ok {
				return nil
			}
			if len(next) == 1 {
				lo, hi := atom[0], next[0]
				if lo > hi {
					lo, hi = hi, lo
				}
				for c := int(lo); c <= int(hi); c++ {
					sb.WriteByte(byte(c))
				}
				continue
			}
			// Multi-byte right side suppresses range interpretation: the
			// dash itself is dropped, matching ktre.c's behavior.
			sb.WriteString(atom)
			sb.WriteString(next)
			continue
		}
		sb.WriteString(atom)
	}

	if p.peek() != ']' {
		p.errorf(diag.SyntaxError, "unmatched '['")
		return nil
	}
	p.advance()

	if sb.Len() == 0 {
		p.errorf(diag.SyntaxError, "empty character class")
		return nil
	}
	node.Class = sb.String()
	return node
}

// classAtom parses one class member: a POSIX bracket class, an escape
// sequence, or a single literal byte. Returns the string contribution
// (length 1 for a single byte, longer for classes/POSIX enumerations)
// and false if a diagnostic was recorded.
func (p *Parser) classAtom() (string, bool) {
	if p.peek() == '[' {
		for name, set := range posixClasses {
			if strings.HasPrefix(p.src[p.pos:], name) {
				p.pos += len(name)
				return set, true
			}
		}
		c := p.advance()
		return string(c), true
	}
	if p.peek() != '\\' {
		c := p.advance()
		return string(c), true
	}
	p.advance() // consume backslash
	if p.eof() {
		p.errorf(diag.SyntaxError, "trailing backslash in character class")
		return "", false
	}
	c := p.advance()
	switch c {
	case 'x':
		return string(byte(p.parseHexEscapeBody())), true
	case 'o':
		return string(byte(p.parseOctEscapeBody())), true
	case '0':
		return string(byte(p.octNum())), true
	case 's':
		return classSpace, true
	case 'S':
		return invert(classSpace), true
	case 'w':
		return classWord, true
	case 'W':
		return invert(classWord), true
	case 'd':
		return classDigit, true
	case 'D':
		return invert(classDigit), true
	case 'h':
		return classHSpace, true
	case 'H':
		return invert(classHSpace), true
	case 'N':
		return invert("\n"), true
	case 'a':
		return "\a", true
	case 'b':
		return "\b", true
	case 'e':
		return "\x1b", true
	case 'f':
		return "\f", true
	case 'n':
		return "\n", true
	case 'r':
		return "\r", true
	case 't':
		return "\t", true
	default:
		return string(c), true
	}
}

func invert(members string) string {
	var present [256]bool
	for i := 0; i < len(members); i++ {
		present[members[i]] = true
	}
	var b []byte
	for j := 1; j < 256; j++ {
		if !present[byte(j)] {
			b = append(b, byte(j))
		}
	}
	return string(b)
}
