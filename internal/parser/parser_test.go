package parser

import (
	"testing"

	"github.com/krokodile/ktregex/internal/ast"
	"github.com/krokodile/ktregex/internal/diag"
	"github.com/krokodile/ktregex/internal/opt"
)

func mustParse(t *testing.T, pattern string) *Result {
	t.Helper()
	diags := &diag.Diagnostics{}
	result := New(pattern, 0, 0, diags).Parse()
	if diags.Failed() {
		t.Fatalf("Parse(%q) failed: %v", pattern, diags.Err())
	}
	return result
}

// TestParseWrapsWholeMatchInGroupZero checks the implicit group-0 wrapper
// ktre.c's ktre_compile also applies, so group 0 always holds the overall
// match span.
func TestParseWrapsWholeMatchInGroupZero(t *testing.T) {
	result := mustParse(t, "abc")
	if result.Root.Kind != ast.Group || result.Root.Num != 0 {
		t.Fatalf("Root = %+v, want an ast.Group node with Num 0", result.Root)
	}
	if len(result.Groups) != 1 || result.Groups[0].Index != 0 {
		t.Fatalf("Groups = %+v, want exactly the whole-match group", result.Groups)
	}
}

func TestParseCapturingGroups(t *testing.T) {
	result := mustParse(t, `(a)(?<year>\d+)(b)`)
	if len(result.Groups) != 4 {
		t.Fatalf("len(Groups) = %d, want 4 (whole match + 3 captures)", len(result.Groups))
	}
	if result.Groups[2].Name != "year" {
		t.Fatalf("Groups[2].Name = %q, want %q", result.Groups[2].Name, "year")
	}
	if result.Groups[1].Name != "" || result.Groups[3].Name != "" {
		t.Fatalf("unnamed groups acquired names: %+v", result.Groups)
	}
}

// TestBranchResetReusesIndices exercises the (?|...) construct: each
// alternative must start numbering its groups from the same index.
func TestBranchResetReusesIndices(t *testing.T) {
	result := mustParse(t, `(?|(a)(b)|(c)(d)(e))`)
	// Branch reset raises the logical count to the widest alternative, so
	// the final table has the whole match plus 3 groups (the widest
	// alternative, (c)(d)(e)), not 2+3=5.
	if len(result.Groups) != 4 {
		t.Fatalf("len(Groups) = %d, want 4", len(result.Groups))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		code    diag.Code
	}{
		{"unclosed group", "(a", diag.SyntaxError},
		{"unmatched close", "a)", diag.SyntaxError},
		{"dangling star", "*", diag.SyntaxError},
		{"unclosed class", "[abc", diag.SyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := &diag.Diagnostics{}
			result := New(tt.pattern, 0, 0, diags).Parse()
			if !diags.Failed() || result != nil {
				t.Fatalf("Parse(%q) = %+v, %v, want a latched %s error", tt.pattern, result, diags.Err(), tt.code)
			}
			if got := diags.Err().Code; got != tt.code {
				t.Fatalf("Parse(%q) code = %v, want %v", tt.pattern, got, tt.code)
			}
		})
	}
}

// TestMaxGroupsLimit checks the parser latches TooManyGroups once the
// caller's group budget (not DefaultMaxGroups) is exceeded.
func TestMaxGroupsLimit(t *testing.T) {
	diags := &diag.Diagnostics{}
	result := New("(a)(b)(c)", 0, 2, diags).Parse()
	if !diags.Failed() || result != nil {
		t.Fatalf("Parse with maxGroups=2 over a 3-group pattern should fail, got %+v, %v", result, diags.Err())
	}
	if diags.Err().Code != diag.TooManyGroups {
		t.Fatalf("code = %v, want TooManyGroups", diags.Err().Code)
	}
}

// TestErrorsLatch checks that once the first error is recorded, later
// Record calls against the same Diagnostics are no-ops (spec section 7).
func TestErrorsLatch(t *testing.T) {
	diags := &diag.Diagnostics{}
	if !diags.Record(diag.SyntaxError, 0, "first") {
		t.Fatal("first Record should latch")
	}
	if diags.Record(diag.OutOfMemory, 1, "second") {
		t.Fatal("second Record should be a no-op once latched")
	}
	if diags.Err().Code != diag.SyntaxError {
		t.Fatalf("Err().Code = %v, want the first-latched SyntaxError", diags.Err().Code)
	}
}

func TestExtendedOptionIgnoresWhitespaceAndComments(t *testing.T) {
	diags := &diag.Diagnostics{}
	result := New("a   b  # trailing comment\n  c", opt.Extended, 0, diags).Parse()
	if diags.Failed() {
		t.Fatalf("Parse under Extended failed: %v", diags.Err())
	}
	if result == nil {
		t.Fatal("Parse returned nil with no error")
	}
}
