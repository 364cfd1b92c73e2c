package ktregex

import "testing"

// TestLookaroundEdgeCases exercises the four lookaround forms against
// subjects chosen to hit their boundary conditions (lookbehind at offset
// 0, lookahead at end of subject).
func TestLookaroundEdgeCases(t *testing.T) {
	t.Run("lookbehind at start of subject never matches", func(t *testing.T) {
		re, err := CompileOptions(`(?<=x)a`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("a"))
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Fatal("expected no match: nothing precedes offset 0 for the lookbehind to inspect")
		}
	})

	t.Run("lookahead at end of subject never matches", func(t *testing.T) {
		re, err := CompileOptions(`a(?=x)`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("a"))
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Fatal("expected no match: nothing follows the final 'a' for the lookahead to inspect")
		}
	})

	t.Run("negative lookahead succeeds when the forbidden text is absent", func(t *testing.T) {
		re, err := CompileOptions(`a(?!b)`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("ac"))
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
	})

	t.Run("negative lookbehind succeeds when the forbidden prefix is absent", func(t *testing.T) {
		re, err := CompileOptions(`(?<!foo)bar`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("xbar"))
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
	})
}

// TestBackreferenceEdgeCases covers a backreference to a group that never
// participated, and one compared case-insensitively.
func TestBackreferenceEdgeCases(t *testing.T) {
	t.Run("backreference to an unmatched group fails to match", func(t *testing.T) {
		re, err := CompileOptions(`(a)?\1b`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("b"))
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Fatal("expected no match: \\1 has nothing captured to compare against")
		}
	})

	t.Run("case-insensitive backreference folds both sides", func(t *testing.T) {
		re, err := CompileOptions(`(\w+) \1`, Insensitive|Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("THE the"))
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
	})
}

// TestAtomicGroupEdgeCases checks an atomic group that still leaves
// enough behind for the rest of the pattern to succeed.
func TestAtomicGroupEdgeCases(t *testing.T) {
	re, err := CompileOptions(`(?>a+)b`, Unanchored)
	if err != nil {
		t.Fatal(err)
	}
	matched, err := re.Exec([]byte("aaab"))
	if err != nil || !matched {
		t.Fatalf("Exec = %v, %v, want match: the trailing 'b' is still available after the atomic group", matched, err)
	}
}

// TestBranchResetEdgeCases checks a branch-reset group whose alternatives
// capture different numbers of groups: the logical group count used by
// the surviving alternative determines indices after the construct.
func TestBranchResetEdgeCases(t *testing.T) {
	re, err := Compile(`(?|(a)|(b)(c))(d)`)
	if err != nil {
		t.Fatal(err)
	}
	subject := []byte("bcd")
	matched, err := re.Exec(subject)
	if err != nil || !matched {
		t.Fatalf("Exec = %v, %v, want match", matched, err)
	}
	vec := re.GetVec()[0]
	g1 := string(subject[vec[2] : vec[2]+vec[3]])
	g2 := string(subject[vec[4] : vec[4]+vec[5]])
	g3 := string(subject[vec[6] : vec[6]+vec[7]])
	if g1 != "b" || g2 != "c" || g3 != "d" {
		t.Fatalf("group1=%q group2=%q group3=%q, want b, c, d", g1, g2, g3)
	}
}

// TestExtendedOptionIgnoresInlineWhitespace checks the Extended option
// lets patterns be written with human-readable spacing and comments.
func TestExtendedOptionIgnoresInlineWhitespace(t *testing.T) {
	re, err := CompileOptions(`
		\d{4}  # year
		-
		\d{2}  # month
	`, Extended)
	if err != nil {
		t.Fatal(err)
	}
	matched, err := re.Exec([]byte("2024-11"))
	if err != nil || !matched {
		t.Fatalf("Exec = %v, %v, want match", matched, err)
	}
}

// TestMaxCallDepthIsEnforced checks a pathologically deep subroutine call
// chain latches a CallOverflow error rather than recursing unbounded.
func TestMaxCallDepthIsEnforced(t *testing.T) {
	re, err := CompileWithConfig(`(a(?1)?)`, Unanchored, Config{
		MaxGroups:    DefaultConfig().MaxGroups,
		MaxThreads:   DefaultConfig().MaxThreads,
		MaxCallDepth: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = re.Exec([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	if err == nil {
		t.Fatal("expected a resource-limit error from the tiny MaxCallDepth budget")
	}
}
