package ktregex

import "testing"

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"simple literal", "hello", false},
		{"digit class", `\d+`, false},
		{"alternation", "foo|bar", false},
		{"named group", `(?<year>\d{4})`, false},
		{"lookahead", `a(?=b)`, false},
		{"lookbehind", `(?<=foo)bar`, false},
		{"atomic group", `(?>a+)a`, false},
		{"branch reset", `(?|(a)(b)|(c)(d))`, false},
		{"unclosed group", "(", true},
		{"dangling quantifier", "*", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := Compile(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compile(%q) error = %v, wantErr %v", tt.pattern, err, tt.wantErr)
			}
			if !tt.wantErr && re == nil {
				t.Fatal("Compile() returned nil Regex with no error")
			}
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile did not panic on an invalid pattern")
		}
	}()
	MustCompile("(")
}

// TestSpecExamples encodes spec.md section 8's ten worked transcripts;
// the lookahead and lookbehind cases compile with Unanchored added.
func TestSpecExamples(t *testing.T) {
	t.Run("alternation repetition captures last iteration", func(t *testing.T) {
		re, err := Compile(`(a|b)+`)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("aaabbba"))
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		if vec[0] != 0 || vec[0]+vec[1] != 7 {
			t.Fatalf("overall match = [%d,%d), want [0,7)", vec[0], vec[0]+vec[1])
		}
		g1 := string([]byte("aaabbba")[vec[2] : vec[2]+vec[3]])
		if g1 != "a" {
			t.Fatalf("group 1 = %q, want %q (the loop's last iteration)", g1, "a")
		}
	})

	t.Run("named groups", func(t *testing.T) {
		re, err := Compile(`(?<year>\d{4})-(?<m>\d{2})`)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("2024-11")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		year := string(subject[vec[2] : vec[2]+vec[3]])
		month := string(subject[vec[4] : vec[4]+vec[5]])
		if year != "2024" || month != "11" {
			t.Fatalf("year=%q month=%q, want 2024, 11", year, month)
		}
	})

	t.Run("non-consuming lookahead", func(t *testing.T) {
		re, err := CompileOptions(`a(?=b)`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("ab ac")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		if vec[0] != 0 || vec[1] != 1 {
			t.Fatalf("match = [%d,%d), want a single non-consuming 'a' at 0", vec[0], vec[0]+vec[1])
		}
	})

	t.Run("lookbehind matches the bar preceded by foo", func(t *testing.T) {
		re, err := CompileOptions(`(?<=foo)bar`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("foobar xbar"))
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		if vec[0] != 3 {
			t.Fatalf("match start = %d, want 3", vec[0])
		}
	})

	t.Run("lazy quantifier stops at first b", func(t *testing.T) {
		// Unanchored: the MATCH opcode accepts as soon as it is reached
		// rather than requiring full-subject consumption, which is what
		// lets the lazy ".*?" stop at the first "b" instead of being
		// forced to backtrack-expand all the way to the final one.
		re, err := CompileOptions(`a.*?b`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("axxbxxb")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		if got := string(subject[vec[0] : vec[0]+vec[1]]); got != "axxb" {
			t.Fatalf("match = %q, want %q", got, "axxb")
		}
	})

	t.Run("atomic group forbids backtracking into its body", func(t *testing.T) {
		re, err := Compile(`(?>a+)a`)
		if err != nil {
			t.Fatal(err)
		}
		matched, err := re.Exec([]byte("aaaa"))
		if err != nil {
			t.Fatal(err)
		}
		if matched {
			t.Fatal("expected no match: the atomic group consumes all a's, leaving none for the trailing a")
		}
	})

	t.Run("backreference requires an identical repeat", func(t *testing.T) {
		re, err := CompileOptions(`(\w+) \1`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("the the end")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		if got := string(subject[vec[0] : vec[0]+vec[1]]); got != "the the" {
			t.Fatalf("match = %q, want %q", got, "the the")
		}
	})

	t.Run("bounded repetition is greedy up to the max", func(t *testing.T) {
		// Unanchored for the same reason as the lazy-quantifier case
		// above: a{2,4} can never consume all 5 bytes of "aaaaa", so
		// under strict full-subject-consumption this pattern would never
		// match at all.
		re, err := CompileOptions(`a{2,4}`, Unanchored)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("aaaaa")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		if vec[1] != 4 {
			t.Fatalf("match length = %d, want 4", vec[1])
		}
	})

	t.Run("branch reset reuses group indices per alternative", func(t *testing.T) {
		re, err := Compile(`(?|(a)(b)|(c)(d))`)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("cd")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vec := re.GetVec()[0]
		g1 := string(subject[vec[2] : vec[2]+vec[3]])
		g2 := string(subject[vec[4] : vec[4]+vec[5]])
		if g1 != "c" || g2 != "d" {
			t.Fatalf("group1=%q group2=%q, want c, d", g1, g2)
		}
	})

	t.Run("multiline caret with global only matches line starts", func(t *testing.T) {
		re, err := CompileOptions(`^foo`, Multiline|Global)
		if err != nil {
			t.Fatal(err)
		}
		subject := []byte("foo\nbar")
		matched, err := re.Exec(subject)
		if err != nil || !matched {
			t.Fatalf("Exec = %v, %v, want match", matched, err)
		}
		vecs := re.GetVec()
		if len(vecs) != 1 || vecs[0][0] != 0 {
			t.Fatalf("GetVec = %+v, want exactly one match at offset 0", vecs)
		}
	})
}

func TestCopyAndClose(t *testing.T) {
	re, err := Compile(`\d+`)
	if err != nil {
		t.Fatal(err)
	}
	cp := re.Copy()
	if _, err := cp.Exec([]byte("42")); err != nil {
		t.Fatal(err)
	}
	if err := re.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := re.Exec([]byte("1")); err == nil {
		t.Fatal("Exec on a closed Regex should error")
	}
	// The copy is unaffected by the original's Close.
	if matched, err := cp.Exec([]byte("7")); err != nil || !matched {
		t.Fatalf("Exec on the surviving copy = %v, %v, want match", matched, err)
	}
	if err := cp.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestStatsTracksPeakThreads(t *testing.T) {
	re, err := Compile(`(a|aa|aaa)+b`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := re.Exec([]byte("aaaaaaaaaac")); err != nil {
		t.Fatal(err)
	}
	if re.Stats().PeakThreads == 0 {
		t.Fatal("Stats().PeakThreads should reflect the backtracking performed")
	}
	if re.Stats().Groups != 2 {
		t.Fatalf("Stats().Groups = %d, want 2", re.Stats().Groups)
	}
}

func TestExecContinueResumesAfterLastMatch(t *testing.T) {
	re, err := CompileOptions(`\d+`, Unanchored|Continue)
	if err != nil {
		t.Fatal(err)
	}
	defer re.Close()
	subject := []byte("12 and 34")

	matched, err := re.Exec(subject)
	if err != nil || !matched {
		t.Fatalf("first Exec = %v, %v, want true", matched, err)
	}
	vec := re.GetVec()
	if vec[0][0] != 0 || vec[0][1] != 2 {
		t.Fatalf("first match vec = %v, want [0 2 ...]", vec[0])
	}

	matched, err = re.Exec(subject)
	if err != nil || !matched {
		t.Fatalf("second Exec = %v, %v, want true: should resume past the first match", matched, err)
	}
	vec = re.GetVec()
	if vec[0][0] != 7 || vec[0][1] != 2 {
		t.Fatalf("second match vec = %v, want [7 2 ...]", vec[0])
	}

	// The subject is now fully consumed; a third call finds nothing and
	// does not re-scan from the start.
	matched, err = re.Exec(subject)
	if err != nil || matched {
		t.Fatalf("third Exec = %v, %v, want false: no more matches past offset 9", matched, err)
	}
}

func TestMatchFunction(t *testing.T) {
	ok, err := Match(`\d+`, []byte("age 42"), Unanchored)
	if err != nil || !ok {
		t.Fatalf("Match = %v, %v, want true", ok, err)
	}
	ok, err = Match(`^\d+$`, []byte("abc"), 0)
	if err != nil || ok {
		t.Fatalf("Match = %v, %v, want false", ok, err)
	}
}
