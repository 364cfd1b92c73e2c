package simd

import "testing"

func TestMemchr(t *testing.T) {
	cases := []struct {
		haystack string
		needle   byte
		want     int
	}{
		{"", 'a', -1},
		{"a", 'a', 0},
		{"abc", 'c', 2},
		{"abcdefgh", 'h', 7},
		{"abcdefghij", 'z', -1},
		{"xxxxxxxxxxxxxxxxb", 'b', 16},
	}
	for _, c := range cases {
		if got := Memchr([]byte(c.haystack), c.needle); got != c.want {
			t.Errorf("Memchr(%q, %q) = %d, want %d", c.haystack, c.needle, got, c.want)
		}
	}
}

func TestMemmem(t *testing.T) {
	cases := []struct {
		haystack, needle string
		want             int
	}{
		{"hello world", "world", 6},
		{"hello world", "xyz", -1},
		{"hello world", "", 0},
		{"aaaaaabaaaa", "aab", 4},
		{"short", "shorter", -1},
		{"abcabcabc", "cab", 2},
	}
	for _, c := range cases {
		if got := Memmem([]byte(c.haystack), []byte(c.needle)); got != c.want {
			t.Errorf("Memmem(%q, %q) = %d, want %d", c.haystack, c.needle, got, c.want)
		}
	}
}
