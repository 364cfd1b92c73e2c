// Package simd provides byte- and substring-search primitives for
// ktregex's prefilter layer.
//
// The teacher package (coregx/coregex's simd) dispatched to hand-written
// AVX2/SSSE3 assembly kernels gated by golang.org/x/sys/cpu feature
// flags. Per spec.md's Non-goals (no JIT, no architecture-specific
// machine code), this package keeps the teacher's feature-detection
// idiom — HasAVX2 is still read at init — but every search primitive
// below is the teacher's pure-Go SWAR (SIMD Within A Register) fallback,
// which processes 8 bytes at a time via uint64 bitwise arithmetic rather
// than real vector instructions. HasAVX2 is exported for callers; no
// search primitive here reads it, and it never selects an assembly path.
package simd

import (
	"bytes"
	"encoding/binary"
	"math/bits"

	"golang.org/x/sys/cpu"
)

// HasAVX2 reports whether the host CPU supports 256-bit AVX2 vector
// instructions. ktregex never emits AVX2 code itself, and none of its
// search code consults this flag.
var HasAVX2 = cpu.X86.HasAVX2

// Memchr returns the index of the first instance of needle in haystack,
// or -1 if absent. Uses SWAR: haystack is scanned 8 bytes at a time as a
// little-endian uint64, XORed against needle broadcast to every byte
// lane, and a zero-byte detection formula locates the first matching
// lane without a per-byte comparison loop.
func Memchr(haystack []byte, needle byte) int {
	n := len(haystack)
	if n < 8 {
		for i := 0; i < n; i++ {
			if haystack[i] == needle {
				return i
			}
		}
		return -1
	}

	mask := uint64(needle) * 0x0101010101010101
	i := 0
	for i+8 <= n {
		chunk := binary.LittleEndian.Uint64(haystack[i:])
		xor := chunk ^ mask
		if hasZero := (xor - 0x0101010101010101) &^ xor & 0x8080808080808080; hasZero != 0 {
			return i + bits.TrailingZeros64(hasZero)/8
		}
		i += 8
	}
	for ; i < n; i++ {
		if haystack[i] == needle {
			return i
		}
	}
	return -1
}

// Memmem returns the index of the first instance of needle in haystack,
// or -1 if absent. Needles of two or more bytes are found via a
// rare-byte heuristic:
// ByteFrequencies picks the least common byte in needle, that byte is
// searched for with Memchr, and each candidate position is verified
// with a full comparison — avoiding a byte-by-byte scan of haystack for
// the common case where the chosen byte is uncommon.
func Memmem(haystack, needle []byte) int {
	nn, hn := len(needle), len(haystack)
	if nn == 0 {
		return 0
	}
	if hn == 0 || nn > hn {
		return -1
	}
	if nn == 1 {
		return Memchr(haystack, needle[0])
	}

	rareIdx := rarestByteIndex(needle)
	rareByte := needle[rareIdx]

	search := 0
	for {
		pos := Memchr(haystack[search:], rareByte)
		if pos == -1 {
			return -1
		}
		pos += search

		start := pos - rareIdx
		if start < 0 || start+nn > hn {
			search = pos + 1
			if search >= hn {
				return -1
			}
			continue
		}
		if bytes.Equal(haystack[start:start+nn], needle) {
			return start
		}
		search = pos + 1
		if search >= hn {
			return -1
		}
	}
}

// rarestByteIndex returns the index of needle's byte with the lowest
// ByteFrequencies rank (the best anchor for Memchr to search on).
func rarestByteIndex(needle []byte) int {
	best := 0
	for i := 1; i < len(needle); i++ {
		if ByteFrequencies[needle[i]] < ByteFrequencies[needle[best]] {
			best = i
		}
	}
	return best
}
