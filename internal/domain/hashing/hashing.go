// Package hashing turns arbitrary strings into the fixed-length uppercase
// letter blocks used by RInChIKeys and InChIKeys: a SHA-256 digest re-encoded
// through base-26 letter windows.
package hashing

import (
	"crypto/sha256"
	"fmt"
)

// Encodings of the digest of the empty string.
const (
	Empty4  = "UHFF"
	Empty10 = "UHFFFADPSC"
	Empty12 = "UHFFFADPSCTJ"
	Empty14 = "UHFFFADPSCTJAU"
	Empty17 = "UHFFFADPSCTJAUYIS"
)

// Digest returns the SHA-256 digest of input.
func Digest(input []byte) [32]byte {
	return sha256.Sum256(input)
}

// Encode renders digest as n letters. n must be one of 4, 10, 12, 14 or 17;
// any other length panics since it can only come from a programming error.
func Encode(digest [32]byte, n int) string {
	d := digest[:]
	switch n {
	case 4:
		return (triplet1(d) + triplet2(d))[:4]
	case 10:
		return encode12(d)[:10]
	case 12:
		return encode12(d)
	case 14:
		return encode12(d) + dubletBits56To64(d)
	case 17:
		return encode12(d) + dubletBits56To64(d) + triplet1(d[8:])
	default:
		panic(fmt.Sprintf("hashing: unsupported encoding length %d", n))
	}
}

func encode12(d []byte) string {
	return triplet1(d) + triplet2(d) + triplet3(d) + triplet4(d)
}

// Hash4 is Encode(Digest(s), 4).
func Hash4(s string) string { return Encode(Digest([]byte(s)), 4) }

// Hash10 is Encode(Digest(s), 10).
func Hash10(s string) string { return Encode(Digest([]byte(s)), 10) }

// Hash12 is Encode(Digest(s), 12).
func Hash12(s string) string { return Encode(Digest([]byte(s)), 12) }

// Hash14 is Encode(Digest(s), 14).
func Hash14(s string) string { return Encode(Digest([]byte(s)), 14) }

// Hash17 is Encode(Digest(s), 17).
func Hash17(s string) string { return Encode(Digest([]byte(s)), 17) }

// MinorBlock8 renders the eight-letter second block of a standard InChIKey:
// two triplets followed by the dublet over bits 28..36.
func MinorBlock8(s string) string {
	d := Digest([]byte(s))
	return triplet1(d[:]) + triplet2(d[:]) + dubletBits28To36(d[:])
}
