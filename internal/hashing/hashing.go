// Package hashing provides the content hashing primitives used for
// document fingerprinting and change detection. Fast hashes (XXH64) are
// used for in-memory comparison; secure hashes (SHA-256) for anything
// persisted or exposed externally.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fast returns the 64-bit XXH64 hash of s.
func Fast(s string) uint64 {
	return xxhash.Sum64String(s)
}

// FastBytes returns the 64-bit XXH64 hash of b.
func FastBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// FastTrimmed hashes s with leading and trailing whitespace removed.
// Two strings that differ only in surrounding whitespace produce the
// same trimmed hash.
func FastTrimmed(s string) uint64 {
	return xxhash.Sum64String(strings.TrimSpace(s))
}

// FastNormalized hashes s after dropping blank lines. This makes the
// hash insensitive to vertical whitespace churn while leaving line
// content, including indentation, significant.
func FastNormalized(s string) uint64 {
	return xxhash.Sum64String(Normalize(s))
}

// FastAlnum hashes only the alphanumeric characters of s, lowercased.
// Punctuation, whitespace and casing changes do not affect it.
func FastAlnum(s string) uint64 {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return xxhash.Sum64String(b.String())
}

// Normalize returns s with blank lines removed, the surviving lines
// joined by single newlines. Lines are kept verbatim: indentation is
// content (it matters inside code blocks), only vertical spacing is
// noise.
func Normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Secure returns the hex-encoded SHA-256 digest of s.
func Secure(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SecureTrimmed returns the SHA-256 digest of s with surrounding
// whitespace removed.
func SecureTrimmed(s string) string {
	return Secure(strings.TrimSpace(s))
}

// SecureNormalized returns the SHA-256 digest of the normalized form of s.
func SecureNormalized(s string) string {
	return Secure(Normalize(s))
}
