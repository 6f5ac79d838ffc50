package markdown

import "strings"

// Options controls how Markdown is parsed for internal analysis.
//
// For now this is intentionally small; it exists so we can evolve parsing behavior
// (extensions/settings) without rewriting call sites.
type Options struct{}

// IsInternalLink reports whether a destination points inside the
// document set rather than at an external resource: pure anchors
// ("#section") and relative paths, with or without an anchor.
func IsInternalLink(dest string) bool {
	if dest == "" {
		return false
	}
	if strings.HasPrefix(dest, "#") {
		return true
	}
	if strings.Contains(dest, "://") || strings.HasPrefix(dest, "mailto:") {
		return false
	}
	return true
}

// SplitAnchor splits a link destination into its path and anchor parts.
// "guide.md#setup" yields ("guide.md", "setup"); "#setup" yields
// ("", "setup"); a destination without '#' has an empty anchor.
func SplitAnchor(dest string) (path, anchor string) {
	i := strings.IndexByte(dest, '#')
	if i < 0 {
		return dest, ""
	}
	return dest[:i], dest[i+1:]
}
