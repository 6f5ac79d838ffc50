package toc

import (
	"strconv"
	"strings"
	"unicode"
)

// Slugify derives a URL-safe anchor from a heading title: lowercase
// alphanumerics kept, any other run of characters collapses to a single
// hyphen, with no leading or trailing hyphen. An empty result falls
// back to "section" so every node has an addressable slug.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingHyphen := false
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingHyphen = true
	}
	s := b.String()
	if s == "" {
		return "section"
	}
	return s
}

// slugger hands out collision-free slugs within one Toc. The first
// occurrence keeps the base slug; later ones get -1, -2, ... suffixes.
type slugger struct {
	seen map[string]int
}

func newSlugger() *slugger {
	return &slugger{seen: map[string]int{}}
}

// take returns the disambiguated slug for title plus the occurrence
// index of its base slug (0 for the first use).
func (s *slugger) take(title string) (slug string, occurrence int) {
	base := Slugify(title)
	n := s.seen[base]
	s.seen[base] = n + 1
	if n == 0 {
		return base, 0
	}
	return base + "-" + strconv.Itoa(n), n
}
