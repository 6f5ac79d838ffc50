// Package toc builds a hierarchical table-of-contents model from the
// flat event stream of a Markdown body and hashes every node bottom-up
// so whole subtrees can be compared in constant time.
package toc

// Span is a half-open byte range into the source body.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// LineRange is an inclusive 1-based line range.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Node is one heading in the TOC tree. Children are owned exclusively
// by their parent; there are no parent back-references. A node's
// structural path is the slug sequence from its root down to it.
type Node struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Path  string `json:"path"`

	Span  Span      `json:"span"`
	Lines LineRange `json:"lines"`

	// OwnContent is the text directly following the heading up to its
	// first child heading. Descendant content is excluded; an absent
	// trailing paragraph yields the empty string.
	OwnContent string `json:"-"`

	TitleHash        uint64 `json:"title_hash"`
	TitleHashTrimmed uint64 `json:"title_hash_trimmed"`

	OwnContentHash           uint64 `json:"own_content_hash"`
	OwnContentHashTrimmed    uint64 `json:"own_content_hash_trimmed"`
	OwnContentHashNormalized uint64 `json:"own_content_hash_normalized"`

	SubtreeHash        uint64 `json:"subtree_hash"`
	SubtreeHashTrimmed uint64 `json:"subtree_hash_trimmed"`

	Children []*Node `json:"children,omitempty"`
}

// SlugEntry locates one occurrence of a slug within a Toc.
type SlugEntry struct {
	Path       string `json:"path"`
	Occurrence int    `json:"occurrence"`
}

// CodeBlock records a fenced code block, wherever it nests.
type CodeBlock struct {
	Language              string    `json:"language"`
	Info                  string    `json:"info"`
	Content               string    `json:"-"`
	ContentHash           uint64    `json:"content_hash"`
	ContentHashNormalized uint64    `json:"content_hash_normalized"`
	Lines                 LineRange `json:"lines"`
	SectionPath           string    `json:"section_path"`
}

// Link records an internal link (anchor or relative path) found in the
// body. Unresolved targets are data, not errors.
type Link struct {
	Text        string `json:"text"`
	Target      string `json:"target"`
	TargetSlug  string `json:"target_slug"`
	Resolved    bool   `json:"resolved"`
	Line        int    `json:"line"`
	SectionPath string `json:"section_path"`
}

// Toc is the structural snapshot of one document version. It is built
// once and never mutated; deltas are computed between two snapshots.
type Toc struct {
	Title string  `json:"title"`
	Roots []*Node `json:"roots"`

	Preamble               string `json:"-"`
	PreambleHash           uint64 `json:"preamble_hash"`
	PreambleHashTrimmed    uint64 `json:"preamble_hash_trimmed"`
	PreambleHashNormalized uint64 `json:"preamble_hash_normalized"`

	CodeBlocks    []CodeBlock `json:"code_blocks,omitempty"`
	InternalLinks []Link      `json:"internal_links,omitempty"`

	SlugIndex map[string][]SlugEntry `json:"slug_index,omitempty"`

	// Page-level hashes cover the whole source document including
	// frontmatter; they are filled in by the document layer.
	PageHash        uint64 `json:"page_hash"`
	PageHashTrimmed uint64 `json:"page_hash_trimmed"`
	BodyHash        uint64 `json:"body_hash"`
	BodyHashTrimmed uint64 `json:"body_hash_trimmed"`
	FrontmatterHash uint64 `json:"frontmatter_hash"`

	// Fingerprint is the document-level content fingerprint, when the
	// document layer computed one.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Walk visits every node pre-order in document order.
func (t *Toc) Walk(fn func(n *Node)) {
	var visit func(n *Node)
	visit = func(n *Node) {
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range t.Roots {
		visit(r)
	}
}

// HeadingCount returns the number of nodes in the forest.
func (t *Toc) HeadingCount() int {
	n := 0
	t.Walk(func(*Node) { n++ })
	return n
}

// FindByPath returns the node with the given structural path, or nil.
func (t *Toc) FindByPath(path string) *Node {
	var found *Node
	t.Walk(func(n *Node) {
		if found == nil && n.Path == path {
			found = n
		}
	})
	return found
}

// RootLevel returns the level of the first heading, or 0 for an empty forest.
func (t *Toc) RootLevel() int {
	if len(t.Roots) == 0 {
		return 0
	}
	return t.Roots[0].Level
}

// MinLevel returns the shallowest heading level present, or 0.
func (t *Toc) MinLevel() int {
	min := 0
	t.Walk(func(n *Node) {
		if min == 0 || n.Level < min {
			min = n.Level
		}
	})
	return min
}

// MaxLevel returns the deepest heading level present, or 0.
func (t *Toc) MaxLevel() int {
	max := 0
	t.Walk(func(n *Node) {
		if n.Level > max {
			max = n.Level
		}
	})
	return max
}

// Levels returns the pre-order heading level sequence, the input shape
// the structure validator works on.
func (t *Toc) Levels() []int {
	var out []int
	t.Walk(func(n *Node) { out = append(out, n.Level) })
	return out
}
