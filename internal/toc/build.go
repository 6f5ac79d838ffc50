package toc

import (
	"encoding/binary"
	"strings"

	"git.home.luguber.info/inful/mdstruct/internal/hashing"
	"git.home.luguber.info/inful/mdstruct/internal/markdown"
)

// BuildOptions carries source geometry the event stream alone cannot
// provide. Zero values degrade gracefully (open-ended trailing ranges).
type BuildOptions struct {
	SourceLen int
	LineCount int
}

// Build folds a flat event stream into a Toc. It is total over
// well-formed streams: malformed documents produce odd trees, never
// errors.
//
// The tree is built with an explicit stack: a heading at level L closes
// every open node at level >= L and attaches to whatever remains (or
// becomes a new root). Text accumulates into the innermost open node,
// or into the preamble before the first heading.
func Build(events []markdown.Event, opts BuildOptions) *Toc {
	t := &Toc{SlugIndex: map[string][]SlugEntry{}}
	sl := newSlugger()

	var (
		stack      []*Node
		order      []*Node
		occurrence = map[*Node]int{}
		content    = map[*Node]*strings.Builder{}
		preamble   strings.Builder

		inTitle  bool
		titleBuf strings.Builder
		open     *Node

		inFence  bool
		fenceIdx = -1
		cbOwner  []*Node

		linkOwner []*Node
		linkPath  []string
	)

	currentTop := func() *Node {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}
	appendText := func(s string) {
		if top := currentTop(); top != nil {
			content[top].WriteString(s)
			return
		}
		preamble.WriteString(s)
	}

	for _, ev := range events {
		switch ev.Kind {
		case markdown.EventHeadingStart:
			for len(stack) > 0 && stack[len(stack)-1].Level >= ev.Level {
				stack = stack[:len(stack)-1]
			}
			n := &Node{
				Level: ev.Level,
				Span:  Span{Start: ev.MarkerOffset, End: ev.MarkerOffset},
				Lines: LineRange{Start: ev.Line, End: ev.Line},
			}
			if top := currentTop(); top != nil {
				top.Children = append(top.Children, n)
			} else {
				t.Roots = append(t.Roots, n)
			}
			stack = append(stack, n)
			order = append(order, n)
			content[n] = &strings.Builder{}
			open = n
			inTitle = true
			titleBuf.Reset()

		case markdown.EventHeadingEnd:
			if open != nil {
				open.Title = titleBuf.String()
				slug, occ := sl.take(open.Title)
				open.Slug = slug
				occurrence[open] = occ
			}
			inTitle = false
			open = nil

		case markdown.EventText:
			if inTitle {
				titleBuf.WriteString(ev.Text)
				continue
			}
			if inFence && fenceIdx >= 0 {
				t.CodeBlocks[fenceIdx].Content += ev.Text
			}
			appendText(ev.Text)

		case markdown.EventCodeFenceStart:
			inFence = true
			t.CodeBlocks = append(t.CodeBlocks, CodeBlock{
				Language: ev.Language,
				Info:     ev.Info,
				Lines:    LineRange{Start: ev.Line, End: ev.Line},
			})
			fenceIdx = len(t.CodeBlocks) - 1
			cbOwner = append(cbOwner, currentTop())

		case markdown.EventCodeFenceEnd:
			if fenceIdx >= 0 {
				cb := &t.CodeBlocks[fenceIdx]
				cb.Lines.End = ev.Line
				cb.ContentHash = hashing.Fast(cb.Content)
				cb.ContentHashNormalized = hashing.FastNormalized(cb.Content)
			}
			inFence = false
			fenceIdx = -1

		case markdown.EventLink:
			if !markdown.IsInternalLink(ev.Destination) {
				continue
			}
			path, anchor := markdown.SplitAnchor(ev.Destination)
			t.InternalLinks = append(t.InternalLinks, Link{
				Text:       ev.Text,
				Target:     ev.Destination,
				TargetSlug: anchor,
				Line:       ev.Line,
			})
			linkOwner = append(linkOwner, currentTop())
			linkPath = append(linkPath, path)
		}
	}

	t.Preamble = preamble.String()
	t.PreambleHash = hashing.Fast(t.Preamble)
	t.PreambleHashTrimmed = hashing.FastTrimmed(t.Preamble)
	t.PreambleHashNormalized = hashing.FastNormalized(t.Preamble)

	assignPaths(t.Roots, "")

	for _, n := range order {
		n.OwnContent = content[n].String()
	}
	finalizeRanges(order, opts)
	for _, r := range t.Roots {
		hashNode(r)
	}

	for _, n := range order {
		t.SlugIndex[n.Slug] = append(t.SlugIndex[n.Slug], SlugEntry{
			Path:       n.Path,
			Occurrence: occurrence[n],
		})
	}

	for i := range t.CodeBlocks {
		if cbOwner[i] != nil {
			t.CodeBlocks[i].SectionPath = cbOwner[i].Path
		}
	}
	for i := range t.InternalLinks {
		l := &t.InternalLinks[i]
		if linkOwner[i] != nil {
			l.SectionPath = linkOwner[i].Path
		}
		// Only same-document anchors can be resolved against this Toc.
		if linkPath[i] == "" && l.TargetSlug != "" {
			l.Resolved = len(t.SlugIndex[l.TargetSlug]) > 0
		}
	}

	t.Title = shallowestRootTitle(t.Roots)
	return t
}

func assignPaths(nodes []*Node, parent string) {
	for _, n := range nodes {
		if parent == "" {
			n.Path = n.Slug
		} else {
			n.Path = parent + "/" + n.Slug
		}
		assignPaths(n.Children, n.Path)
	}
}

// finalizeRanges extends each node's span and line range to cover its
// subtree: first to the start of the next heading in document order,
// then lifted through parents.
func finalizeRanges(order []*Node, opts BuildOptions) {
	for i, n := range order {
		if i+1 < len(order) {
			next := order[i+1]
			if next.Span.Start > n.Span.Start {
				n.Span.End = next.Span.Start
			}
			if next.Lines.Start-1 > n.Lines.Start {
				n.Lines.End = next.Lines.Start - 1
			}
			continue
		}
		if opts.SourceLen > n.Span.Start {
			n.Span.End = opts.SourceLen
		}
		if opts.LineCount > n.Lines.Start {
			n.Lines.End = opts.LineCount
		}
	}
	// Parents end where their last descendant ends.
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		for _, c := range n.Children {
			if c.Span.End > n.Span.End {
				n.Span.End = c.Span.End
			}
			if c.Lines.End > n.Lines.End {
				n.Lines.End = c.Lines.End
			}
		}
	}
}

// hashNode fills every hash field post-order. The subtree hash is a
// Merkle combination: hash over the node's title hash, own-content hash
// and each child's subtree hash, concatenated big-endian in child order.
func hashNode(n *Node) {
	for _, c := range n.Children {
		hashNode(c)
	}

	n.TitleHash = hashing.Fast(n.Title)
	n.TitleHashTrimmed = hashing.FastTrimmed(n.Title)
	n.OwnContentHash = hashing.Fast(n.OwnContent)
	n.OwnContentHashTrimmed = hashing.FastTrimmed(n.OwnContent)
	n.OwnContentHashNormalized = hashing.FastNormalized(n.OwnContent)

	raw := make([]uint64, 0, 2+len(n.Children))
	trimmed := make([]uint64, 0, 2+len(n.Children))
	raw = append(raw, n.TitleHash, n.OwnContentHash)
	trimmed = append(trimmed, n.TitleHashTrimmed, n.OwnContentHashTrimmed)
	for _, c := range n.Children {
		raw = append(raw, c.SubtreeHash)
		trimmed = append(trimmed, c.SubtreeHashTrimmed)
	}
	n.SubtreeHash = combine(raw)
	n.SubtreeHashTrimmed = combine(trimmed)
}

func combine(hashes []uint64) uint64 {
	buf := make([]byte, 8*len(hashes))
	for i, h := range hashes {
		binary.BigEndian.PutUint64(buf[i*8:], h)
	}
	return hashing.FastBytes(buf)
}

func shallowestRootTitle(roots []*Node) string {
	var best *Node
	for _, r := range roots {
		if best == nil || r.Level < best.Level {
			best = r
		}
	}
	if best == nil {
		return ""
	}
	return best.Title
}
