// Package markdown linearizes a Markdown body into a flat event stream.
//
// The structure layer never touches the parser directly; it consumes
// events, which keeps the tree-building logic independent of the parser
// in use.
package markdown

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseBody parses a Markdown body (frontmatter already removed) into a Goldmark AST.
func ParseBody(body []byte, _ Options) (gmast.Node, error) {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))
	return root, nil
}

// Extract parses body and returns its flat event stream: heading
// start/end pairs with title text between them, raw text chunks, code
// fence boundaries with fence content between them, and link events.
// Events appear in source order.
func Extract(body []byte, opts Options) ([]Event, error) {
	root, err := ParseBody(body, opts)
	if err != nil {
		return nil, err
	}

	lines := lineIndex(body)

	// Block markers claim byte ranges of the source; the gaps between
	// them become plain Text events.
	type marker struct {
		start, end int
		events     []Event
	}
	var markers []marker
	var linkEvents []Event

	err = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			start, end, atx := headingSpan(body, node)
			title := nodeText(node, body)
			line := lines.lineOf(start)
			markers = append(markers, marker{start: start, end: end, events: []Event{
				{Kind: EventHeadingStart, Level: node.Level, Line: line, MarkerOffset: start, ATX: atx},
				{Kind: EventText, Text: title, Line: line},
				{Kind: EventHeadingEnd, Level: node.Level},
			}})
		case *gmast.FencedCodeBlock:
			start, end := fenceSpan(body, node)
			lang := string(node.Language(body))
			info := ""
			if node.Info != nil {
				info = string(node.Info.Segment.Value(body))
			}
			content := segmentsText(body, node.Lines())
			markers = append(markers, marker{start: start, end: end, events: []Event{
				{Kind: EventCodeFenceStart, Language: lang, Info: info, Line: lines.lineOf(start)},
				{Kind: EventText, Text: content},
				{Kind: EventCodeFenceEnd, Line: lines.lineOf(maxInt(start, end-1))},
			}})
			return gmast.WalkSkipChildren, nil
		case *gmast.Link:
			off := nodeOffset(node)
			linkEvents = append(linkEvents, Event{
				Kind:         EventLink,
				Destination:  string(node.Destination),
				Text:         nodeText(node, body),
				Line:         lines.lineOf(off),
				MarkerOffset: off,
			})
		case *gmast.AutoLink:
			off := nodeOffset(node)
			linkEvents = append(linkEvents, Event{
				Kind:         EventLink,
				Destination:  string(node.URL(body)),
				Text:         string(node.Label(body)),
				Line:         lines.lineOf(off),
				MarkerOffset: off,
			})
		}
		return gmast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	// Empty headings carry no segments; locate them by scanning the gap
	// between their neighbors for a bare ATX line of the right level.
	for i := range markers {
		if markers[i].start >= 0 {
			continue
		}
		lo := 0
		if i > 0 && markers[i-1].end > 0 {
			lo = markers[i-1].end
		}
		hi := len(body)
		for j := i + 1; j < len(markers); j++ {
			if markers[j].start >= 0 {
				hi = markers[j].start
				break
			}
		}
		s, e := findBareATXLine(body, lo, hi, markers[i].events[0].Level)
		if s < 0 {
			continue
		}
		markers[i].start, markers[i].end = s, e
		markers[i].events[0].MarkerOffset = s
		markers[i].events[0].ATX = true
		markers[i].events[0].Line = lines.lineOf(s)
		markers[i].events[1].Line = lines.lineOf(s)
	}
	resolved := markers[:0]
	for _, m := range markers {
		if m.start >= 0 {
			resolved = append(resolved, m)
		}
	}
	markers = resolved

	sort.SliceStable(markers, func(i, j int) bool { return markers[i].start < markers[j].start })
	sort.SliceStable(linkEvents, func(i, j int) bool {
		return linkEvents[i].MarkerOffset < linkEvents[j].MarkerOffset
	})

	var events []Event
	emitLinks := func(upto int) {
		for len(linkEvents) > 0 && linkEvents[0].MarkerOffset < upto {
			ev := linkEvents[0]
			ev.MarkerOffset = 0
			events = append(events, ev)
			linkEvents = linkEvents[1:]
		}
	}

	pos := 0
	for _, m := range markers {
		if m.start > pos {
			events = append(events, Event{Kind: EventText, Text: string(body[pos:m.start]), Line: lines.lineOf(pos)})
			emitLinks(m.start)
		}
		events = append(events, m.events...)
		// Links inside a heading land right after its start/end trio.
		emitLinks(m.end)
		if m.end > pos {
			pos = m.end
		}
	}
	if pos < len(body) {
		events = append(events, Event{Kind: EventText, Text: string(body[pos:]), Line: lines.lineOf(pos)})
	}
	emitLinks(len(body) + 1)

	return events, nil
}

// headingSpan returns the byte range of the heading's source line(s) and
// whether it is an ATX ('#') heading. For setext headings the span
// includes the underline.
func headingSpan(src []byte, h *gmast.Heading) (start, end int, atx bool) {
	segs := h.Lines()
	if segs.Len() == 0 {
		// Empty ATX heading ("##" alone); goldmark records no segments.
		return -1, -1, false
	}
	first := segs.At(0)
	last := segs.At(segs.Len() - 1)

	start = lineStart(src, first.Start)
	marker := skipIndent(src, start)
	atx = marker < len(src) && src[marker] == '#'
	end = lineEnd(src, last.Stop)
	if !atx {
		// Setext underline is the following line.
		end = lineEnd(src, end)
	}
	return start, end, atx
}

// fenceSpan returns the byte range from the opening fence line through
// the closing fence line (or EOF when unclosed).
func fenceSpan(src []byte, f *gmast.FencedCodeBlock) (start, end int) {
	segs := f.Lines()
	switch {
	case f.Info != nil:
		start = lineStart(src, f.Info.Segment.Start)
	case segs.Len() > 0:
		start = lineStart(src, lineStart(src, segs.At(0).Start)-1)
	default:
		return 0, 0
	}

	if segs.Len() > 0 {
		end = lineEnd(src, segs.At(segs.Len()-1).Stop-1)
	} else {
		end = lineEnd(src, start)
	}
	// The closing fence line, when present.
	if end < len(src) {
		rest := src[end:]
		trimmed := bytes.TrimLeft(rest[:minInt(8, len(rest))], " ")
		if bytes.HasPrefix(trimmed, []byte("`")) || bytes.HasPrefix(trimmed, []byte("~")) {
			end = lineEnd(src, end)
		}
	}
	return start, end
}

// findBareATXLine scans src[lo:hi] for a line consisting only of the
// ATX marker for level (optionally indented up to three spaces), as
// produced by a heading with an empty title.
func findBareATXLine(src []byte, lo, hi int, level int) (start, end int) {
	if lo < 0 {
		lo = 0
	}
	if hi > len(src) {
		hi = len(src)
	}
	for pos := lo; pos < hi; {
		le := lineEnd(src, pos)
		line := bytes.TrimRight(src[pos:le], "\r\n")
		trimmed := line
		for i := 0; i < 3 && len(trimmed) > 0 && trimmed[0] == ' '; i++ {
			trimmed = trimmed[1:]
		}
		hashes := 0
		for hashes < len(trimmed) && trimmed[hashes] == '#' {
			hashes++
		}
		rest := bytes.TrimSpace(trimmed[hashes:])
		if hashes == level && len(rest) == 0 {
			return pos, le
		}
		pos = le
	}
	return -1, -1
}

func lineStart(src []byte, off int) int {
	if off <= 0 {
		return 0
	}
	if off > len(src) {
		off = len(src)
	}
	return bytes.LastIndexByte(src[:off], '\n') + 1
}

func lineEnd(src []byte, off int) int {
	if off >= len(src) {
		return len(src)
	}
	i := bytes.IndexByte(src[off:], '\n')
	if i < 0 {
		return len(src)
	}
	return off + i + 1
}

func skipIndent(src []byte, off int) int {
	for off < len(src) && src[off] == ' ' {
		off++
	}
	return off
}

type lineIndexTable []int

// lineIndex builds a table of line start offsets for 1-based lookups.
func lineIndex(src []byte) lineIndexTable {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' && i+1 < len(src) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (t lineIndexTable) lineOf(off int) int {
	if off < 0 {
		return 0
	}
	return sort.Search(len(t), func(i int) bool { return t[i] > off })
}

// nodeText concatenates the raw text of a node's inline children.
func nodeText(n gmast.Node, src []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		case *gmast.String:
			sb.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return sb.String()
}

// nodeOffset finds the first source offset attributable to a node.
func nodeOffset(n gmast.Node) int {
	off := -1
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			off = t.Segment.Start
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if off < 0 {
		return 0
	}
	return off
}

func segmentsText(src []byte, segs *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(src))
	}
	return sb.String()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
