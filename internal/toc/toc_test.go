package toc

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdstruct/internal/hashing"
	"git.home.luguber.info/inful/mdstruct/internal/markdown"
)

func buildFrom(t *testing.T, body string) *Toc {
	t.Helper()
	events, err := markdown.Extract([]byte(body), markdown.Options{})
	require.NoError(t, err)
	return Build(events, BuildOptions{
		SourceLen: len(body),
		LineCount: strings.Count(body, "\n") + 1,
	})
}

func TestBuild_NestedHierarchy(t *testing.T) {
	doc := "# Intro\n\nWelcome.\n\n## Setup\n\nDo X.\n\n### Prereqs\n\nNeed Y.\n"
	tc := buildFrom(t, doc)

	assert.Equal(t, 3, tc.HeadingCount())
	assert.Equal(t, 1, tc.RootLevel())
	assert.Equal(t, "Intro", tc.Title)

	require.Len(t, tc.Roots, 1)
	intro := tc.Roots[0]
	require.Len(t, intro.Children, 1)
	setup := intro.Children[0]
	require.Len(t, setup.Children, 1)
	prereqs := setup.Children[0]

	assert.Equal(t, "intro", intro.Path)
	assert.Equal(t, "intro/setup", setup.Path)
	assert.Equal(t, "intro/setup/prereqs", prereqs.Path)

	assert.Contains(t, intro.OwnContent, "Welcome.")
	assert.NotContains(t, intro.OwnContent, "Do X.")
	assert.Contains(t, setup.OwnContent, "Do X.")
	assert.Contains(t, prereqs.OwnContent, "Need Y.")
}

func TestBuild_HeadingCountMatchesEvents(t *testing.T) {
	doc := "# A\n## B\n### C\n## D\n# E\n"
	events, err := markdown.Extract([]byte(doc), markdown.Options{})
	require.NoError(t, err)

	starts := 0
	for _, ev := range events {
		if ev.Kind == markdown.EventHeadingStart {
			starts++
		}
	}
	tc := Build(events, BuildOptions{})
	assert.Equal(t, starts, tc.HeadingCount())
}

func TestBuild_SiblingClosesSubtree(t *testing.T) {
	doc := "# Top\n## A\n### A1\n## B\n"
	tc := buildFrom(t, doc)

	top := tc.Roots[0]
	require.Len(t, top.Children, 2)
	assert.Equal(t, "A", top.Children[0].Title)
	assert.Equal(t, "B", top.Children[1].Title)
	require.Len(t, top.Children[0].Children, 1)
	assert.Equal(t, "A1", top.Children[0].Children[0].Title)
	assert.Empty(t, top.Children[1].Children)
}

func TestBuild_NonH1Root(t *testing.T) {
	doc := "## Second Level\n\ntext\n\n### Deeper\n"
	tc := buildFrom(t, doc)

	assert.Equal(t, 2, tc.RootLevel())
	assert.Equal(t, "Second Level", tc.Title)
	assert.Equal(t, 2, tc.HeadingCount())
}

func TestBuild_NoHeadings_AllPreamble(t *testing.T) {
	doc := "just some text\n\nmore text\n"
	tc := buildFrom(t, doc)

	assert.Empty(t, tc.Roots)
	assert.Equal(t, 0, tc.HeadingCount())
	assert.Contains(t, tc.Preamble, "just some text")
	assert.Contains(t, tc.Preamble, "more text")
	assert.Equal(t, "", tc.Title)
}

func TestBuild_PreambleBeforeFirstHeading(t *testing.T) {
	doc := "leading prose\n\n# First\n\nbody\n"
	tc := buildFrom(t, doc)

	assert.Contains(t, tc.Preamble, "leading prose")
	assert.NotContains(t, tc.Roots[0].OwnContent, "leading prose")
}

func TestBuild_DuplicateTitles_DisambiguatedSlugs(t *testing.T) {
	doc := "# Guide\n## Usage\ntext a\n## Usage\ntext b\n"
	tc := buildFrom(t, doc)

	g := tc.Roots[0]
	require.Len(t, g.Children, 2)
	assert.Equal(t, "usage", g.Children[0].Slug)
	assert.Equal(t, "usage-1", g.Children[1].Slug)

	require.Len(t, tc.SlugIndex["usage"], 1)
	require.Len(t, tc.SlugIndex["usage-1"], 1)
	assert.Equal(t, 0, tc.SlugIndex["usage"][0].Occurrence)
	assert.Equal(t, 1, tc.SlugIndex["usage-1"][0].Occurrence)
}

func TestBuild_EmptyTitle_PlaceholderSlug(t *testing.T) {
	doc := "# Top\n\n##\n"
	tc := buildFrom(t, doc)

	require.Equal(t, 2, tc.HeadingCount())
	child := tc.Roots[0].Children[0]
	assert.Equal(t, "", child.Title)
	assert.Equal(t, "section", child.Slug)
}

func TestBuild_CodeBlocks_RecordedWithSection(t *testing.T) {
	doc := "# Top\n\n## Code\n\n```go\nx := 1\n```\n"
	tc := buildFrom(t, doc)

	require.Len(t, tc.CodeBlocks, 1)
	cb := tc.CodeBlocks[0]
	assert.Equal(t, "go", cb.Language)
	assert.Equal(t, "x := 1\n", cb.Content)
	assert.Equal(t, "top/code", cb.SectionPath)
	assert.Equal(t, cb.ContentHash, hashing.Fast("x := 1\n"))
	assert.Equal(t, 5, cb.Lines.Start)
	assert.Equal(t, 7, cb.Lines.End)
}

func TestBuild_InternalLinks_Resolution(t *testing.T) {
	doc := "# Top\n\nSee [setup](#setup) and [gone](#missing) and [ext](https://x.io).\n\n## Setup\n"
	tc := buildFrom(t, doc)

	require.Len(t, tc.InternalLinks, 2)
	assert.Equal(t, "setup", tc.InternalLinks[0].TargetSlug)
	assert.True(t, tc.InternalLinks[0].Resolved)
	assert.Equal(t, "top", tc.InternalLinks[0].SectionPath)
	assert.Equal(t, "missing", tc.InternalLinks[1].TargetSlug)
	assert.False(t, tc.InternalLinks[1].Resolved)
}

func TestBuild_SubtreeHash_BottomUpConsistency(t *testing.T) {
	doc := "# A\n\naaa\n\n## B\n\nbbb\n\n### C\n\nccc\n\n## D\n\nddd\n"
	tc := buildFrom(t, doc)

	// Reconstruct the Merkle combination independently for every node.
	var check func(n *Node)
	check = func(n *Node) {
		for _, c := range n.Children {
			check(c)
		}
		parts := []uint64{hashing.Fast(n.Title), hashing.Fast(n.OwnContent)}
		for _, c := range n.Children {
			parts = append(parts, c.SubtreeHash)
		}
		buf := make([]byte, 8*len(parts))
		for i, p := range parts {
			binary.BigEndian.PutUint64(buf[i*8:], p)
		}
		assert.Equal(t, hashing.FastBytes(buf), n.SubtreeHash, "node %q", n.Title)
	}
	for _, r := range tc.Roots {
		check(r)
	}
}

func TestBuild_SubtreeHash_ChildChangePropagates(t *testing.T) {
	a := buildFrom(t, "# A\n\n## B\n\nold body\n")
	b := buildFrom(t, "# A\n\n## B\n\nnew body\n")

	assert.NotEqual(t, a.Roots[0].Children[0].SubtreeHash, b.Roots[0].Children[0].SubtreeHash)
	assert.NotEqual(t, a.Roots[0].SubtreeHash, b.Roots[0].SubtreeHash)
	assert.Equal(t, a.Roots[0].TitleHash, b.Roots[0].TitleHash)
}

func TestBuild_SubtreeHashTrimmed_IgnoresSurroundingWhitespace(t *testing.T) {
	a := buildFrom(t, "# A\n\nbody\n")
	b := buildFrom(t, "# A\n\nbody\n\n\n")

	assert.NotEqual(t, a.Roots[0].SubtreeHash, b.Roots[0].SubtreeHash)
	assert.Equal(t, a.Roots[0].SubtreeHashTrimmed, b.Roots[0].SubtreeHashTrimmed)
}

func TestBuild_Deterministic(t *testing.T) {
	doc := "# A\n\n## B\n\ntext\n"
	x := buildFrom(t, doc)
	y := buildFrom(t, doc)
	assert.Equal(t, x.Roots[0].SubtreeHash, y.Roots[0].SubtreeHash)
	assert.Equal(t, x.PreambleHash, y.PreambleHash)
}

func TestToc_FindByPathAndLevels(t *testing.T) {
	tc := buildFrom(t, "# A\n## B\n### C\n## D\n")

	n := tc.FindByPath("a/b/c")
	require.NotNil(t, n)
	assert.Equal(t, "C", n.Title)
	assert.Nil(t, tc.FindByPath("a/x"))

	assert.Equal(t, []int{1, 2, 3, 2}, tc.Levels())
	assert.Equal(t, 1, tc.MinLevel())
	assert.Equal(t, 3, tc.MaxLevel())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World!"))
	assert.Equal(t, "a-b-c", Slugify("A_b - C"))
	assert.Equal(t, "v1-2-3", Slugify("v1.2.3"))
	assert.Equal(t, "section", Slugify("!!!"))
	assert.Equal(t, "section", Slugify(""))
}
