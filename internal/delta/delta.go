package delta

import (
	"reflect"
	"sort"
	"strings"

	"git.home.luguber.info/inful/mdstruct/internal/frontmatter"
	"git.home.luguber.info/inful/mdstruct/internal/toc"
	"git.home.luguber.info/inful/mdstruct/internal/util/sets"
)

// Compute diffs two TOC snapshots. Frontmatter fields may be nil when a
// document has none. The matching is two-pass: an exact pass over
// subtree hashes settles unchanged and moved subtrees in O(1) per
// subtree, then a positional pass classifies what remains by structural
// path.
func Compute(oldToc, newToc *toc.Toc, oldFM, newFM *frontmatter.Fields) *Delta {
	d := &Delta{}

	oldNodes := flatten(oldToc)
	newNodes := flatten(newToc)
	d.Statistics.OldSections = len(oldNodes)
	d.Statistics.NewSections = len(newNodes)

	newIdx := map[uint64][]*toc.Node{}
	for _, n := range newNodes {
		newIdx[n.SubtreeHash] = append(newIdx[n.SubtreeHash], n)
	}

	oldMatched := sets.New[string]()
	newMatched := sets.New[string]()
	inPlace := sets.New[string]()
	unchanged := 0

	// Exact pass, same position first so moves cannot steal an
	// identical sibling's in-place match.
	var exact func(n *toc.Node)
	exact = func(n *toc.Node) {
		for _, c := range newIdx[n.SubtreeHash] {
			if c.Path == n.Path && !newMatched.Has(c.Path) {
				markSubtree(n, oldMatched)
				markSubtree(c, newMatched)
				inPlace.Add(n.Path)
				unchanged += subtreeSize(n)
				return
			}
		}
		for _, c := range n.Children {
			exact(c)
		}
	}
	for _, r := range oldToc.Roots {
		exact(r)
	}

	// Exact pass, different position: whole-subtree moves.
	var moved func(n *toc.Node)
	moved = func(n *toc.Node) {
		if oldMatched.Has(n.Path) {
			return
		}
		for _, c := range newIdx[n.SubtreeHash] {
			if newMatched.Has(c.Path) {
				continue
			}
			markSubtree(n, oldMatched)
			markSubtree(c, newMatched)
			d.Moved = append(d.Moved, MovedSection{
				OldPath:     n.Path,
				NewPath:     c.Path,
				Title:       n.Title,
				SubtreeHash: n.SubtreeHash,
			})
			unchanged += subtreeSize(n) - 1
			return
		}
		for _, c := range n.Children {
			moved(c)
		}
	}
	for _, r := range oldToc.Roots {
		moved(r)
	}

	detectReorders(oldToc, newToc, inPlace, d)

	// Positional pass over the remainder.
	oldRem := map[string]*toc.Node{}
	newRem := map[string]*toc.Node{}
	for _, n := range oldNodes {
		if !oldMatched.Has(n.Path) {
			oldRem[n.Path] = n
		}
	}
	for _, n := range newNodes {
		if !newMatched.Has(n.Path) {
			newRem[n.Path] = n
		}
	}

	for _, path := range sortedKeys(oldRem) {
		on := oldRem[path]
		nn, ok := newRem[path]
		if !ok {
			continue
		}
		delete(oldRem, path)
		delete(newRem, path)

		switch {
		case on.OwnContentHash == nn.OwnContentHash && on.TitleHash != nn.TitleHash:
			d.Modified = append(d.Modified, ContentChange{
				Path:     path,
				Action:   ActionRenamed,
				Level:    nn.Level,
				Title:    nn.Title,
				OldTitle: on.Title,
			})
		case on.OwnContentHashTrimmed != nn.OwnContentHashTrimmed || on.TitleHashTrimmed != nn.TitleHashTrimmed:
			d.Modified = append(d.Modified, ContentChange{
				Path:   path,
				Action: ActionContentModified,
				Level:  nn.Level,
				Title:  nn.Title,
			})
		case on.OwnContentHash != nn.OwnContentHash || on.TitleHash != nn.TitleHash:
			d.Modified = append(d.Modified, ContentChange{
				Path:   path,
				Action: ActionWhitespaceOnly,
				Level:  nn.Level,
				Title:  nn.Title,
			})
		default:
			// Only descendants differ; the node itself is unchanged.
			unchanged++
		}
	}

	// Renames change the slug and therefore the path: match leftovers
	// within the same parent by identical body content.
	renamedPrefix := map[string]string{}
	for _, oldPath := range sortedKeys(oldRem) {
		on := oldRem[oldPath]
		for _, newPath := range sortedKeys(newRem) {
			nn := newRem[newPath]
			if parentPath(oldPath) != parentPath(newPath) || on.Level != nn.Level {
				continue
			}
			if on.OwnContentHash != nn.OwnContentHash || on.TitleHash == nn.TitleHash {
				continue
			}
			d.Modified = append(d.Modified, ContentChange{
				Path:     newPath,
				Action:   ActionRenamed,
				Level:    nn.Level,
				Title:    nn.Title,
				OldPath:  oldPath,
				OldTitle: on.Title,
			})
			renamedPrefix[oldPath] = newPath
			delete(oldRem, oldPath)
			delete(newRem, newPath)
			break
		}
	}

	// A rename shifts every descendant path; the move pass saw those
	// descendants as relocated, but they have not actually moved.
	if len(renamedPrefix) > 0 {
		kept := d.Moved[:0]
		for _, m := range d.Moved {
			if applyPrefixRenames(m.OldPath, renamedPrefix) == m.NewPath {
				unchanged++
				continue
			}
			kept = append(kept, m)
		}
		d.Moved = kept
	}

	for _, path := range sortedKeys(oldRem) {
		n := oldRem[path]
		d.Removed = append(d.Removed, ContentChange{
			Path:   path,
			Action: ActionRemoved,
			Level:  n.Level,
			Title:  n.Title,
		})
	}
	for _, path := range sortedKeys(newRem) {
		n := newRem[path]
		d.Added = append(d.Added, ContentChange{
			Path:   path,
			Action: ActionAdded,
			Level:  n.Level,
			Title:  n.Title,
		})
	}

	if oldToc.PreambleHash != newToc.PreambleHash {
		if oldToc.PreambleHashTrimmed == newToc.PreambleHashTrimmed {
			d.PreambleChange = ActionWhitespaceOnly
		} else {
			d.PreambleChange = ActionContentModified
		}
	}

	d.FrontmatterChanges = diffFrontmatter(oldFM, newFM)
	d.CodeBlockChanges = diffCodeBlocks(oldToc, newToc)
	d.BrokenLinks = detectBrokenLinks(oldToc, newToc)

	d.Statistics.Unchanged = unchanged
	d.Statistics.Added = len(d.Added)
	d.Statistics.Removed = len(d.Removed)
	d.Statistics.Modified = len(d.Modified)
	d.Statistics.Moved = len(d.Moved)
	d.Statistics.ContentChangeRatio = changeRatio(d, oldNodes, newNodes)

	d.Classification = classify(oldToc, newToc, d)
	return d
}

func flatten(t *toc.Toc) []*toc.Node {
	var out []*toc.Node
	t.Walk(func(n *toc.Node) { out = append(out, n) })
	return out
}

func markSubtree(n *toc.Node, marked sets.Set[string]) {
	marked.Add(n.Path)
	for _, c := range n.Children {
		markSubtree(c, marked)
	}
}

func subtreeSize(n *toc.Node) int {
	size := 1
	for _, c := range n.Children {
		size += subtreeSize(c)
	}
	return size
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return ""
	}
	return path[:i]
}

func applyPrefixRenames(path string, renames map[string]string) string {
	for oldPrefix, newPrefix := range renames {
		if path == oldPrefix {
			return newPrefix
		}
		if strings.HasPrefix(path, oldPrefix+"/") {
			return newPrefix + path[len(oldPrefix):]
		}
	}
	return path
}

// detectReorders finds siblings that swapped relative order without
// changing path or content. Per parent, the in-place-matched children
// are projected onto their order in the new snapshot; everything not on
// the longest increasing subsequence has been reordered. Insertions and
// removals of other siblings do not disturb this.
func detectReorders(oldToc, newToc *toc.Toc, inPlace sets.Set[string], d *Delta) {
	newByPath := map[string]*toc.Node{}
	newToc.Walk(func(n *toc.Node) { newByPath[n.Path] = n })

	compare := func(oldChildren, newChildren []*toc.Node) {
		var oldSeq []*toc.Node
		for _, c := range oldChildren {
			if inPlace.Has(c.Path) {
				oldSeq = append(oldSeq, c)
			}
		}
		if len(oldSeq) < 2 {
			return
		}
		pos := map[string]int{}
		idx := 0
		for _, c := range newChildren {
			if inPlace.Has(c.Path) {
				pos[c.Path] = idx
				idx++
			}
		}
		seq := make([]int, len(oldSeq))
		for i, c := range oldSeq {
			p, ok := pos[c.Path]
			if !ok {
				return
			}
			seq[i] = p
		}
		keep := lisMembers(seq)
		for i, c := range oldSeq {
			if !keep[i] {
				d.Moved = append(d.Moved, MovedSection{
					OldPath:     c.Path,
					NewPath:     c.Path,
					Title:       c.Title,
					SubtreeHash: c.SubtreeHash,
				})
			}
		}
	}

	compare(oldToc.Roots, newToc.Roots)
	oldToc.Walk(func(n *toc.Node) {
		if len(n.Children) == 0 {
			return
		}
		if np := newByPath[n.Path]; np != nil {
			compare(n.Children, np.Children)
		}
	})
}

// lisMembers returns a membership mask for one longest increasing
// subsequence of seq.
func lisMembers(seq []int) []bool {
	n := len(seq)
	length := make([]int, n)
	prev := make([]int, n)
	best, bestIdx := 0, -1
	for i := 0; i < n; i++ {
		length[i], prev[i] = 1, -1
		for j := 0; j < i; j++ {
			if seq[j] < seq[i] && length[j]+1 > length[i] {
				length[i] = length[j] + 1
				prev[i] = j
			}
		}
		if length[i] > best {
			best, bestIdx = length[i], i
		}
	}
	keep := make([]bool, n)
	for i := bestIdx; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}

func changeRatio(d *Delta, oldNodes, newNodes []*toc.Node) float64 {
	union := sets.New[string]()
	for _, n := range oldNodes {
		union.Add(n.Path)
	}
	for _, n := range newNodes {
		union.Add(n.Path)
	}
	if len(union) == 0 {
		return 0
	}
	changed := len(d.Added) + len(d.Removed) + len(d.Modified)
	return float64(changed) / float64(len(union))
}

func classify(oldToc, newToc *toc.Toc, d *Delta) DocumentChange {
	switch {
	case oldToc.PageHash == newToc.PageHash:
		return ChangeNone
	case oldToc.PageHashTrimmed == newToc.PageHashTrimmed:
		return ChangeWhitespaceOnly
	case oldToc.BodyHash == newToc.BodyHash:
		return ChangeFrontmatterOnly
	}
	if len(d.Added)+len(d.Removed)+len(d.Modified) == 0 && len(d.Moved) > 0 {
		return ChangeStructuralOnly
	}
	ratio := d.Statistics.ContentChangeRatio
	switch {
	case ratio < 0.10:
		return ChangeContentMinor
	case ratio < 0.40:
		return ChangeContentModerate
	case ratio < 0.80:
		return ChangeContentMajor
	default:
		return ChangeRewritten
	}
}

func diffFrontmatter(oldFM, newFM *frontmatter.Fields) []FrontmatterChange {
	if oldFM == nil {
		oldFM = frontmatter.NewFields()
	}
	if newFM == nil {
		newFM = frontmatter.NewFields()
	}

	oldKeys := oldFM.Keys()
	newKeys := newFM.Keys()
	oldSet := sets.New(oldKeys...)
	newSet := sets.New(newKeys...)

	var changes []FrontmatterChange
	for _, k := range oldKeys {
		if !newSet.Has(k) {
			v, _ := oldFM.Get(k)
			changes = append(changes, FrontmatterChange{Key: k, Action: PropertyRemoved, OldValue: v})
		}
	}
	for _, k := range newKeys {
		if !oldSet.Has(k) {
			v, _ := newFM.Get(k)
			changes = append(changes, FrontmatterChange{Key: k, Action: PropertyAdded, NewValue: v})
		}
	}
	for _, k := range oldKeys {
		if !newSet.Has(k) {
			continue
		}
		ov, _ := oldFM.Get(k)
		nv, _ := newFM.Get(k)
		if !reflect.DeepEqual(ov, nv) {
			changes = append(changes, FrontmatterChange{Key: k, Action: PropertyUpdated, OldValue: ov, NewValue: nv})
		}
	}

	if len(oldKeys) == len(newKeys) && len(oldKeys) > 0 {
		sameSet := true
		for _, k := range oldKeys {
			if !newSet.Has(k) {
				sameSet = false
				break
			}
		}
		if sameSet && !reflect.DeepEqual(oldKeys, newKeys) {
			changes = append(changes, FrontmatterChange{Action: PropertyReordered})
		}
	}
	return changes
}

func diffCodeBlocks(oldToc, newToc *toc.Toc) []CodeBlockChange {
	group := func(t *toc.Toc) map[string][]toc.CodeBlock {
		g := map[string][]toc.CodeBlock{}
		for _, cb := range t.CodeBlocks {
			g[cb.SectionPath] = append(g[cb.SectionPath], cb)
		}
		return g
	}
	oldG := group(oldToc)
	newG := group(newToc)

	paths := sets.New[string]()
	for p := range oldG {
		paths.Add(p)
	}
	for p := range newG {
		paths.Add(p)
	}

	var changes []CodeBlockChange
	for _, path := range sortedKeys(paths) {
		ob := oldG[path]
		nb := newG[path]
		n := len(ob)
		if len(nb) > n {
			n = len(nb)
		}
		for i := 0; i < n; i++ {
			switch {
			case i >= len(ob):
				changes = append(changes, CodeBlockChange{
					SectionPath: path, Index: i, Action: ActionAdded,
					Language: nb[i].Language, NewInfo: nb[i].Info,
				})
			case i >= len(nb):
				changes = append(changes, CodeBlockChange{
					SectionPath: path, Index: i, Action: ActionRemoved,
					Language: ob[i].Language, OldInfo: ob[i].Info,
				})
			case ob[i].ContentHash == nb[i].ContentHash && ob[i].Info != nb[i].Info:
				changes = append(changes, CodeBlockChange{
					SectionPath: path, Index: i, Action: ActionRenamed,
					Language: nb[i].Language, OldInfo: ob[i].Info, NewInfo: nb[i].Info,
				})
			case ob[i].ContentHash != nb[i].ContentHash:
				changes = append(changes, CodeBlockChange{
					SectionPath: path, Index: i, Action: ActionContentModified,
					Language: nb[i].Language, OldInfo: ob[i].Info, NewInfo: nb[i].Info,
				})
			}
		}
	}
	return changes
}

func detectBrokenLinks(oldToc, newToc *toc.Toc) []BrokenLink {
	var out []BrokenLink
	for _, l := range oldToc.InternalLinks {
		if !l.Resolved || l.TargetSlug == "" {
			continue
		}
		if len(newToc.SlugIndex[l.TargetSlug]) > 0 {
			continue
		}
		b := BrokenLink{
			LinkText:    l.Text,
			TargetSlug:  l.TargetSlug,
			SectionPath: l.SectionPath,
		}
		if entries := oldToc.SlugIndex[l.TargetSlug]; len(entries) > 0 {
			if target := oldToc.FindByPath(entries[0].Path); target != nil {
				newToc.Walk(func(n *toc.Node) {
					if b.SuggestedReplacement == "" && n.TitleHashTrimmed == target.TitleHashTrimmed {
						b.SuggestedReplacement = n.Slug
					}
				})
			}
		}
		out = append(out, b)
	}
	return out
}
