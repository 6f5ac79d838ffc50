// Package delta computes structural diffs between two TOC snapshots:
// added, removed, modified and moved sections, frontmatter and
// code-block changes, broken internal links, and an overall change
// classification. Comparison is read-only; neither snapshot is mutated.
package delta

import (
	"fmt"
	"strings"
)

// DocumentChange is the overall classification of a document revision.
type DocumentChange string

const (
	ChangeNone            DocumentChange = "no_change"
	ChangeWhitespaceOnly  DocumentChange = "whitespace_only"
	ChangeFrontmatterOnly DocumentChange = "frontmatter_only"
	ChangeStructuralOnly  DocumentChange = "structural_only"
	ChangeContentMinor    DocumentChange = "content_minor"
	ChangeContentModerate DocumentChange = "content_moderate"
	ChangeContentMajor    DocumentChange = "content_major"
	ChangeRewritten       DocumentChange = "rewritten"
)

// ChangeAction classifies one section-level change.
type ChangeAction string

const (
	ActionAdded           ChangeAction = "added"
	ActionRemoved         ChangeAction = "removed"
	ActionContentModified ChangeAction = "content_modified"
	ActionRenamed         ChangeAction = "renamed"
	ActionWhitespaceOnly  ChangeAction = "whitespace_only"
)

// ContentChange records one section-level difference, keyed by
// structural path. For renames, Path addresses the section in the new
// snapshot and OldPath/OldTitle identify where it came from.
type ContentChange struct {
	Path     string       `json:"path"`
	Action   ChangeAction `json:"action"`
	Level    int          `json:"level,omitempty"`
	Title    string       `json:"title,omitempty"`
	OldPath  string       `json:"old_path,omitempty"`
	OldTitle string       `json:"old_title,omitempty"`
}

// MovedSection records a subtree that exists byte-identically in both
// snapshots at different structural paths.
type MovedSection struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Title       string `json:"title"`
	SubtreeHash uint64 `json:"subtree_hash"`
}

// FrontmatterAction classifies one frontmatter key difference.
type FrontmatterAction string

const (
	PropertyAdded     FrontmatterAction = "property_added"
	PropertyRemoved   FrontmatterAction = "property_removed"
	PropertyUpdated   FrontmatterAction = "property_updated"
	PropertyReordered FrontmatterAction = "property_reordered"
)

// FrontmatterChange records one frontmatter difference. A reorder of
// the whole key set is reported as a single entry with an empty Key.
type FrontmatterChange struct {
	Key      string            `json:"key,omitempty"`
	Action   FrontmatterAction `json:"action"`
	OldValue any               `json:"old_value,omitempty"`
	NewValue any               `json:"new_value,omitempty"`
}

// CodeBlockChange records a code block difference within a section.
// Matching is positional within the owning section; an info-string-only
// change (same content, different fence info) is reported as Renamed.
type CodeBlockChange struct {
	SectionPath string       `json:"section_path"`
	Index       int          `json:"index"`
	Action      ChangeAction `json:"action"`
	Language    string       `json:"language,omitempty"`
	OldInfo     string       `json:"old_info,omitempty"`
	NewInfo     string       `json:"new_info,omitempty"`
}

// BrokenLink records an internal link whose target slug disappeared
// between snapshots. SuggestedReplacement is a best-effort repair: the
// slug of a new-snapshot heading whose trimmed title hash matches the
// original target's, or empty when no such heading exists.
type BrokenLink struct {
	LinkText             string `json:"link_text"`
	TargetSlug           string `json:"target_slug"`
	SectionPath          string `json:"section_path,omitempty"`
	SuggestedReplacement string `json:"suggested_replacement,omitempty"`
}

// Statistics aggregates the section-level counts behind the overall
// classification.
type Statistics struct {
	OldSections        int     `json:"old_sections"`
	NewSections        int     `json:"new_sections"`
	Unchanged          int     `json:"unchanged"`
	Added              int     `json:"added"`
	Removed            int     `json:"removed"`
	Modified           int     `json:"modified"`
	Moved              int     `json:"moved"`
	ContentChangeRatio float64 `json:"content_change_ratio"`
}

// Delta is the one-shot comparison result between two snapshots.
// PreambleChange is empty when the content before the first heading is
// untouched, ActionWhitespaceOnly when only whitespace shifted, and
// ActionContentModified otherwise.
type Delta struct {
	Classification     DocumentChange      `json:"classification"`
	PreambleChange     ChangeAction        `json:"preamble_change,omitempty"`
	FrontmatterChanges []FrontmatterChange `json:"frontmatter_changes,omitempty"`
	Added              []ContentChange     `json:"added,omitempty"`
	Removed            []ContentChange     `json:"removed,omitempty"`
	Modified           []ContentChange     `json:"modified,omitempty"`
	Moved              []MovedSection      `json:"moved,omitempty"`
	CodeBlockChanges   []CodeBlockChange   `json:"code_block_changes,omitempty"`
	BrokenLinks        []BrokenLink        `json:"broken_links,omitempty"`
	Statistics         Statistics          `json:"statistics"`
}

// HasChanges reports whether anything at all differs.
func (d *Delta) HasChanges() bool {
	return d.Classification != ChangeNone
}

// Summary renders a one-line human-readable account of the delta.
func (d *Delta) Summary() string {
	if !d.HasChanges() {
		return "no changes"
	}
	parts := []string{string(d.Classification)}
	if n := d.Statistics.Added; n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := d.Statistics.Removed; n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := d.Statistics.Modified; n > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", n))
	}
	if n := d.Statistics.Moved; n > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", n))
	}
	if n := len(d.FrontmatterChanges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d frontmatter", n))
	}
	if n := len(d.CodeBlockChanges); n > 0 {
		parts = append(parts, fmt.Sprintf("%d code blocks", n))
	}
	if n := len(d.BrokenLinks); n > 0 {
		parts = append(parts, fmt.Sprintf("%d broken links", n))
	}
	return strings.Join(parts, ", ")
}
