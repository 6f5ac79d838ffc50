// Package structure validates heading hierarchies and applies uniform
// heading-level shifts. Validation is read-only and always produces a
// report; only releveling has failure modes.
package structure

import (
	"fmt"

	"git.home.luguber.info/inful/mdstruct/internal/toc"
)

// IssueKind tags one class of hierarchy defect. Issues are data, not
// errors: real documents carry them routinely and callers want the
// detail rather than a failure.
type IssueKind string

const (
	IssueHierarchyViolation IssueKind = "hierarchy_violation"
	IssueSkippedLevel       IssueKind = "skipped_level"
	IssueMultipleH1         IssueKind = "multiple_h1"
	IssueNoHeadings         IssueKind = "no_headings"
	IssueLevelOverflow      IssueKind = "level_overflow"
)

// Issue describes one defect found during a validation walk.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	Index     int       `json:"index"`
	Level     int       `json:"level"`
	PrevLevel int       `json:"prev_level,omitempty"`
	Title     string    `json:"title,omitempty"`
	Detail    string    `json:"detail"`
}

// ValidationReport is the outcome of a single read-only pass over a
// heading-level sequence.
type ValidationReport struct {
	RootLevel    int     `json:"root_level"`
	HeadingCount int     `json:"heading_count"`
	WellFormed   bool    `json:"well_formed"`
	Issues       []Issue `json:"issues,omitempty"`
}

// Validate walks a pre-order heading-level sequence and reports
// hierarchy defects. Titles may be nil; when given it must be parallel
// to levels and is used only to enrich issue messages.
func Validate(levels []int, titles []string) ValidationReport {
	r := ValidationReport{WellFormed: true}
	r.HeadingCount = len(levels)

	if len(levels) == 0 {
		r.WellFormed = false
		r.Issues = append(r.Issues, Issue{
			Kind:   IssueNoHeadings,
			Detail: "document contains no headings",
		})
		return r
	}

	titleAt := func(i int) string {
		if titles != nil && i < len(titles) {
			return titles[i]
		}
		return ""
	}

	r.RootLevel = levels[0]
	h1Count := 0
	prev := 0
	for i, level := range levels {
		if level == 1 {
			h1Count++
		}
		if level < r.RootLevel {
			r.Issues = append(r.Issues, Issue{
				Kind:   IssueHierarchyViolation,
				Index:  i,
				Level:  level,
				Title:  titleAt(i),
				Detail: fmt.Sprintf("heading at level %d is shallower than the root level %d", level, r.RootLevel),
			})
		}
		if i > 0 && level > prev+1 {
			r.Issues = append(r.Issues, Issue{
				Kind:      IssueSkippedLevel,
				Index:     i,
				Level:     level,
				PrevLevel: prev,
				Title:     titleAt(i),
				Detail:    fmt.Sprintf("heading jumps from level %d to %d", prev, level),
			})
		}
		prev = level
	}
	if h1Count > 1 {
		r.Issues = append(r.Issues, Issue{
			Kind:   IssueMultipleH1,
			Level:  1,
			Detail: fmt.Sprintf("document contains %d level-1 headings", h1Count),
		})
	}

	r.WellFormed = len(r.Issues) == 0
	return r
}

// ValidateToc validates the heading hierarchy of a built Toc.
func ValidateToc(t *toc.Toc) ValidationReport {
	var levels []int
	var titles []string
	t.Walk(func(n *toc.Node) {
		levels = append(levels, n.Level)
		titles = append(titles, n.Title)
	})
	return Validate(levels, titles)
}
