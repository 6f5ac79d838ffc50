package structure

import (
	"bytes"
	"strings"

	"git.home.luguber.info/inful/mdstruct/internal/markdown"
)

// NormalizationReport describes an applied (or attempted) level shift.
type NormalizationReport struct {
	Adjustment       int      `json:"adjustment"`
	AffectedHeadings []string `json:"affected_headings,omitempty"`
	Issues           []Issue  `json:"issues,omitempty"`
}

type heading struct {
	level  int
	offset int
	atx    bool
	title  string
}

func collectHeadings(events []markdown.Event) []heading {
	var hs []heading
	for i, ev := range events {
		if ev.Kind != markdown.EventHeadingStart {
			continue
		}
		h := heading{level: ev.Level, offset: ev.MarkerOffset, atx: ev.ATX}
		if i+1 < len(events) && events[i+1].Kind == markdown.EventText {
			h.title = events[i+1].Text
		}
		hs = append(hs, h)
	}
	return hs
}

// CanRelevelTo reports whether shifting the sequence so its first
// heading lands at target keeps every heading inside 1..6.
func CanRelevelTo(levels []int, target int) bool {
	if len(levels) == 0 {
		return false
	}
	adj := target - levels[0]
	for _, l := range levels {
		if nl := l + adj; nl < 1 || nl > 6 {
			return false
		}
	}
	return true
}

// Relevel rewrites body so its first heading sits at target, shifting
// every other heading by the same amount. The rewrite is atomic: if any
// heading would leave 1..6 the body is returned untouched inside a
// LevelOverflowError. Setext headings are rewritten in ATX form since
// they cannot express levels past 2.
func Relevel(body []byte, target int) ([]byte, NormalizationReport, error) {
	events, err := markdown.Extract(body, markdown.Options{})
	if err != nil {
		return nil, NormalizationReport{}, err
	}
	hs := collectHeadings(events)
	if len(hs) == 0 {
		return nil, NormalizationReport{}, ErrNoHeadings
	}

	adjustment := target - hs[0].level
	report := NormalizationReport{Adjustment: adjustment}
	for _, h := range hs {
		report.AffectedHeadings = append(report.AffectedHeadings, h.title)
	}

	deepest, shallowest := hs[0], hs[0]
	for _, h := range hs[1:] {
		if h.level > deepest.level {
			deepest = h
		}
		if h.level < shallowest.level {
			shallowest = h
		}
	}
	if would := deepest.level + adjustment; would > 6 {
		return nil, NormalizationReport{}, &LevelOverflowError{
			Target:        target,
			AffectedCount: len(hs),
			DeepestTitle:  deepest.title,
			WouldBecome:   would,
		}
	}
	if would := shallowest.level + adjustment; would < 1 {
		return nil, NormalizationReport{}, &LevelOverflowError{
			Target:        target,
			AffectedCount: len(hs),
			DeepestTitle:  shallowest.title,
			WouldBecome:   would,
		}
	}

	if adjustment == 0 {
		return append([]byte(nil), body...), report, nil
	}

	var edits []markdown.Edit
	for _, h := range hs {
		newLevel := h.level + adjustment
		if h.atx {
			start := h.offset
			for start < len(body) && body[start] == ' ' {
				start++
			}
			end := start
			for end < len(body) && body[end] == '#' {
				end++
			}
			edits = append(edits, markdown.Edit{
				Start:       start,
				End:         end,
				Replacement: bytes.Repeat([]byte{'#'}, newLevel),
			})
			continue
		}
		title, end := setextSpan(body, h.offset)
		edits = append(edits, markdown.Edit{
			Start:       h.offset,
			End:         end,
			Replacement: []byte(strings.Repeat("#", newLevel) + " " + title + "\n"),
		})
	}

	out, err := markdown.ApplyEdits(body, edits)
	if err != nil {
		return nil, NormalizationReport{}, err
	}
	return out, report, nil
}

// Normalize is Relevel preceded by a structure validation pass. A
// hierarchy violation (some heading shallower than the root) makes the
// shift target ambiguous and is rejected; other issues such as skipped
// levels are surfaced in the report while the shift proceeds.
func Normalize(body []byte, target int) ([]byte, NormalizationReport, error) {
	events, err := markdown.Extract(body, markdown.Options{})
	if err != nil {
		return nil, NormalizationReport{}, err
	}
	hs := collectHeadings(events)
	if len(hs) == 0 {
		return nil, NormalizationReport{}, ErrNoHeadings
	}

	levels := make([]int, len(hs))
	titles := make([]string, len(hs))
	for i, h := range hs {
		levels[i] = h.level
		titles[i] = h.title
	}
	vr := Validate(levels, titles)
	for _, issue := range vr.Issues {
		if issue.Kind == IssueHierarchyViolation {
			return nil, NormalizationReport{}, &ValidationError{
				Reason: "a heading is shallower than the root heading, making the shift ambiguous",
				Issues: vr.Issues,
			}
		}
	}

	out, report, err := Relevel(body, target)
	if err != nil {
		return nil, NormalizationReport{}, err
	}
	report.Issues = vr.Issues
	return out, report, nil
}

// setextSpan returns the collapsed title text of a setext heading
// starting at off and the byte offset just past its underline.
func setextSpan(body []byte, off int) (title string, end int) {
	pos := off
	var parts []string
	for pos < len(body) {
		le := lineEndAt(body, pos)
		line := strings.TrimSpace(strings.TrimRight(string(body[pos:le]), "\r\n"))
		if isSetextUnderline(line) && len(parts) > 0 {
			return strings.Join(parts, " "), le
		}
		parts = append(parts, line)
		pos = le
	}
	return strings.Join(parts, " "), pos
}

func isSetextUnderline(line string) bool {
	if line == "" {
		return false
	}
	c := line[0]
	if c != '=' && c != '-' {
		return false
	}
	for i := 1; i < len(line); i++ {
		if line[i] != c {
			return false
		}
	}
	return true
}

func lineEndAt(src []byte, off int) int {
	i := bytes.IndexByte(src[off:], '\n')
	if i < 0 {
		return len(src)
	}
	return off + i + 1
}
