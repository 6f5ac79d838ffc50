// Package docmodel represents a Markdown document as an immutable value:
// ordered frontmatter fields plus raw body. Mutation methods return a
// new Document; the structural view (a TOC snapshot) is derived on
// demand and never cached across mutations.
package docmodel

import (
	"fmt"
	"os"
	"strings"

	"git.home.luguber.info/inful/mdstruct/internal/frontmatter"
	"git.home.luguber.info/inful/mdstruct/internal/hashing"
	"git.home.luguber.info/inful/mdstruct/internal/markdown"
	"git.home.luguber.info/inful/mdstruct/internal/structure"
	"git.home.luguber.info/inful/mdstruct/internal/toc"
)

// Options controls parsing behavior for Document.
type Options struct{}

// Document is a parsed Markdown document. The zero value is not useful;
// construct via Parse or ParseFile.
type Document struct {
	original []byte
	fmRaw    []byte
	body     []byte
	hadFM    bool
	style    frontmatter.Style
	fields   *frontmatter.Fields
}

// Parse splits raw file content into frontmatter and body and parses
// the frontmatter into ordered fields.
func Parse(content []byte, _ Options) (*Document, error) {
	fmRaw, body, had, style, err := frontmatter.Split(content)
	if err != nil {
		return nil, fmt.Errorf("split frontmatter: %w", err)
	}

	fields, err := frontmatter.ParseFields(fmRaw)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	d := &Document{
		original: append([]byte(nil), content...),
		body:     append([]byte(nil), body...),
		hadFM:    had,
		style:    style,
		fields:   fields,
	}
	if had {
		d.fmRaw = append([]byte(nil), fmRaw...)
	}
	return d, nil
}

// ParseFile reads path and parses it.
func ParseFile(path string, opts Options) (*Document, error) {
	// #nosec G304 -- path comes from the caller's own CLI arguments.
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	doc, err := Parse(content, opts)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", path, err)
	}
	return doc, nil
}

// Original returns a copy of the source bytes as parsed.
func (d *Document) Original() []byte {
	return append([]byte(nil), d.original...)
}

// Body returns a copy of the Markdown body (frontmatter removed).
func (d *Document) Body() []byte {
	return append([]byte(nil), d.body...)
}

// HadFrontmatter reports whether the source contained a frontmatter block.
func (d *Document) HadFrontmatter() bool {
	return d.hadFM
}

// Fields returns a copy of the ordered frontmatter fields.
func (d *Document) Fields() *frontmatter.Fields {
	return d.fields.Clone()
}

// Style returns the newline style detected while splitting.
func (d *Document) Style() frontmatter.Style {
	return d.style
}

// Bytes re-joins frontmatter and body into full document bytes.
func (d *Document) Bytes() []byte {
	return frontmatter.Join(d.fmRaw, d.body, d.hadFM, d.style)
}

// Title returns the frontmatter "title" field when present, otherwise
// empty; the snapshot falls back to the shallowest heading.
func (d *Document) Title() string {
	t, _ := d.fields.GetString("title")
	return t
}

// WithBody returns a new Document with the body replaced.
func (d *Document) WithBody(body []byte) *Document {
	nd := *d
	nd.body = append([]byte(nil), body...)
	nd.original = nd.Bytes()
	return &nd
}

// WithFields returns a new Document with the frontmatter replaced and
// re-serialized. A nil or empty fields value drops the block entirely.
func (d *Document) WithFields(fields *frontmatter.Fields) (*Document, error) {
	nd := *d
	if fields == nil || fields.Len() == 0 {
		nd.fields = frontmatter.NewFields()
		nd.fmRaw = nil
		nd.hadFM = false
	} else {
		raw, err := frontmatter.SerializeYAML(fields.Map(), d.style)
		if err != nil {
			return nil, fmt.Errorf("serialize frontmatter: %w", err)
		}
		nd.fields = fields.Clone()
		nd.fmRaw = raw
		nd.hadFM = true
	}
	nd.original = nd.Bytes()
	return &nd, nil
}

// MergeFields returns a new Document with fields overlaid onto the
// existing frontmatter; incoming values win.
func (d *Document) MergeFields(fields *frontmatter.Fields) (*Document, error) {
	merged := d.fields.Clone()
	merged.Merge(fields)
	return d.WithFields(merged)
}

// DefaultFields returns a new Document with fields filled in only where
// the existing frontmatter has no value.
func (d *Document) DefaultFields(fields *frontmatter.Fields) (*Document, error) {
	merged := d.fields.Clone()
	merged.Defaults(fields)
	return d.WithFields(merged)
}

// Relevel returns a new Document with every heading shifted so the
// first one lands at target. The receiver is untouched.
func (d *Document) Relevel(target int) (*Document, structure.NormalizationReport, error) {
	body, report, err := structure.Relevel(d.body, target)
	if err != nil {
		return nil, structure.NormalizationReport{}, err
	}
	return d.WithBody(body), report, nil
}

// RelevelInPlace applies Relevel to the receiver.
func (d *Document) RelevelInPlace(target int) (structure.NormalizationReport, error) {
	body, report, err := structure.Relevel(d.body, target)
	if err != nil {
		return structure.NormalizationReport{}, err
	}
	d.body = body
	d.original = d.Bytes()
	return report, nil
}

// Normalize returns a new Document with the heading shift applied after
// structure validation; pre-existing issues ride along in the report.
func (d *Document) Normalize(target int) (*Document, structure.NormalizationReport, error) {
	body, report, err := structure.Normalize(d.body, target)
	if err != nil {
		return nil, structure.NormalizationReport{}, err
	}
	return d.WithBody(body), report, nil
}

// NormalizeInPlace applies Normalize to the receiver.
func (d *Document) NormalizeInPlace(target int) (structure.NormalizationReport, error) {
	body, report, err := structure.Normalize(d.body, target)
	if err != nil {
		return structure.NormalizationReport{}, err
	}
	d.body = body
	d.original = d.Bytes()
	return report, nil
}

// Validate runs the structure validator over the document's headings.
func (d *Document) Validate() (structure.ValidationReport, error) {
	snap, err := d.Snapshot()
	if err != nil {
		return structure.ValidationReport{}, err
	}
	return structure.ValidateToc(snap), nil
}

// Snapshot derives the TOC view of this document: tree, indexes and
// every hash the delta engine compares, including page-level hashes and
// the content fingerprint.
func (d *Document) Snapshot() (*toc.Toc, error) {
	events, err := markdown.Extract(d.body, markdown.Options{})
	if err != nil {
		return nil, fmt.Errorf("extract events: %w", err)
	}

	t := toc.Build(events, toc.BuildOptions{
		SourceLen: len(d.body),
		LineCount: strings.Count(string(d.body), "\n") + 1,
	})

	full := d.Bytes()
	t.PageHash = hashing.FastBytes(full)
	t.PageHashTrimmed = hashing.Fast(strings.TrimSpace(string(full)))
	t.BodyHash = hashing.FastBytes(d.body)
	t.BodyHashTrimmed = hashing.Fast(strings.TrimSpace(string(d.body)))

	if d.hadFM {
		canonical, err := d.fields.CanonicalJSON()
		if err != nil {
			return nil, fmt.Errorf("canonicalize frontmatter: %w", err)
		}
		t.FrontmatterHash = hashing.FastBytes(canonical)
	}

	if fp, err := d.Fingerprint(); err == nil {
		t.Fingerprint = fp
	}

	if title := d.Title(); title != "" {
		t.Title = title
	}
	return t, nil
}
