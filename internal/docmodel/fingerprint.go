package docmodel

import (
	"git.home.luguber.info/inful/mdstruct/internal/frontmatter"
	"github.com/inful/mdfp"
)

// Frontmatter keys excluded from fingerprint canonicalization. These
// change as side effects of publishing, not as content edits.
const (
	fingerprintKeyAliases = "aliases"
	fingerprintKeyLastmod = "lastmod"
	fingerprintKeyUID     = "uid"
)

// Fingerprint computes the canonical content fingerprint for the
// document: frontmatter (minus volatile keys) serialized with LF
// newlines and a single trailing newline trimmed, combined with the
// body.
func (d *Document) Fingerprint() (string, error) {
	forHash := map[string]any{}
	for _, k := range d.fields.Keys() {
		switch k {
		case mdfp.FingerprintField, fingerprintKeyLastmod, fingerprintKeyUID, fingerprintKeyAliases:
			continue
		}
		v, _ := d.fields.Get(k)
		forHash[k] = v
	}

	fmPart := ""
	if len(forHash) > 0 {
		serialized, err := frontmatter.SerializeYAML(forHash, frontmatter.Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		fmPart = trimSingleTrailingNewline(string(serialized))
	}

	return mdfp.CalculateFingerprintFromParts(fmPart, string(d.body)), nil
}

func trimSingleTrailingNewline(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		return s[:len(s)-1]
	}
	return s
}
