package docmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdstruct/internal/frontmatter"
	"git.home.luguber.info/inful/mdstruct/internal/structure"
)

const withFM = "---\ntitle: My Guide\ndraft: true\n---\n# Heading\n\nbody text\n"

func TestParse_WithFrontmatter(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)

	assert.True(t, d.HadFrontmatter())
	assert.Equal(t, "My Guide", d.Title())
	assert.Equal(t, "# Heading\n\nbody text\n", string(d.Body()))
	assert.Equal(t, []string{"title", "draft"}, d.Fields().Keys())
}

func TestParse_WithoutFrontmatter(t *testing.T) {
	d, err := Parse([]byte("# Just Body\n"), Options{})
	require.NoError(t, err)

	assert.False(t, d.HadFrontmatter())
	assert.Equal(t, "", d.Title())
	assert.Equal(t, "# Just Body\n", string(d.Bytes()))
}

func TestParse_MissingClosingDelimiter(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: broken\n"), Options{})
	require.ErrorIs(t, err, frontmatter.ErrMissingClosingDelimiter)
}

func TestBytes_RoundTrip(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)
	assert.Equal(t, withFM, string(d.Bytes()))
}

func TestWithBody_DoesNotMutateReceiver(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)

	nd := d.WithBody([]byte("# Other\n"))
	assert.Equal(t, "# Heading\n\nbody text\n", string(d.Body()))
	assert.Equal(t, "# Other\n", string(nd.Body()))
	assert.True(t, nd.HadFrontmatter())
}

func TestMergeFields_IncomingWins(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)

	over := frontmatter.NewFields()
	over.Set("draft", false)
	over.Set("tags", []any{"go"})

	nd, err := d.MergeFields(over)
	require.NoError(t, err)

	v, _ := nd.Fields().Get("draft")
	assert.Equal(t, false, v)
	assert.True(t, nd.Fields().Has("tags"))

	// Receiver untouched.
	v, _ = d.Fields().Get("draft")
	assert.Equal(t, true, v)
}

func TestDefaultFields_NeverOverwrites(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)

	def := frontmatter.NewFields()
	def.Set("title", "Fallback")
	def.Set("layout", "doc")

	nd, err := d.DefaultFields(def)
	require.NoError(t, err)
	assert.Equal(t, "My Guide", nd.Title())
	l, _ := nd.Fields().GetString("layout")
	assert.Equal(t, "doc", l)
}

func TestRelevel_PureAndInPlace(t *testing.T) {
	d, err := Parse([]byte("## Root\n\n### Child\n"), Options{})
	require.NoError(t, err)

	nd, report, err := d.Relevel(1)
	require.NoError(t, err)
	assert.Equal(t, -1, report.Adjustment)
	assert.Equal(t, "# Root\n\n## Child\n", string(nd.Body()))
	assert.Equal(t, "## Root\n\n### Child\n", string(d.Body()))

	report, err = d.RelevelInPlace(1)
	require.NoError(t, err)
	assert.Equal(t, -1, report.Adjustment)
	assert.Equal(t, "# Root\n\n## Child\n", string(d.Body()))
}

func TestRelevel_OverflowPropagates(t *testing.T) {
	d, err := Parse([]byte("# A\n\n###### Deep\n"), Options{})
	require.NoError(t, err)

	_, _, err = d.Relevel(2)
	var overflow *structure.LevelOverflowError
	require.ErrorAs(t, err, &overflow)
}

func TestSnapshot_TitlePrefersFrontmatter(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)

	snap, err := d.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "My Guide", snap.Title)

	bare, err := Parse([]byte("# Heading\n\nbody\n"), Options{})
	require.NoError(t, err)
	snap, err = bare.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Heading", snap.Title)
}

func TestSnapshot_PageHashesDistinguishFrontmatter(t *testing.T) {
	a, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)
	b, err := Parse([]byte("---\ntitle: My Guide\ndraft: false\n---\n# Heading\n\nbody text\n"), Options{})
	require.NoError(t, err)

	sa, err := a.Snapshot()
	require.NoError(t, err)
	sb, err := b.Snapshot()
	require.NoError(t, err)

	assert.NotEqual(t, sa.PageHash, sb.PageHash)
	assert.Equal(t, sa.BodyHash, sb.BodyHash)
	assert.NotEqual(t, sa.FrontmatterHash, sb.FrontmatterHash)
}

func TestValidate_ReportsSkippedLevel(t *testing.T) {
	d, err := Parse([]byte("# Title\n\n### Skipped\n"), Options{})
	require.NoError(t, err)

	report, err := d.Validate()
	require.NoError(t, err)
	assert.False(t, report.WellFormed)
}

func TestFingerprint_StableAndContentSensitive(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)

	fp1, err := d.Fingerprint()
	require.NoError(t, err)
	fp2, err := d.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	nd := d.WithBody([]byte("# Heading\n\nchanged\n"))
	fp3, err := nd.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestFingerprint_IgnoresVolatileKeys(t *testing.T) {
	d, err := Parse([]byte(withFM), Options{})
	require.NoError(t, err)
	fp1, err := d.Fingerprint()
	require.NoError(t, err)

	over := frontmatter.NewFields()
	over.Set("lastmod", "2026-01-01")
	nd, err := d.MergeFields(over)
	require.NoError(t, err)

	fp2, err := nd.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}
